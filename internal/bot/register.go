package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/dialogue"
	"github.com/akimovd/deskbot/internal/directory"
)

// regRequest is a registration awaiting an admin's decision.
type regRequest struct {
	TelegramID int64
	ChatID     int64
	Username   string
	FullName   string
}

// registerFlow asks an unknown user for their name and parks the request
// until an admin approves, renames or declines it.
func (b *Bot) registerFlow() *dialogue.Flow {
	return &dialogue.Flow{
		Name:  "register",
		Start: "name",
		States: map[dialogue.StateName]dialogue.State{
			"name": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					_, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID: s.ChatID,
						Text:   "Send your full name as it should appear on tasks, e.g. \"Ivanova A.\"",
					})
					return dialogue.Wait, err
				},
				Texts: []dialogue.Rule{{
					Match: dialogue.Any(),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						name := strings.TrimSpace(in.Text)
						if name == "" {
							return dialogue.Stay, nil
						}
						req := regRequest{
							TelegramID: in.UserID,
							ChatID:     in.ChatID,
							Username:   in.UserName,
							FullName:   name,
						}
						b.requests.Put(in.UserID, req)
						b.notifyRequest(ctx, req)
						if err := b.sendText(ctx, s.ChatID, "Request sent. An admin will confirm your access."); err != nil {
							return dialogue.End, err
						}
						return dialogue.End, nil
					},
				}},
			},
		},
	}
}

func requestKeyboard(id int64) chat.Keyboard {
	return chat.Keyboard{{
		chat.Button{Label: "Approve", Data: userCB("approve", id)},
		chat.Button{Label: "Rename", Data: userCB("rename", id)},
		chat.Button{Label: "Decline", Data: userCB("decline", id)},
	}}
}

func (b *Bot) notifyRequest(ctx context.Context, req regRequest) {
	text := fmt.Sprintf("Registration request\n%s (@%s, id %d)", req.FullName, req.Username, req.TelegramID)
	for _, admin := range b.users.Admins() {
		out := chat.Outbound{ChatID: admin.TelegramID, Text: text, Keyboard: requestKeyboard(req.TelegramID)}
		if _, err := b.adapter.Send(ctx, out); err != nil {
			b.reportDelivery(ctx, admin.TelegramID, 0, err)
		}
	}
}

// showRequests re-sends every parked request to the asking admin.
func (b *Bot) showRequests(ctx context.Context, chatID int64) error {
	reqs := b.requests.Snapshot()
	if len(reqs) == 0 {
		return b.sendText(ctx, chatID, "No pending registrations.")
	}
	for _, req := range reqs {
		text := fmt.Sprintf("Registration request\n%s (@%s, id %d)", req.FullName, req.Username, req.TelegramID)
		out := chat.Outbound{ChatID: chatID, Text: text, Keyboard: requestKeyboard(req.TelegramID)}
		if _, err := b.adapter.Send(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// decideRequest resolves an admin's button press on a registration card.
// The pending pop makes the decision exclusive between admins.
func (b *Bot) decideRequest(ctx context.Context, admin directory.User, in chat.Inbound, verb string, id int64) error {
	req, ok := b.requests.Pop(id)
	if !ok {
		return b.adapter.AnswerCallback(ctx, in.CallbackID, "Already decided")
	}
	switch verb {
	case "approve":
		return b.approveRequest(ctx, admin, in, req, req.FullName)
	case "rename":
		// the request leaves the registry while the admin types the name;
		// bailing out of the rename puts it back
		if err := b.adapter.AnswerCallback(ctx, in.CallbackID, ""); err != nil {
			return err
		}
		return b.engine.Start(ctx, b.renameFlow(admin, req), in)
	case "decline":
		if err := b.adapter.AnswerCallback(ctx, in.CallbackID, "Declined"); err != nil {
			return err
		}
		return b.sendText(ctx, req.ChatID, "Your registration was declined.")
	default:
		b.requests.Put(id, req)
		return b.adapter.AnswerCallback(ctx, in.CallbackID, "")
	}
}

func (b *Bot) approveRequest(ctx context.Context, admin directory.User, in chat.Inbound, req regRequest, name string) error {
	user := directory.User{
		TelegramID: req.TelegramID,
		FullName:   name,
		Username:   req.Username,
		Role:       directory.RoleTeacher,
	}
	committed, err := b.userStore.Commit(ctx, user, admin.FullName, b.now())
	if err != nil {
		b.requests.Put(req.TelegramID, req)
		return err
	}
	b.users.Add(committed)
	if in.CallbackID != "" {
		if err := b.adapter.AnswerCallback(ctx, in.CallbackID, "Approved"); err != nil {
			return err
		}
	}
	return b.sendText(ctx, req.ChatID, fmt.Sprintf("You are registered as %s. Send /help to get started.", name))
}

// renameFlow lets an admin correct the requested name before approving.
func (b *Bot) renameFlow(admin directory.User, req regRequest) *dialogue.Flow {
	return &dialogue.Flow{
		Name:  "rename",
		Start: "name",
		States: map[dialogue.StateName]dialogue.State{
			"name": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					_, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID: s.ChatID,
						Text:   fmt.Sprintf("Send the corrected name for %s.", req.FullName),
					})
					return dialogue.Wait, err
				},
				Texts: []dialogue.Rule{{
					Match: dialogue.Any(),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						name := strings.TrimSpace(in.Text)
						if name == "" {
							return dialogue.Stay, nil
						}
						if err := b.approveRequest(ctx, admin, chat.Inbound{}, req, name); err != nil {
							return dialogue.End, err
						}
						if err := b.sendText(ctx, s.ChatID, fmt.Sprintf("Approved as %s.", name)); err != nil {
							return dialogue.End, err
						}
						return dialogue.End, nil
					},
				}},
			},
		},
		OnExit: func(ctx context.Context, s *dialogue.Session) error {
			b.requests.Put(req.TelegramID, req)
			return b.sendText(ctx, s.ChatID, "Rename canceled, request kept.")
		},
	}
}
