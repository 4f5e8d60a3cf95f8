package bot

import (
	"context"
	"strconv"

	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/dialogue"
	"github.com/akimovd/deskbot/internal/directory"
)

// Problem categories offered on the first step of the report flow. The
// chosen label prefixes the task text.
var problemKinds = []string{"Projector", "Computer", "Printer", "Network", "Other"}

const defaultPriority = 2

// newTaskFlow collects a problem report: category, description, room and,
// for admins, a priority. The terminal state creates the task and fans it
// out to every admin.
func (b *Bot) newTaskFlow(user directory.User) *dialogue.Flow {
	flow := &dialogue.Flow{
		Name:  "new-task",
		Start: "kind",
		States: map[dialogue.StateName]dialogue.State{
			"kind": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					kb := chat.BuildKeyboard(chat.LabelButtons("kind:", problemKinds...), 0, true)
					id, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID:   s.ChatID,
						Text:     "What is broken?",
						Keyboard: kb,
					})
					s.PromptID = id
					return dialogue.Wait, err
				},
				Buttons: []dialogue.Rule{{
					Match: dialogue.Prefix("kind:"),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						s.Data["kind"] = in.Callback[len("kind:"):]
						return "text", nil
					},
				}},
			},
			"text": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					_, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID: s.ChatID,
						Text:   "Describe the problem.",
					})
					return dialogue.Wait, err
				},
				Texts: []dialogue.Rule{{
					Match: dialogue.Any(),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						s.Data["text"] = in.Text
						return "room", nil
					},
				}},
			},
			"room": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					_, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID: s.ChatID,
						Text:   "Which room? Send the number.",
					})
					return dialogue.Wait, err
				},
				Texts: []dialogue.Rule{{
					Match: dialogue.Any(),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						room, err := strconv.Atoi(in.Text)
						if err != nil || room <= 0 {
							// delete the bad answer and ask again
							if derr := b.adapter.Delete(ctx, in.ChatID, in.MessageID); derr != nil {
								return dialogue.Stay, derr
							}
							_, serr := b.adapter.Send(ctx, chat.Outbound{
								ChatID: s.ChatID,
								Text:   "That is not a room number. Send digits only.",
							})
							return dialogue.Stay, serr
						}
						s.Data["room"] = room
						if user.Role.IsAdmin() {
							return "priority", nil
						}
						s.Data["priority"] = defaultPriority
						return "create", nil
					},
				}},
			},
			"priority": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					kb := chat.BuildKeyboard(chat.LabelButtons("prio:", "1", "2", "3"), 0, true)
					_, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID:   s.ChatID,
						Text:     "Priority? 1 is urgent, 3 can wait.",
						Keyboard: kb,
					})
					return dialogue.Wait, err
				},
				Buttons: []dialogue.Rule{{
					Match: dialogue.Prefix("prio:"),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						p, err := strconv.Atoi(in.Callback[len("prio:"):])
						if err != nil {
							return dialogue.Stay, nil
						}
						s.Data["priority"] = p
						return "create", nil
					},
				}},
			},
			"create": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					text := s.Str("kind") + ": " + s.Str("text")
					t, err := b.tasks.Create(ctx, s.Int("room"), text, user.FullName, s.Int("priority"))
					if err != nil {
						return dialogue.End, err
					}
					b.broadcastTask(ctx, t)
					_, err = b.adapter.Send(ctx, chat.Outbound{
						ChatID: s.ChatID,
						Text:   "Task #" + strconv.Itoa(t.ID) + " created. You will be notified.",
					})
					if err != nil {
						return dialogue.End, err
					}
					return dialogue.End, nil
				},
			},
		},
		OnExit: func(ctx context.Context, s *dialogue.Session) error {
			return b.sendText(ctx, s.ChatID, "Canceled.")
		},
	}
	return flow
}
