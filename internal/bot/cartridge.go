package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/dialogue"
	"github.com/akimovd/deskbot/internal/directory"
	"github.com/akimovd/deskbot/internal/fleet"
)

const dateLayout = "02.01.2006"

// cartridgeFlow records a printer cartridge swap by narrowing down the
// device: floor, room, device, date. Steps with a single possible answer
// pick it themselves and move on.
func (b *Bot) cartridgeFlow(user directory.User) *dialogue.Flow {
	if b.inventory == nil || b.fleetStore == nil {
		return &dialogue.Flow{
			Name:  "cartridge",
			Start: "off",
			States: map[dialogue.StateName]dialogue.State{
				"off": {
					Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
						if err := b.sendText(ctx, s.ChatID, "Cartridge tracking is not set up."); err != nil {
							return dialogue.End, err
						}
						return dialogue.End, nil
					},
				},
			},
		}
	}

	pickState := func(name string, question string, options func(s *dialogue.Session) []string, next dialogue.StateName) dialogue.State {
		prefix := name + ":"
		return dialogue.State{
			Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
				opts := options(s)
				switch len(opts) {
				case 0:
					if err := b.sendText(ctx, s.ChatID, "No devices registered there."); err != nil {
						return dialogue.End, err
					}
					return dialogue.End, nil
				case 1:
					s.Data[name] = opts[0]
					return next, nil
				}
				kb := chat.BuildKeyboard(chat.LabelButtons(prefix, opts...), 0, true)
				_, err := b.adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: question, Keyboard: kb})
				return dialogue.Wait, err
			},
			Buttons: []dialogue.Rule{{
				Match: dialogue.Prefix(prefix),
				Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
					s.Data[name] = in.Callback[len(prefix):]
					return next, nil
				},
			}},
		}
	}

	return &dialogue.Flow{
		Name:  "cartridge",
		Start: "floor",
		States: map[dialogue.StateName]dialogue.State{
			"floor": pickState("floor", "Which floor?", func(*dialogue.Session) []string {
				return fleet.Labels(b.inventory.Floors())
			}, "room"),
			"room": pickState("room", "Which room?", func(s *dialogue.Session) []string {
				floor, _ := strconv.Atoi(s.Str("floor"))
				return fleet.Labels(b.inventory.Rooms(floor))
			}, "device"),
			"device": pickState("device", "Which device?", func(s *dialogue.Session) []string {
				floor, _ := strconv.Atoi(s.Str("floor"))
				room, _ := strconv.Atoi(s.Str("room"))
				return b.inventory.Devices(floor, room)
			}, "date"),
			"date": {
				Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
					kb := chat.Keyboard{
						{chat.Button{Label: "Today", Data: "date:today"}},
						{chat.ExitButton},
					}
					_, err := b.adapter.Send(ctx, chat.Outbound{
						ChatID:   s.ChatID,
						Text:     "When was it changed? Press Today or send a date like 28.08.2026.",
						Keyboard: kb,
					})
					return dialogue.Wait, err
				},
				Buttons: []dialogue.Rule{{
					Match: dialogue.Exact("date:today"),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						return b.recordCartridge(ctx, user, s, b.now().Format(dateLayout))
					},
				}},
				Texts: []dialogue.Rule{{
					Match: dialogue.Any(),
					Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
						if _, err := time.Parse(dateLayout, in.Text); err != nil {
							if serr := b.sendText(ctx, s.ChatID, "That is not a date. Use DD.MM.YYYY."); serr != nil {
								return dialogue.Stay, serr
							}
							return dialogue.Stay, nil
						}
						return b.recordCartridge(ctx, user, s, in.Text)
					},
				}},
			},
		},
		OnExit: func(ctx context.Context, s *dialogue.Session) error {
			return b.sendText(ctx, s.ChatID, "Canceled.")
		},
	}
}

func (b *Bot) recordCartridge(ctx context.Context, user directory.User, s *dialogue.Session, date string) (dialogue.StateName, error) {
	floor, _ := strconv.Atoi(s.Str("floor"))
	room, _ := strconv.Atoi(s.Str("room"))
	change := fleet.Change{
		ChangedOn: date,
		Floor:     floor,
		Room:      room,
		Device:    s.Str("device"),
		ChangedBy: user.FullName,
	}
	if err := b.fleetStore.RecordChange(ctx, change); err != nil {
		return dialogue.End, err
	}
	if b.audit != nil {
		b.audit.RecordCartridgeChange(ctx, change.Floor, change.Room, change.Device, change.ChangedOn, change.ChangedBy)
	}
	msg := fmt.Sprintf("Recorded: %s in room %d changed on %s.", change.Device, change.Room, change.ChangedOn)
	if err := b.sendText(ctx, s.ChatID, msg); err != nil {
		return dialogue.End, err
	}
	return dialogue.End, nil
}
