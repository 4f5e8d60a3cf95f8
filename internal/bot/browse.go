package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/dialogue"
	"github.com/akimovd/deskbot/internal/directory"
	"github.com/akimovd/deskbot/internal/task"
)

// browseFlow scrolls through a task list one card at a time. Scope is
// picked first; prev/next wrap around the ends of the list. Actions on the
// shown card go through the same repository operations as everything else.
func (b *Bot) browseFlow(user directory.User) *dialogue.Flow {
	return &dialogue.Flow{
		Name:  "browse",
		Start: "scope",
		States: map[dialogue.StateName]dialogue.State{
			"scope":   b.browseScopeState(user),
			"view":    b.browseViewState(user),
			"comment": b.browseCommentState(user),
		},
		OnExit: func(ctx context.Context, s *dialogue.Session) error {
			return b.sendText(ctx, s.ChatID, "Closed.")
		},
	}
}

func (b *Bot) browseScopeState(user directory.User) dialogue.State {
	return dialogue.State{
		Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
			kb := chat.BuildKeyboard(chat.LabelButtons("scope:", "Open", "Mine", "Closed"), 0, true)
			_, err := b.adapter.Send(ctx, chat.Outbound{
				ChatID:   s.ChatID,
				Text:     "Which tasks?",
				Keyboard: kb,
			})
			return dialogue.Wait, err
		},
		Buttons: []dialogue.Rule{{
			Match: dialogue.Prefix("scope:"),
			Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
				list, err := b.loadScope(ctx, user, in.Callback[len("scope:"):])
				if err != nil {
					return dialogue.End, err
				}
				if len(list) == 0 {
					if err := b.sendText(ctx, s.ChatID, "Nothing here."); err != nil {
						return dialogue.End, err
					}
					return dialogue.End, nil
				}
				s.Data["list"] = list
				s.Data["idx"] = 0
				return "view", nil
			},
		}},
	}
}

func (b *Bot) loadScope(ctx context.Context, user directory.User, scope string) ([]*task.Task, error) {
	switch scope {
	case "Open":
		notStarted, err := b.tasks.List(ctx, map[string]string{"status": task.StatusNotTaken.Label()})
		if err != nil {
			return nil, err
		}
		taken, err := b.tasks.List(ctx, map[string]string{"status": task.StatusTaken.Label()})
		if err != nil {
			return nil, err
		}
		return append(notStarted, taken...), nil
	case "Mine":
		return b.tasks.List(ctx, map[string]string{"executor": user.FullName})
	case "Closed":
		return b.tasks.List(ctx, map[string]string{"status": task.StatusCompleted.Label()})
	default:
		return nil, nil
	}
}

func browseList(s *dialogue.Session) []*task.Task {
	list, _ := s.Data["list"].([]*task.Task)
	return list
}

func (b *Bot) browseViewState(user directory.User) dialogue.State {
	render := func(ctx context.Context, s *dialogue.Session, edit bool) error {
		list := browseList(s)
		t := list[s.Int("idx")]
		text := fmt.Sprintf("%d of %d\n\n%s", s.Int("idx")+1, len(list), formatCard(t, b.users))
		kb := b.cardKeyboard(t, user, len(list) > 1)
		if edit && s.PromptID != 0 {
			return b.adapter.Edit(ctx, s.ChatID, s.PromptID, text, kb)
		}
		id, err := b.adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: text, Keyboard: kb})
		s.PromptID = id
		return err
	}

	move := func(step func(i, n int) int) dialogue.HandlerFunc {
		return func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
			s.Data["idx"] = step(s.Int("idx"), len(browseList(s)))
			if err := b.adapter.AnswerCallback(ctx, in.CallbackID, ""); err != nil {
				return dialogue.Stay, err
			}
			return dialogue.Stay, render(ctx, s, true)
		}
	}

	action := func(verb string) dialogue.HandlerFunc {
		return func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
			t := browseList(s)[s.Int("idx")]
			switch verb {
			case "take":
				conflict, err := b.tasks.Take(ctx, t, user.TelegramID)
				if err != nil {
					return dialogue.End, err
				}
				if !conflict.None() {
					return dialogue.Stay, b.adapter.AnswerCallback(ctx, in.CallbackID, "Already taken")
				}
				if err := b.adapter.AnswerCallback(ctx, in.CallbackID, "Task is yours"); err != nil {
					return dialogue.Stay, err
				}
				return dialogue.Stay, render(ctx, s, true)
			default:
				// everything else collects text first
				s.Data["action"] = verb
				return "comment", nil
			}
		}
	}

	return dialogue.State{
		Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
			return dialogue.Wait, render(ctx, s, false)
		},
		Buttons: []dialogue.Rule{
			{Match: dialogue.Exact("nav:prev"), Handle: move(prevIndex)},
			{Match: dialogue.Exact("nav:next"), Handle: move(nextIndex)},
			{Match: dialogue.Exact("act:take"), Handle: action("take")},
			{Match: dialogue.Exact("act:complete"), Handle: action("complete")},
			{Match: dialogue.Exact("act:cancel"), Handle: action("cancel")},
			{Match: dialogue.Exact("act:return"), Handle: action("return")},
			{Match: dialogue.Exact("act:comment"), Handle: action("comment")},
			{Match: dialogue.Exact("act:reassign"), Handle: action("reassign")},
			{Match: dialogue.Exact("act:priority"), Handle: action("priority")},
		},
	}
}

// cardKeyboard offers only the actions the shown task currently allows.
func (b *Bot) cardKeyboard(t *task.Task, user directory.User, scrollable bool) chat.Keyboard {
	var kb chat.Keyboard
	if scrollable {
		kb = append(kb, []chat.Button{
			{Label: "<", Data: "nav:prev"},
			{Label: ">", Data: "nav:next"},
		})
	}
	mine := t.Executor == user.TelegramID
	switch {
	case t.Status == task.StatusNotTaken && user.Role.IsAdmin():
		kb = append(kb, []chat.Button{
			{Label: "Take", Data: "act:take"},
			{Label: "Priority", Data: "act:priority"},
		})
	case t.Status == task.StatusTaken && (mine || user.Role.IsAdmin()):
		kb = append(kb, []chat.Button{
			{Label: "Complete", Data: "act:complete"},
			{Label: "Cancel", Data: "act:cancel"},
		})
		if user.Role.IsAdmin() {
			kb = append(kb, []chat.Button{
				{Label: "Reassign", Data: "act:reassign"},
				{Label: "Priority", Data: "act:priority"},
			})
		}
	case t.Status.Terminal() && user.Role.IsAdmin():
		kb = append(kb, []chat.Button{{Label: "Reopen", Data: "act:return"}})
	}
	kb = append(kb, []chat.Button{{Label: "Comment", Data: "act:comment"}})
	kb = append(kb, []chat.Button{chat.ExitButton})
	return kb
}

func (b *Bot) browseCommentState(user directory.User) dialogue.State {
	prompts := map[string]string{
		"complete": "Add a closing comment, or press Skip.",
		"cancel":   "Why is it canceled? Add a comment, or press Skip.",
		"return":   "Why does it go back to work? A comment is required.",
		"comment":  "Send the comment text.",
		"reassign": "Who takes it over? Send the name as registered.",
		"priority": "Send the new priority, 1 to 3.",
	}
	return dialogue.State{
		Prompt: func(ctx context.Context, s *dialogue.Session) (dialogue.StateName, error) {
			var kb chat.Keyboard
			verb := s.Str("action")
			if verb == "complete" || verb == "cancel" {
				kb = chat.Keyboard{{chat.Button{Label: "Skip", Data: "skip"}}}
			}
			_, err := b.adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: prompts[verb], Keyboard: kb})
			return dialogue.Wait, err
		},
		Buttons: []dialogue.Rule{{
			Match: dialogue.Exact("skip"),
			Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
				return b.applyCardAction(ctx, user, s, "")
			},
		}},
		Texts: []dialogue.Rule{{
			Match: dialogue.Any(),
			Handle: func(ctx context.Context, s *dialogue.Session, in chat.Inbound) (dialogue.StateName, error) {
				return b.applyCardAction(ctx, user, s, in.Text)
			},
		}},
	}
}

func (b *Bot) applyCardAction(ctx context.Context, user directory.User, s *dialogue.Session, comment string) (dialogue.StateName, error) {
	t := browseList(s)[s.Int("idx")]
	var err error
	switch s.Str("action") {
	case "complete":
		err = b.tasks.Complete(ctx, t, comment)
	case "cancel":
		err = b.tasks.Cancel(ctx, t, user.FullName, comment)
	case "return":
		conflict, rerr := b.tasks.ReturnToWork(ctx, t, user.FullName, comment)
		if rerr != nil {
			return dialogue.End, rerr
		}
		if !conflict.None() {
			if serr := b.sendText(ctx, s.ChatID, "A comment is required to reopen."); serr != nil {
				return dialogue.Stay, serr
			}
			return dialogue.Stay, nil
		}
	case "comment":
		if comment == "" {
			return dialogue.Stay, nil
		}
		err = b.tasks.AddComment(ctx, t, user.FullName, comment)
	case "reassign":
		execID, ok := b.users.IDByName(strings.TrimSpace(comment))
		if !ok {
			if serr := b.sendText(ctx, s.ChatID, "No user with that name. Send it exactly as registered."); serr != nil {
				return dialogue.Stay, serr
			}
			return dialogue.Stay, nil
		}
		conflict, rerr := b.tasks.ChangeExecutor(ctx, t, execID)
		if rerr != nil {
			return dialogue.End, rerr
		}
		if !conflict.None() {
			if serr := b.sendText(ctx, s.ChatID, "They already hold this task."); serr != nil {
				return dialogue.Stay, serr
			}
			return dialogue.Stay, nil
		}
	case "priority":
		p, perr := strconv.Atoi(strings.TrimSpace(comment))
		if perr != nil || p < 1 || p > 3 {
			if serr := b.sendText(ctx, s.ChatID, "Priority is a number from 1 to 3."); serr != nil {
				return dialogue.Stay, serr
			}
			return dialogue.Stay, nil
		}
		err = b.tasks.SetPriority(ctx, t, user.FullName, p)
	}
	if err != nil {
		return dialogue.End, err
	}
	if err := b.sendText(ctx, s.ChatID, fmt.Sprintf("Task #%d updated.", t.ID)); err != nil {
		return dialogue.End, err
	}
	return dialogue.End, nil
}
