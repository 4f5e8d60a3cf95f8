package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/directory"
	"github.com/akimovd/deskbot/internal/task"
)

// broadcastTask sends a new task card to every admin with an accept button
// and registers the task as claimable. Delivery is per-recipient: one
// unreachable admin is reported and recorded, the rest still get the card.
func (b *Bot) broadcastTask(ctx context.Context, t *task.Task) {
	b.claims.Put(t.ID, struct{}{})

	kb := chat.Keyboard{{chat.Button{Label: "Accept", Data: taskCB("accept", t.ID)}}}
	card := "New task\n\n" + formatCard(t, b.users)

	for _, admin := range b.users.Admins() {
		out := chat.Outbound{ChatID: admin.TelegramID, Text: card, Keyboard: kb}
		if _, err := b.adapter.Send(ctx, out); err != nil {
			b.reportDelivery(ctx, admin.TelegramID, t.ID, err)
		}
	}
}

// reportDelivery raises a failed delivery with the operator: the reporter
// gets the error, the audit sink the record, and the superadmin chat a
// short note, unless the superadmin is the unreachable recipient itself.
func (b *Bot) reportDelivery(ctx context.Context, chatID int64, taskID int, err error) {
	b.reporter.ReportError(ctx, "notify", fmt.Errorf("deliver to %d: %w", chatID, err))
	if b.audit != nil {
		b.audit.RecordDeliveryFailure(ctx, b.platform, chatID, taskID, err.Error())
	}
	if b.superAdmin == 0 || b.superAdmin == chatID {
		return
	}
	note := fmt.Sprintf("Delivery to %d failed: %v", chatID, err)
	if taskID != 0 {
		note = fmt.Sprintf("Delivery to %d failed for task #%d: %v", chatID, taskID, err)
	}
	if serr := b.sendText(ctx, b.superAdmin, note); serr != nil {
		log.Printf("bot: notify superadmin %d: %v", b.superAdmin, serr)
	}
}

// acceptTask handles the accept button under a broadcast card. The pending
// pop decides the race: whoever pops the id claims the task, everyone else
// is told it is gone.
func (b *Bot) acceptTask(ctx context.Context, user directory.User, in chat.Inbound, id int) error {
	if _, won := b.claims.Pop(id); !won {
		return b.adapter.AnswerCallback(ctx, in.CallbackID, "Already taken")
	}

	t, err := b.tasks.Get(ctx, id)
	if err != nil {
		b.claims.Put(id, struct{}{}) // claim back so the task is not lost
		return err
	}
	if t == nil {
		return b.adapter.AnswerCallback(ctx, in.CallbackID, "Task is gone")
	}

	conflict, err := b.tasks.Take(ctx, t, user.TelegramID)
	if err != nil {
		b.claims.Put(id, struct{}{})
		return err
	}
	if !conflict.None() {
		// someone claimed it straight off the sheet
		return b.adapter.AnswerCallback(ctx, in.CallbackID, "Already taken")
	}

	if err := b.adapter.AnswerCallback(ctx, in.CallbackID, "Task is yours"); err != nil {
		log.Printf("bot: answer accept callback: %v", err)
	}
	return b.adapter.Edit(ctx, in.ChatID, in.MessageID, formatCard(t, b.users), nil)
}
