package bot

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/akimovd/deskbot/internal/task"
)

// collectOpen returns every task that still needs someone's attention.
func (b *Bot) collectOpen(ctx context.Context) ([]*task.Task, error) {
	notStarted, err := b.tasks.List(ctx, map[string]string{"status": task.StatusNotTaken.Label()})
	if err != nil {
		return nil, err
	}
	taken, err := b.tasks.List(ctx, map[string]string{"status": task.StatusTaken.Label()})
	if err != nil {
		return nil, err
	}
	return append(notStarted, taken...), nil
}

// sendDigest sends the open-task summary to one chat, on demand.
func (b *Bot) sendDigest(ctx context.Context, chatID int64) error {
	open, err := b.collectOpen(ctx)
	if err != nil {
		return err
	}
	return b.sendText(ctx, chatID, formatDigest(open))
}

// runDigest delivers the scheduled digest to every admin and announces it
// to the operator channel. Silent when there is nothing open.
func (b *Bot) runDigest(ctx context.Context) {
	open, err := b.collectOpen(ctx)
	if err != nil {
		b.reporter.ReportError(ctx, "digest", err)
		return
	}
	if len(open) == 0 {
		return
	}
	text := formatDigest(open)
	for _, admin := range b.users.Admins() {
		if err := b.sendText(ctx, admin.TelegramID, text); err != nil {
			log.Printf("bot: digest to admin %d: %v", admin.TelegramID, err)
		}
	}
	b.reporter.Announce(ctx, "Daily digest", text)
}

// StartDigest schedules runDigest with a 5-field cron expression. The
// scheduler stops when the context is canceled.
func (b *Bot) StartDigest(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { b.runDigest(context.Background()) }); err != nil {
		return fmt.Errorf("bot: digest schedule %q: %w", schedule, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	log.Printf("bot: digest scheduled at %q", schedule)
	return nil
}
