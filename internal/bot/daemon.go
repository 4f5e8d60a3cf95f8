// Package bot wires the chat adapter, the dialogue engine and the sheet
// repositories into the tech-support workflow: teachers report problems,
// admins get notified and claim them, everyone tracks them to completion.
package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/dialogue"
	"github.com/akimovd/deskbot/internal/directory"
	"github.com/akimovd/deskbot/internal/fleet"
	"github.com/akimovd/deskbot/internal/oversight"
	"github.com/akimovd/deskbot/internal/task"
)

// AuditSink mirrors operational events into the local audit database.
// db.Recorder satisfies it.
type AuditSink interface {
	RecordDeliveryFailure(ctx context.Context, platform string, chatID int64, taskID int, reason string)
	RecordCartridgeChange(ctx context.Context, floor, room int, device, changedOn, changedBy string)
}

// Opts holds the dependencies of a Bot.
type Opts struct {
	Adapter    chat.Adapter
	Tasks      *task.Repository
	Users      *directory.Registry
	UserStore  *directory.Store
	Inventory  *fleet.Inventory
	FleetStore *fleet.Store
	Reporter   oversight.Reporter // optional, defaults to the log
	Audit      AuditSink          // optional
	Platform   string             // audit label, defaults to "telegram"
	SuperAdmin int64
	Now        func() time.Time
}

// Bot is the long-running workflow daemon for one chat platform.
type Bot struct {
	adapter    chat.Adapter
	tasks      *task.Repository
	users      *directory.Registry
	userStore  *directory.Store
	inventory  *fleet.Inventory
	fleetStore *fleet.Store
	reporter   oversight.Reporter
	audit      AuditSink
	platform   string
	superAdmin int64
	now        func() time.Time

	engine *dialogue.Engine
	// claims holds broadcast task ids until exactly one admin accepts.
	claims *Pending[int, struct{}]
	// requests holds registration requests until an admin decides.
	requests *Pending[int64, regRequest]
}

// New creates a Bot. Adapter, Tasks, Users and UserStore are required.
func New(opts Opts) (*Bot, error) {
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	if opts.Tasks == nil {
		return nil, fmt.Errorf("bot: task repository is required")
	}
	if opts.Users == nil || opts.UserStore == nil {
		return nil, fmt.Errorf("bot: user registry and store are required")
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = oversight.LogReporter{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	platform := opts.Platform
	if platform == "" {
		platform = "telegram"
	}
	return &Bot{
		adapter:    opts.Adapter,
		tasks:      opts.Tasks,
		users:      opts.Users,
		userStore:  opts.UserStore,
		inventory:  opts.Inventory,
		fleetStore: opts.FleetStore,
		reporter:   reporter,
		audit:      opts.Audit,
		platform:   platform,
		superAdmin: opts.SuperAdmin,
		now:        now,
		engine:     dialogue.NewEngine(),
		claims:     NewPending[int, struct{}](),
		requests:   NewPending[int64, regRequest](),
	}, nil
}

// Run connects the adapter and processes inbound updates until the context
// is canceled or the adapter closes its channel.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}
	updates, err := b.adapter.Listen(ctx)
	if err != nil {
		return fmt.Errorf("bot: listen: %w", err)
	}
	log.Printf("bot: running")
	for {
		select {
		case <-ctx.Done():
			return b.adapter.Close()
		case in, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handle(ctx, in)
		}
	}
}

// handle processes one update. A panic in any handler is contained here:
// the update is dropped, the operator is told, the loop lives on.
func (b *Bot) handle(ctx context.Context, in chat.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			b.reporter.ReportPanic(ctx, "bot", r, debug.Stack())
		}
	}()
	if err := b.dispatch(ctx, in); err != nil {
		b.reporter.ReportError(ctx, "bot", err)
	}
}

// dispatch routes one update: access gate first, then the user's active
// dialogue, then commands and standalone callbacks.
func (b *Bot) dispatch(ctx context.Context, in chat.Inbound) error {
	user, known := b.users.Get(in.UserID)

	if !known {
		return b.dispatchUnknown(ctx, in)
	}

	if handled, err := b.engine.Handle(ctx, in); handled || err != nil {
		return err
	}

	if in.IsCallback() {
		return b.dispatchCallback(ctx, user, in)
	}

	switch in.Command {
	case "start", "help":
		return b.sendHelp(ctx, user, in.ChatID)
	case "task":
		return b.engine.Start(ctx, b.newTaskFlow(user), in)
	case "tasks":
		return b.engine.Start(ctx, b.browseFlow(user), in)
	case "cartridge":
		return b.engine.Start(ctx, b.cartridgeFlow(user), in)
	case "requests":
		if !user.Role.IsAdmin() {
			return b.sendText(ctx, in.ChatID, "Admins only.")
		}
		return b.showRequests(ctx, in.ChatID)
	case "digest":
		if !user.Role.IsAdmin() {
			return b.sendText(ctx, in.ChatID, "Admins only.")
		}
		return b.sendDigest(ctx, in.ChatID)
	case "":
		// free text outside any dialogue is ignored
		return nil
	default:
		return b.sendText(ctx, in.ChatID, "Unknown command. Try /help.")
	}
}

// dispatchUnknown serves users the directory does not know: they may only
// register or read why they are locked out.
func (b *Bot) dispatchUnknown(ctx context.Context, in chat.Inbound) error {
	if in.IsCallback() {
		return b.adapter.AnswerCallback(ctx, in.CallbackID, "Not authorized")
	}
	if handled, err := b.engine.Handle(ctx, in); handled || err != nil {
		return err
	}
	switch in.Command {
	case "register", "start":
		return b.engine.Start(ctx, b.registerFlow(), in)
	default:
		return b.sendText(ctx, in.ChatID, "You are not registered. Send /register to request access.")
	}
}

// dispatchCallback handles button presses outside any dialogue: accepting
// broadcast tasks and deciding registration requests.
func (b *Bot) dispatchCallback(ctx context.Context, user directory.User, in chat.Inbound) error {
	if verb, id, ok := parseTaskCB(in.Callback); ok && verb == "accept" {
		return b.acceptTask(ctx, user, in, id)
	}
	if verb, id, ok := parseUserCB(in.Callback); ok {
		if !user.Role.IsAdmin() {
			return b.adapter.AnswerCallback(ctx, in.CallbackID, "Admins only")
		}
		return b.decideRequest(ctx, user, in, verb, id)
	}
	// stale keyboard from an expired session
	return b.adapter.AnswerCallback(ctx, in.CallbackID, "")
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) error {
	_, err := b.adapter.Send(ctx, chat.Outbound{ChatID: chatID, Text: text})
	return err
}

func (b *Bot) sendHelp(ctx context.Context, user directory.User, chatID int64) error {
	text := "Commands:\n" +
		"/task — report a problem\n" +
		"/tasks — browse tasks\n" +
		"/cartridge — record a cartridge change\n" +
		"/help — this message"
	if user.Role.IsAdmin() {
		text += "\n/requests — pending registrations\n/digest — open task summary"
	}
	return b.sendText(ctx, chatID, text)
}
