// Package telegram implements the chat Adapter for Telegram long polling.
package telegram

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "gopkg.in/telegram-bot-api.v4"

	"github.com/akimovd/deskbot/internal/chat"
)

const (
	pollTimeout    = 60 // seconds
	inboundBufSize = 100
)

// Adapter implements chat.Adapter over the Telegram Bot API.
type Adapter struct {
	token string

	mu        sync.Mutex
	api       *tgbotapi.BotAPI
	connected bool
	closed    bool
	inbound   chan chat.Inbound
}

// AdapterOpts holds parameters for creating a Telegram Adapter.
type AdapterOpts struct {
	Token string
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	return &Adapter{
		token:   opts.Token,
		inbound: make(chan chat.Inbound, inboundBufSize),
	}, nil
}

// Connect authorizes against the Bot API.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}
	api, err := tgbotapi.NewBotAPI(a.token)
	if err != nil {
		return fmt.Errorf("telegram: authorize: %w", err)
	}
	a.api = api
	a.connected = true
	log.Printf("telegram: authorized as @%s", api.Self.UserName)
	return nil
}

// Listen starts long polling and returns the inbound channel.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.Inbound, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("telegram: not connected")
	}
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates, err := a.api.GetUpdatesChan(cfg)
	if err != nil {
		return nil, fmt.Errorf("telegram: get updates: %w", err)
	}
	go a.pump(ctx, updates)
	return a.inbound, nil
}

func (a *Adapter) pump(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(a.inbound)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			in, ok := convert(update)
			if !ok {
				continue
			}
			select {
			case a.inbound <- in:
			case <-ctx.Done():
				return
			}
		}
	}
}

// convert flattens a Telegram update into the platform-neutral form.
// Updates that carry neither a message nor a button press are dropped.
func convert(update tgbotapi.Update) (chat.Inbound, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		in := chat.Inbound{
			Platform:   "telegram",
			UserID:     int64(cb.From.ID),
			UserName:   cb.From.UserName,
			FullName:   fullName(cb.From),
			Callback:   cb.Data,
			CallbackID: cb.ID,
			Timestamp:  time.Now(),
		}
		if cb.Message != nil {
			in.ChatID = cb.Message.Chat.ID
			in.MessageID = cb.Message.MessageID
		}
		return in, true
	case update.Message != nil:
		msg := update.Message
		in := chat.Inbound{
			Platform:  "telegram",
			UserID:    int64(msg.From.ID),
			UserName:  msg.From.UserName,
			FullName:  fullName(msg.From),
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
			Timestamp: msg.Time(),
		}
		if msg.IsCommand() {
			in.Command = msg.Command()
			in.Text = msg.CommandArguments()
		}
		return in, true
	default:
		return chat.Inbound{}, false
	}
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Send delivers a message, with an inline keyboard when one is attached.
func (a *Adapter) Send(ctx context.Context, out chat.Outbound) (int, error) {
	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	if !out.Keyboard.Empty() {
		msg.ReplyMarkup = markup(out.Keyboard)
	}
	sent, err := a.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: send to %d: %w", out.ChatID, err)
	}
	return sent.MessageID, nil
}

// Edit replaces a message's text and keyboard in place.
func (a *Adapter) Edit(ctx context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if !kb.Empty() {
		m := markup(kb)
		edit.ReplyMarkup = &m
	}
	if _, err := a.api.Send(edit); err != nil {
		return fmt.Errorf("telegram: edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// Delete removes a message.
func (a *Adapter) Delete(ctx context.Context, chatID int64, messageID int) error {
	cfg := tgbotapi.DeleteMessageConfig{ChatID: chatID, MessageID: messageID}
	if _, err := a.api.DeleteMessage(cfg); err != nil {
		return fmt.Errorf("telegram: delete message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if _, err := a.api.AnswerCallbackQuery(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

// Close stops the long poll.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.api != nil {
		a.api.StopReceivingUpdates()
	}
	return nil
}

func markup(kb chat.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
