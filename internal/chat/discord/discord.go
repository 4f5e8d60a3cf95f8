// Package discord implements the chat Adapter for Discord via the Gateway
// WebSocket. Keyboards map to message component button rows, button presses
// arrive as interactions.
package discord

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/akimovd/deskbot/internal/chat"
)

const inboundBufSize = 100

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}
func (r *realSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageSendComplex(channelID, data, options...)
}
func (r *realSession) ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessageEditComplex(m, options...)
}
func (r *realSession) ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error {
	return r.s.ChannelMessageDelete(channelID, messageID, options...)
}
func (r *realSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	return r.s.InteractionRespond(interaction, resp, options...)
}

// Adapter implements chat.Adapter for Discord. Chat and message IDs are
// Discord snowflakes carried as int64; message IDs are truncated to int,
// which is safe only on 64-bit platforms, the only ones we run on.
type Adapter struct {
	botToken string

	mu        sync.Mutex
	sess      session
	connected bool
	closed    bool
	inbound   chan chat.Inbound
	// interactions parks pending interactions so AnswerCallback can
	// respond to them by id
	interactions map[string]*discordgo.Interaction
	removeFns    []func()
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken string
	// For testing: inject a mock session instead of the real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{
		botToken:     opts.BotToken,
		sess:         opts.Session,
		inbound:      make(chan chat.Inbound, inboundBufSize),
		interactions: make(map[string]*discordgo.Interaction),
	}, nil
}

// Connect opens the Gateway WebSocket and registers the event handlers.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}
	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages |
			discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
		a.sess = &realSession{s: dg}
	}

	a.removeFns = append(a.removeFns,
		a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
			log.Printf("discord: connected as %s", r.User.Username)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			a.handleMessage(m)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
			a.handleInteraction(i)
		}),
	)

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	a.connected = true
	return nil
}

// Listen returns the inbound channel. Must be called after Connect.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.Inbound, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}
	return a.inbound, nil
}

func (a *Adapter) handleMessage(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	in := chat.Inbound{
		Platform:  "discord",
		UserID:    parseSnowflake(m.Author.ID),
		UserName:  m.Author.Username,
		FullName:  displayName(m.Author),
		ChatID:    parseSnowflake(m.ChannelID),
		MessageID: int(parseSnowflake(m.ID)),
		Text:      m.Content,
		Timestamp: time.Now(),
	}
	// slash-style commands arrive as plain "/word" text
	if len(in.Text) > 1 && in.Text[0] == '/' {
		cmd := in.Text[1:]
		rest := ""
		for i := 0; i < len(cmd); i++ {
			if cmd[i] == ' ' {
				rest = cmd[i+1:]
				cmd = cmd[:i]
				break
			}
		}
		in.Command, in.Text = cmd, rest
	}
	a.deliver(in)
}

func (a *Adapter) handleInteraction(i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	user := i.User
	if user == nil && i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}
	a.mu.Lock()
	a.interactions[i.ID] = i.Interaction
	a.mu.Unlock()

	in := chat.Inbound{
		Platform:   "discord",
		UserID:     parseSnowflake(user.ID),
		UserName:   user.Username,
		FullName:   displayName(user),
		ChatID:     parseSnowflake(i.ChannelID),
		Callback:   i.MessageComponentData().CustomID,
		CallbackID: i.ID,
		Timestamp:  time.Now(),
	}
	if i.Message != nil {
		in.MessageID = int(parseSnowflake(i.Message.ID))
	}
	a.deliver(in)
}

func (a *Adapter) deliver(in chat.Inbound) {
	select {
	case a.inbound <- in:
	default:
		log.Printf("discord: inbound buffer full, dropping update from %d", in.UserID)
	}
}

// Send delivers a message to a channel, with buttons when a keyboard is
// attached.
func (a *Adapter) Send(ctx context.Context, out chat.Outbound) (int, error) {
	data := &discordgo.MessageSend{
		Content:    out.Text,
		Components: components(out.Keyboard),
	}
	msg, err := a.sess.ChannelMessageSendComplex(formatSnowflake(out.ChatID), data)
	if err != nil {
		return 0, fmt.Errorf("discord: send to %d: %w", out.ChatID, err)
	}
	return int(parseSnowflake(msg.ID)), nil
}

// Edit replaces a message's content and buttons.
func (a *Adapter) Edit(ctx context.Context, chatID int64, messageID int, text string, kb chat.Keyboard) error {
	comps := components(kb)
	edit := &discordgo.MessageEdit{
		Channel:    formatSnowflake(chatID),
		ID:         formatSnowflake(int64(messageID)),
		Content:    &text,
		Components: &comps,
	}
	if _, err := a.sess.ChannelMessageEditComplex(edit); err != nil {
		return fmt.Errorf("discord: edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// Delete removes a message.
func (a *Adapter) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := a.sess.ChannelMessageDelete(formatSnowflake(chatID), formatSnowflake(int64(messageID))); err != nil {
		return fmt.Errorf("discord: delete message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// AnswerCallback responds to a parked interaction. An empty text becomes a
// silent deferred update, anything else an ephemeral reply.
func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	a.mu.Lock()
	interaction, ok := a.interactions[callbackID]
	delete(a.interactions, callbackID)
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("discord: unknown interaction %q", callbackID)
	}
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate}
	if text != "" {
		resp = &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: text,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}
	}
	if err := a.sess.InteractionRespond(interaction, resp); err != nil {
		return fmt.Errorf("discord: answer interaction: %w", err)
	}
	return nil
}

// Close shuts the gateway connection down.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for _, remove := range a.removeFns {
		remove()
	}
	close(a.inbound)
	if a.sess != nil {
		return a.sess.Close()
	}
	return nil
}

// components maps a keyboard onto button action rows.
func components(kb chat.Keyboard) []discordgo.MessageComponent {
	if kb.Empty() {
		return nil
	}
	rows := make([]discordgo.MessageComponent, 0, len(kb))
	for _, row := range kb {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.SecondaryButton,
				CustomID: b.Data,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func parseSnowflake(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func formatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
