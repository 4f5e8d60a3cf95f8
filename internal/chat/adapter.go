// Package chat bridges deskbot workflows to chat platforms (Telegram, Discord).
package chat

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must satisfy.
// Each adapter handles connection management, update delivery, and the message
// operations the dialogue engine relies on (send, edit, delete, callback ack).
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound updates from the platform.
	// The channel is closed when the context is cancelled or the adapter
	// is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan Inbound, error)

	// Send delivers an outbound message and returns its platform message ID.
	Send(ctx context.Context, msg Outbound) (int, error)

	// Edit replaces the text and keyboard of a previously sent message.
	Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error

	// Delete removes a message from the visible conversation.
	Delete(ctx context.Context, chatID int64, messageID int) error

	// AnswerCallback acknowledges a button press, optionally with a short
	// toast text shown to the user.
	AnswerCallback(ctx context.Context, callbackID, text string) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Inbound represents a single user action received from the chat platform:
// a command, a free-text message, or a button press.
type Inbound struct {
	Platform   string    // e.g. "telegram", "discord"
	UserID     int64     // platform-specific user identifier
	UserName   string    // @handle, may be empty
	FullName   string    // display name as reported by the platform
	ChatID     int64     // conversation the action arrived in
	MessageID  int       // message carrying the action
	Command    string    // parsed command name ("tasks" for "/tasks"), empty otherwise
	Text       string    // free-text content, or the arguments of a command
	Callback   string    // button payload, empty for plain messages
	CallbackID string    // platform handle for AnswerCallback
	Timestamp  time.Time // when the action was sent
}

// IsCallback reports whether the update is a button press.
func (in Inbound) IsCallback() bool { return in.Callback != "" }

// Outbound represents a message to be sent to the chat platform.
type Outbound struct {
	ChatID   int64    // target conversation
	Text     string   // message text (platform-native formatting)
	Keyboard Keyboard // optional inline keyboard
}

// Button is a single inline-keyboard button. Data is the callback payload
// delivered back in Inbound.Callback when the button is pressed.
type Button struct {
	Label string
	Data  string
}

// Keyboard is an inline keyboard: rows of buttons.
type Keyboard [][]Button

// Empty reports whether the keyboard has no buttons.
func (k Keyboard) Empty() bool {
	for _, row := range k {
		if len(row) > 0 {
			return false
		}
	}
	return true
}
