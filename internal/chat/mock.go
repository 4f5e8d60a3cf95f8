package chat

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter implements Adapter for testing. It records sent, edited and
// deleted messages and allows simulating inbound updates.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan Inbound
	sent      []Outbound
	edits     []Edit
	deleted   []Deletion
	answered  []string
	failFor   map[int64]error // chat IDs whose Send should fail
	nextMsgID int
}

// Edit records a single Edit call.
type Edit struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  Keyboard
}

// Deletion records a single Delete call.
type Deletion struct {
	ChatID    int64
	MessageID int
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound: make(chan Inbound, 100),
		failFor: make(map[int64]error),
	}
}

// FailSendsTo makes Send return err for the given chat ID.
func (m *MockAdapter) FailSendsTo(chatID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor[chatID] = err
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan Inbound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// Send records the outbound message and returns a synthetic message ID.
func (m *MockAdapter) Send(ctx context.Context, msg Outbound) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return 0, fmt.Errorf("mock adapter: not connected")
	}
	if err := m.failFor[msg.ChatID]; err != nil {
		return 0, err
	}
	m.sent = append(m.sent, msg)
	m.nextMsgID++
	return m.nextMsgID, nil
}

// Edit records the edit.
func (m *MockAdapter) Edit(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, Edit{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb})
	return nil
}

// Delete records the deletion.
func (m *MockAdapter) Delete(ctx context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, Deletion{ChatID: chatID, MessageID: messageID})
	return nil
}

// AnswerCallback records the acknowledged callback ID.
func (m *MockAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, callbackID)
	return nil
}

// Close marks the adapter as closed and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.inbound)
	}
	return nil
}

// SimulateMessage injects a free-text message from a user.
func (m *MockAdapter) SimulateMessage(userID, chatID int64, text string) {
	m.inbound <- Inbound{
		Platform:  "mock",
		UserID:    userID,
		ChatID:    chatID,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// SimulateCallback injects a button press from a user.
func (m *MockAdapter) SimulateCallback(userID, chatID int64, data string) {
	m.inbound <- Inbound{
		Platform:   "mock",
		UserID:     userID,
		ChatID:     chatID,
		Callback:   data,
		CallbackID: fmt.Sprintf("cb-%d", userID),
		Timestamp:  time.Now(),
	}
}

// Sent returns a copy of all messages sent so far.
func (m *MockAdapter) Sent() []Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Outbound, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// SentTo returns the messages sent to one chat.
func (m *MockAdapter) SentTo(chatID int64) []Outbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Outbound
	for _, msg := range m.sent {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

// Edits returns a copy of all edits so far.
func (m *MockAdapter) Edits() []Edit {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Edit, len(m.edits))
	copy(cp, m.edits)
	return cp
}

// Deleted returns a copy of all deletions so far.
func (m *MockAdapter) Deleted() []Deletion {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Deletion, len(m.deleted))
	copy(cp, m.deleted)
	return cp
}
