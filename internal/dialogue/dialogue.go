// Package dialogue runs finite-state conversations over a chat adapter.
// A Flow declares states with entry prompts and input rules; the Engine
// keeps one active session per user and routes their inbound updates
// through the flow until it ends or the user bails out.
package dialogue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/akimovd/deskbot/internal/chat"
)

// StateName identifies a state within a flow.
type StateName string

// Sentinel transitions a prompt or handler can return.
const (
	// End terminates the session.
	End StateName = "_end"
	// Stay keeps the current state without re-running its prompt.
	Stay StateName = "_stay"
	// Wait stops the entry chain and waits for the user's next input. It is
	// the zero value, so prompts that never auto-advance just return it.
	Wait StateName = ""
)

// Session is the per-user conversation scratchpad. Handlers stash collected
// answers in Data under keys of their choosing; nothing is persisted until
// a terminal handler writes it out.
type Session struct {
	UserID int64
	ChatID int64
	State  StateName
	Data   map[string]any

	// PromptID is the message id of the last prompt, kept so handlers can
	// edit the prompt in place instead of stacking messages.
	PromptID int
}

// Str returns a string stashed in Data, or "".
func (s *Session) Str(key string) string {
	v, _ := s.Data[key].(string)
	return v
}

// Int returns an int stashed in Data, or 0.
func (s *Session) Int(key string) int {
	v, _ := s.Data[key].(int)
	return v
}

// HandlerFunc consumes one inbound update and names the next state.
type HandlerFunc func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error)

// PromptFunc runs on state entry, usually sending a question. Returning a
// state name other than Wait advances immediately without waiting for
// input, which is how single-choice steps skip themselves.
type PromptFunc func(ctx context.Context, s *Session) (StateName, error)

// Rule pairs an input matcher with its handler.
type Rule struct {
	Match  func(payload string) bool
	Handle HandlerFunc
}

// Exact matches one payload verbatim.
func Exact(want string) func(string) bool {
	return func(payload string) bool { return payload == want }
}

// Prefix matches payloads with the given prefix.
func Prefix(p string) func(string) bool {
	return func(payload string) bool { return strings.HasPrefix(payload, p) }
}

// Any matches every payload.
func Any() func(string) bool {
	return func(string) bool { return true }
}

// State is one node of a flow. Button rules are checked before text rules,
// so a callback payload that happens to look like free text still routes to
// its button handler.
type State struct {
	Prompt   PromptFunc
	Buttons  []Rule
	Texts    []Rule
	BadInput HandlerFunc // fallback; when nil the state's prompt re-runs
}

// Flow is a complete conversation definition.
type Flow struct {
	Name   string
	Start  StateName
	States map[StateName]State
	// OnExit runs when the user presses the exit button in any state.
	OnExit func(ctx context.Context, s *Session) error
	// OnEnd runs when the flow reaches End on its own.
	OnEnd func(ctx context.Context, s *Session) error
}

// Engine owns the active sessions. A user has at most one; starting a new
// flow replaces whatever they were in the middle of. A session processes
// one update at a time: handlers mutate Session freely while different
// users' sessions still run concurrently.
type Engine struct {
	mu       sync.RWMutex
	sessions map[int64]*activeSession
}

type activeSession struct {
	// mu is held across every Handle and the entry chain of Start, so two
	// rapid updates from one user cannot interleave inside a handler.
	mu   sync.Mutex
	flow *Flow
	s    *Session
}

// NewEngine creates an Engine with no active sessions.
func NewEngine() *Engine {
	return &Engine{sessions: make(map[int64]*activeSession)}
}

// Start begins a flow for the inbound update's user, replacing any session
// they already had, and runs the start state's entry chain.
func (e *Engine) Start(ctx context.Context, flow *Flow, in chat.Inbound) error {
	if flow.Start == "" {
		return fmt.Errorf("dialogue: flow %q has no start state", flow.Name)
	}
	s := &Session{
		UserID: in.UserID,
		ChatID: in.ChatID,
		State:  flow.Start,
		Data:   make(map[string]any),
	}
	active := &activeSession{flow: flow, s: s}
	e.mu.Lock()
	e.sessions[in.UserID] = active
	e.mu.Unlock()
	active.mu.Lock()
	defer active.mu.Unlock()
	return e.enter(ctx, flow, s, flow.Start)
}

// Active reports whether the user has a running session.
func (e *Engine) Active(userID int64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.sessions[userID]
	return ok
}

// Abort drops the user's session without running any exit hook.
func (e *Engine) Abort(userID int64) {
	e.mu.Lock()
	delete(e.sessions, userID)
	e.mu.Unlock()
}

// Handle routes an inbound update to the user's active session. It returns
// false when the user has none, leaving the update for command routing.
func (e *Engine) Handle(ctx context.Context, in chat.Inbound) (bool, error) {
	e.mu.RLock()
	active, ok := e.sessions[in.UserID]
	e.mu.RUnlock()
	if !ok {
		return false, nil
	}
	active.mu.Lock()
	defer active.mu.Unlock()
	// A session replaced while this update waited for the lock belongs to
	// an abandoned flow; its update is consumed without effect.
	e.mu.RLock()
	current := e.sessions[in.UserID]
	e.mu.RUnlock()
	if current != active {
		return true, nil
	}
	flow, s := active.flow, active.s

	if in.IsCallback() && in.Callback == chat.ExitData {
		e.Abort(in.UserID)
		if flow.OnExit != nil {
			return true, flow.OnExit(ctx, s)
		}
		return true, nil
	}

	state, ok := flow.States[s.State]
	if !ok {
		e.Abort(in.UserID)
		return true, fmt.Errorf("dialogue: flow %q: session in unknown state %q", flow.Name, s.State)
	}

	handler := e.match(state, in)
	if handler == nil {
		handler = state.BadInput
	}
	if handler == nil {
		// rejected input: repeat the question so the user is not left hanging
		log.Printf("dialogue: flow %q state %q: unmatched input from %d", flow.Name, s.State, in.UserID)
		return true, e.enter(ctx, flow, s, s.State)
	}
	next, err := handler(ctx, s, in)
	if err != nil {
		return true, err
	}
	return true, e.transition(ctx, flow, s, next)
}

func (e *Engine) match(state State, in chat.Inbound) HandlerFunc {
	if in.IsCallback() {
		for _, r := range state.Buttons {
			if r.Match(in.Callback) {
				return r.Handle
			}
		}
		return nil
	}
	for _, r := range state.Texts {
		if r.Match(in.Text) {
			return r.Handle
		}
	}
	return nil
}

func (e *Engine) transition(ctx context.Context, flow *Flow, s *Session, next StateName) error {
	switch next {
	case Stay, Wait:
		return nil
	case End:
		e.Abort(s.UserID)
		if flow.OnEnd != nil {
			return flow.OnEnd(ctx, s)
		}
		return nil
	default:
		return e.enter(ctx, flow, s, next)
	}
}

// enter runs entry prompts, following auto-advances until a state waits for
// input. The chain is capped so a flow that always advances cannot spin.
func (e *Engine) enter(ctx context.Context, flow *Flow, s *Session, next StateName) error {
	for hops := 0; hops < 16; hops++ {
		state, ok := flow.States[next]
		if !ok {
			e.Abort(s.UserID)
			return fmt.Errorf("dialogue: flow %q: transition to unknown state %q", flow.Name, next)
		}
		s.State = next
		if state.Prompt == nil {
			return nil
		}
		advance, err := state.Prompt(ctx, s)
		if err != nil {
			return err
		}
		switch advance {
		case Wait, Stay:
			return nil
		case End:
			e.Abort(s.UserID)
			if flow.OnEnd != nil {
				return flow.OnEnd(ctx, s)
			}
			return nil
		}
		next = advance
	}
	e.Abort(s.UserID)
	return fmt.Errorf("dialogue: flow %q: entry chain did not settle", flow.Name)
}
