package dialogue

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/akimovd/deskbot/internal/chat"
)

// twoStepFlow asks for a room, then a description, then records both.
func twoStepFlow(adapter *chat.MockAdapter, done *map[string]string) *Flow {
	return &Flow{
		Name:  "report",
		Start: "room",
		States: map[StateName]State{
			"room": {
				Prompt: func(ctx context.Context, s *Session) (StateName, error) {
					_, err := adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: "Which room?"})
					return Wait, err
				},
				Texts: []Rule{{
					Match: Any(),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						s.Data["room"] = in.Text
						return "text", nil
					},
				}},
			},
			"text": {
				Prompt: func(ctx context.Context, s *Session) (StateName, error) {
					_, err := adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: "Describe the problem"})
					return Wait, err
				},
				Texts: []Rule{{
					Match: Any(),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						*done = map[string]string{"room": s.Str("room"), "text": in.Text}
						return End, nil
					},
				}},
			},
		},
	}
}

func connectedMock(t *testing.T) *chat.MockAdapter {
	t.Helper()
	adapter := chat.NewMockAdapter()
	if err := adapter.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return adapter
}

func TestFlowWalksStates(t *testing.T) {
	adapter := connectedMock(t)
	var done map[string]string
	flow := twoStepFlow(adapter, &done)
	e := NewEngine()
	ctx := context.Background()

	start := chat.Inbound{UserID: 7, ChatID: 7, Command: "task"}
	if err := e.Start(ctx, flow, start); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !e.Active(7) {
		t.Fatal("no active session after Start")
	}

	for _, text := range []string{"36", "projector is dead"} {
		handled, err := e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: text})
		if err != nil {
			t.Fatalf("Handle(%q): %v", text, err)
		}
		if !handled {
			t.Fatalf("Handle(%q) not claimed by session", text)
		}
	}

	if done["room"] != "36" || done["text"] != "projector is dead" {
		t.Errorf("collected = %+v", done)
	}
	if e.Active(7) {
		t.Error("session survived End")
	}
	if got := len(adapter.SentTo(7)); got != 2 {
		t.Errorf("sent %d prompts, want 2", got)
	}
}

func TestExitEndsSessionFromAnyState(t *testing.T) {
	for _, state := range []string{"room", "text"} {
		adapter := connectedMock(t)
		var done map[string]string
		exited := false
		flow := twoStepFlow(adapter, &done)
		flow.OnExit = func(ctx context.Context, s *Session) error {
			exited = true
			return nil
		}
		e := NewEngine()
		ctx := context.Background()
		e.Start(ctx, flow, chat.Inbound{UserID: 7, ChatID: 7})
		if state == "text" {
			e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "36"})
		}

		handled, err := e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Callback: chat.ExitData, CallbackID: "cb"})
		if err != nil {
			t.Fatalf("state %s: Handle exit: %v", state, err)
		}
		if !handled || !exited {
			t.Errorf("state %s: handled=%v exited=%v", state, handled, exited)
		}
		if e.Active(7) {
			t.Errorf("state %s: session survived exit", state)
		}
		if done != nil {
			t.Errorf("state %s: aborted flow still recorded %+v", state, done)
		}
	}
}

func TestPromptAutoAdvance(t *testing.T) {
	adapter := connectedMock(t)
	var picked string
	// One available option: the choice state answers itself and skips ahead.
	flow := &Flow{
		Name:  "pick",
		Start: "choose",
		States: map[StateName]State{
			"choose": {
				Prompt: func(ctx context.Context, s *Session) (StateName, error) {
					s.Data["device"] = "printer-2"
					return "confirm", nil
				},
			},
			"confirm": {
				Prompt: func(ctx context.Context, s *Session) (StateName, error) {
					_, err := adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: "Confirm printer-2?"})
					return Wait, err
				},
				Buttons: []Rule{{
					Match: Exact("yes"),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						picked = s.Str("device")
						return End, nil
					},
				}},
			},
		},
	}
	e := NewEngine()
	ctx := context.Background()
	if err := e.Start(ctx, flow, chat.Inbound{UserID: 7, ChatID: 7}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// the session must already be waiting in "confirm", not "choose"
	if _, err := e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Callback: "yes", CallbackID: "cb"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if picked != "printer-2" {
		t.Errorf("picked = %q, want printer-2", picked)
	}
}

func TestButtonsMatchBeforeTexts(t *testing.T) {
	var via string
	flow := &Flow{
		Name:  "route",
		Start: "s",
		States: map[StateName]State{
			"s": {
				Buttons: []Rule{{
					Match: Exact("go"),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						via = "button"
						return End, nil
					},
				}},
				Texts: []Rule{{
					Match: Any(),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						via = "text"
						return End, nil
					},
				}},
			},
		},
	}
	e := NewEngine()
	ctx := context.Background()
	e.Start(ctx, flow, chat.Inbound{UserID: 7, ChatID: 7})
	if _, err := e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Callback: "go", CallbackID: "cb"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if via != "button" {
		t.Errorf("routed via %q, want button", via)
	}
}

func TestBadInputStaysInState(t *testing.T) {
	reprompts := 0
	flow := &Flow{
		Name:  "strict",
		Start: "number",
		States: map[StateName]State{
			"number": {
				Texts: []Rule{{
					Match: Exact("36"),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						return End, nil
					},
				}},
				BadInput: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
					reprompts++
					return Stay, nil
				},
			},
		},
	}
	e := NewEngine()
	ctx := context.Background()
	e.Start(ctx, flow, chat.Inbound{UserID: 7, ChatID: 7})

	e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "not a room"})
	if reprompts != 1 || !e.Active(7) {
		t.Fatalf("reprompts=%d active=%v", reprompts, e.Active(7))
	}
	e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "36"})
	if e.Active(7) {
		t.Error("session survived valid input to terminal handler")
	}
}

func TestUnmatchedInputRepromptsState(t *testing.T) {
	adapter := connectedMock(t)
	flow := &Flow{
		Name:  "strict",
		Start: "number",
		States: map[StateName]State{
			"number": {
				Prompt: func(ctx context.Context, s *Session) (StateName, error) {
					_, err := adapter.Send(ctx, chat.Outbound{ChatID: s.ChatID, Text: "Which room?"})
					return Wait, err
				},
				Texts: []Rule{{
					Match: Exact("36"),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						return End, nil
					},
				}},
			},
		},
	}
	e := NewEngine()
	ctx := context.Background()
	e.Start(ctx, flow, chat.Inbound{UserID: 7, ChatID: 7})

	handled, err := e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "not a room"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !handled || !e.Active(7) {
		t.Fatalf("handled=%v active=%v", handled, e.Active(7))
	}
	// no BadInput here: the state asks its question again
	if got := len(adapter.SentTo(7)); got != 2 {
		t.Errorf("sent %d prompts, want 2", got)
	}
}

func TestConcurrentInputsAreSerialized(t *testing.T) {
	// The handler mutates Session without its own locking; the engine's
	// per-session lock is what must keep a burst of updates safe.
	calls := 0
	flow := &Flow{
		Name:  "burst",
		Start: "s",
		States: map[StateName]State{
			"s": {
				Texts: []Rule{{
					Match: Any(),
					Handle: func(ctx context.Context, s *Session, in chat.Inbound) (StateName, error) {
						calls++
						s.Data[in.Text] = true
						s.Data["last"] = in.Text
						return Stay, nil
					},
				}},
			},
		},
	}
	e := NewEngine()
	ctx := context.Background()
	e.Start(ctx, flow, chat.Inbound{UserID: 7, ChatID: 7})

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: strconv.Itoa(n)}); err != nil {
				t.Errorf("Handle(%d): %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	if calls != 25 {
		t.Errorf("handled %d inputs, want 25", calls)
	}
	if !e.Active(7) {
		t.Error("session lost under concurrent input")
	}
}

func TestHandleWithoutSession(t *testing.T) {
	e := NewEngine()
	handled, err := e.Handle(context.Background(), chat.Inbound{UserID: 7, Text: "hi"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if handled {
		t.Error("claimed an update with no session")
	}
}

func TestStartReplacesExistingSession(t *testing.T) {
	adapter := connectedMock(t)
	var first, second map[string]string
	e := NewEngine()
	ctx := context.Background()

	e.Start(ctx, twoStepFlow(adapter, &first), chat.Inbound{UserID: 7, ChatID: 7})
	e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "36"})

	// restarting mid-flow drops the half-collected answers
	e.Start(ctx, twoStepFlow(adapter, &second), chat.Inbound{UserID: 7, ChatID: 7})
	e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "14"})
	e.Handle(ctx, chat.Inbound{UserID: 7, ChatID: 7, Text: "no sound"})

	if first != nil {
		t.Errorf("abandoned flow completed: %+v", first)
	}
	if second["room"] != "14" || second["text"] != "no sound" {
		t.Errorf("second = %+v", second)
	}
}
