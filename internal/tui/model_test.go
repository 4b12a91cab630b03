package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/agentchat/internal/api"
	"github.com/dmelo/agentchat/internal/chat"
	"github.com/dmelo/agentchat/internal/models"
)

// scriptedStreamer runs a canned handler sequence for model tests
type scriptedStreamer struct {
	run func(ctx context.Context, handlers api.StreamHandlers)
}

func (s *scriptedStreamer) StreamQuery(ctx context.Context, question string, handlers api.StreamHandlers) {
	s.run(ctx, handlers)
}

func newTestModel(t *testing.T, streamer chat.Streamer) *Model {
	t.Helper()
	m := NewChatModel(chat.NewSessionStore(), streamer)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return m
}

// drainEvents applies every buffered orchestrator event to the model,
// the way the event loop would
func drainEvents(m *Model) {
	for {
		select {
		case ev := <-m.updates:
			m.Update(ev)
		default:
			return
		}
	}
}

func TestStreamErrorReachesStatusLine(t *testing.T) {
	cause := errors.New("backend unreachable")
	streamer := &scriptedStreamer{
		run: func(ctx context.Context, handlers api.StreamHandlers) {
			handlers.OnError(cause)
		},
	}
	m := newTestModel(t, streamer)

	m.orch.Submit(context.Background(), "hello")
	m.orch.Shutdown()
	drainEvents(m)

	if !errors.Is(m.err, cause) {
		t.Errorf("stream error not surfaced: got %v", m.err)
	}
}

func TestExecutionNoticeReachesStatusLine(t *testing.T) {
	streamer := &scriptedStreamer{
		run: func(ctx context.Context, handlers api.StreamHandlers) {
			handlers.OnComplete(&models.QueryResponse{
				Explanation:     "ran it",
				GeneratedCode:   "print(1)",
				ExecutionResult: "1",
			})
		},
	}
	m := newTestModel(t, streamer)

	m.orch.Submit(context.Background(), "run something")
	m.orch.Shutdown()
	drainEvents(m)

	if m.status == "" {
		t.Error("expected a transient notice for the execution result")
	}
	if m.err != nil {
		t.Errorf("unexpected error: %v", m.err)
	}
}

func TestDeletingSessionCancelsItsStream(t *testing.T) {
	streamer := &scriptedStreamer{
		run: func(ctx context.Context, handlers api.StreamHandlers) {
			<-ctx.Done()
			handlers.OnError(ctx.Err())
		},
	}
	m := newTestModel(t, streamer)

	sessionID, ok := m.orch.Submit(context.Background(), "hello")
	if !ok {
		t.Fatal("Submit rejected valid input")
	}
	if !m.orch.Streaming(sessionID) {
		t.Fatal("expected a stream in flight")
	}

	m.selectingSession = true
	m.sessionCursor = 0
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})

	if m.orch.Streaming(sessionID) {
		t.Error("deleting a session left its stream running")
	}
	if m.store.Len() != 0 {
		t.Errorf("session not deleted: %d left", m.store.Len())
	}
	m.orch.Shutdown()
}
