package chat

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dmelo/agentchat/internal/api"
	"github.com/dmelo/agentchat/internal/models"
)

// Streamer is the slice of the query client the orchestrator needs
type Streamer interface {
	StreamQuery(ctx context.Context, question string, handlers api.StreamHandlers)
}

// UpdateFunc is notified after every store mutation the orchestrator
// makes, so a UI can re-read the affected session
type UpdateFunc func(sessionID string)

// Events groups the orchestrator's callbacks to the presentation layer.
// OnChange fires after every store mutation; OnNotice carries transient
// informational messages; OnStreamError fires exactly once when a turn
// ends in an error. Any field may be nil.
type Events struct {
	OnChange      UpdateFunc
	OnNotice      func(sessionID, text string)
	OnStreamError func(sessionID string, err error)
}

// Orchestrator drives a chat turn: it records the user message, streams
// the assistant answer into the store token by token, and finalizes the
// assistant message exactly once. One stream runs per session at a time;
// a new submission to the same session cancels the previous stream.
type Orchestrator struct {
	store  *SessionStore
	client Streamer
	logger *zap.Logger
	events Events

	mu      sync.Mutex
	streams map[string]*streamHandle
	wg      sync.WaitGroup
}

// streamHandle identifies one in-flight stream so a finished stream only
// clears its own slot, never a successor's
type streamHandle struct {
	cancel context.CancelFunc
}

// NewOrchestrator wires a store and a streaming client together
func NewOrchestrator(store *SessionStore, client Streamer, logger *zap.Logger, events Events) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:   store,
		client:  client,
		logger:  logger,
		events:  events,
		streams: make(map[string]*streamHandle),
	}
}

// Submit records a user message in the active session (creating one if
// needed) and streams the assistant reply. Blank input is ignored.
// Returns the session the turn runs in.
func (o *Orchestrator) Submit(ctx context.Context, text string) (sessionID string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	sessionID = o.store.ActiveID()
	if sessionID == "" {
		sessionID = o.store.CreateSession().ID
	}

	// The title tracks the first utterance, so retitle before the
	// message lands in the session
	o.store.RetitleIfFirstMessage(sessionID, text)
	o.store.AppendMessage(sessionID, NewUserMessage(text))

	placeholder := NewAssistantPlaceholder()
	o.store.AppendMessage(sessionID, placeholder)
	o.changed(sessionID)

	o.startStream(ctx, sessionID, placeholder.ID, text)
	return sessionID, true
}

// Regenerate replaces an assistant message with a fresh answer to the
// user message that precedes it. The old assistant message is removed
// and the new one gets a new identity. A no-op if the message cannot be
// paired with a user question.
func (o *Orchestrator) Regenerate(ctx context.Context, sessionID, assistantID string) bool {
	session, found := o.store.Session(sessionID)
	if !found {
		return false
	}

	question := ""
	for i, msg := range session.Messages {
		if msg.ID == assistantID && msg.Role == RoleAssistant {
			for j := i - 1; j >= 0; j-- {
				if session.Messages[j].Role == RoleUser {
					question = session.Messages[j].Content
					break
				}
			}
			break
		}
	}
	if question == "" {
		return false
	}

	o.store.RemoveMessage(sessionID, assistantID)

	placeholder := NewAssistantPlaceholder()
	o.store.AppendMessage(sessionID, placeholder)
	o.changed(sessionID)

	o.startStream(ctx, sessionID, placeholder.ID, question)
	return true
}

// CancelSession stops the in-flight stream for a session, if any
func (o *Orchestrator) CancelSession(sessionID string) {
	o.mu.Lock()
	handle := o.streams[sessionID]
	delete(o.streams, sessionID)
	o.mu.Unlock()

	if handle != nil {
		handle.cancel()
	}
}

// Streaming reports whether a stream is in flight for the session
func (o *Orchestrator) Streaming(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streams[sessionID] != nil
}

// Shutdown cancels every in-flight stream and waits for them to finish
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for id, handle := range o.streams {
		handle.cancel()
		delete(o.streams, id)
	}
	o.mu.Unlock()

	o.wg.Wait()
}

// startStream launches the streaming goroutine for one turn, cancelling
// any stream already running in the same session
func (o *Orchestrator) startStream(ctx context.Context, sessionID, messageID, question string) {
	streamCtx, cancel := context.WithCancel(ctx)
	handle := &streamHandle{cancel: cancel}

	o.mu.Lock()
	if prev := o.streams[sessionID]; prev != nil {
		prev.cancel()
	}
	o.streams[sessionID] = handle
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.finishStream(sessionID, handle)
		o.runStream(streamCtx, sessionID, messageID, question)
	}()
}

// finishStream releases the stream slot if this stream still owns it.
// A newer stream may have taken the slot already.
func (o *Orchestrator) finishStream(sessionID string, handle *streamHandle) {
	o.mu.Lock()
	if o.streams[sessionID] == handle {
		delete(o.streams, sessionID)
	}
	o.mu.Unlock()
	handle.cancel()
}

func (o *Orchestrator) runStream(ctx context.Context, sessionID, messageID, question string) {
	var accumulated strings.Builder

	o.client.StreamQuery(ctx, question, api.StreamHandlers{
		OnToken: func(text string) {
			accumulated.WriteString(text)
			o.store.UpdateMessage(sessionID, messageID, func(m *Message) {
				m.Content += text
			})
			o.changed(sessionID)
		},
		OnCodeBlock: func(code string) {
			o.store.UpdateMessage(sessionID, messageID, func(m *Message) {
				m.GeneratedCode = code
			})
			o.changed(sessionID)
		},
		OnComplete: func(result *models.QueryResponse) {
			o.store.UpdateMessage(sessionID, messageID, func(m *Message) {
				if result.Explanation != "" {
					m.Content = result.Explanation
				} else if m.Content == "" {
					m.Content = accumulated.String()
				}
				if result.GeneratedCode != "" {
					m.GeneratedCode = result.GeneratedCode
				}
				m.ExecutionResult = result.ExecutionResult
				m.Streaming = false
			})
			o.changed(sessionID)
			if result.ExecutionResult != "" {
				o.noticed(sessionID, "Code was auto-executed")
			}
		},
		OnError: func(err error) {
			o.logger.Warn("chat turn failed",
				zap.String("session", sessionID),
				zap.Error(err),
			)
			o.store.UpdateMessage(sessionID, messageID, func(m *Message) {
				m.Content = "Error: " + err.Error()
				m.Streaming = false
			})
			o.changed(sessionID)
			o.failed(sessionID, err)
		},
	})
}

func (o *Orchestrator) changed(sessionID string) {
	if o.events.OnChange != nil {
		o.events.OnChange(sessionID)
	}
}

func (o *Orchestrator) noticed(sessionID, text string) {
	if o.events.OnNotice != nil {
		o.events.OnNotice(sessionID, text)
	}
}

func (o *Orchestrator) failed(sessionID string, err error) {
	if o.events.OnStreamError != nil {
		o.events.OnStreamError(sessionID, err)
	}
}
