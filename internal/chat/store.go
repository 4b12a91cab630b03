package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore holds all chat sessions and the active-session pointer.
// It is safe for concurrent use; every read returns a deep copy, so a
// session that is deleted mid-stream cannot be resurrected through a
// stale reference. Mutations against a session or message that no
// longer exists are silent no-ops.
type SessionStore struct {
	mu       sync.RWMutex
	sessions []*Session
	activeID string
}

// NewSessionStore creates an empty store with no active session
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// CreateSession adds a new empty session at the front of the list and
// makes it active
func (s *SessionStore) CreateSession() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: time.Now(),
	}

	s.sessions = append([]*Session{session}, s.sessions...)
	s.activeID = session.ID

	return session.clone()
}

// SelectSession makes the given session active. Unknown IDs are ignored.
func (s *SessionStore) SelectSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) != nil {
		s.activeID = id
	}
}

// DeleteSession removes a session. If it was active, no session is
// active afterwards. Unknown IDs are ignored.
func (s *SessionStore) DeleteSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, session := range s.sessions {
		if session.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			if s.activeID == id {
				s.activeID = ""
			}
			return
		}
	}
}

// AppendMessage adds a message to the end of a session. A no-op if the
// session no longer exists.
func (s *SessionStore) AppendMessage(sessionID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil {
		return
	}
	session.Messages = append(session.Messages, msg)
}

// UpdateMessage applies fn to a message in place. A no-op if the session
// or message no longer exists, which makes streaming updates safe to
// race against deletion.
func (s *SessionStore) UpdateMessage(sessionID, messageID string, fn func(*Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil {
		return
	}
	for i := range session.Messages {
		if session.Messages[i].ID == messageID {
			fn(&session.Messages[i])
			return
		}
	}
}

// RemoveMessage deletes a single message from a session. A no-op if the
// session or message no longer exists.
func (s *SessionStore) RemoveMessage(sessionID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil {
		return
	}
	for i := range session.Messages {
		if session.Messages[i].ID == messageID {
			session.Messages = append(session.Messages[:i], session.Messages[i+1:]...)
			return
		}
	}
}

// RetitleIfFirstMessage sets the session title from the given text, but
// only while the session holds no messages yet. Once any message exists
// the title is fixed, so it always reflects the first user utterance.
func (s *SessionStore) RetitleIfFirstMessage(sessionID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.find(sessionID)
	if session == nil || len(session.Messages) != 0 {
		return
	}
	session.Title = TruncateTitle(text)
}

// Session returns a deep copy of one session
func (s *SessionStore) Session(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.find(id)
	if session == nil {
		return Session{}, false
	}
	return session.clone(), true
}

// Sessions returns deep copies of all sessions, newest first
func (s *SessionStore) Sessions() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = session.clone()
	}
	return out
}

// ActiveID returns the ID of the active session, or "" when none is
func (s *SessionStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a deep copy of the active session
func (s *SessionStore) Active() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.find(s.activeID)
	if session == nil {
		return Session{}, false
	}
	return session.clone(), true
}

// Len returns the number of sessions
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// find must be called with the lock held
func (s *SessionStore) find(id string) *Session {
	if id == "" {
		return nil
	}
	for _, session := range s.sessions {
		if session.ID == id {
			return session
		}
	}
	return nil
}
