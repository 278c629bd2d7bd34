package session

import (
	"errors"
	"time"

	"github.com/bowerhall/studybuddy/internal/document"
)

// ErrNoDocument is returned when editing a session that has no document.
var ErrNoDocument = errors.New("no document loaded")

func New(id string) *Session {
	return &Session{id: id, lastActive: time.Now()}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) AddMessage(role Role, content string) {
	s.AppendMessage(role, content)
}

// AppendMessage adds a message and returns its index, read under the same
// lock as the append.
func (s *Session) AppendMessage(role Role, content string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{Role: role, Content: content})
	s.lastActive = time.Now()
	return len(s.messages) - 1
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]Message, len(s.messages))
	copy(copied, s.messages)

	return copied
}

// Message returns the message at index, oldest first.
func (s *Session) Message(index int) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.messages) {
		return Message{}, false
	}
	return s.messages[index], true
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Reset starts a new chat. The document and focus hint are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Document returns a copy of the loaded document, or nil.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.document == nil {
		return nil
	}
	doc := *s.document
	return &doc
}

// SetDocument loads doc, replacing any previous upload.
func (s *Session) SetDocument(doc document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = &doc
	s.lastActive = time.Now()
}

// EditDocument replaces the editable text of the loaded document.
func (s *Session) EditDocument(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.document == nil {
		return ErrNoDocument
	}
	s.document.EditedText = text
	return nil
}

func (s *Session) ClearDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.document = nil
}

func (s *Session) FocusHint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focusHint
}

func (s *Session) SetFocusHint(hint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focusHint = hint
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = now
}

// TryAcquire attempts to acquire the processing lock.
// Returns true if acquired, false if already processing.
func (s *Session) TryAcquire() bool {
	return s.processing.TryLock()
}

// Release releases the processing lock.
func (s *Session) Release() {
	s.processing.Unlock()
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session), now: time.Now}
}

// Get returns the session for sessionID, creating it on first use.
func (s *Store) Get(sessionID string) *Session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if ok {
		sess.touch(s.now())
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok = s.sessions[sessionID]; ok {
		sess.touch(s.now())
		return sess
	}

	sess = New(sessionID)
	sess.touch(s.now())
	s.sessions[sessionID] = sess

	return sess
}

// Lookup returns an existing session without creating one.
func (s *Store) Lookup(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	return sess, ok
}

func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictIdle drops sessions untouched for longer than maxIdle and returns
// their IDs. Sessions that are mid-dispatch are kept.
func (s *Store) EvictIdle(maxIdle time.Duration) []string {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for id, sess := range s.sessions {
		if !sess.LastActive().Before(cutoff) {
			continue
		}
		if !sess.TryAcquire() {
			continue
		}
		delete(s.sessions, id)
		sess.Release()
		evicted = append(evicted, id)
	}

	return evicted
}
