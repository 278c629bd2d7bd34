package session

import (
	"sync"
	"time"

	"github.com/bowerhall/studybuddy/internal/document"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. It is never modified after it is appended.
type Message struct {
	Role    Role
	Content string
}

// Session is the state of one learner's conversation: the message history,
// the loaded study document and the summary focus hint.
type Session struct {
	mu         sync.Mutex
	id         string
	messages   []Message
	document   *document.Document
	focusHint  string
	lastActive time.Time
	processing sync.Mutex
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}
