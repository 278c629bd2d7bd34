package bot

import (
	"context"
	"sync"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/dispatch"
)

type Bot interface {
	Start(ctx context.Context) error
	// Send posts an unsolicited message, e.g. an operator alert.
	Send(chatID string, message string) error
}

type Config struct {
	Provider string
	Token    string
}

// Outgoing is a reply to a chat. FeedbackIndex >= 0 attaches 👍/👎 buttons
// for the reply at that history index.
type Outgoing struct {
	Text          string
	FeedbackIndex int
}

func plain(text string) Outgoing {
	return Outgoing{Text: text, FeedbackIndex: -1}
}

// Chat is the platform-neutral part of a bot: commands, uploads and
// feedback. Platform adapters translate to and from it.
type Chat struct {
	agent *agent.Agent

	mu    sync.Mutex
	prefs map[string]dispatch.Selection
}
