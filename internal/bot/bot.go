package bot

import (
	"fmt"

	"github.com/bowerhall/studybuddy/internal/agent"
	"github.com/bowerhall/studybuddy/internal/dispatch"
)

func New(cfg Config, chat *Chat) (Bot, error) {
	switch cfg.Provider {
	case "telegram":
		return NewTelegram(cfg.Token, chat)
	case "discord":
		return NewDiscord(cfg.Token, chat)
	default:
		return nil, fmt.Errorf("unknown bot provider: %s", cfg.Provider)
	}
}

func NewChat(a *agent.Agent) *Chat {
	return &Chat{agent: a, prefs: make(map[string]dispatch.Selection)}
}

func NewTelegram(token string, chat *Chat) (Bot, error) {
	return newTelegram(token, chat)
}

func NewDiscord(token string, chat *Chat) (Bot, error) {
	return newDiscord(token, chat)
}
