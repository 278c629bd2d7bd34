package llm

import (
	"fmt"
	"net/http"
	"sort"
)

// provider describes how to reach one backend. Providers with a nil build
// func speak the OpenAI chat completions protocol.
type provider struct {
	baseURL      string
	defaultModel string
	// fixedKey is sent instead of the configured key, for local servers
	fixedKey string
	build    func(cfg Config, client *http.Client) LLM
}

var providers = map[string]provider{
	"gemini": {
		defaultModel: "gemini-2.5-flash",
		build: func(cfg Config, client *http.Client) LLM {
			return newGemini(cfg.APIKey, cfg.BaseURL, cfg.Model, client)
		},
	},
	"claude": {
		defaultModel: "claude-sonnet-4-20250514",
		build: func(cfg Config, _ *http.Client) LLM {
			return newClaude(cfg.APIKey, cfg.BaseURL, cfg.Model)
		},
	},
	"openai":     {baseURL: "https://api.openai.com/v1", defaultModel: "gpt-4o-mini"},
	"kimi":       {baseURL: "https://api.moonshot.ai/v1", defaultModel: "kimi-k2-0711-preview"},
	"ollama":     {baseURL: "http://localhost:11434/v1", defaultModel: "qwen2:0.5b", fixedKey: "ollama"},
	"mistral":    {baseURL: "https://api.mistral.ai/v1"},
	"groq":       {baseURL: "https://api.groq.com/openai/v1"},
	"together":   {baseURL: "https://api.together.xyz/v1"},
	"deepseek":   {baseURL: "https://api.deepseek.com/v1"},
	"fireworks":  {baseURL: "https://api.fireworks.ai/inference/v1"},
	"perplexity": {baseURL: "https://api.perplexity.ai"},
}

// New builds a client for the configured provider. Deadlines are driven by
// the caller's context, so the underlying http.Client carries no timeout.
func New(cfg Config) (LLM, error) {
	p, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}

	if cfg.Model == "" {
		cfg.Model = p.defaultModel
	}

	client := &http.Client{}
	if p.build != nil {
		return p.build(cfg, client), nil
	}

	baseURL := p.baseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
		// a bare Ollama host gets its OpenAI-compatible path
		if cfg.Provider == "ollama" {
			baseURL += "/v1"
		}
	}

	apiKey := cfg.APIKey
	if p.fixedKey != "" {
		apiKey = p.fixedKey
	}

	return newOpenAICompatible(cfg.Provider, apiKey, baseURL, cfg.Model, client), nil
}

// KnownProviders returns all known provider IDs, sorted.
func KnownProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func IsKnownProvider(name string) bool {
	_, ok := providers[name]
	return ok
}
