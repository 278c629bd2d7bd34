package config

import (
	"testing"
	"time"
)

var providerEnv = []string{
	"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "KIMI_API_KEY",
	"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_BASE_URL", "LLM_TIMEOUT",
}

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name string
		set  []string
		want string
	}{
		{"gemini", []string{"GEMINI_API_KEY"}, "gemini"},
		{"claude", []string{"ANTHROPIC_API_KEY"}, "claude"},
		{"openai", []string{"OPENAI_API_KEY"}, "openai"},
		{"kimi", []string{"KIMI_API_KEY"}, "kimi"},
		{"fallback ollama", nil, "ollama"},
		{"priority", []string{"KIMI_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY"}, "gemini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, providerEnv...)
			for _, k := range tt.set {
				t.Setenv(k, "test-key")
			}

			if got := DetectProvider(); got != tt.want {
				t.Errorf("DetectProvider() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnvKeyForProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"gemini", "GEMINI_API_KEY"},
		{"kimi", "KIMI_API_KEY"},
		{"claude", "ANTHROPIC_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"ollama", ""},
		{"groq", "GROQ_API_KEY"}, // unknown providers get uppercased + _API_KEY
	}

	for _, tt := range tests {
		if got := EnvKeyForProvider(tt.provider); got != tt.want {
			t.Errorf("EnvKeyForProvider(%s) = %s, want %s", tt.provider, got, tt.want)
		}
	}
}

func TestProvidersMatchEnvKeys(t *testing.T) {
	for _, p := range Providers() {
		if got := EnvKeyForProvider(p.ID); got != p.EnvKey {
			t.Errorf("provider %s lists env key %q, EnvKeyForProvider says %q", p.ID, p.EnvKey, got)
		}
	}
}

func TestInferProviderFromModel(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gemini-2.5-flash", "gemini"},
		{"models/gemini-2.5-flash", "gemini"},
		{"claude-sonnet-4-5", "claude"},
		{"gpt-4o-mini", "openai"},
		{"kimi-k2-0711-preview", "kimi"},
		{"qwen2:0.5b", "ollama"},
		{"", ""},
		{"mystery", ""},
	}

	for _, tt := range tests {
		if got := InferProviderFromModel(tt.model); got != tt.want {
			t.Errorf("InferProviderFromModel(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, providerEnv...)
	clearEnv(t, "STUDYBUDDY_DB", "TZ", "HTTP_ADDR", "CONTEXT_TURNS", "PROMPTS_FILE",
		"TELEGRAM_TOKEN", "DISCORD_TOKEN", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY",
		"BUDGET_ENABLED", "BUDGET_DAILY_LIMIT", "BUDGET_WARN_AT",
		"SESSION_IDLE_TIMEOUT", "TRANSCRIPT_RETENTION", "JANITOR_SCHEDULE")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "g-key" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.DBPath != "studybuddy.db" {
		t.Errorf("expected default db path, got %s", cfg.DBPath)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.Chat.ContextTurns != 3 {
		t.Errorf("expected 3 context turns, got %d", cfg.Chat.ContextTurns)
	}
	if cfg.Bots.Telegram.Enabled || cfg.Bots.Discord.Enabled {
		t.Error("expected bots disabled without tokens")
	}
	if cfg.Storage.Enabled {
		t.Error("expected storage disabled without credentials")
	}
	if cfg.Budget.Enabled || cfg.Budget.DailyLimit != 200000 || cfg.Budget.WarnAt != 0.8 {
		t.Errorf("unexpected budget config: %+v", cfg.Budget)
	}
	if cfg.Janitor.IdleTimeout != 2*time.Hour {
		t.Errorf("expected 2h idle timeout, got %v", cfg.Janitor.IdleTimeout)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location())
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t, providerEnv...)
	t.Setenv("LLM_MODEL", "claude-haiku-4-5")
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("CONTEXT_TURNS", "5")
	t.Setenv("SESSION_IDLE_TIMEOUT", "nonsense")
	t.Setenv("BUDGET_WARN_AT", "1.5")
	t.Setenv("TELEGRAM_TOKEN", "tg")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "claude" {
		t.Errorf("expected provider inferred from model, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.Chat.ContextTurns != 5 {
		t.Errorf("expected 5 context turns, got %d", cfg.Chat.ContextTurns)
	}
	if cfg.Janitor.IdleTimeout != 2*time.Hour {
		t.Errorf("expected invalid duration to fall back, got %v", cfg.Janitor.IdleTimeout)
	}
	if cfg.Budget.WarnAt != 0.8 {
		t.Errorf("expected out-of-range warn threshold to fall back, got %v", cfg.Budget.WarnAt)
	}
	if !cfg.Bots.Telegram.Enabled {
		t.Error("expected telegram enabled")
	}
}

func TestLoadMissingKey(t *testing.T) {
	clearEnv(t, providerEnv...)
	t.Setenv("LLM_PROVIDER", "openai")

	if _, err := Load(); err == nil {
		t.Error("expected error when the provider's key is missing")
	}
}

func TestLoadOllamaNeedsNoKey(t *testing.T) {
	clearEnv(t, providerEnv...)
	t.Setenv("TZ", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "ollama" || cfg.LLM.APIKey != "ollama" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
}

func TestLoadInvalidTimezone(t *testing.T) {
	clearEnv(t, providerEnv...)
	t.Setenv("TZ", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
