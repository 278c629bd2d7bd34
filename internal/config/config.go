package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func Load() (*Config, error) {
	dbPath := os.Getenv("STUDYBUDDY_DB")
	if dbPath == "" {
		dbPath = "studybuddy.db"
	}

	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", timezone, err)
	}

	llmConfig, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		DBPath:   dbPath,
		Timezone: timezone,
		LLM:      llmConfig,
		Chat:     loadChatConfig(),
		HTTP:     HTTPConfig{Addr: httpAddr},
		Bots:     loadMultiBotConfig(),
		Alerts:   loadAlertsConfig(),
		Budget:   loadBudgetConfig(),
		Storage:  loadStorageConfig(),
		Janitor:  loadJanitorConfig(),
	}, nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func loadChatConfig() ChatConfig {
	turns := 3
	if n, err := strconv.Atoi(os.Getenv("CONTEXT_TURNS")); err == nil && n >= 0 {
		turns = n
	}

	return ChatConfig{
		ContextTurns: turns,
		PromptsFile:  os.Getenv("PROMPTS_FILE"),
	}
}

func loadAlertsConfig() AlertsConfig {
	return AlertsConfig{
		ChatID:   os.Getenv("ALERT_CHAT_ID"),
		Cooldown: envDuration("ALERT_COOLDOWN", 10*time.Minute),
	}
}

func loadJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Schedule:    os.Getenv("JANITOR_SCHEDULE"),
		IdleTimeout: envDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		Retention:   envDuration("TRANSCRIPT_RETENTION", 30*24*time.Hour),
	}
}

func loadStorageConfig() StorageConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	return StorageConfig{
		Enabled:   accessKey != "" && secretKey != "",
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		Bucket:    os.Getenv("MINIO_BUCKET"),
	}
}

func loadBudgetConfig() BudgetConfig {
	enabled := os.Getenv("BUDGET_ENABLED") == "true"

	dailyLimit := 200000 // default 200k tokens
	if limit, err := strconv.Atoi(os.Getenv("BUDGET_DAILY_LIMIT")); err == nil && limit > 0 {
		dailyLimit = limit
	}

	warnAt := 0.8 // default 80%
	if warn, err := strconv.ParseFloat(os.Getenv("BUDGET_WARN_AT"), 64); err == nil && warn > 0 && warn < 1 {
		warnAt = warn
	}

	return BudgetConfig{
		Enabled:    enabled,
		DailyLimit: dailyLimit,
		WarnAt:     warnAt,
	}
}

func loadMultiBotConfig() MultiBot {
	telegramToken := os.Getenv("TELEGRAM_TOKEN")
	discordToken := os.Getenv("DISCORD_TOKEN")

	return MultiBot{
		Telegram: BotInstance{
			Enabled: telegramToken != "",
			Token:   telegramToken,
		},
		Discord: BotInstance{
			Enabled: discordToken != "",
			Token:   discordToken,
		},
	}
}

func loadLLMConfig() (LLMConfig, error) {
	model := os.Getenv("LLM_MODEL")

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = InferProviderFromModel(model)
	}
	if provider == "" {
		provider = DetectProvider()
	}

	apiKey, err := getAPIKey(provider)
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		APIKey:   apiKey,
		Model:    model,
		BaseURL:  os.Getenv("LLM_BASE_URL"),
		Timeout:  envDuration("LLM_TIMEOUT", 60*time.Second),
	}, nil
}

// DetectProvider picks the first provider with an API key set, falling back
// to a local Ollama.
func DetectProvider() string {
	for _, p := range []string{"gemini", "claude", "openai", "kimi"} {
		if os.Getenv(EnvKeyForProvider(p)) != "" {
			return p
		}
	}
	return "ollama"
}

func getAPIKey(provider string) (string, error) {
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		return key, nil
	}

	envKey := EnvKeyForProvider(provider)
	if envKey == "" {
		// Ollama doesn't need an API key
		return "ollama", nil
	}

	key := os.Getenv(envKey)
	if key == "" {
		return "", fmt.Errorf("%s not set", envKey)
	}
	return key, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
