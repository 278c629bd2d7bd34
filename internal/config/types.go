package config

import "time"

type Config struct {
	DBPath   string
	Timezone string
	LLM      LLMConfig
	Chat     ChatConfig
	HTTP     HTTPConfig
	Bots     MultiBot
	Alerts   AlertsConfig
	Budget   BudgetConfig
	Storage  StorageConfig
	Janitor  JanitorConfig
}

type LLMConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

type ChatConfig struct {
	ContextTurns int
	PromptsFile  string
}

type HTTPConfig struct {
	Addr string
}

type BotInstance struct {
	Enabled bool
	Token   string
}

type MultiBot struct {
	Telegram BotInstance
	Discord  BotInstance
}

type AlertsConfig struct {
	ChatID   string // Telegram chat ID or Discord channel ID
	Cooldown time.Duration
}

type BudgetConfig struct {
	Enabled    bool
	DailyLimit int
	WarnAt     float64
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type JanitorConfig struct {
	Schedule    string
	IdleTimeout time.Duration
	Retention   time.Duration
}
