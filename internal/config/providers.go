package config

import "strings"

type ProviderInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	EnvKey string `json:"env_key,omitempty"`
}

// Providers lists the model providers StudyBuddy can talk to.
func Providers() []ProviderInfo {
	return []ProviderInfo{
		{ID: "gemini", Name: "Google Gemini", EnvKey: "GEMINI_API_KEY"},
		{ID: "claude", Name: "Anthropic Claude", EnvKey: "ANTHROPIC_API_KEY"},
		{ID: "openai", Name: "OpenAI", EnvKey: "OPENAI_API_KEY"},
		{ID: "kimi", Name: "Moonshot Kimi", EnvKey: "KIMI_API_KEY"},
		{ID: "ollama", Name: "Ollama (local)", EnvKey: ""},
		// OpenAI-compatible hosts
		{ID: "mistral", Name: "Mistral AI", EnvKey: "MISTRAL_API_KEY"},
		{ID: "groq", Name: "Groq", EnvKey: "GROQ_API_KEY"},
		{ID: "together", Name: "Together AI", EnvKey: "TOGETHER_API_KEY"},
		{ID: "deepseek", Name: "DeepSeek", EnvKey: "DEEPSEEK_API_KEY"},
		{ID: "fireworks", Name: "Fireworks AI", EnvKey: "FIREWORKS_API_KEY"},
		{ID: "perplexity", Name: "Perplexity", EnvKey: "PERPLEXITY_API_KEY"},
	}
}

// EnvKeyForProvider returns the environment variable name for a provider's API key
func EnvKeyForProvider(provider string) string {
	switch provider {
	case "gemini":
		return "GEMINI_API_KEY"
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "kimi":
		return "KIMI_API_KEY"
	case "ollama":
		return ""
	default:
		return strings.ToUpper(provider) + "_API_KEY"
	}
}

// InferProviderFromModel guesses the provider from a model name
func InferProviderFromModel(model string) string {
	model = strings.TrimPrefix(model, "models/")

	switch {
	case strings.HasPrefix(model, "gemini-"):
		return "gemini"
	case strings.HasPrefix(model, "kimi-"):
		return "kimi"
	case strings.HasPrefix(model, "claude-"):
		return "claude"
	case strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3"):
		return "openai"
	case strings.Contains(model, "llama") || strings.Contains(model, "qwen") || strings.Contains(model, ":"):
		return "ollama"
	default:
		return ""
	}
}
