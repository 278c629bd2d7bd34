package budget

import "strings"

type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var pricing = map[string]ModelPricing{
	// Gemini (per million tokens)
	"gemini-2.5-flash":      {0.30, 2.50},
	"gemini-2.5-flash-lite": {0.10, 0.40},
	"gemini-2.5-pro":        {1.25, 10.00},
	"gemini-2.0-flash":      {0.10, 0.40},

	// Claude
	"claude-sonnet-4-5":         {3.00, 15.00},
	"claude-sonnet-4-20250514":  {3.00, 15.00},
	"claude-haiku-4-5":          {1.00, 5.00},
	"claude-3-5-haiku-20241022": {0.80, 4.00},

	// OpenAI
	"gpt-4o":       {2.50, 10.00},
	"gpt-4o-mini":  {0.15, 0.60},
	"gpt-4.1-mini": {0.40, 1.60},

	// Kimi (estimated)
	"kimi-k2-0711-preview": {1.00, 4.00},
}

// CalculateCost estimates the USD cost of one call. Local models are free and
// unknown hosted models are priced conservatively.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		model = strings.TrimPrefix(model, "models/")
		p, ok = pricing[model]
	}
	if !ok {
		if strings.HasPrefix(model, "ollama/") || strings.Contains(model, ":") {
			return 0
		}
		p = ModelPricing{5.00, 15.00}
	}

	inputCost := float64(inputTokens) * p.InputPerMillion / 1_000_000
	outputCost := float64(outputTokens) * p.OutputPerMillion / 1_000_000

	return inputCost + outputCost
}

func GetPricing(model string) (input, output float64, found bool) {
	p, ok := pricing[model]
	if !ok {
		return 0, 0, false
	}
	return p.InputPerMillion, p.OutputPerMillion, true
}
