package llm

// Token pricing per 1M tokens (USD) as of mid 2026.
var pricing = map[string]modelPrice{
	// DeepSeek
	"deepseek-chat":     {Input: 0.27, Output: 1.10},
	"deepseek-reasoner": {Input: 0.55, Output: 2.19},

	// OpenAI
	"gpt-4o":      {Input: 2.50, Output: 10.00},
	"gpt-4o-mini": {Input: 0.15, Output: 0.60},
	"o1-mini":     {Input: 3.00, Output: 12.00},
}

type modelPrice struct {
	Input  float64 // per 1M input tokens
	Output float64 // per 1M output tokens
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return (float64(tokensIn) * p.Input / 1_000_000) + (float64(tokensOut) * p.Output / 1_000_000)
}
