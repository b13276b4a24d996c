package llm

import "strings"

// Token pricing per 1M tokens (USD), prompts up to 128k tokens.
var pricing = map[string]modelPrice{
	"gemini-1.0-pro":        {Input: 0.50, Output: 1.50},
	"gemini-1.5-pro":        {Input: 1.25, Output: 5.00},
	"gemini-1.5-flash":      {Input: 0.075, Output: 0.30},
	"gemini-1.5-flash-8b":   {Input: 0.0375, Output: 0.15},
	"gemini-2.0-flash":      {Input: 0.10, Output: 0.40},
	"gemini-2.0-flash-lite": {Input: 0.075, Output: 0.30},
}

type modelPrice struct {
	Input  float64 // per 1M input tokens
	Output float64 // per 1M output tokens
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Version suffixes such as "-001" or "-latest" are ignored.
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[model]
	if !ok {
		p, ok = pricing[baseModel(model)]
	}
	if !ok {
		return 0
	}
	return (float64(tokensIn) * p.Input / 1_000_000) + (float64(tokensOut) * p.Output / 1_000_000)
}

func baseModel(model string) string {
	model = strings.TrimPrefix(model, "models/")
	for _, suffix := range []string{"-latest", "-001", "-002"} {
		model = strings.TrimSuffix(model, suffix)
	}
	return model
}
