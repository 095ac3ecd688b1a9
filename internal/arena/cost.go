package arena

import (
	"math"
	"strings"
)

// estimateCostPerCallUSD is a coarse per-call price used for run-level
// cost estimates, keyed by provider and model family. Local models are
// free.
func estimateCostPerCallUSD(provider, model string) float64 {
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.ToLower(strings.TrimSpace(model))

	switch provider {
	case "local":
		return 0.0
	case "openai":
		if strings.Contains(model, "gpt-4.1") || strings.Contains(model, "gpt-4o") {
			return 0.00009
		}
		return 0.00003
	case "anthropic":
		if strings.Contains(model, "sonnet") {
			return 0.00008
		}
		return 0.00003
	case "gemini":
		if strings.Contains(model, "pro") {
			return 0.00005
		}
		return 0.00002
	}
	return 0.00003
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
