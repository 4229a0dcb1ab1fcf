package config

import "strings"

// ModelPricing holds per-million-token prices for a model.
type ModelPricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
}

// DefaultPricing maps model base names to their pricing.
var DefaultPricing = map[string]ModelPricing{
	"claude-opus-4-5": {
		InputPerMTok: 5.00, OutputPerMTok: 25.00,
		CacheWritePerMTok: 6.25, CacheReadPerMTok: 0.50,
	},
	"claude-opus-4-1": {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	"claude-opus-4": {
		InputPerMTok: 15.00, OutputPerMTok: 75.00,
		CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50,
	},
	"claude-sonnet-4-5": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	"claude-sonnet-4": {
		InputPerMTok: 3.00, OutputPerMTok: 15.00,
		CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30,
	},
	"claude-haiku-4-5": {
		InputPerMTok: 1.00, OutputPerMTok: 5.00,
		CacheWritePerMTok: 1.25, CacheReadPerMTok: 0.10,
	},
	"claude-haiku-3-5": {
		InputPerMTok: 0.80, OutputPerMTok: 4.00,
		CacheWritePerMTok: 1.00, CacheReadPerMTok: 0.08,
	},
}

// NormalizeModelName strips date suffixes from model identifiers.
// e.g., "claude-sonnet-4-5-20250929" -> "claude-sonnet-4-5"
func NormalizeModelName(raw string) string {
	if _, ok := DefaultPricing[raw]; ok {
		return raw
	}

	parts := strings.Split(raw, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if isAllDigits(last) && len(last) >= 8 {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if _, ok := DefaultPricing[candidate]; ok {
				return candidate
			}
		}
	}

	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// LookupPricing returns the pricing for a model after applying any user
// overrides, normalizing the name first. Returns false for unknown models.
func LookupPricing(cfg Config, model string) (ModelPricing, bool) {
	normalized := NormalizeModelName(model)

	pricing, known := DefaultPricing[normalized]

	if ov, ok := cfg.Pricing.Overrides[normalized]; ok {
		known = true
		if ov.InputPerMTok != nil {
			pricing.InputPerMTok = *ov.InputPerMTok
		}
		if ov.OutputPerMTok != nil {
			pricing.OutputPerMTok = *ov.OutputPerMTok
		}
		if ov.CacheWritePerMTok != nil {
			pricing.CacheWritePerMTok = *ov.CacheWritePerMTok
		}
		if ov.CacheReadPerMTok != nil {
			pricing.CacheReadPerMTok = *ov.CacheReadPerMTok
		}
	}

	return pricing, known
}

// CalculateCost computes the estimated cost in USD for a single API call.
// Unknown models cost zero; the caller stores whatever the producer reported.
func CalculateCost(cfg Config, model string, inputTokens, outputTokens, cacheWrite, cacheRead int64) float64 {
	pricing, ok := LookupPricing(cfg, model)
	if !ok {
		return 0
	}

	cost := float64(inputTokens) * pricing.InputPerMTok / 1_000_000
	cost += float64(outputTokens) * pricing.OutputPerMTok / 1_000_000
	cost += float64(cacheWrite) * pricing.CacheWritePerMTok / 1_000_000
	cost += float64(cacheRead) * pricing.CacheReadPerMTok / 1_000_000

	return cost
}
