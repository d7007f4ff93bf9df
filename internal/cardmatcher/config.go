package cardmatcher

import "fmt"

// Config holds the weights and thresholds of the card matching algorithm.
//
// The credit limit is deliberately absent from scoring: limits change over
// a card's lifetime and a stale limit would poison otherwise solid matches.
type Config struct {
	// Score weights per evidence source.
	WeightLastFour      int `json:"weight_last_four"`
	WeightBankExact     int `json:"weight_bank_exact"`
	WeightBankSimilar   int `json:"weight_bank_similar"`
	WeightHolderExact   int `json:"weight_holder_exact"`
	WeightHolderPartial int `json:"weight_holder_partial"`

	// Word-set similarity cutoffs.
	BankSimilarityHigh   float64 `json:"bank_similarity_high"`
	BankSimilarityLow    float64 `json:"bank_similarity_low"`
	HolderSimilarityHigh float64 `json:"holder_similarity_high"`
	HolderSimilarityLow  float64 `json:"holder_similarity_low"`

	// Tier thresholds over the total score.
	ExactThreshold    int `json:"exact_threshold"`
	StrongThreshold   int `json:"strong_threshold"`
	PossibleThreshold int `json:"possible_threshold"`

	// IdentityOverrideFloor is the minimum score granted when bank and
	// holder match exactly but the card digits differ, the signature of a
	// reissued card.
	IdentityOverrideFloor int `json:"identity_override_floor"`

	// PlaceholderSentinels are extraction artifacts that look like data but
	// carry no identity. A statement built on them must never auto-create a
	// card record.
	PlaceholderSentinels []string `json:"placeholder_sentinels"`

	// MaxPossibleSuggestions caps the low-confidence options surfaced to a
	// human reviewer.
	MaxPossibleSuggestions int `json:"max_possible_suggestions"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		WeightLastFour:      30,
		WeightBankExact:     35,
		WeightBankSimilar:   25,
		WeightHolderExact:   35,
		WeightHolderPartial: 20,

		BankSimilarityHigh:   0.9,
		BankSimilarityLow:    0.7,
		HolderSimilarityHigh: 0.8,
		HolderSimilarityLow:  0.5,

		ExactThreshold:    90,
		StrongThreshold:   70,
		PossibleThreshold: 40,

		IdentityOverrideFloor: 75,

		PlaceholderSentinels: []string{
			"banco desconocido",
			"unknown bank",
			"xxxx",
			"titular principal",
			"primary cardholder",
		},

		MaxPossibleSuggestions: 3,
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	for name, w := range map[string]int{
		"last four weight":      c.WeightLastFour,
		"bank exact weight":     c.WeightBankExact,
		"bank similar weight":   c.WeightBankSimilar,
		"holder exact weight":   c.WeightHolderExact,
		"holder partial weight": c.WeightHolderPartial,
	} {
		if w < 0 {
			return fmt.Errorf("%s cannot be negative: %d", name, w)
		}
	}

	for name, s := range map[string]float64{
		"bank similarity high":   c.BankSimilarityHigh,
		"bank similarity low":    c.BankSimilarityLow,
		"holder similarity high": c.HolderSimilarityHigh,
		"holder similarity low":  c.HolderSimilarityLow,
	} {
		if s < 0 || s > 1 {
			return fmt.Errorf("%s must be between 0 and 1: %f", name, s)
		}
	}

	if c.BankSimilarityLow > c.BankSimilarityHigh {
		return fmt.Errorf("bank similarity low %f exceeds high %f", c.BankSimilarityLow, c.BankSimilarityHigh)
	}
	if c.HolderSimilarityLow > c.HolderSimilarityHigh {
		return fmt.Errorf("holder similarity low %f exceeds high %f", c.HolderSimilarityLow, c.HolderSimilarityHigh)
	}

	if !(c.PossibleThreshold <= c.StrongThreshold && c.StrongThreshold <= c.ExactThreshold) {
		return fmt.Errorf("thresholds must be ordered possible <= strong <= exact: %d, %d, %d",
			c.PossibleThreshold, c.StrongThreshold, c.ExactThreshold)
	}

	if c.MaxPossibleSuggestions < 1 {
		return fmt.Errorf("max possible suggestions must be positive: %d", c.MaxPossibleSuggestions)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.PlaceholderSentinels = append([]string(nil), c.PlaceholderSentinels...)
	return &clone
}
