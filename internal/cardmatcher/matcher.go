// Package cardmatcher links extracted statements to known card records
// through weighted fuzzy scoring over the identity triple: last four
// digits, issuing bank, and holder name. Scores bucket into exact, strong,
// and possible tiers; a separate, stricter gate decides whether an
// unmatched statement is safe to turn into a new card record automatically.
package cardmatcher

import (
	"fmt"
	"sort"
	"strings"

	"statement-ingestion-service/internal/models"
	"statement-ingestion-service/pkg/logger"
)

// MatchTier buckets a score.
type MatchTier string

const (
	TierExact    MatchTier = "exact"
	TierStrong   MatchTier = "strong"
	TierPossible MatchTier = "possible"
	TierNone     MatchTier = "none"
)

// MatchScore is the scored comparison of one card against a statement.
type MatchScore struct {
	Total   int            `json:"total"`
	Reasons []string       `json:"reasons"`
	Details map[string]int `json:"details"`
}

// CardMatch pairs a candidate card with its score.
type CardMatch struct {
	Card  *models.CardRecord `json:"card"`
	Score MatchScore         `json:"score"`
}

// MatchSet holds all candidates bucketed by tier, each tier sorted by
// descending score.
//
// HasDuplicates means the statement likely belongs to a card already on
// file. CanCreateSafely is the score-based creation verdict: any match at
// all, even a weak possible, blocks silent auto-creation.
type MatchSet struct {
	Exact    []*CardMatch `json:"exact"`
	Strong   []*CardMatch `json:"strong"`
	Possible []*CardMatch `json:"possible"`

	HasDuplicates   bool `json:"has_duplicates"`
	CanCreateSafely bool `json:"can_create_safely"`
}

// Best returns the highest-scoring match and its tier, or nil and TierNone.
func (s *MatchSet) Best() (*CardMatch, MatchTier) {
	switch {
	case len(s.Exact) > 0:
		return s.Exact[0], TierExact
	case len(s.Strong) > 0:
		return s.Strong[0], TierStrong
	case len(s.Possible) > 0:
		return s.Possible[0], TierPossible
	}
	return nil, TierNone
}

// Matcher scores statements against card records.
type Matcher struct {
	config *Config
	logger logger.Logger
}

// New creates a matcher with the given configuration.
func New(config *Config) *Matcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Matcher{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("cardmatcher"),
	}
}

// ScoreCard computes the weighted match score between a statement identity
// and one card record.
func (m *Matcher) ScoreCard(target NormalizedCard, card *models.CardRecord) MatchScore {
	score := MatchScore{Details: make(map[string]int)}
	candidate := NormalizeCardRecord(card)

	digitsComparable := target.LastFour != "" && candidate.LastFour != ""
	if digitsComparable && target.LastFour == candidate.LastFour {
		score.Details["last_four"] = m.config.WeightLastFour
		score.Reasons = append(score.Reasons,
			fmt.Sprintf("card digits %s match", target.LastFour))
	}

	bankExact := false
	switch sim := bankSimilarity(target.Bank, candidate.Bank); {
	case sim >= m.config.BankSimilarityHigh:
		bankExact = sim == 1
		score.Details["bank"] = m.config.WeightBankExact
		score.Reasons = append(score.Reasons,
			fmt.Sprintf("bank %q matches %q", target.Bank, candidate.Bank))
	case sim >= m.config.BankSimilarityLow:
		score.Details["bank"] = m.config.WeightBankSimilar
		score.Reasons = append(score.Reasons,
			fmt.Sprintf("bank %q resembles %q", target.Bank, candidate.Bank))
	}

	holderExact := false
	switch sim := holderSimilarity(target.Holder, candidate.Holder); {
	case sim >= m.config.HolderSimilarityHigh:
		holderExact = sim == 1
		score.Details["holder"] = m.config.WeightHolderExact
		score.Reasons = append(score.Reasons,
			fmt.Sprintf("holder %q matches %q", target.Holder, candidate.Holder))
	case sim >= m.config.HolderSimilarityLow:
		score.Details["holder"] = m.config.WeightHolderPartial
		score.Reasons = append(score.Reasons,
			fmt.Sprintf("holder %q partially matches %q", target.Holder, candidate.Holder))
	}

	for _, v := range score.Details {
		score.Total += v
	}

	// Reissued-card override: identical bank and holder with different
	// digits is the signature of a replaced card, not a different one.
	if bankExact && holderExact && digitsComparable && target.LastFour != candidate.LastFour {
		if score.Total < m.config.IdentityOverrideFloor {
			score.Total = m.config.IdentityOverrideFloor
			score.Reasons = append(score.Reasons,
				"bank and holder identical with different digits, likely reissued card")
		}
	}

	return score
}

// FindMatches scores every card against the statement and buckets the
// results. Ordering inside each tier is deterministic: descending score,
// then card name.
func (m *Matcher) FindMatches(stmt *models.ParsedStatement, cards []*models.CardRecord) *MatchSet {
	target := NormalizeCardData(stmt.BankName, stmt.CardHolderName, stmt.LastFourDigits)
	set := &MatchSet{}

	for _, card := range cards {
		score := m.ScoreCard(target, card)
		match := &CardMatch{Card: card, Score: score}

		switch {
		case score.Total >= m.config.ExactThreshold:
			set.Exact = append(set.Exact, match)
		case score.Total >= m.config.StrongThreshold:
			set.Strong = append(set.Strong, match)
		case score.Total >= m.config.PossibleThreshold:
			set.Possible = append(set.Possible, match)
		}
	}

	for _, tier := range [][]*CardMatch{set.Exact, set.Strong, set.Possible} {
		sort.SliceStable(tier, func(i, j int) bool {
			if tier[i].Score.Total != tier[j].Score.Total {
				return tier[i].Score.Total > tier[j].Score.Total
			}
			return tier[i].Card.Name < tier[j].Card.Name
		})
	}

	set.HasDuplicates = len(set.Exact) > 0 || len(set.Strong) > 0
	set.CanCreateSafely = len(set.Exact) == 0 && len(set.Strong) == 0 && len(set.Possible) == 0

	m.logger.WithFields(logger.Fields{
		"candidates": len(cards),
		"exact":      len(set.Exact),
		"strong":     len(set.Strong),
		"possible":   len(set.Possible),
	}).Debug("card matching complete")

	return set
}

// IsSafeToAutoCreate decides whether an unmatched statement carries enough
// trustworthy identity to create a card record without human review.
//
// The gate is stricter than matching: any candidate in the match set
// blocks creation, placeholder sentinels are rejected outright, every
// identity field plus the balance must be present, the digits must be a
// clean 4-digit run, and any existing card from the same bank vetoes
// creation globally, because a same-bank statement that failed to match is
// more likely a bad extraction than a genuinely new card.
func (m *Matcher) IsSafeToAutoCreate(set *MatchSet, stmt *models.ParsedStatement, cards []*models.CardRecord) bool {
	if set == nil || !set.CanCreateSafely {
		return false
	}

	target := NormalizeCardData(stmt.BankName, stmt.CardHolderName, stmt.LastFourDigits)

	if target.Bank == "" || m.isSentinel(stmt.BankName) {
		return false
	}
	if target.Holder == "" || m.isSentinel(stmt.CardHolderName) {
		return false
	}
	if target.LastFour == "" || m.isSentinel(stmt.LastFourDigits) {
		return false
	}
	if !stmt.TotalBalance.Valid {
		return false
	}
	// The raw field must be the digits themselves, not digits buried in a
	// longer masked string we guessed at.
	if raw := strings.TrimSpace(stmt.LastFourDigits); raw != target.LastFour {
		return false
	}

	for _, card := range cards {
		if bankSimilarity(target.Bank, NormalizeCardRecord(card).Bank) >= m.config.BankSimilarityHigh {
			m.logger.WithFields(logger.Fields{
				"bank":          stmt.BankName,
				"existing_card": card.Name,
			}).Debug("same-bank veto blocks auto-creation")
			return false
		}
	}

	return true
}

func (m *Matcher) isSentinel(raw string) bool {
	norm := NormalizeText(raw)
	for _, sentinel := range m.config.PlaceholderSentinels {
		if norm == NormalizeText(sentinel) {
			return true
		}
	}
	return false
}
