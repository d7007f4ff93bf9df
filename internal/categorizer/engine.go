// Package categorizer assigns spending categories to statement
// transactions through a fixed priority chain: user-taught patterns win
// over the static merchant and keyword tables, which win over the AI
// classifier. The AI is the expensive last resort and the only step that
// can abort a batch, and then only on provider quota exhaustion.
package categorizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"statement-ingestion-service/internal/models"
	apperrors "statement-ingestion-service/pkg/errors"
	"statement-ingestion-service/pkg/logger"
)

// Classifier is the AI fallback. Implementations classify a single
// transaction into one of the given categories.
type Classifier interface {
	ClassifyTransaction(ctx context.Context, tx *models.Transaction, categories []string) (string, error)
}

// Classification is the outcome for one transaction.
type Classification struct {
	Category   string                    `json:"category"`
	Confidence models.CategoryConfidence `json:"confidence"`
	Method     models.CategoryMethod     `json:"method"`
}

// BatchResult summarizes a batch categorization run. Items is positionally
// aligned with the input; a nil entry means the transaction was never
// reached because the batch aborted.
type BatchResult struct {
	Items         []*Classification `json:"items"`
	Categorized   int               `json:"categorized"`
	AICalls       int               `json:"ai_calls"`
	QuotaExceeded bool              `json:"quota_exceeded"`
}

// Config holds the tunable parameters of the categorization engine.
type Config struct {
	// AIDelay is the pause inserted after each AI classification call to
	// stay under provider rate limits. Pattern hits pay no delay.
	AIDelay time.Duration `json:"ai_delay"`
	// MinPatternKeyLength rejects overly short learned pattern keys that
	// would match almost everything.
	MinPatternKeyLength int `json:"min_pattern_key_length"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AIDelay:             2 * time.Second,
		MinPatternKeyLength: 3,
	}
}

// Validate checks if the engine configuration is valid
func (c *Config) Validate() error {
	if c.AIDelay < 0 {
		return fmt.Errorf("AI delay cannot be negative: %s", c.AIDelay)
	}
	if c.MinPatternKeyLength < 1 {
		return fmt.Errorf("minimum pattern key length must be positive: %d", c.MinPatternKeyLength)
	}
	return nil
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Engine categorizes transactions.
type Engine struct {
	config      *Config
	classifier  Classifier
	patterns    map[string]string
	patternKeys []string
	logger      logger.Logger
}

// New creates a categorization engine. classifier may be nil, in which case
// unmatched transactions fall through to the "other" fallback without an AI
// call. userPatterns maps normalized description fragments to categories.
func New(config *Config, classifier Classifier, userPatterns map[string]string) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	e := &Engine{
		config:     config,
		classifier: classifier,
		patterns:   make(map[string]string, len(userPatterns)),
		logger:     logger.GetGlobalLogger().WithComponent("categorizer"),
	}
	for key, category := range userPatterns {
		e.patterns[normalizeKey(key)] = category
	}
	e.rebuildPatternKeys()

	return e
}

// rebuildPatternKeys keeps a deterministic lookup order: longest key first,
// then lexicographic. Map iteration order would make ties random.
func (e *Engine) rebuildPatternKeys() {
	keys := make([]string, 0, len(e.patterns))
	for k := range e.patterns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	e.patternKeys = keys
}

// LearnPattern records a user correction so future statements categorize
// the same merchant without an AI call.
func (e *Engine) LearnPattern(description, category string) error {
	key := normalizeKey(description)
	if len(key) < e.config.MinPatternKeyLength {
		return apperrors.CategorizationError(apperrors.CodeClassificationFailed,
			fmt.Sprintf("pattern key %q is too short to be useful", key), nil)
	}
	if !IsKnownCategory(category) {
		return apperrors.CategorizationError(apperrors.CodeClassificationFailed,
			fmt.Sprintf("unknown category %q", category), nil)
	}

	e.patterns[key] = category
	e.rebuildPatternKeys()
	e.logger.WithFields(logger.Fields{"pattern": key, "category": category}).
		Debug("learned user pattern")
	return nil
}

// Patterns returns a copy of the learned pattern table.
func (e *Engine) Patterns() map[string]string {
	out := make(map[string]string, len(e.patterns))
	for k, v := range e.patterns {
		out[k] = v
	}
	return out
}

// Categorize classifies a single transaction through the priority chain.
//
// The returned error is non-nil only for provider quota exhaustion, which
// callers must treat as a batch-level stop signal. Every other failure
// degrades to the "other" fallback classification.
func (e *Engine) Categorize(ctx context.Context, tx *models.Transaction) (*Classification, error) {
	desc := normalizeKey(tx.Description)

	if c := e.matchUserPattern(desc); c != nil {
		return c, nil
	}
	if c := matchStatic(desc); c != nil {
		return c, nil
	}

	if e.classifier == nil {
		return fallbackClassification(), nil
	}

	category, err := e.classifier.ClassifyTransaction(ctx, tx, Categories)
	if err != nil {
		if apperrors.IsQuotaExceeded(err) {
			return nil, apperrors.AIError("classification quota exhausted", err)
		}
		e.logger.WithError(err).WithField("description", tx.Description).
			Warn("AI classification failed, falling back")
		return fallbackClassification(), nil
	}

	category = strings.ToLower(strings.TrimSpace(category))
	if !IsKnownCategory(category) {
		e.logger.WithField("category", category).Debug("AI returned unknown category")
		return fallbackClassification(), nil
	}

	return &Classification{
		Category:   category,
		Confidence: models.ConfidenceMedium,
		Method:     models.MethodAI,
	}, nil
}

// matchUserPattern checks learned patterns with two-way containment: the
// description containing the key, or the key containing the description,
// both count. Short receipts often truncate the merchant name.
func (e *Engine) matchUserPattern(desc string) *Classification {
	if desc == "" {
		return nil
	}
	for _, key := range e.patternKeys {
		if strings.Contains(desc, key) || strings.Contains(key, desc) {
			return &Classification{
				Category:   e.patterns[key],
				Confidence: models.ConfidenceUser,
				Method:     models.MethodUserPattern,
			}
		}
	}
	return nil
}

// matchStatic consults the merchant table first, then the generic keyword
// lists in fixed category order.
func matchStatic(desc string) *Classification {
	if desc == "" {
		return nil
	}

	for _, key := range merchantKeys {
		if strings.Contains(desc, key) {
			return &Classification{
				Category:   merchantTable[key],
				Confidence: models.ConfidenceHigh,
				Method:     models.MethodPattern,
			}
		}
	}

	for _, category := range Categories {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(desc, keyword) {
				return &Classification{
					Category:   category,
					Confidence: models.ConfidenceHigh,
					Method:     models.MethodPattern,
				}
			}
		}
	}

	return nil
}

// CategorizeAll classifies a batch sequentially, preserving order and
// producing exactly one slot per input transaction. Classified transactions
// have their category fields set in place.
//
// On quota exhaustion the batch stops immediately: remaining slots stay nil
// and QuotaExceeded is set, so callers can persist what was classified and
// retry the rest later.
func (e *Engine) CategorizeAll(ctx context.Context, txs []*models.Transaction) *BatchResult {
	result := &BatchResult{
		Items: make([]*Classification, len(txs)),
	}

	for i, tx := range txs {
		classification, err := e.Categorize(ctx, tx)
		if err != nil {
			e.logger.WithError(err).WithFields(logger.Fields{
				"position":  i,
				"remaining": len(txs) - i,
			}).Warn("stopping batch categorization")
			result.QuotaExceeded = true
			return result
		}

		result.Items[i] = classification
		result.Categorized++

		tx.Category = classification.Category
		tx.CategoryConfidence = classification.Confidence
		tx.CategoryMethod = classification.Method

		if classification.Method == models.MethodAI {
			result.AICalls++
			if !e.pauseAfterAICall(ctx) {
				// Context cancelled mid-delay: remaining work is abandoned
				// but everything classified so far stands.
				return result
			}
		}
	}

	return result
}

// pauseAfterAICall sleeps for the configured rate-limit delay, honoring
// context cancellation. Returns false when the context ended first.
func (e *Engine) pauseAfterAICall(ctx context.Context) bool {
	if e.config.AIDelay <= 0 {
		return true
	}
	select {
	case <-time.After(e.config.AIDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func fallbackClassification() *Classification {
	return &Classification{
		Category:   "other",
		Confidence: models.ConfidenceLow,
		Method:     models.MethodFallback,
	}
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
