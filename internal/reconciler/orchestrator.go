// Package reconciler provides high-level orchestration of the statement
// ingestion pipeline.
//
// This package coordinates the entire ingestion workflow, including:
//   - JSON recovery from the extraction model's response
//   - Statement consistency validation
//   - Transaction categorization
//   - Card matching and the persistence decision
//
// The Orchestrator is the single entry point: it takes raw model output
// plus the known card records and produces a fully annotated result with a
// persistence decision. Every stage is total; the pipeline degrades to an
// ask_human decision instead of failing.
package reconciler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"statement-ingestion-service/internal/cardmatcher"
	"statement-ingestion-service/internal/categorizer"
	"statement-ingestion-service/internal/modelparse"
	"statement-ingestion-service/internal/models"
	"statement-ingestion-service/internal/validator"
	"statement-ingestion-service/pkg/logger"
)

// Decision is the persistence verdict for one ingested statement.
type Decision string

const (
	// DecisionPersistNew creates a fresh card record from the statement.
	DecisionPersistNew Decision = "persist_new"
	// DecisionPersistLinked attaches the statement to an existing card.
	DecisionPersistLinked Decision = "persist_linked"
	// DecisionAskHuman queues the statement for manual review.
	DecisionAskHuman Decision = "ask_human"
	// DecisionRejected means nothing usable was extracted.
	DecisionRejected Decision = "rejected"
)

// IsValid checks if the decision is a known value
func (d Decision) IsValid() bool {
	switch d {
	case DecisionPersistNew, DecisionPersistLinked, DecisionAskHuman, DecisionRejected:
		return true
	}
	return false
}

// Config aggregates the per-stage configurations.
type Config struct {
	Validator   *validator.Config   `json:"validator"`
	Categorizer *categorizer.Config `json:"categorizer"`
	Matcher     *cardmatcher.Config `json:"matcher"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Validator:   validator.DefaultConfig(),
		Categorizer: categorizer.DefaultConfig(),
		Matcher:     cardmatcher.DefaultConfig(),
	}
}

// Validate checks if the pipeline configuration is valid
func (c *Config) Validate() error {
	if c.Validator != nil {
		if err := c.Validator.Validate(); err != nil {
			return fmt.Errorf("validator config: %w", err)
		}
	}
	if c.Categorizer != nil {
		if err := c.Categorizer.Validate(); err != nil {
			return fmt.Errorf("categorizer config: %w", err)
		}
	}
	if c.Matcher != nil {
		if err := c.Matcher.Validate(); err != nil {
			return fmt.Errorf("matcher config: %w", err)
		}
	}
	return nil
}

// IngestRequest carries one statement through the pipeline.
type IngestRequest struct {
	// ResponseText is the raw extraction model output.
	ResponseText string
	// Cards are the known card records to match against.
	Cards []*models.CardRecord
}

// IngestResult is the fully annotated pipeline outcome.
type IngestResult struct {
	Statement       *models.ParsedStatement     `json:"statement"`
	ParseMethod     modelparse.ParseMethod      `json:"parse_method"`
	ParseDiagnostic string                      `json:"parse_diagnostic,omitempty"`
	Validation      *validator.ValidationResult `json:"validation,omitempty"`
	Categorization  *categorizer.BatchResult    `json:"categorization,omitempty"`
	Matches         *cardmatcher.MatchSet       `json:"matches,omitempty"`
	Suggestions     *cardmatcher.Suggestions    `json:"suggestions,omitempty"`
	SafeToCreate    bool                        `json:"safe_to_create"`
	Decision        Decision                    `json:"decision"`
	DecisionReason  string                      `json:"decision_reason"`

	// LinkedCard is the matched record on persist_linked, updated from the
	// statement when the statement is fresher. NewCard is the record built
	// from the statement on persist_new. At most one is set.
	LinkedCard *models.CardRecord `json:"linked_card,omitempty"`
	NewCard    *models.CardRecord `json:"new_card,omitempty"`
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	validator   *validator.Validator
	categorizer *categorizer.Engine
	matcher     *cardmatcher.Matcher
	logger      logger.Logger
}

// New creates an orchestrator. classifier may be nil to run without the AI
// categorization fallback; userPatterns seeds the categorizer's learned
// pattern table.
func New(config *Config, classifier categorizer.Classifier, userPatterns map[string]string) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}

	return &Orchestrator{
		validator:   validator.New(config.Validator),
		categorizer: categorizer.New(config.Categorizer, classifier, userPatterns),
		matcher:     cardmatcher.New(config.Matcher),
		logger:      logger.GetGlobalLogger().WithComponent("orchestrator"),
	}
}

// Categorizer exposes the engine so callers can teach patterns after manual
// corrections.
func (o *Orchestrator) Categorizer() *categorizer.Engine {
	return o.categorizer
}

// Ingest runs the full pipeline over one model response. The returned error
// is always nil for statement-level problems; those surface in the result's
// decision and findings. Only context cancellation aborts the pipeline.
func (o *Orchestrator) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	stmt, parseResult := modelparse.ParseStatement(req.ResponseText)
	result := &IngestResult{
		Statement:       stmt,
		ParseMethod:     parseResult.Method,
		ParseDiagnostic: parseResult.Error,
	}

	log := o.logger.WithFields(logger.Fields{
		"bank":         stmt.BankName,
		"last_four":    stmt.LastFourDigits,
		"transactions": len(stmt.Transactions),
		"parse_method": parseResult.Method,
	})
	log.Info("statement parsed")

	if parseResult.Method == modelparse.MethodFallbackEmpty {
		result.Decision = DecisionRejected
		result.DecisionReason = "no statement data could be recovered from the model response"
		log.Warn("statement rejected, nothing recovered")
		return result, nil
	}

	result.Validation = o.validator.Validate(stmt)
	log.WithFields(logger.Fields{
		"valid":      result.Validation.IsValid,
		"confidence": result.Validation.Confidence,
	}).Info("statement validated")

	result.Categorization = o.categorizer.CategorizeAll(ctx, stmt.Transactions)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Categorization.QuotaExceeded {
		log.Warn("categorization stopped early on quota exhaustion")
	}

	result.Matches = o.matcher.FindMatches(stmt, req.Cards)
	result.SafeToCreate = o.matcher.IsSafeToAutoCreate(result.Matches, stmt, req.Cards)
	result.Suggestions = o.matcher.GenerateCardSuggestions(result.Matches, result.SafeToCreate)

	o.decide(result)
	log.WithFields(logger.Fields{
		"decision": result.Decision,
		"reason":   result.DecisionReason,
	}).Info("ingestion decision made")

	return result, nil
}

// decide maps matching and validation outcomes to a persistence decision.
// Only two paths bypass the human: an exact match on a consistent
// statement, and a safely creatable statement that matched nothing at all.
func (o *Orchestrator) decide(result *IngestResult) {
	best, tier := result.Matches.Best()

	switch {
	case tier == cardmatcher.TierExact && result.Validation.IsValid:
		result.Decision = DecisionPersistLinked
		result.DecisionReason = fmt.Sprintf("exact match with card %q on a consistent statement", best.Card.Name)
		result.LinkedCard = best.Card
		o.applyStatement(best.Card, result.Statement)

	case tier == cardmatcher.TierExact:
		result.Decision = DecisionAskHuman
		result.DecisionReason = fmt.Sprintf("exact match with card %q but the statement failed validation", best.Card.Name)

	case tier == cardmatcher.TierNone && result.SafeToCreate:
		result.Decision = DecisionPersistNew
		result.DecisionReason = "no candidate cards and the statement identity is trustworthy"
		result.NewCard = o.buildCard(result.Statement)

	default:
		result.Decision = DecisionAskHuman
		if tier == cardmatcher.TierNone {
			result.DecisionReason = "no candidate cards and the statement identity is not trustworthy enough to auto-create"
		} else {
			result.DecisionReason = fmt.Sprintf("best match is only %s tier, a human must confirm", tier)
		}
	}
}

// applyStatement refreshes a linked card's balance figures when the
// statement is at least as recent as the card's last known statement.
func (o *Orchestrator) applyStatement(card *models.CardRecord, stmt *models.ParsedStatement) {
	if !card.ShouldUpdateFromStatement(stmt.StatementDate) {
		o.logger.WithFields(logger.Fields{
			"card":           card.Name,
			"statement_date": stmt.StatementDate,
			"last_known":     card.LastStatementDate,
		}).Info("stale statement, keeping existing card figures")
		return
	}

	if stmt.TotalBalance.Valid {
		card.CurrentBalance = stmt.TotalBalance
	}
	if stmt.CreditLimit.Valid {
		card.Limit = stmt.CreditLimit
	}
	if stmt.DueDate != "" {
		card.DueDate = stmt.DueDate
	}
	if stmt.StatementDate != "" {
		card.LastStatementDate = stmt.StatementDate
	}
}

// buildCard materializes a new card record from a trustworthy statement.
func (o *Orchestrator) buildCard(stmt *models.ParsedStatement) *models.CardRecord {
	card := &models.CardRecord{
		ID:                uuid.NewString(),
		Name:              fmt.Sprintf("%s %s", stmt.BankName, stmt.LastFourDigits),
		Bank:              stmt.BankName,
		CardNumber:        stmt.LastFourDigits,
		HolderName:        stmt.CardHolderName,
		Limit:             stmt.CreditLimit,
		CurrentBalance:    stmt.TotalBalance,
		DueDate:           stmt.DueDate,
		LastStatementDate: stmt.StatementDate,
	}
	return card
}
