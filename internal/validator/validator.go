// Package validator checks the internal coherence of an extracted
// statement. Three domain rules do the heavy lifting: the balance
// accounting identity, the minimum-payment bound, and the billing-cycle
// due-date window. Each is a bounded-tolerance check rather than exact
// equality, because cents-level figures read by an extraction model carry
// rounding noise.
//
// Validation findings are data, never errors: a badly inconsistent
// statement is still worth showing to a human reviewer, flagged.
package validator

import (
	"fmt"
	"strings"

	"statement-ingestion-service/internal/models"
	"statement-ingestion-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding codes.
const (
	CodeBalanceFormulaMismatch     = "balance_formula_mismatch"
	CodeInsufficientBalanceData    = "insufficient_balance_data"
	CodeMinimumPaymentExceedsTotal = "minimum_payment_exceeds_balance"
	CodeDueDateWindowExceeded      = "due_date_window_exceeded"
	CodeDueDateBeforeStatement     = "due_date_before_statement"
	CodeUnparseableDate            = "unparseable_date"
	CodeMissingStatement           = "missing_statement"
	CodeInternalValidationFailure  = "internal_validation_failure"
)

// Finding is one validation observation.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Calculations exposes the intermediate figures the checks were based on,
// so a reviewer can see how the verdict was reached.
type Calculations struct {
	EffectivePreviousBalance decimal.NullDecimal `json:"effective_previous_balance"`
	TotalCharges             decimal.Decimal     `json:"total_charges"`
	TotalPayments            decimal.Decimal     `json:"total_payments"`
	TotalFees                decimal.Decimal     `json:"total_fees"`
	TotalInterest            decimal.Decimal     `json:"total_interest"`
	ExpectedBalance          decimal.NullDecimal `json:"expected_balance"`
}

// ValidationResult aggregates all findings for one statement.
type ValidationResult struct {
	IsValid      bool         `json:"is_valid"`
	Errors       []Finding    `json:"errors"`
	Warnings     []Finding    `json:"warnings"`
	Suggestions  []string     `json:"suggestions,omitempty"`
	Calculations Calculations `json:"calculations"`
	Confidence   int          `json:"confidence"`
}

// Config holds the tunable parameters of statement validation.
//
// PreviousBalanceMarkers is injectable because the phrase list is
// locale-specific; the defaults cover the Spanish and English variants
// seen in real statements.
type Config struct {
	PreviousBalanceMarkers   []string        `json:"previous_balance_markers"`
	PreviousBalanceScanLimit int             `json:"previous_balance_scan_limit"`
	BalanceToleranceAbsolute decimal.Decimal `json:"balance_tolerance_absolute"`
	BalanceTolerancePercent  float64         `json:"balance_tolerance_percent"`
	MaxDueDateWindowDays     int             `json:"max_due_date_window_days"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		PreviousBalanceMarkers: []string{
			"saldo anterior",
			"balance anterior",
			"saldo pendiente",
			"previous balance",
			"previous bal",
			"balance forward",
		},
		PreviousBalanceScanLimit: 5,
		BalanceToleranceAbsolute: decimal.NewFromInt(10),
		BalanceTolerancePercent:  1.0,
		MaxDueDateWindowDays:     25,
	}
}

// Validate checks if the validator configuration is valid
func (c *Config) Validate() error {
	if c.PreviousBalanceScanLimit < 0 {
		return fmt.Errorf("previous balance scan limit cannot be negative: %d", c.PreviousBalanceScanLimit)
	}
	if c.BalanceToleranceAbsolute.IsNegative() {
		return fmt.Errorf("balance tolerance cannot be negative: %s", c.BalanceToleranceAbsolute)
	}
	if c.BalanceTolerancePercent < 0 || c.BalanceTolerancePercent > 100 {
		return fmt.Errorf("balance tolerance percent must be between 0 and 100: %f", c.BalanceTolerancePercent)
	}
	if c.MaxDueDateWindowDays <= 0 {
		return fmt.Errorf("max due date window must be positive: %d", c.MaxDueDateWindowDays)
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.PreviousBalanceMarkers = append([]string(nil), c.PreviousBalanceMarkers...)
	return &clone
}

// Validator performs statement consistency validation.
type Validator struct {
	config *Config
	logger logger.Logger
}

// New creates a validator with the given configuration.
func New(config *Config) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Validator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("validator"),
	}
}

// Description keyword tables used for transaction reclassification during
// bucket totaling. Strong description evidence overrides the stated type.
var (
	paymentImplied  = []string{"pago", "payment", "abono", "refund", "reembolso", "devolucion"}
	purchaseImplied = []string{"compra", "purchase"}
	feeKeywords     = []string{"comision", "comisión", "fee", "anualidad", "annual", "membres"}
	interestKeyword = []string{"interes", "interés", "interest", "financ"}
)

// Validate computes the consistency verdict for a parsed statement.
// It is a pure function over its input, never panics outward, and always
// returns a usable result.
func (v *Validator) Validate(stmt *models.ParsedStatement) (result *ValidationResult) {
	result = &ValidationResult{
		Errors:   []Finding{},
		Warnings: []Finding{},
	}

	defer func() {
		if r := recover(); r != nil {
			v.logger.Errorf("validation panicked: %v", r)
			result.Errors = append(result.Errors, Finding{
				Code:     CodeInternalValidationFailure,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("internal validation failure: %v", r),
			})
		}
		v.finalize(result)
	}()

	if stmt == nil {
		result.Errors = append(result.Errors, Finding{
			Code:     CodeMissingStatement,
			Severity: SeverityHigh,
			Message:  "no statement to validate",
		})
		return result
	}

	result.Calculations.EffectivePreviousBalance = v.effectivePreviousBalance(stmt)
	v.totalBuckets(stmt, &result.Calculations)

	v.checkBalanceFormula(stmt, result)
	v.checkMinimumPayment(stmt, result)
	v.checkDueDateWindow(stmt, result)

	return result
}

// effectivePreviousBalance prefers the extracted previousBalance field and
// otherwise scans the first few transactions for a previous-balance marker,
// preserving the sign: a negative carryover is credit in the holder's
// favor, not an error.
func (v *Validator) effectivePreviousBalance(stmt *models.ParsedStatement) decimal.NullDecimal {
	if stmt.PreviousBalance.Valid {
		return stmt.PreviousBalance
	}

	limit := v.config.PreviousBalanceScanLimit
	for i, tx := range stmt.Transactions {
		if i >= limit {
			break
		}
		if v.isPreviousBalanceTransaction(tx) {
			return models.NullDecimalFrom(tx.Amount)
		}
	}

	return decimal.NullDecimal{}
}

func (v *Validator) isPreviousBalanceTransaction(tx *models.Transaction) bool {
	if strings.EqualFold(strings.TrimSpace(tx.RawType), "previous_balance") {
		return true
	}
	desc := strings.ToLower(tx.Description)
	for _, marker := range v.config.PreviousBalanceMarkers {
		if strings.Contains(desc, marker) {
			return true
		}
	}
	return false
}

// totalBuckets accumulates absolute transaction amounts into payment and
// charge buckets, with fees and interest as keyword-detected sub-tallies of
// charges. Previous-balance carryover rows are excluded: they restate a
// balance, they are not activity.
func (v *Validator) totalBuckets(stmt *models.ParsedStatement, calc *Calculations) {
	for _, tx := range stmt.Transactions {
		if v.isPreviousBalanceTransaction(tx) {
			continue
		}

		desc := strings.ToLower(tx.Description)
		isPayment := tx.Type == models.TransactionTypePayment
		if containsAny(desc, paymentImplied) {
			isPayment = true
		} else if containsAny(desc, purchaseImplied) {
			isPayment = false
		}

		abs := tx.Amount.Abs()
		if isPayment {
			calc.TotalPayments = calc.TotalPayments.Add(abs)
			continue
		}

		calc.TotalCharges = calc.TotalCharges.Add(abs)
		if containsAny(desc, feeKeywords) {
			calc.TotalFees = calc.TotalFees.Add(abs)
		} else if containsAny(desc, interestKeyword) {
			calc.TotalInterest = calc.TotalInterest.Add(abs)
		}
	}
}

// checkBalanceFormula verifies the accounting identity
// |previous| + charges − payments ≈ |total| within max($10, 1%).
func (v *Validator) checkBalanceFormula(stmt *models.ParsedStatement, result *ValidationResult) {
	prev := result.Calculations.EffectivePreviousBalance
	total := stmt.TotalBalance

	switch {
	case !prev.Valid && !total.Valid:
		// Nothing to check and nothing to warn about.
		return
	case !prev.Valid || !total.Valid:
		result.Warnings = append(result.Warnings, Finding{
			Code:     CodeInsufficientBalanceData,
			Severity: SeverityMedium,
			Message:  "insufficient data to verify the balance formula (previous or total balance unknown)",
		})
		return
	}

	charges := result.Calculations.TotalCharges
	payments := result.Calculations.TotalPayments

	// A fully paid, inactive card legitimately reports zeros across the
	// board; that is consistency, not absence of data.
	if prev.Decimal.IsZero() && total.Decimal.IsZero() && charges.IsZero() && payments.IsZero() {
		return
	}

	expected := prev.Decimal.Abs().Add(charges).Sub(payments)
	actual := total.Decimal.Abs()
	result.Calculations.ExpectedBalance = models.NullDecimalFrom(expected)

	tolerance := actual.Mul(decimal.NewFromFloat(v.config.BalanceTolerancePercent / 100.0))
	if tolerance.LessThan(v.config.BalanceToleranceAbsolute) {
		tolerance = v.config.BalanceToleranceAbsolute
	}

	diff := expected.Sub(actual).Abs()
	if diff.GreaterThan(tolerance) {
		result.Warnings = append(result.Warnings, Finding{
			Code:     CodeBalanceFormulaMismatch,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("balance formula mismatch: expected %s from previous balance and activity, statement says %s (difference %s exceeds tolerance %s)",
				expected.StringFixed(2), actual.StringFixed(2), diff.StringFixed(2), tolerance.StringFixed(2)),
		})
		result.Suggestions = append(result.Suggestions,
			"re-extract the statement or verify the balance figures against the PDF manually")
	}
}

// checkMinimumPayment flags a minimum payment larger than the balance it is
// a fraction of. The zero/zero case passes because |0| > |0| is false.
// Absent figures skip the check with a suggestion, not a warning: missing
// data is a gap in extraction, not evidence of inconsistency.
func (v *Validator) checkMinimumPayment(stmt *models.ParsedStatement, result *ValidationResult) {
	if !stmt.MinimumPayment.Valid || !stmt.TotalBalance.Valid {
		result.Suggestions = append(result.Suggestions,
			"minimum payment or total balance unknown, the bound check was skipped")
		return
	}

	minPay := stmt.MinimumPayment.Decimal.Abs()
	total := stmt.TotalBalance.Decimal.Abs()
	if minPay.GreaterThan(total) {
		result.Warnings = append(result.Warnings, Finding{
			Code:     CodeMinimumPaymentExceedsTotal,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("minimum payment %s exceeds total balance %s",
				minPay.StringFixed(2), total.StringFixed(2)),
		})
	}
}

// checkDueDateWindow verifies the due date follows billing-cycle
// conventions relative to the statement date.
func (v *Validator) checkDueDateWindow(stmt *models.ParsedStatement, result *ValidationResult) {
	if stmt.StatementDate == "" || stmt.DueDate == "" {
		result.Suggestions = append(result.Suggestions,
			"statement or due date missing, the date window check was skipped")
		return
	}

	statementDate, err1 := models.ParseDateFlexible(stmt.StatementDate)
	dueDate, err2 := models.ParseDateFlexible(stmt.DueDate)
	if err1 != nil || err2 != nil {
		result.Warnings = append(result.Warnings, Finding{
			Code:     CodeUnparseableDate,
			Severity: SeverityLow,
			Message:  "statement or due date could not be parsed, date window check skipped",
		})
		return
	}

	days := models.DaysBetween(statementDate, dueDate)
	switch {
	case days < 0:
		result.Warnings = append(result.Warnings, Finding{
			Code:     CodeDueDateBeforeStatement,
			Severity: SeverityHigh,
			Message: fmt.Sprintf("due date %s falls before statement date %s",
				stmt.DueDate, stmt.StatementDate),
		})
	case days > v.config.MaxDueDateWindowDays:
		result.Warnings = append(result.Warnings, Finding{
			Code:     CodeDueDateWindowExceeded,
			Severity: SeverityMedium,
			Message: fmt.Sprintf("due date is %d days after the statement date, beyond the usual %d-day billing window",
				days, v.config.MaxDueDateWindowDays),
		})
	}
}

// finalize computes the aggregate verdict and confidence score.
func (v *Validator) finalize(result *ValidationResult) {
	highWarnings := 0
	confidence := 100

	confidence -= 25 * len(result.Errors)
	for _, w := range result.Warnings {
		switch w.Severity {
		case SeverityHigh:
			highWarnings++
			confidence -= 15
		case SeverityMedium:
			confidence -= 8
		case SeverityLow:
			confidence -= 3
		}
	}

	if confidence < 0 {
		confidence = 0
	}

	result.Confidence = confidence
	result.IsValid = len(result.Errors) == 0 && highWarnings == 0
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
