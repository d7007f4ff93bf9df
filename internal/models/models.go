// Package models defines the core data types shared across the statement
// ingestion engine: extracted statements, transactions, card records, and
// the closed enums that drive categorization and matching.
//
// Monetary fields that can legitimately be unknown use decimal.NullDecimal:
// an absent figure is Valid=false, while an extracted zero is a real zero.
// The two states are never coerced into each other.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the direction of a statement transaction.
type TransactionType string

const (
	// TransactionTypeCharge represents a purchase or other debit against the card.
	TransactionTypeCharge TransactionType = "charge"
	// TransactionTypePayment represents a payment or refund credited to the card.
	TransactionTypePayment TransactionType = "payment"
	// TransactionTypeAdjustment represents a correction issued by the bank.
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeCharge, TransactionTypePayment, TransactionTypeAdjustment:
		return true
	default:
		return false
	}
}

// TransactionGroup is the statement section a transaction belongs to.
// It is inferred from the description when the model output omits it.
type TransactionGroup string

const (
	GroupPayments      TransactionGroup = "payments"
	GroupFees          TransactionGroup = "fees"
	GroupInterest      TransactionGroup = "interest"
	GroupSupplementary TransactionGroup = "supplementary_card"
	GroupPurchases     TransactionGroup = "purchases"
	GroupGeneral       TransactionGroup = "general"
)

// String returns the string representation of TransactionGroup
func (g TransactionGroup) String() string {
	return string(g)
}

// IsValid checks if the transaction group is valid
func (g TransactionGroup) IsValid() bool {
	switch g {
	case GroupPayments, GroupFees, GroupInterest, GroupSupplementary, GroupPurchases, GroupGeneral:
		return true
	default:
		return false
	}
}

// CategoryConfidence expresses how trustworthy an assigned category is.
type CategoryConfidence string

const (
	// ConfidenceUser marks a category taken from a pattern the user taught.
	ConfidenceUser CategoryConfidence = "user"
	// ConfidenceHigh marks a category from the static merchant/keyword tables.
	ConfidenceHigh CategoryConfidence = "high"
	// ConfidenceMedium marks a category assigned by the AI fallback.
	ConfidenceMedium CategoryConfidence = "medium"
	// ConfidenceLow marks the degraded fallback after a classification failure.
	ConfidenceLow CategoryConfidence = "low"
)

// IsValid checks if the category confidence is valid
func (c CategoryConfidence) IsValid() bool {
	switch c {
	case ConfidenceUser, ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// CategoryMethod records which stage of the categorization chain produced
// the category.
type CategoryMethod string

const (
	MethodUserPattern CategoryMethod = "user_pattern"
	MethodPattern     CategoryMethod = "pattern"
	MethodAI          CategoryMethod = "ai"
	MethodFallback    CategoryMethod = "fallback"
)

// IsValid checks if the category method is valid
func (m CategoryMethod) IsValid() bool {
	switch m {
	case MethodUserPattern, MethodPattern, MethodAI, MethodFallback:
		return true
	default:
		return false
	}
}

// Transaction is a single statement line item extracted from model output.
//
// Amount carries a magnitude; the direction is expressed by Type, not by
// sign alone (some banks emit negative payments, some positive).
// RawType preserves the type string exactly as the model emitted it, for
// heuristics that look for markers such as "previous_balance".
type Transaction struct {
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Type        TransactionType  `json:"type"`
	RawType     string           `json:"raw_type,omitempty"`
	Group       TransactionGroup `json:"group"`

	// Assigned post-hoc by the category engine.
	Category           string             `json:"category,omitempty"`
	CategoryConfidence CategoryConfidence `json:"category_confidence,omitempty"`
	CategoryMethod     CategoryMethod     `json:"category_method,omitempty"`
}

// IsCategorized reports whether the category engine has processed the transaction.
func (t *Transaction) IsCategorized() bool {
	return t.Category != "" && t.CategoryMethod != ""
}

// AbsoluteAmount returns the magnitude of the transaction amount.
func (t *Transaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{Date: %s, Description: %q, Amount: %s, Type: %s, Group: %s}",
		t.Date, t.Description, t.Amount.String(), t.Type, t.Group)
}

// ParsedStatement is the structured extraction of one credit-card statement.
//
// Every numeric field is nullable: the extraction model frequently cannot
// read a figure, and "unknown" must stay distinguishable from zero because
// the validator treats them differently. Transactions is always non-nil
// after parsing, possibly empty.
type ParsedStatement struct {
	TotalBalance    decimal.NullDecimal `json:"total_balance"`
	PreviousBalance decimal.NullDecimal `json:"previous_balance"`
	CreditLimit     decimal.NullDecimal `json:"credit_limit"`
	MinimumPayment  decimal.NullDecimal `json:"minimum_payment"`
	AvailableCredit decimal.NullDecimal `json:"available_credit"`
	Payments        decimal.NullDecimal `json:"payments"`
	Charges         decimal.NullDecimal `json:"charges"`
	Fees            decimal.NullDecimal `json:"fees"`
	Interest        decimal.NullDecimal `json:"interest"`

	BankName       string `json:"bank_name,omitempty"`
	CardHolderName string `json:"card_holder_name,omitempty"`
	LastFourDigits string `json:"last_four_digits,omitempty"`
	StatementDate  string `json:"statement_date,omitempty"`
	DueDate        string `json:"due_date,omitempty"`

	Transactions []*Transaction `json:"transactions"`
}

// NewParsedStatement returns an empty statement with a non-nil transaction list.
func NewParsedStatement() *ParsedStatement {
	return &ParsedStatement{Transactions: []*Transaction{}}
}

// CardRecord is a persisted card entity. IDs are owned by the persistence
// layer; the engine never invents one except on the auto-create path.
type CardRecord struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Bank              string              `json:"bank"`
	CardNumber        string              `json:"card_number"`
	HolderName        string              `json:"holder_name"`
	Limit             decimal.NullDecimal `json:"limit"`
	CurrentBalance    decimal.NullDecimal `json:"current_balance"`
	DueDate           string              `json:"due_date,omitempty"`
	LastStatementDate string              `json:"last_statement_date,omitempty"`
}

// String returns a string representation of the CardRecord
func (c *CardRecord) String() string {
	return fmt.Sprintf("CardRecord{ID: %s, Name: %q, Bank: %q, Holder: %q}",
		c.ID, c.Name, c.Bank, c.HolderName)
}

// ShouldUpdateFromStatement reports whether a statement dated statementDate
// carries fresher data than the card's last recorded statement. Equal dates
// allow an update (a re-ingest with richer data); older statements never do.
func (c *CardRecord) ShouldUpdateFromStatement(statementDate string) bool {
	if statementDate == "" {
		return false
	}
	if c.LastStatementDate == "" {
		return true
	}

	newDate, err := ParseDateFlexible(statementDate)
	if err != nil {
		return false
	}
	lastDate, err := ParseDateFlexible(c.LastStatementDate)
	if err != nil {
		return true
	}

	return !newDate.Before(lastDate)
}

// NullDecimalFrom wraps a concrete decimal in a valid NullDecimal.
func NullDecimalFrom(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// NullDecimalFromFloat wraps a float in a valid NullDecimal.
func NullDecimalFromFloat(f float64) decimal.NullDecimal {
	return NullDecimalFrom(decimal.NewFromFloat(f))
}

// ParseDecimalFlexible parses a monetary amount from model output, tolerating
// currency symbols, thousand separators and surrounding whitespace.
func ParseDecimalFlexible(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "MXN", "")
	s = strings.ReplaceAll(s, "USD", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// Accounting negatives: (123.45)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + strings.Trim(s, "()")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format %q: %w", s, err)
	}

	return d, nil
}

// dateFormats are the date layouts observed in extracted statements,
// tried in order.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// ParseDateFlexible attempts to parse a statement date using the formats
// banks and extraction models commonly emit.
func ParseDateFlexible(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date %q: %w", s, lastErr)
}

// DaysBetween returns the whole-day difference between from and to.
// Positive means to is after from.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	f := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
