package validator

import (
	"strings"
	"testing"

	"statement-ingestion-service/internal/models"

	"github.com/shopspring/decimal"
)

func tx(description string, amount float64, txType models.TransactionType) *models.Transaction {
	return &models.Transaction{
		Date:        "2025-01-10",
		Description: description,
		Amount:      decimal.NewFromFloat(amount),
		Type:        txType,
	}
}

func consistentStatement() *models.ParsedStatement {
	stmt := models.NewParsedStatement()
	stmt.PreviousBalance = models.NullDecimalFromFloat(1000)
	stmt.TotalBalance = models.NullDecimalFromFloat(1300)
	stmt.MinimumPayment = models.NullDecimalFromFloat(130)
	stmt.StatementDate = "2025-01-15"
	stmt.DueDate = "2025-02-04"
	stmt.Transactions = []*models.Transaction{
		tx("SUPERMERCADO SORIANA", 500, models.TransactionTypeCharge),
		tx("PAGO RECIBIDO GRACIAS", 200, models.TransactionTypePayment),
	}
	return stmt
}

func findingCodes(findings []Finding) []string {
	codes := make([]string, 0, len(findings))
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	return codes
}

func hasCode(findings []Finding, code string) bool {
	for _, f := range findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

func TestValidateConsistentStatement(t *testing.T) {
	v := New(nil)
	result := v.Validate(consistentStatement())

	if !result.IsValid {
		t.Errorf("expected valid statement, got errors=%v warnings=%v",
			findingCodes(result.Errors), findingCodes(result.Warnings))
	}
	if result.Confidence != 100 {
		t.Errorf("expected confidence 100, got %d", result.Confidence)
	}
	if !result.Calculations.TotalCharges.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected total charges 500, got %s", result.Calculations.TotalCharges)
	}
	if !result.Calculations.TotalPayments.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected total payments 200, got %s", result.Calculations.TotalPayments)
	}
}

func TestValidateAllZeroStatement(t *testing.T) {
	stmt := models.NewParsedStatement()
	stmt.PreviousBalance = models.NullDecimalFromFloat(0)
	stmt.TotalBalance = models.NullDecimalFromFloat(0)
	stmt.MinimumPayment = models.NullDecimalFromFloat(0)
	stmt.StatementDate = "2025-01-15"
	stmt.DueDate = "2025-02-04"

	result := New(nil).Validate(stmt)

	if !result.IsValid {
		t.Errorf("inactive paid-off card should validate, got warnings=%v", findingCodes(result.Warnings))
	}
	if hasCode(result.Warnings, CodeBalanceFormulaMismatch) {
		t.Error("all-zero statement must not trigger a balance mismatch")
	}
}

func TestBareZeroStatementHasNoWarnings(t *testing.T) {
	stmt := models.NewParsedStatement()
	stmt.PreviousBalance = models.NullDecimalFromFloat(0)
	stmt.TotalBalance = models.NullDecimalFromFloat(0)

	result := New(nil).Validate(stmt)

	if !result.IsValid || len(result.Warnings) != 0 {
		t.Errorf("zero balances with no activity must validate cleanly, got warnings=%v",
			findingCodes(result.Warnings))
	}
	if result.Confidence != 100 {
		t.Errorf("expected confidence 100, got %d", result.Confidence)
	}
	// The skipped checks surface as suggestions only.
	if len(result.Suggestions) == 0 {
		t.Error("skipped checks should leave a trace in the suggestions")
	}
}

func TestBalanceFormulaMismatch(t *testing.T) {
	stmt := consistentStatement()
	stmt.TotalBalance = models.NullDecimalFromFloat(2500)

	result := New(nil).Validate(stmt)

	if result.IsValid {
		t.Error("expected invalid result for a large balance discrepancy")
	}
	if !hasCode(result.Warnings, CodeBalanceFormulaMismatch) {
		t.Errorf("expected %s, got %v", CodeBalanceFormulaMismatch, findingCodes(result.Warnings))
	}
	if len(result.Suggestions) == 0 {
		t.Error("balance mismatch should carry a remediation suggestion")
	}
}

func TestBalanceFormulaWithinTolerance(t *testing.T) {
	stmt := consistentStatement()
	// Expected 1300, stated 1308: within max($10, 1% of 1308).
	stmt.TotalBalance = models.NullDecimalFromFloat(1308)

	result := New(nil).Validate(stmt)

	if hasCode(result.Warnings, CodeBalanceFormulaMismatch) {
		t.Error("discrepancy inside tolerance must not be flagged")
	}
}

func TestNullBalanceIsNotZero(t *testing.T) {
	stmt := consistentStatement()
	stmt.PreviousBalance = decimal.NullDecimal{}
	stmt.TotalBalance = decimal.NullDecimal{}
	stmt.MinimumPayment = decimal.NullDecimal{}

	result := New(nil).Validate(stmt)

	if hasCode(result.Warnings, CodeBalanceFormulaMismatch) {
		t.Error("unknown balances must skip the formula check, not fail it")
	}
	if hasCode(result.Warnings, CodeInsufficientBalanceData) {
		t.Error("both balances unknown should stay silent, not warn")
	}
}

func TestPartialBalanceDataWarns(t *testing.T) {
	stmt := consistentStatement()
	stmt.PreviousBalance = decimal.NullDecimal{}

	result := New(nil).Validate(stmt)

	if !hasCode(result.Warnings, CodeInsufficientBalanceData) {
		t.Errorf("expected %s, got %v", CodeInsufficientBalanceData, findingCodes(result.Warnings))
	}
}

func TestEffectivePreviousBalanceFromTransactions(t *testing.T) {
	stmt := consistentStatement()
	stmt.PreviousBalance = decimal.NullDecimal{}
	stmt.Transactions = append([]*models.Transaction{
		tx("SALDO ANTERIOR", 1000, models.TransactionTypeCharge),
	}, stmt.Transactions...)

	result := New(nil).Validate(stmt)

	prev := result.Calculations.EffectivePreviousBalance
	if !prev.Valid || !prev.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected previous balance 1000 recovered from transactions, got %+v", prev)
	}
	// The carryover row restates a balance and must stay out of the charge bucket.
	if !result.Calculations.TotalCharges.Equal(decimal.NewFromInt(500)) {
		t.Errorf("carryover row leaked into charges: %s", result.Calculations.TotalCharges)
	}
	if !result.IsValid {
		t.Errorf("statement should validate with recovered previous balance, warnings=%v",
			findingCodes(result.Warnings))
	}
}

func TestPreviousBalanceScanLimit(t *testing.T) {
	stmt := consistentStatement()
	stmt.PreviousBalance = decimal.NullDecimal{}
	padding := []*models.Transaction{
		tx("CARGO 1", 10, models.TransactionTypeCharge),
		tx("CARGO 2", 10, models.TransactionTypeCharge),
		tx("CARGO 3", 10, models.TransactionTypeCharge),
		tx("CARGO 4", 10, models.TransactionTypeCharge),
		tx("CARGO 5", 10, models.TransactionTypeCharge),
	}
	stmt.Transactions = append(padding, tx("SALDO ANTERIOR", 1000, models.TransactionTypeCharge))

	result := New(nil).Validate(stmt)

	if result.Calculations.EffectivePreviousBalance.Valid {
		t.Error("marker beyond the scan limit must not be picked up")
	}
}

func TestNegativePreviousBalancePreserved(t *testing.T) {
	stmt := models.NewParsedStatement()
	stmt.TotalBalance = models.NullDecimalFromFloat(300)
	stmt.Transactions = []*models.Transaction{
		tx("SALDO ANTERIOR A FAVOR", -200, models.TransactionTypePayment),
		tx("COMPRA AMAZON", 100, models.TransactionTypeCharge),
	}

	result := New(nil).Validate(stmt)

	prev := result.Calculations.EffectivePreviousBalance
	if !prev.Valid || !prev.Decimal.Equal(decimal.NewFromInt(-200)) {
		t.Errorf("expected previous balance -200 with sign preserved, got %+v", prev)
	}
	// |−200| + 100 − 0 = 300: the formula uses the absolute carryover.
	if hasCode(result.Warnings, CodeBalanceFormulaMismatch) {
		t.Errorf("credit carryover should reconcile, got %v", findingCodes(result.Warnings))
	}
}

func TestMinimumPaymentExceedsBalance(t *testing.T) {
	stmt := consistentStatement()
	stmt.MinimumPayment = models.NullDecimalFromFloat(5000)

	result := New(nil).Validate(stmt)

	if result.IsValid {
		t.Error("minimum payment above total balance must fail validation")
	}
	if !hasCode(result.Warnings, CodeMinimumPaymentExceedsTotal) {
		t.Errorf("expected %s, got %v", CodeMinimumPaymentExceedsTotal, findingCodes(result.Warnings))
	}
}

func TestDueDateWindow(t *testing.T) {
	tests := []struct {
		name          string
		statementDate string
		dueDate       string
		wantCode      string
		wantValid     bool
	}{
		{"normal window", "2025-01-15", "2025-02-04", "", true},
		{"window exceeded", "2025-01-15", "2025-03-01", CodeDueDateWindowExceeded, true},
		{"due before statement", "2025-01-15", "2025-01-10", CodeDueDateBeforeStatement, false},
		{"unparseable due date", "2025-01-15", "not a date", CodeUnparseableDate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := consistentStatement()
			stmt.StatementDate = tt.statementDate
			stmt.DueDate = tt.dueDate

			result := New(nil).Validate(stmt)

			if tt.wantCode != "" && !hasCode(result.Warnings, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, findingCodes(result.Warnings))
			}
			if result.IsValid != tt.wantValid {
				t.Errorf("IsValid = %v, want %v (warnings=%v)",
					result.IsValid, tt.wantValid, findingCodes(result.Warnings))
			}
		})
	}
}

func TestMissingDatesAreNotWarnings(t *testing.T) {
	stmt := consistentStatement()
	stmt.StatementDate = ""
	stmt.DueDate = ""

	result := New(nil).Validate(stmt)

	if len(result.Warnings) != 0 {
		t.Errorf("missing dates skip the window check without warning, got %v",
			findingCodes(result.Warnings))
	}
	if len(result.Suggestions) == 0 {
		t.Error("the skipped date check should leave a suggestion")
	}
}

func TestReclassificationByDescription(t *testing.T) {
	stmt := models.NewParsedStatement()
	stmt.PreviousBalance = models.NullDecimalFromFloat(0)
	stmt.TotalBalance = models.NullDecimalFromFloat(100)
	stmt.Transactions = []*models.Transaction{
		// Stated as a charge, description says payment: counts as payment.
		tx("PAGO EN SUCURSAL", 300, models.TransactionTypeCharge),
		tx("COMPRA LIVERPOOL", 400, models.TransactionTypeCharge),
	}

	result := New(nil).Validate(stmt)

	if !result.Calculations.TotalPayments.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected payments 300 after reclassification, got %s", result.Calculations.TotalPayments)
	}
	if !result.Calculations.TotalCharges.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected charges 400, got %s", result.Calculations.TotalCharges)
	}
}

func TestFeeAndInterestSubTallies(t *testing.T) {
	stmt := consistentStatement()
	stmt.TotalBalance = models.NullDecimalFromFloat(1550)
	stmt.Transactions = append(stmt.Transactions,
		tx("COMISION ANUALIDAD", 150, models.TransactionTypeCharge),
		tx("INTERESES DEL PERIODO", 100, models.TransactionTypeCharge),
	)

	result := New(nil).Validate(stmt)

	if !result.Calculations.TotalFees.Equal(decimal.NewFromInt(150)) {
		t.Errorf("expected fees 150, got %s", result.Calculations.TotalFees)
	}
	if !result.Calculations.TotalInterest.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected interest 100, got %s", result.Calculations.TotalInterest)
	}
}

func TestNilStatement(t *testing.T) {
	result := New(nil).Validate(nil)

	if result.IsValid {
		t.Error("nil statement must not validate")
	}
	if !hasCode(result.Errors, CodeMissingStatement) {
		t.Errorf("expected %s, got %v", CodeMissingStatement, findingCodes(result.Errors))
	}
}

func TestConfidenceFloor(t *testing.T) {
	stmt := models.NewParsedStatement()
	stmt.PreviousBalance = models.NullDecimalFromFloat(100)
	stmt.TotalBalance = models.NullDecimalFromFloat(9000)
	stmt.MinimumPayment = models.NullDecimalFromFloat(20000)
	stmt.StatementDate = "2025-01-15"
	stmt.DueDate = "2024-12-01"

	result := New(nil).Validate(stmt)

	if result.Confidence < 0 {
		t.Errorf("confidence must never go negative, got %d", result.Confidence)
	}
	if result.IsValid {
		t.Error("statement with multiple high findings must not validate")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"negative scan limit", func(c *Config) { c.PreviousBalanceScanLimit = -1 }, true},
		{"negative tolerance", func(c *Config) { c.BalanceToleranceAbsolute = decimal.NewFromInt(-5) }, true},
		{"percent out of range", func(c *Config) { c.BalanceTolerancePercent = 150 }, true},
		{"zero window", func(c *Config) { c.MaxDueDateWindowDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFormatReport(t *testing.T) {
	stmt := consistentStatement()
	stmt.TotalBalance = models.NullDecimalFromFloat(2500)

	report := FormatReport(New(nil).Validate(stmt))

	for _, want := range []string{"NEEDS REVIEW", CodeBalanceFormulaMismatch, "Confidence"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
