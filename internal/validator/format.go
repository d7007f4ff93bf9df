package validator

import (
	"fmt"
	"strings"
)

// FormatReport renders a validation result as a human-readable summary for
// CLI output and review queues.
func FormatReport(result *ValidationResult) string {
	var b strings.Builder

	b.WriteString("Statement Validation Report\n")
	b.WriteString("===========================\n")

	verdict := "VALID"
	if !result.IsValid {
		verdict = "NEEDS REVIEW"
	}
	fmt.Fprintf(&b, "Verdict:    %s\n", verdict)
	fmt.Fprintf(&b, "Confidence: %d%%\n", result.Confidence)

	calc := result.Calculations
	if calc.EffectivePreviousBalance.Valid {
		fmt.Fprintf(&b, "Previous balance: %s\n", calc.EffectivePreviousBalance.Decimal.StringFixed(2))
	}
	fmt.Fprintf(&b, "Charges: %s  Payments: %s  Fees: %s  Interest: %s\n",
		calc.TotalCharges.StringFixed(2), calc.TotalPayments.StringFixed(2),
		calc.TotalFees.StringFixed(2), calc.TotalInterest.StringFixed(2))
	if calc.ExpectedBalance.Valid {
		fmt.Fprintf(&b, "Expected balance: %s\n", calc.ExpectedBalance.Decimal.StringFixed(2))
	}

	if len(result.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, f := range result.Errors {
			fmt.Fprintf(&b, "  %s [%s] %s\n", severityIcon(f.Severity), f.Code, f.Message)
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, f := range result.Warnings {
			fmt.Fprintf(&b, "  %s [%s] %s\n", severityIcon(f.Severity), f.Code, f.Message)
		}
	}

	if len(result.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range result.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}

	return b.String()
}

func severityIcon(s Severity) string {
	switch s {
	case SeverityHigh:
		return "✗"
	case SeverityMedium:
		return "⚠"
	default:
		return "•"
	}
}
