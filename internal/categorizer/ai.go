package categorizer

import (
	"fmt"
	"strings"

	"statement-ingestion-service/internal/models"
)

// BuildClassificationPrompt renders the instruction sent to the AI
// classifier for one transaction. The model is told to answer with a bare
// category name; ClassifyTransaction implementations still validate the
// answer against the closed set.
func BuildClassificationPrompt(tx *models.Transaction, categories []string) string {
	var b strings.Builder

	b.WriteString("Classify this credit card transaction into exactly one category.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", tx.Description)
	fmt.Fprintf(&b, "Amount: %s\n", tx.Amount.StringFixed(2))
	if tx.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", tx.Date)
	}
	fmt.Fprintf(&b, "\nCategories: %s\n", strings.Join(categories, ", "))
	b.WriteString("\nRespond with only the category name, lowercase, no punctuation or explanation.")

	return b.String()
}
