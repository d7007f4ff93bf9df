package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-ingestion-service/cmd/ingestor/config"
	"statement-ingestion-service/internal/categorizer"
	"statement-ingestion-service/internal/store"
	apperrors "statement-ingestion-service/pkg/errors"
)

var (
	learnPattern  string
	learnCategory string
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Teach a categorization pattern",
	Long: `Learn records a description pattern with its category so future
statements categorize that merchant without an AI call.`,
	RunE: runLearn,
}

func init() {
	rootCmd.AddCommand(learnCmd)

	learnCmd.Flags().StringVar(&learnPattern, "pattern", "", "description fragment to match (required)")
	learnCmd.Flags().StringVar(&learnCategory, "category", "", "category to assign (required)")
	learnCmd.MarkFlagRequired("pattern")
	learnCmd.MarkFlagRequired("category")
}

func runLearn(cobraCmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	ctx := context.Background()

	category := strings.ToLower(strings.TrimSpace(learnCategory))
	if !categorizer.IsKnownCategory(category) {
		err := apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "category", category, nil).
			WithSuggestion("valid categories: " + strings.Join(categorizer.Categories, ", "))
		os.Exit(handler.HandleError(err))
	}

	pattern := strings.ToLower(strings.TrimSpace(learnPattern))
	if len(pattern) < 3 {
		err := apperrors.ConfigurationError(apperrors.CodeInvalidConfig, "pattern", pattern, nil).
			WithSuggestion("use at least 3 characters so the pattern does not match everything")
		os.Exit(handler.HandleError(err))
	}

	db, err := store.Open(config.DatabasePath(viper.GetString("db")))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer db.Close()

	if err := db.LearnPattern(ctx, pattern, category); err != nil {
		os.Exit(handler.HandleError(err))
	}

	fmt.Printf("Learned: %q -> %s\n", pattern, category)
	return nil
}
