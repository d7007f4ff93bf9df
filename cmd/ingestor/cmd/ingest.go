package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-ingestion-service/cmd/ingestor/config"
	"statement-ingestion-service/internal/aiclient"
	"statement-ingestion-service/internal/cardmatcher"
	"statement-ingestion-service/internal/categorizer"
	"statement-ingestion-service/internal/extraction"
	"statement-ingestion-service/internal/reconciler"
	"statement-ingestion-service/internal/store"
	"statement-ingestion-service/internal/validator"
	"statement-ingestion-service/pkg/logger"
)

var (
	pdfPath       string
	textMode      bool
	modelName     string
	aiDelay       time.Duration
	dueWindowDays int
	noAI          bool
	noPersist     bool
	outputFormat  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a credit card statement PDF",
	Long: `Ingest extracts a statement from a PDF via the Gemini model, validates
its figures, categorizes the transactions, matches it against known cards,
and persists the outcome when the decision does not need a human.

By default the PDF bytes are sent to the model directly. With --text-mode
the text is extracted locally first and only the text is sent, which is
cheaper and works for text-based (non-scanned) statements.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&pdfPath, "pdf", "", "path to the statement PDF (required)")
	ingestCmd.Flags().BoolVar(&textMode, "text-mode", false, "extract PDF text locally and send text instead of the file")
	ingestCmd.Flags().StringVar(&modelName, "model", "", "Gemini model name")
	ingestCmd.Flags().DurationVar(&aiDelay, "ai-delay", -1, "pause after each AI classification call")
	ingestCmd.Flags().IntVar(&dueWindowDays, "due-window-days", 0, "maximum statement-to-due-date window in days")
	ingestCmd.Flags().BoolVar(&noAI, "no-ai", false, "skip AI categorization, patterns only")
	ingestCmd.Flags().BoolVar(&noPersist, "no-persist", false, "run the pipeline without writing to the database")
	ingestCmd.Flags().StringVar(&outputFormat, "output-format", "text", "output format: text or json")

	ingestCmd.MarkFlagRequired("pdf")
}

func runIngest(cobraCmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	ctx := context.Background()
	log := logger.GetGlobalLogger().WithComponent("ingest")

	db, err := store.Open(config.DatabasePath(viper.GetString("db")))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer db.Close()

	cards, err := db.Cards(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	patterns, err := db.UserPatterns(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	log.WithFields(logger.Fields{"cards": len(cards), "patterns": len(patterns)}).
		Debug("loaded card records and learned patterns")

	ai, err := aiclient.NewGeminiClient(ctx,
		config.CreateAIConfig(modelName, viper.GetString("api_key")))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	responseText, err := extractResponse(ctx, ai)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	var classifier categorizer.Classifier
	if !noAI {
		classifier = ai
	}
	orchestrator := reconciler.New(
		config.CreatePipelineConfig(aiDelay, dueWindowDays), classifier, patterns)

	result, err := orchestrator.Ingest(ctx, &reconciler.IngestRequest{
		ResponseText: responseText,
		Cards:        cards,
	})
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if !noPersist {
		if err := persistResult(ctx, db, result); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	if err := renderResult(result); err != nil {
		os.Exit(handler.HandleError(err))
	}
	return nil
}

func extractResponse(ctx context.Context, ai *aiclient.GeminiClient) (string, error) {
	if textMode {
		text, err := extraction.TextFromPDF(pdfPath)
		if err != nil {
			return "", err
		}
		return ai.ExtractStatementFromText(ctx, text)
	}

	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", err
	}
	return ai.ExtractStatement(ctx, pdfBytes)
}

func persistResult(ctx context.Context, db *store.Store, result *reconciler.IngestResult) error {
	switch result.Decision {
	case reconciler.DecisionPersistNew:
		return db.SaveCard(ctx, result.NewCard)
	case reconciler.DecisionPersistLinked:
		return db.SaveCard(ctx, result.LinkedCard)
	}
	return nil
}

func renderResult(result *reconciler.IngestResult) error {
	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	stmt := result.Statement
	fmt.Printf("Statement: %s / %s / •%s\n", stmt.BankName, stmt.CardHolderName, stmt.LastFourDigits)
	fmt.Printf("Parsed via: %s\n", result.ParseMethod)
	if result.ParseDiagnostic != "" {
		fmt.Printf("Parse note: %s\n", result.ParseDiagnostic)
	}

	if result.Validation != nil {
		fmt.Println()
		fmt.Print(validator.FormatReport(result.Validation))
	}

	if result.Categorization != nil {
		fmt.Printf("\nCategorized %d/%d transactions (%d AI calls)\n",
			result.Categorization.Categorized, len(stmt.Transactions), result.Categorization.AICalls)
		if result.Categorization.QuotaExceeded {
			fmt.Println("AI quota exhausted: remaining transactions left uncategorized, retry later")
		}
	}

	fmt.Printf("\nDecision: %s\n", result.Decision)
	fmt.Printf("Reason:   %s\n", result.DecisionReason)

	switch result.Decision {
	case reconciler.DecisionPersistLinked:
		fmt.Printf("Linked to card: %s\n", result.LinkedCard.Name)
	case reconciler.DecisionPersistNew:
		fmt.Printf("Created card: %s (%s)\n", result.NewCard.Name, result.NewCard.ID)
	case reconciler.DecisionAskHuman:
		renderSuggestions(result.Suggestions)
	}

	return nil
}

func renderSuggestions(s *cardmatcher.Suggestions) {
	if s == nil {
		return
	}
	fmt.Printf("Suggested action: %s\n", s.Recommended)
	for _, opt := range s.Options {
		marker := " "
		if opt.Preselected {
			marker = "*"
		}
		fmt.Printf("  %s %s (score %d: %v)\n",
			marker, opt.Card.Card.Name, opt.Card.Score.Total, opt.Card.Score.Reasons)
	}
	if s.AllowCreateNew {
		fmt.Println("  (creating a new card record is allowed)")
	}
}
