package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"statement-ingestion-service/cmd/ingestor/config"
	"statement-ingestion-service/internal/store"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "List known card records",
	RunE:  runCards,
}

func init() {
	rootCmd.AddCommand(cardsCmd)
}

func runCards(cobraCmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()
	ctx := context.Background()

	db, err := store.Open(config.DatabasePath(viper.GetString("db")))
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer db.Close()

	cards, err := db.Cards(ctx)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if len(cards) == 0 {
		fmt.Println("No card records yet. Ingest a statement to create one.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBANK\tHOLDER\tDIGITS\tBALANCE\tDUE DATE\tLAST STATEMENT")
	for _, card := range cards {
		balance := "-"
		if card.CurrentBalance.Valid {
			balance = card.CurrentBalance.Decimal.StringFixed(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			card.Name, card.Bank, card.HolderName, card.CardNumber,
			balance, card.DueDate, card.LastStatementDate)
	}
	return w.Flush()
}
