package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corvus-labs/gnosis/internal/models"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a natural-language question",
	Long: `Answers a question from the user's knowledge base. The answer is grounded
in retrieved document chunks; pass --sources to see which chunks it drew on.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var (
	queryUser       string
	queryPersona    string
	queryUsePersona bool
	queryShowSource bool
)

func init() {
	queryCmd.Flags().StringVar(&queryUser, "user", "", "Owner user ID (required)")
	queryCmd.Flags().StringVar(&queryPersona, "persona", "", "Custom system instruction for this query")
	queryCmd.Flags().BoolVar(&queryUsePersona, "use-persona", false, "Apply the --persona instruction instead of the default")
	queryCmd.Flags().BoolVar(&queryShowSource, "sources", false, "Print source attributions after the answer")
	queryCmd.MarkFlagRequired("user")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := initApp(); err != nil {
		return err
	}
	defer closeApp()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result := application.QueryService.Run(ctx, &models.QueryRequest{
		UserID:     queryUser,
		Query:      args[0],
		Persona:    queryPersona,
		UsePersona: queryUsePersona,
	})
	if result.Error != "" {
		return fmt.Errorf("query failed: %s", result.Error)
	}

	fmt.Println(result.Answer)

	if queryShowSource && len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, source := range result.Sources {
			label := source.Metadata.Source
			if label == "" {
				label = source.Metadata.URL
			}
			fmt.Printf("%d. %s\n   %s\n", i+1, label, source.Text)
		}
	}

	return nil
}
