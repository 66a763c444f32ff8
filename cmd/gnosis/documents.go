package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corvus-labs/gnosis/internal/models"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List a user's documents and their ingestion status",
	RunE:  runDocuments,
}

var documentsUser string

func init() {
	documentsCmd.Flags().StringVar(&documentsUser, "user", "", "Owner user ID (required)")
	documentsCmd.MarkFlagRequired("user")
}

func runDocuments(cmd *cobra.Command, args []string) error {
	if err := initApp(); err != nil {
		return err
	}
	defer closeApp()

	docs, err := application.IngestService.ListDocuments(context.Background(), documentsUser)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	for _, doc := range docs {
		line := fmt.Sprintf("%s  %-10s  %-10s  %s", doc.ID, doc.Status, doc.Type, doc.Source)
		if doc.Status == models.StatusCompleted {
			line += fmt.Sprintf("  (%d chunks)", doc.ChunkCount)
		}
		if doc.Error != "" {
			line += "  " + doc.Error
		}
		fmt.Println(line)
	}

	return nil
}
