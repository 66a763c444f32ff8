package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvus-labs/gnosis/internal/common"
	"github.com/corvus-labs/gnosis/internal/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a document into the knowledge base",
	Long: `Submits one document for ingestion and waits for it to reach a terminal
status. Content type is one of pdf, text, structured, url. File-based types
read --file; url crawls from --url to the configured depth.`,
	RunE: runIngest,
}

var (
	ingestUser    string
	ingestSession string
	ingestType    string
	ingestFile    string
	ingestURL     string
	ingestDepth   int
	ingestNoWait  bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestUser, "user", "", "Owner user ID (required)")
	ingestCmd.Flags().StringVar(&ingestSession, "session", "", "Session ID (defaults to a new ID)")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "Content type: pdf, text, structured, url (required)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Input file for pdf/text/structured content")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Seed URL for url content")
	ingestCmd.Flags().IntVar(&ingestDepth, "depth", 0, "Crawl depth bound for url content (default from config)")
	ingestCmd.Flags().BoolVar(&ingestNoWait, "no-wait", false, "Return the document ID without waiting for completion")
	ingestCmd.MarkFlagRequired("user")
	ingestCmd.MarkFlagRequired("type")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := initApp(); err != nil {
		return err
	}
	defer closeApp()

	req := &models.IngestRequest{
		UserID:    ingestUser,
		SessionID: ingestSession,
		Type:      models.ContentType(ingestType),
		URL:       ingestURL,
		MaxDepth:  ingestDepth,
	}
	if req.SessionID == "" {
		req.SessionID = common.NewSessionID()
	}

	if ingestFile != "" {
		payload, err := os.ReadFile(ingestFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		req.Payload = payload
		req.Source = filepath.Base(ingestFile)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	docID, err := application.IngestService.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submission rejected: %w", err)
	}

	logger.Info().
		Str("document_id", docID).
		Str("content_type", ingestType).
		Msg("Document submitted")

	if ingestNoWait {
		fmt.Println(docID)
		return nil
	}

	doc, err := waitTerminal(ctx, docID)
	if err != nil {
		return err
	}

	switch doc.Status {
	case models.StatusCompleted:
		fmt.Printf("%s completed: %d chunks indexed\n", doc.ID, doc.ChunkCount)
		for _, pageErr := range doc.PageErrors {
			fmt.Printf("  page skipped: %s\n", pageErr)
		}
		return nil
	default:
		return fmt.Errorf("%s failed: %s", doc.ID, doc.Error)
	}
}

// waitTerminal polls document status until completed or failed. Interrupts
// stop the wait, not the processing: the worker keeps the document moving
// and a later "documents" call shows the outcome.
func waitTerminal(ctx context.Context, docID string) (*models.Document, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		doc, err := application.IngestService.GetDocument(ctx, docID)
		if err != nil {
			return nil, fmt.Errorf("status poll failed: %w", err)
		}
		if doc.Status.Terminal() {
			return doc, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("interrupted while waiting; document %s is still processing", docID)
		}
	}
}
