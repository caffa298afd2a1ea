package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// pollInterval is how often 'ingest --wait' checks the document status.
var pollInterval = 500 * time.Millisecond

var ingestWait bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Upload a document and build its index",
	Long: `Upload a document and schedule it for ingestion.

Supported formats are plain text, Markdown, HTML, PDF and DOCX. Without
--wait the command prints the document ID and exits; documents left pending
are picked up again by the next 'docqa serve' or 'docqa watch'.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "wait until the document is ready or failed")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := commandContext(cmd)
	stop, err := startWorkers(ctx)
	if err != nil {
		return err
	}
	defer stop()

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := documentService.Upload(ctx, filepath.Base(path), content)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}

	cmd.Printf("Uploaded %s as %s\n", doc.FileName, doc.ID)
	if !ingestWait {
		return nil
	}

	doc, err = waitForDocument(ctx, cmd, doc.ID)
	if err != nil {
		return err
	}
	if doc.Status == domain.StatusFailed {
		return fmt.Errorf("ingestion failed: %s", doc.Error)
	}

	cmd.Printf("Document %s is ready. Start a chat with 'docqa chat start %s'.\n", doc.ID, doc.ID)
	return nil
}

// waitForDocument polls until the document reaches a terminal status.
func waitForDocument(ctx context.Context, cmd *cobra.Command, id string) (*domain.Document, error) {
	p := newProgress(cmd.OutOrStdout(), "Indexing")
	defer p.done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		doc, err := documentService.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get document: %w", err)
		}
		if doc.Status.IsTerminal() {
			return doc, nil
		}

		p.tick()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
