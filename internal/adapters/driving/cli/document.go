package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Inspect uploaded documents",
	Long:    `List uploaded documents or show the ingestion status of one.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents uploaded. Use 'docqa ingest <file>' to add one.")
		return nil
	}

	cmd.Printf("Documents (%d):\n\n", len(docs))
	for i := range docs {
		doc := &docs[i]
		cmd.Printf("  %s  %-10s  %s\n", doc.ID, doc.Status, doc.FileName)
	}
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	printDocument(cmd, doc)
	return nil
}

func printDocument(cmd *cobra.Command, doc *domain.Document) {
	cmd.Printf("ID:          %s\n", doc.ID)
	cmd.Printf("File:        %s\n", doc.FileName)
	cmd.Printf("Status:      %s\n", doc.Status)
	if doc.Error != "" {
		cmd.Printf("Error:       %s\n", doc.Error)
	}
	if doc.IndexLocation != "" {
		cmd.Printf("Index:       %s\n", doc.IndexLocation)
	}
	cmd.Printf("Uploaded:    %s\n", doc.UploadedAt.Format(time.RFC3339))
	if !doc.UpdatedAt.IsZero() {
		cmd.Printf("Updated:     %s\n", doc.UpdatedAt.Format(time.RFC3339))
	}
}
