package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge-go/internal/extract"
	"github.com/draftforge/draftforge-go/internal/indexer"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/logging"
	"github.com/draftforge/draftforge-go/internal/provider"
)

// NewAddCmd constructs the `draftforge add` command, which registers a local
// file as a grounding document.
func NewAddCmd() *cobra.Command {
	var name string
	var mode string

	cmd := &cobra.Command{
		Use:   "add [file]",
		Short: "Add a document to the grounding library",
		Long: `Register a local file as grounding material for future drafts.

Plain text, Markdown, and PDF files are supported. Context-mode documents
are inlined verbatim into every draft; retrieval-mode documents are chunked,
embedded with the active vendor's embedding model, and retrieved by
similarity at drafting time.

Examples:
  draftforge add notes.md
  draftforge add --mode rag whitepaper.pdf
  draftforge add --name "Voice samples" my-best-posts.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("add: read %s: %w", path, err)
			}

			displayName := name
			if displayName == "" {
				displayName = filepath.Base(path)
			}

			docMode, err := parseMode(mode)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}

			text, err := extract.Text(displayName, "", data)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}

			store, _, closeStore, err := openStore(ctx, log)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			defer closeStore()

			doc := knowledge.Document{
				ID:        uuid.NewString(),
				Name:      displayName,
				Text:      text,
				Active:    true,
				Mode:      docMode,
				CreatedAt: time.Now().UTC(),
			}
			if err := store.SaveDocument(ctx, doc); err != nil {
				return fmt.Errorf("add: save document: %w", err)
			}

			if docMode == knowledge.ModeRAG {
				p, err := provider.NewFromEnv(ctx)
				if err != nil {
					return fmt.Errorf("add: initialise model provider: %w", err)
				}
				ix, err := indexer.New(p, store, nil)
				if err != nil {
					return fmt.Errorf("add: %w", err)
				}
				if err := ix.Index(ctx, doc); err != nil {
					return fmt.Errorf("add: document saved but indexing failed: %w", err)
				}
			}

			fmt.Printf("added %s (%s, %d chars, mode: %s)\n", doc.ID, displayName, len(text), docMode)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (default: the file's basename)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "context", "Grounding mode: context (inline) or rag (retrieval)")

	return cmd
}

// parseMode validates a --mode flag value.
func parseMode(s string) (knowledge.Mode, error) {
	switch knowledge.Mode(s) {
	case "", knowledge.ModeContext:
		return knowledge.ModeContext, nil
	case knowledge.ModeRAG:
		return knowledge.ModeRAG, nil
	default:
		return "", fmt.Errorf("mode must be %q or %q", knowledge.ModeContext, knowledge.ModeRAG)
	}
}
