package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge-go/internal/indexer"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/logging"
	"github.com/draftforge/draftforge-go/internal/provider"
)

// NewDocsCmd constructs the `draftforge docs` command group for managing the
// grounding library: listing, updating, and removing documents.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the grounding document library",
		Long: `List, update, and remove grounding documents.

Examples:
  draftforge docs
  draftforge docs set 3f1c... --mode rag
  draftforge docs set 3f1c... --active=false
  draftforge docs rm 3f1c...`,
		RunE: runDocsList,
	}

	cmd.AddCommand(newDocsSetCmd(), newDocsRmCmd())

	return cmd
}

// runDocsList prints the document library as a table.
func runDocsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := logging.New()

	store, _, closeStore, err := openStore(ctx, log)
	if err != nil {
		return fmt.Errorf("docs: %w", err)
	}
	defer closeStore()

	docs, err := store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("docs: list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("no documents — use 'draftforge add' to register one")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMODE\tACTIVE\tINDEXED\tCHARS")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%d\n", d.ID, d.Name, d.Mode, d.Active, d.Indexed, len(d.Text))
	}
	return w.Flush()
}

// newDocsSetCmd constructs `draftforge docs set`, which updates a document's
// active flag or grounding mode.
func newDocsSetCmd() *cobra.Command {
	var active bool
	var mode string

	cmd := &cobra.Command{
		Use:   "set [id]",
		Short: "Update a document's active flag or grounding mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			store, _, closeStore, err := openStore(ctx, log)
			if err != nil {
				return fmt.Errorf("docs set: %w", err)
			}
			defer closeStore()

			doc, err := store.GetDocument(ctx, args[0])
			if err != nil {
				return fmt.Errorf("docs set: %w", err)
			}

			if cmd.Flags().Changed("active") {
				doc.Active = active
			}
			if cmd.Flags().Changed("mode") {
				m, err := parseMode(mode)
				if err != nil {
					return fmt.Errorf("docs set: %w", err)
				}
				doc.Mode = m
			}

			if err := store.SaveDocument(ctx, doc); err != nil {
				return fmt.Errorf("docs set: save document: %w", err)
			}

			// First switch to retrieval mode brings the document into the index.
			if doc.Mode == knowledge.ModeRAG && !doc.Indexed {
				p, err := provider.NewFromEnv(ctx)
				if err != nil {
					return fmt.Errorf("docs set: initialise model provider: %w", err)
				}
				ix, err := indexer.New(p, store, nil)
				if err != nil {
					return fmt.Errorf("docs set: %w", err)
				}
				if err := ix.Index(ctx, doc); err != nil {
					return fmt.Errorf("docs set: document updated but indexing failed: %w", err)
				}
			}

			fmt.Printf("updated %s (mode: %s, active: %t)\n", doc.ID, doc.Mode, doc.Active)
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", true, "Whether the document participates in drafts")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Grounding mode: context (inline) or rag (retrieval)")

	return cmd
}

// newDocsRmCmd constructs `draftforge docs rm`, which removes a document and
// purges its chunk records.
func newDocsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a document and purge its chunk records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			store, _, closeStore, err := openStore(ctx, log)
			if err != nil {
				return fmt.Errorf("docs rm: %w", err)
			}
			defer closeStore()

			// Purge chunk records first so a failure never strands orphans
			// behind a deleted registration.
			if err := store.DeleteByDocument(ctx, args[0]); err != nil {
				return fmt.Errorf("docs rm: purge chunk records: %w", err)
			}
			if err := store.DeleteDocument(ctx, args[0]); err != nil {
				return fmt.Errorf("docs rm: delete document: %w", err)
			}

			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}
}
