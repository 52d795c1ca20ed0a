package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge-go/internal/assemble"
	"github.com/draftforge/draftforge-go/internal/history"
	"github.com/draftforge/draftforge-go/internal/logging"
	"github.com/draftforge/draftforge-go/internal/provider"
	"github.com/draftforge/draftforge-go/internal/tracing"
)

// NewDraftCmd constructs the `draftforge draft` command, which generates or
// refines a LinkedIn post grounded in the document library.
func NewDraftCmd() *cobra.Command {
	var topicContext string
	var persona string
	var format string
	var model string
	var topic string
	var refine bool
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "draft [instructions]",
		Short: "Draft a LinkedIn post grounded in your documents",
		Long: `Generate a LinkedIn post grounded in the document library.

Context-mode documents are inlined in full; retrieval-mode documents
contribute their top-matching chunks. When the topic brief contains a URL,
providers with live web grounding fetch it and return source attributions.

With --refine, the most recent saved draft for the topic is loaded and the
instructions are applied as a revision: untouched sections are preserved
word for word. Every generated draft is saved as a new revision unless
--no-history is set.

Examples:
  draftforge draft --context "our Q3 launch" "announce the beta program"
  draftforge draft --context "https://example.com/changelog" "summarise what shipped"
  draftforge draft --topic launch --refine "make the hook punchier"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			instructions := strings.Join(args, " ")

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
			}

			p, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("draft: initialise model provider: %w", err)
			}

			store, _, closeStore, err := openStore(ctx, log)
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}
			defer closeStore()

			revisions := openHistory(log)
			if revisions != nil {
				defer func() { _ = revisions.Close() }()
			}

			var currentDraft string
			if refine {
				if revisions == nil {
					return fmt.Errorf("draft: --refine requires draft history, which is disabled")
				}
				rev, err := revisions.Latest(ctx, topic)
				if errors.Is(err, history.ErrNoDrafts) {
					return fmt.Errorf("draft: no saved draft to refine for topic %q", topic)
				}
				if err != nil {
					return fmt.Errorf("draft: load latest revision: %w", err)
				}
				currentDraft = rev.Text
				if topicContext == "" {
					topicContext = rev.Topic
				}
			}

			docs, err := store.ListDocuments(ctx)
			if err != nil {
				return fmt.Errorf("draft: list documents: %w", err)
			}

			asm, err := assemble.New(&assemble.Config{
				Provider: p,
				Vectors:  store,
				TopK:     getEnvInt("RETRIEVAL_TOP_K", 0),
			})
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}

			result, err := asm.Generate(ctx, &assemble.Request{
				Context:      topicContext,
				Persona:      persona,
				Instructions: instructions,
				Format:       assemble.Format(format),
				Model:        model,
				CurrentDraft: currentDraft,
				Documents:    docs,
			})
			if err != nil {
				return fmt.Errorf("draft: %w", err)
			}

			fmt.Println(result.Text)
			if len(result.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range result.Sources {
					if src.Title != "" {
						fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
					} else {
						fmt.Printf("  - %s\n", src.URL)
					}
				}
			}

			if revisions != nil && !noHistory {
				rev := history.Revision{
					Topic:        topic,
					Text:         result.Text,
					Instructions: instructions,
					CreatedAt:    time.Now().UTC(),
				}
				if err := revisions.Append(ctx, rev); err != nil {
					log.Warn("history: failed to save revision", slog.Any("error", err))
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&topicContext, "context", "c", "", "Topic brief for the post (may contain URLs)")
	cmd.Flags().StringVar(&persona, "persona", "", "Author voice description")
	cmd.Flags().StringVarP(&format, "format", "f", "long", "Post format: long or short")
	cmd.Flags().StringVar(&model, "model", "", "Override the vendor's default generation model")
	cmd.Flags().StringVarP(&topic, "topic", "t", "default", "History topic the draft belongs to")
	cmd.Flags().BoolVarP(&refine, "refine", "r", false, "Refine the latest saved draft for the topic")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not save the result as a revision")

	return cmd
}

// openHistory opens the draft revision store. DRAFTFORGE_HISTORY_DB
// overrides the default path (~/.draftforge/history.db); set it to
// "disabled" to turn history off. Failures degrade to no history rather
// than aborting the draft.
func openHistory(log *slog.Logger) history.RevisionStore {
	dbPath := os.Getenv("DRAFTFORGE_HISTORY_DB")
	if dbPath == "disabled" {
		return nil
	}
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil
		}
	}
	hs, err := history.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil
	}
	return hs
}
