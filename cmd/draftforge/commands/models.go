package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge-go/internal/provider"
)

// NewModelsCmd constructs the `draftforge models` command, which lists the
// generation-capable models available from the active vendor.
func NewModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List generation models available from the active vendor",
		Long: `List the generation-capable models the active vendor offers.

The vendor is selected via DRAFTFORGE_VENDOR (gemini, openai, or ollama).
Embedding-only and non-text models are filtered out.

Examples:
  draftforge models
  DRAFTFORGE_VENDOR=ollama draftforge models`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("models: initialise model provider: %w", err)
			}

			models, err := p.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("models: %w", err)
			}
			if len(models) == 0 {
				fmt.Printf("no generation models available from %s\n", p.Name())
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\n", m.ID, m.DisplayName)
			}
			return w.Flush()
		},
	}
}
