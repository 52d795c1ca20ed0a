// Package commands defines all Cobra CLI commands for the draftforge binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge-go/internal/audit"
	"github.com/draftforge/draftforge-go/internal/config"
	"github.com/draftforge/draftforge-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "draftforge",
		Short: "DraftForge — a grounded LinkedIn post drafting engine",
		Long: `DraftForge drafts LinkedIn posts grounded in your own material.

Upload reference documents once, then generate and refine posts that cite
them: small documents are inlined verbatim, large ones are chunked, embedded,
and retrieved by similarity at drafting time. When the topic brief contains a
URL, providers that support live web grounding fetch it and attribute sources.

Model vendor is selected via the DRAFTFORGE_VENDOR environment variable
or a YAML config file (~/.draftforge/config.yaml).
See 'draftforge --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.draftforge/config.yaml)")

	root.AddCommand(
		NewAddCmd(),
		NewDocsCmd(),
		NewDraftCmd(),
		NewModelsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
