package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/draftforge/draftforge-go/internal/assemble"
	"github.com/draftforge/draftforge-go/internal/indexer"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/logging"
	"github.com/draftforge/draftforge-go/internal/provider"
	"github.com/draftforge/draftforge-go/internal/server"
	"github.com/draftforge/draftforge-go/internal/tracing"
)

// NewServeCmd constructs the `draftforge serve` command, which starts the
// HTTP server exposing the drafting engine's REST API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DraftForge HTTP server",
		Long: `Start the DraftForge HTTP server on localhost.

The server exposes a REST API for document management (/api/documents),
model discovery (/api/models), grounded draft generation (/api/draft),
health probes (/api/health, /api/ready), and Prometheus metrics (/metrics).

Set DRAFTFORGE_API_KEY to require a Bearer token on all /api routes.

Examples:
  draftforge serve
  draftforge serve --port 9090
  DRAFTFORGE_VENDOR=ollama draftforge serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("vendor", os.Getenv("DRAFTFORGE_VENDOR")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			p, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: initialise model provider: %w", err)
			}
			log.Info("provider initialised", slog.String("vendor", string(p.Name())))

			store, vectors, closeStore, err := openStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeStore()

			ix, err := indexer.New(p, store, nil)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			asm, err := assemble.New(&assemble.Config{
				Provider: p,
				Vectors:  store,
				TopK:     getEnvInt("RETRIEVAL_TOP_K", 0),
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pingers := []server.Pinger{server.NewProviderPinger(p, string(p.Name()))}
			if qs, ok := vectors.(*knowledge.QdrantStore); ok {
				pingers = append(pingers, server.NewQdrantPinger(qs.Client()))
			}

			srv, err := server.New(
				&server.Deps{
					Store:   store,
					Drafter: asm,
					Models:  p,
					Indexer: ix,
				},
				&server.Config{
					Host:    host,
					Port:    port,
					Logger:  log,
					Pingers: pingers,
					APIKey:  os.Getenv("DRAFTFORGE_API_KEY"),
				},
			)
			if err != nil {
				return fmt.Errorf("serve: create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
