package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/dossier/internal/api"
	"github.com/randalmurphal/dossier/internal/escalation"
	"github.com/randalmurphal/dossier/internal/events"
	"github.com/randalmurphal/dossier/internal/tracing"
	"github.com/randalmurphal/dossier/internal/workflow"
)

// newServeCmd creates the serve command for the API server
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the dossier API server.

The server provides:
  • REST endpoints under /api for clients, projects, workflows and queues
  • Connect RPC services (dossier.v1.WorkflowService, dossier.v1.QueueService)
  • A WebSocket at /api/ws streaming workflow events

When escalation is enabled the SLA sweeper runs in the same process.

Example:
  dossier serve              # Start on the configured port (default 8080)
  dossier serve --port 3000  # Start on a custom port`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Tracing.Enabled {
				if dir := filepath.Dir(cfg.Tracing.Output); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("create trace directory: %w", err)
					}
				}
				if err := tracing.Init("dossier", Version, cfg.Tracing.Output); err != nil {
					return fmt.Errorf("init tracing: %w", err)
				}
				defer func() { _ = tracing.Shutdown(context.Background()) }()
			}

			database, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			pub := events.NewMemoryPublisher()
			defer pub.Close()
			cache := api.NewQueueCache(cfg.Queue.CacheTTL)

			engine, err := newEngine(cfg, database, logger,
				workflow.WithPublisher(pub),
				workflow.WithChangeHook(func(string) { cache.Invalidate() }),
			)
			if err != nil {
				return err
			}

			srvCfg := api.Config{
				Addr:            cfg.Address(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				Logger:          logger,
				DB:              database,
				Engine:          engine,
				Publisher:       pub,
				QueueCache:      cache,
			}
			var sweeper *escalation.Sweeper
			if cfg.Escalation.Enabled {
				sweeper = escalation.NewSweeper(escalation.Config{
					Engine:   engine,
					Policy:   cfg.EscalationPolicy(),
					Interval: cfg.Escalation.Interval,
					Logger:   logger,
				})
				srvCfg.Sweeper = sweeper
			}
			server := api.New(srvCfg)

			fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on %s (database: %s)\n", cfg.Address(), database.Dialect())
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.StartContext(gctx)
			})
			if sweeper != nil {
				g.Go(func() error {
					return sweeper.Run(gctx)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "port to listen on (overrides config)")
	return cmd
}
