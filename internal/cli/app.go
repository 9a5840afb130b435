package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/dossier/internal/config"
	"github.com/randalmurphal/dossier/internal/db"
	"github.com/randalmurphal/dossier/internal/db/driver"
	"github.com/randalmurphal/dossier/internal/workflow"
)

// loadConfig reads the configuration named by --config, or the default
// search path.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return cfg.NewLogger(os.Stderr)
}

// openDB opens the configured database and applies pending migrations.
func openDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	var (
		database *db.DB
		err      error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		database, err = db.OpenWithDialect(cfg.Database.DSN, driver.DialectPostgres)
	default:
		database, err = db.Open(cfg.Database.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return database, nil
}

// newEngine builds a workflow engine over database using the configured
// policy. Extra options are applied last.
func newEngine(cfg *config.Config, database *db.DB, logger *slog.Logger, opts ...workflow.Option) (*workflow.Engine, error) {
	base := []workflow.Option{
		workflow.WithSettings(cfg.WorkflowSettings()),
		workflow.WithLogger(logger),
	}
	return workflow.NewEngine(database.Workflows(), append(base, opts...)...)
}

// withEngine loads config, opens the database and runs fn with an engine.
// The CLI has no subscribers, so events go nowhere.
func withEngine(ctx context.Context, fn func(e *workflow.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	engine, err := newEngine(cfg, database, newLogger(cfg))
	if err != nil {
		return err
	}
	return fn(engine)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
