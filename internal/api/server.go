// Package api provides the REST, Connect RPC and WebSocket server for
// dossier.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/randalmurphal/dossier/internal/db"
	"github.com/randalmurphal/dossier/internal/escalation"
	"github.com/randalmurphal/dossier/internal/events"
	"github.com/randalmurphal/dossier/internal/workflow"
)

// Sweeper runs a single escalation pass on demand.
type Sweeper interface {
	SweepOnce(ctx context.Context) (escalation.SweepResult, error)
}

// Server is the dossier API server.
type Server struct {
	addr            string
	shutdownTimeout time.Duration
	mux             *http.ServeMux
	logger          *slog.Logger

	db        *db.DB
	engine    *workflow.Engine
	publisher events.Publisher
	sweeper   Sweeper
	queue     *QueueCache
	wsHandler *WSHandler
}

// Config holds server dependencies and settings.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	DB        *db.DB
	Engine    *workflow.Engine
	Publisher events.Publisher
	// Sweeper backs POST /api/escalations/sweep. Nil disables the endpoint.
	Sweeper Sweeper
	// QueueCache should be invalidated by the engine's change hook.
	QueueCache *QueueCache
}

// New creates a server and registers its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = events.NewNopPublisher()
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Server{
		addr:            cfg.Addr,
		shutdownTimeout: timeout,
		mux:             http.NewServeMux(),
		logger:          logger,
		db:              cfg.DB,
		engine:          cfg.Engine,
		publisher:       pub,
		sweeper:         cfg.Sweeper,
		queue:           cfg.QueueCache,
	}
	s.wsHandler = NewWSHandler(pub, logger)

	s.registerRoutes()
	s.registerConnectHandlers()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// StartContext serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) StartContext(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", s.addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	s.wsHandler.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// queueListing reads the approval queue through the cache.
func (s *Server) queueListing(ctx context.Context, f workflow.QueueFilter) ([]*workflow.QueueItem, error) {
	return s.queue.Queue(ctx, f, s.engine.Queue)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	JSONResponseStatus(w, map[string]any{
		"status":      status,
		"database":    string(s.db.Dialect()),
		"subscribers": s.wsHandler.ConnectionCount(),
	}, code)
}
