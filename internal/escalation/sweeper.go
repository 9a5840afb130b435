// Package escalation periodically escalates workflows that have breached
// their SLA.
package escalation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/dossier/internal/tracing"
	"github.com/randalmurphal/dossier/internal/workflow"
)

// DefaultInterval is the sweep period when none is configured.
const DefaultInterval = 5 * time.Minute

// Escalator is the engine surface the sweeper needs.
type Escalator interface {
	EscalationCandidates(ctx context.Context, p workflow.EscalationPolicy) ([]*workflow.Workflow, error)
	EscalateOverdue(ctx context.Context, id string, p workflow.EscalationPolicy) (bool, error)
}

// SweepResult counts what one pass did.
type SweepResult struct {
	Candidates int      `json:"candidates"`
	Escalated  int      `json:"escalated"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	IDs        []string `json:"escalatedIds"`
}

// Sweeper escalates overdue workflows on a fixed interval.
type Sweeper struct {
	engine   Escalator
	policy   workflow.EscalationPolicy
	interval time.Duration
	logger   *slog.Logger

	// mu serializes passes so a manual sweep never overlaps the ticker.
	mu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	onSweep func(SweepResult)
}

// Config configures a Sweeper.
type Config struct {
	Engine   Escalator
	Policy   workflow.EscalationPolicy
	Interval time.Duration
	Logger   *slog.Logger
	// OnSweep is called after every pass, including empty ones.
	OnSweep func(SweepResult)
}

// NewSweeper creates a sweeper. It does nothing until Start.
func NewSweeper(cfg Config) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		engine:   cfg.Engine,
		policy:   cfg.Policy,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		onSweep:  cfg.OnSweep,
	}
}

// Start begins the sweep loop. The first pass runs immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop ends the loop and waits for an in-flight pass. Safe to call
// multiple times.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Run blocks until ctx is cancelled or Stop is called.
func (s *Sweeper) Run(ctx context.Context) error {
	s.Start(ctx)
	select {
	case <-ctx.Done():
	case <-s.stopCh:
	}
	s.Stop()
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("escalation sweep failed", "error", err)
	}
}

// SweepOnce runs a single pass. A failure to list candidates is returned;
// failures on individual workflows are logged and counted.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "escalation.sweep")
	res := SweepResult{IDs: []string{}}

	candidates, err := s.engine.EscalationCandidates(ctx, s.policy)
	if err != nil {
		span.End(err)
		return res, err
	}
	res.Candidates = len(candidates)

	for _, wf := range candidates {
		if ctx.Err() != nil {
			break
		}
		did, err := s.engine.EscalateOverdue(ctx, wf.ID, s.policy)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Warn("escalate overdue workflow",
				"workflow_id", wf.ID,
				"error", err,
			)
		case did:
			res.Escalated++
			res.IDs = append(res.IDs, wf.ID)
		default:
			res.Skipped++
		}
	}

	span.SetInt("candidates", res.Candidates)
	span.SetInt("escalated", res.Escalated)
	span.End(nil)

	if res.Candidates > 0 {
		s.logger.Info("escalation sweep complete",
			"candidates", res.Candidates,
			"escalated", res.Escalated,
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	}
	if s.onSweep != nil {
		s.onSweep(res)
	}
	return res, ctx.Err()
}
