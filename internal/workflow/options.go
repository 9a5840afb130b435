package workflow

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/dossier/internal/events"
)

// SystemActor records actions taken by the engine itself.
const SystemActor = "system"

// Settings holds engine policy. Build it from configuration.
type Settings struct {
	DefaultSLAHours int
	StageSLAHours   map[Stage]int
	StageApprovers  map[Stage]string
	Routing         []RoutingRule
	Validation      []ValidationRule
	AutoValidate    bool
	// ResetEscalationOnAdvance clears the escalation level when a stage is approved.
	ResetEscalationOnAdvance bool
	// EscalationApprovers take over a stage's pending item once the escalation
	// level reaches ReassignAtLevel. ReassignAtLevel 0 disables reassignment.
	EscalationApprovers map[Stage]string
	ReassignAtLevel     int
}

// DefaultSettings returns the out-of-the-box policy.
func DefaultSettings() Settings {
	return Settings{
		DefaultSLAHours:          24,
		ResetEscalationOnAdvance: true,
	}
}

// slaHours resolves the SLA for stage: stage override, then the workflow's
// own hours, then the default.
func (s Settings) slaHours(stage Stage, workflowHours int) int {
	if h := s.StageSLAHours[stage]; h > 0 {
		return h
	}
	if workflowHours > 0 {
		return workflowHours
	}
	if s.DefaultSLAHours > 0 {
		return s.DefaultSLAHours
	}
	return 24
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the engine policy.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithPublisher sets the publisher for committed workflow events.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// WithChangeHook registers fn to run after every committed mutation.
func WithChangeHook(fn func(workflowID string)) Option {
	return func(e *Engine) {
		e.onChange = append(e.onChange, fn)
	}
}
