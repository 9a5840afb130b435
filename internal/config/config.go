// Package config provides configuration management for dossier.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/dossier/internal/workflow"
)

const (
	// ConfigFileName is the config file name without extension.
	ConfigFileName = "dossier"
	// DossierDir is the dossier configuration directory.
	DossierDir = ".dossier"
	// EnvPrefix prefixes environment overrides, e.g. DOSSIER_SERVER_PORT.
	EnvPrefix = "DOSSIER"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the dossier configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Workflow   WorkflowConfig   `mapstructure:"workflow" yaml:"workflow"`
	Escalation EscalationConfig `mapstructure:"escalation" yaml:"escalation"`
	Queue      QueueConfig      `mapstructure:"queue" yaml:"queue"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the store. Path is used by sqlite, DSN by postgres.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// WorkflowConfig holds approval policy.
type WorkflowConfig struct {
	DefaultSLAHours int                    `mapstructure:"default_sla_hours" yaml:"default_sla_hours"`
	Stages          []StageConfig          `mapstructure:"stages" yaml:"stages,omitempty"`
	Routing         []RoutingRuleConfig    `mapstructure:"routing" yaml:"routing,omitempty"`
	Validation      []ValidationRuleConfig `mapstructure:"validation" yaml:"validation,omitempty"`
	AutoValidate    bool                   `mapstructure:"auto_validate" yaml:"auto_validate"`
	// ResetEscalationOnAdvance clears the escalation level when a stage is approved.
	ResetEscalationOnAdvance bool `mapstructure:"reset_escalation_on_advance" yaml:"reset_escalation_on_advance"`
}

// StageConfig overrides the SLA and default approver of one stage.
type StageConfig struct {
	Stage    int    `mapstructure:"stage" yaml:"stage"`
	SLAHours int    `mapstructure:"sla_hours" yaml:"sla_hours,omitempty"`
	Approver string `mapstructure:"approver" yaml:"approver,omitempty"`
}

// RoutingRuleConfig routes a document type glob to an approver. Stage 0
// applies the rule at every stage.
type RoutingRuleConfig struct {
	DocumentType string `mapstructure:"document_type" yaml:"document_type"`
	Stage        int    `mapstructure:"stage" yaml:"stage,omitempty"`
	Approver     string `mapstructure:"approver" yaml:"approver"`
}

// ValidationRuleConfig is one stage-1 metadata check.
type ValidationRuleConfig struct {
	Path     string   `mapstructure:"path" yaml:"path"`
	Required bool     `mapstructure:"required" yaml:"required,omitempty"`
	Equals   string   `mapstructure:"equals" yaml:"equals,omitempty"`
	OneOf    []string `mapstructure:"one_of" yaml:"one_of,omitempty"`
	Message  string   `mapstructure:"message" yaml:"message,omitempty"`
}

// EscalationConfig controls the SLA sweeper.
type EscalationConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
	ReescalateAfter time.Duration `mapstructure:"reescalate_after" yaml:"reescalate_after"`
	MaxLevel        int           `mapstructure:"max_level" yaml:"max_level"`
	// ReassignAtLevel moves the pending item to the stage's escalation
	// approver once this level is reached. 0 disables reassignment.
	ReassignAtLevel int           `mapstructure:"reassign_at_level" yaml:"reassign_at_level"`
	Approvers       []StageConfig `mapstructure:"approvers" yaml:"approvers,omitempty"`
}

// QueueConfig tunes approval queue reads.
type QueueConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// LoggingConfig configures the root slog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// TracingConfig enables OpenTelemetry spans written to a file.
type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Output  string `mapstructure:"output" yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   DossierDir + "/dossier.db",
		},
		Workflow: WorkflowConfig{
			DefaultSLAHours:          24,
			ResetEscalationOnAdvance: true,
		},
		Escalation: EscalationConfig{
			Enabled:         true,
			Interval:        5 * time.Minute,
			ReescalateAfter: 4 * time.Hour,
			MaxLevel:        5,
		},
		Queue: QueueConfig{
			CacheTTL: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Output: DossierDir + "/traces.jsonl",
		},
	}
}

// Validate checks the configuration and returns the first problem as a
// CONFIG_INVALID error.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port", "must be between 0 and 65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return invalid("database.path", "required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return invalid("database.dsn", "required for the postgres driver")
		}
	default:
		return invalid("database.driver", "must be sqlite or postgres, got %q", c.Database.Driver)
	}

	w := c.Workflow
	if w.DefaultSLAHours <= 0 {
		return invalid("workflow.default_sla_hours", "must be positive, got %d", w.DefaultSLAHours)
	}
	seen := make(map[int]bool)
	for i, s := range w.Stages {
		field := fmt.Sprintf("workflow.stages[%d]", i)
		if !workflow.Stage(s.Stage).Valid() {
			return invalid(field+".stage", "must be between 1 and 4, got %d", s.Stage)
		}
		if seen[s.Stage] {
			return invalid(field+".stage", "stage %d is configured twice", s.Stage)
		}
		seen[s.Stage] = true
		if s.SLAHours < 0 {
			return invalid(field+".sla_hours", "must not be negative, got %d", s.SLAHours)
		}
	}
	if _, err := workflow.NewRouter(c.routingRules(), nil); err != nil {
		return invalid("workflow.routing", "%s", err.Error())
	}
	if _, err := workflow.NewValidator(c.validationRules()); err != nil {
		return invalid("workflow.validation", "%s", err.Error())
	}

	e := c.Escalation
	if e.Enabled && e.Interval <= 0 {
		return invalid("escalation.interval", "must be positive when escalation is enabled")
	}
	if e.ReescalateAfter < 0 {
		return invalid("escalation.reescalate_after", "must not be negative")
	}
	if e.MaxLevel < 0 {
		return invalid("escalation.max_level", "must not be negative")
	}
	if e.ReassignAtLevel < 0 {
		return invalid("escalation.reassign_at_level", "must not be negative")
	}
	for i, a := range e.Approvers {
		field := fmt.Sprintf("escalation.approvers[%d]", i)
		if !workflow.Stage(a.Stage).Valid() {
			return invalid(field+".stage", "must be between 1 and 4, got %d", a.Stage)
		}
		if a.Approver == "" {
			return invalid(field+".approver", "required")
		}
	}

	if c.Queue.CacheTTL < 0 {
		return invalid("queue.cache_ttl", "must not be negative")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", "%s", err.Error())
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return invalid("logging.format", "must be text or json, got %q", c.Logging.Format)
	}
	if c.Tracing.Enabled && c.Tracing.Output == "" {
		return invalid("tracing.output", "required when tracing is enabled")
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// WorkflowSettings converts the workflow and escalation sections to engine
// policy.
func (c *Config) WorkflowSettings() workflow.Settings {
	s := workflow.Settings{
		DefaultSLAHours:          c.Workflow.DefaultSLAHours,
		StageSLAHours:            make(map[workflow.Stage]int),
		StageApprovers:           make(map[workflow.Stage]string),
		Routing:                  c.routingRules(),
		Validation:               c.validationRules(),
		AutoValidate:             c.Workflow.AutoValidate,
		ResetEscalationOnAdvance: c.Workflow.ResetEscalationOnAdvance,
		EscalationApprovers:      make(map[workflow.Stage]string),
		ReassignAtLevel:          c.Escalation.ReassignAtLevel,
	}
	for _, st := range c.Workflow.Stages {
		if st.SLAHours > 0 {
			s.StageSLAHours[workflow.Stage(st.Stage)] = st.SLAHours
		}
		if st.Approver != "" {
			s.StageApprovers[workflow.Stage(st.Stage)] = st.Approver
		}
	}
	for _, a := range c.Escalation.Approvers {
		s.EscalationApprovers[workflow.Stage(a.Stage)] = a.Approver
	}
	return s
}

// EscalationPolicy returns the sweeper's bounds.
func (c *Config) EscalationPolicy() workflow.EscalationPolicy {
	return workflow.EscalationPolicy{
		ReescalateAfter: c.Escalation.ReescalateAfter,
		MaxLevel:        c.Escalation.MaxLevel,
	}
}

func (c *Config) routingRules() []workflow.RoutingRule {
	out := make([]workflow.RoutingRule, 0, len(c.Workflow.Routing))
	for _, r := range c.Workflow.Routing {
		out = append(out, workflow.RoutingRule{
			DocumentType: r.DocumentType,
			Stage:        workflow.Stage(r.Stage),
			Approver:     r.Approver,
		})
	}
	return out
}

func (c *Config) validationRules() []workflow.ValidationRule {
	out := make([]workflow.ValidationRule, 0, len(c.Workflow.Validation))
	for _, r := range c.Workflow.Validation {
		out = append(out, workflow.ValidationRule{
			Path:     r.Path,
			Required: r.Required,
			Equals:   r.Equals,
			OneOf:    r.OneOf,
			Message:  r.Message,
		})
	}
	return out
}

// NewLogger builds the root logger described by the logging section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}

// YAML renders the configuration as a dossier.yaml document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
