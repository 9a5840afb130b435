package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	derrors "github.com/randalmurphal/dossier/internal/errors"
	"github.com/randalmurphal/dossier/internal/workflow"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{name: "default config is valid"},
		{
			name:   "unknown driver",
			modify: func(c *Config) { c.Database.Driver = "mysql" },
			field:  "database.driver",
		},
		{
			name:   "postgres needs dsn",
			modify: func(c *Config) { c.Database.Driver = DriverPostgres },
			field:  "database.dsn",
		},
		{
			name:   "non-positive default sla",
			modify: func(c *Config) { c.Workflow.DefaultSLAHours = 0 },
			field:  "workflow.default_sla_hours",
		},
		{
			name:   "stage out of range",
			modify: func(c *Config) { c.Workflow.Stages = []StageConfig{{Stage: 5, SLAHours: 4}} },
			field:  "workflow.stages[0].stage",
		},
		{
			name: "duplicate stage",
			modify: func(c *Config) {
				c.Workflow.Stages = []StageConfig{{Stage: 2, SLAHours: 4}, {Stage: 2, Approver: "x"}}
			},
			field: "workflow.stages[1].stage",
		},
		{
			name: "malformed routing glob",
			modify: func(c *Config) {
				c.Workflow.Routing = []RoutingRuleConfig{{DocumentType: "contract[", Approver: "legal"}}
			},
			field: "workflow.routing",
		},
		{
			name:   "validation rule without path",
			modify: func(c *Config) { c.Workflow.Validation = []ValidationRuleConfig{{Required: true}} },
			field:  "workflow.validation",
		},
		{
			name:   "zero sweep interval",
			modify: func(c *Config) { c.Escalation.Interval = 0 },
			field:  "escalation.interval",
		},
		{
			name:   "escalation approver without name",
			modify: func(c *Config) { c.Escalation.Approvers = []StageConfig{{Stage: 1}} },
			field:  "escalation.approvers[0].approver",
		},
		{
			name:   "bad log level",
			modify: func(c *Config) { c.Logging.Level = "loud" },
			field:  "logging.level",
		},
		{
			name:   "bad log format",
			modify: func(c *Config) { c.Logging.Format = "xml" },
			field:  "logging.format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			if tt.modify != nil {
				tt.modify(cfg)
			}
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			de := derrors.AsDossierError(err)
			require.NotNil(t, de, "expected a dossier error, got %v", err)
			assert.Equal(t, derrors.CodeConfigInvalid, de.Code)
			assert.Contains(t, de.What, tt.field)
		})
	}
}

func TestConfig_WorkflowSettings(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Workflow.Stages = []StageConfig{
		{Stage: 2, SLAHours: 48, Approver: "compliance"},
		{Stage: 4, Approver: "cfo"},
	}
	cfg.Workflow.Routing = []RoutingRuleConfig{{DocumentType: "invoice*", Approver: "ap"}}
	cfg.Escalation.Approvers = []StageConfig{{Stage: 2, Approver: "compliance-lead"}}
	cfg.Escalation.ReassignAtLevel = 2

	s := cfg.WorkflowSettings()
	assert.Equal(t, 24, s.DefaultSLAHours)
	assert.Equal(t, map[workflow.Stage]int{workflow.StageCompliance: 48}, s.StageSLAHours)
	assert.Equal(t, "cfo", s.StageApprovers[workflow.StageFinal])
	assert.Equal(t, "compliance-lead", s.EscalationApprovers[workflow.StageCompliance])
	assert.Equal(t, 2, s.ReassignAtLevel)
	assert.True(t, s.ResetEscalationOnAdvance)
	require.Len(t, s.Routing, 1)
	assert.Equal(t, "ap", s.Routing[0].Approver)

	p := cfg.EscalationPolicy()
	assert.Equal(t, 4*time.Hour, p.ReescalateAfter)
	assert.Equal(t, 5, p.MaxLevel)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	t.Parallel()
	data, err := Default().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "interval: 5m0s")

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, *Default(), back)
}

func TestConfig_NewLogger(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Logging = LoggingConfig{Level: "warn", Format: "json"}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "workflow_id", "wf-1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"workflow_id":"wf-1"`)
}

func TestConfig_Address(t *testing.T) {
	t.Parallel()
	cfg := Default()
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}
