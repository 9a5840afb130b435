package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/randalmurphal/dossier/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dossier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/dossier-test.db
workflow:
  default_sla_hours: 12
  stages:
    - stage: 3
      sla_hours: 72
      approver: legal-team
  routing:
    - document_type: "contract*"
      stage: 3
      approver: contracts
  validation:
    - path: amount
      required: true
    - path: currency
      one_of: [USD, EUR]
escalation:
  interval: 1m
  reescalate_after: 2h
  approvers:
    - stage: 3
      approver: general-counsel
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset keys keep defaults")
	assert.Equal(t, 12, cfg.Workflow.DefaultSLAHours)
	require.Len(t, cfg.Workflow.Stages, 1)
	assert.Equal(t, 72, cfg.Workflow.Stages[0].SLAHours)
	require.Len(t, cfg.Workflow.Routing, 1)
	assert.Equal(t, "contract*", cfg.Workflow.Routing[0].DocumentType)
	require.Len(t, cfg.Workflow.Validation, 2)
	assert.Equal(t, []string{"USD", "EUR"}, cfg.Workflow.Validation[1].OneOf)
	assert.Equal(t, time.Minute, cfg.Escalation.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Escalation.ReescalateAfter)
	assert.Equal(t, 5, cfg.Escalation.MaxLevel)
	assert.Equal(t, "general-counsel", cfg.Escalation.Approvers[0].Approver)
	assert.True(t, cfg.Workflow.ResetEscalationOnAdvance)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("DOSSIER_SERVER_PORT", "7070")
	t.Setenv("DOSSIER_QUEUE_CACHE_TTL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Queue.CacheTTL)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: oracle\n")

	_, err := Load(path)
	assert.True(t, derrors.HasCode(err, derrors.CodeConfigInvalid))
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadWith_NoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, err := LoadWith(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestInit(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".dossier", "dossier.yaml")

	require.NoError(t, Init(path, false))
	err := Init(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
