package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/dossier/internal/escalation"
)

func TestMigrateCommand(t *testing.T) {
	dir := setupCLI(t)

	out, err := run(t, newMigrateCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "Database up to date")
	assert.FileExists(t, filepath.Join(dir, "dossier.db"))

	// Second run is a no-op.
	_, err = run(t, newMigrateCmd())
	require.NoError(t, err)
}

func TestSweepCommand(t *testing.T) {
	setupCLI(t)
	startWorkflow(t, "DOC-1")

	out, err := run(t, newSweepCmd())
	require.NoError(t, err)
	assert.Contains(t, out, "No overdue workflows.")

	var res escalation.SweepResult
	runJSON(t, newSweepCmd(), &res)
	assert.Zero(t, res.Candidates)
	assert.Empty(t, res.IDs)
}

func TestConfigCommands(t *testing.T) {
	dir := setupCLI(t)

	out, err := run(t, newConfigCmd(), "show")
	require.NoError(t, err)
	assert.Contains(t, out, "escalation:")
	assert.Contains(t, out, "approver: legal")
	assert.Contains(t, out, filepath.Join(dir, "dossier.db"))

	target := filepath.Join(dir, "nested", "dossier.yaml")
	out, err = run(t, newConfigCmd(), "init", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reescalate_after: 4h0m0s")

	_, err = run(t, newConfigCmd(), "init", target)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = run(t, newConfigCmd(), "init", "--force", target)
	require.NoError(t, err)
}

func TestInvalidConfigFile(t *testing.T) {
	dir := setupCLI(t)
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("database:\n  driver: oracle\n"), 0o644))
	cfgFile = bad

	_, err := run(t, newMigrateCmd())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.driver")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, newVersionCmd())
	require.NoError(t, err)
	assert.Equal(t, "dossier version "+Version+"\n", out)
}

func TestRootCommandTree(t *testing.T) {
	want := []string{"serve", "migrate", "sweep", "workflow", "queue", "config", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	wf, _, err := rootCmd.Find([]string{"workflow"})
	require.NoError(t, err)
	var subs []string
	for _, c := range wf.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"start", "show", "list", "approve", "reject", "escalate", "cancel", "history"}, subs)
}
