package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const testConfig = `database:
  path: %s
logging:
  level: error
escalation:
  enabled: false
workflow:
  stages:
    - stage: 1
      approver: val
    - stage: 2
      approver: comp
    - stage: 3
      approver: legal
    - stage: 4
      approver: boss
`

// setupCLI points the package flags at a fresh config and database.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "dossier.yaml")
	content := []byte(fmt.Sprintf(testConfig, filepath.Join(dir, "dossier.db")))
	require.NoError(t, os.WriteFile(path, content, 0o644))

	oldCfg, oldJSON, oldVerbose := cfgFile, jsonOut, verbose
	cfgFile, jsonOut, verbose = path, false, false
	t.Cleanup(func() {
		cfgFile, jsonOut, verbose = oldCfg, oldJSON, oldVerbose
	})
	return dir
}

// run executes cmd with args and returns its combined output.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes cmd with --json semantics and decodes the output.
func runJSON(t *testing.T, cmd *cobra.Command, out any, args ...string) {
	t.Helper()
	jsonOut = true
	defer func() { jsonOut = false }()
	text, err := run(t, cmd, args...)
	require.NoError(t, err, text)
	require.NoError(t, json.Unmarshal([]byte(text), out), text)
}
