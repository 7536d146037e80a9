package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func executeValidate(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const validConfig = `log:
  level: debug
  format: json
journal:
  path: ./navbridge.db
interceptor:
  block:
    - action: present
      to: Paywall
    - action: switchTab
      to: 2
host:
  command: [./demo-host, --stdio]
`

func TestValidateValidConfig(t *testing.T) {
	out, err := executeValidate(t, "text", writeFile(t, "navbridge.yaml", validConfig))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Valid config")
}

func TestValidateValidConfigJSON(t *testing.T) {
	out, err := executeValidate(t, "json", writeFile(t, "navbridge.yaml", validConfig))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"kind": "config", "valid": true}, resp.Data)
}

func TestValidateValidScenario(t *testing.T) {
	out, err := executeValidate(t, "text", writeFile(t, "pop.yaml", popAccepted))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Valid scenario")
}

func TestValidateNonExistentFile(t *testing.T) {
	out, err := executeValidate(t, "text", "/nonexistent/navbridge.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidateInvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantText string
	}{
		{"unknown key", "logging:\n  level: debug\n", "E202", "logging"},
		{"bad level", "log:\n  level: loud\n", "E203", "log.level"},
		{"bad action", "interceptor:\n  block:\n    - action: teleport\n", "E203", "interceptor.block.0.action"},
		{"empty host command", "host:\n  command: []\n", "E203", "host.command"},
		{"malformed yaml", "log: [\n", "E202", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeValidate(t, "text", writeFile(t, "navbridge.yaml", tt.body))
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "✗ Validation failed")
			assert.Contains(t, out, tt.wantCode)
			assert.Contains(t, out, tt.wantText)
		})
	}
}

func TestValidateInvalidScenarioJSON(t *testing.T) {
	body := "name: broken\ndescription: d\nsteps:\n  - call: teleport\n    scene: s1\n"
	out, err := executeValidate(t, "json", writeFile(t, "broken.yaml", body))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, KindScenario, resp.Data.Kind)
	assert.False(t, resp.Data.Valid)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, `unknown call "teleport"`)
}

func TestValidateExplicitKind(t *testing.T) {
	// A config validated as a scenario fails on missing scenario fields.
	out, err := executeValidate(t, "text", writeFile(t, "navbridge.yaml", validConfig), "--kind", "scenario")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeScenario)

	_, err = executeValidate(t, "text", writeFile(t, "navbridge.yaml", validConfig), "--kind", "bundle")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDetectKind(t *testing.T) {
	kind, err := detectKind([]byte(popAccepted))
	require.NoError(t, err)
	assert.Equal(t, KindScenario, kind)

	kind, err = detectKind([]byte(validConfig))
	require.NoError(t, err)
	assert.Equal(t, KindConfig, kind)

	kind, err = detectKind(nil)
	require.NoError(t, err)
	assert.Equal(t, KindConfig, kind, "an empty file is an empty config")
}
