package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navbridge/internal/harness"
)

const popAccepted = `name: pop_accepted
description: "The host accepts a pop"
steps:
  - call: pop
    scene: s1
    as: p
  - expect: p
    accepted: true
assertions:
  - type: trace_count
    action: pop
    count: 1
`

const popRejected = `name: pop_rejected
description: "Expects a refusal the default host never gives"
steps:
  - call: pop
    scene: s1
    as: p
  - expect: p
    accepted: false
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func executeTest(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := executeTest(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := executeTest(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := executeTest(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := executeTest(t, "json", t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"pop_accepted.yaml": popAccepted})

	out, err := executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pop_accepted")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"pop_accepted.yaml": popAccepted,
		"pop_rejected.yaml": popRejected,
	})

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ pop_rejected")
	assert.Contains(t, out, "accepted")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandJSONResult(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"pop_accepted.yaml": popAccepted,
		"pop_rejected.yaml": popRejected,
	})

	out, err := executeTest(t, "json", dir)
	require.Error(t, err)

	var response struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, ErrCodeTestFailed, response.Error.Code)
	assert.Equal(t, 2, response.Data.Total)
	assert.Equal(t, 1, response.Data.Failed)
	require.Len(t, response.Data.Scenarios, 2)
	assert.Equal(t, "pop_accepted", response.Data.Scenarios[0].Name)
	assert.True(t, response.Data.Scenarios[0].Pass)
	assert.False(t, response.Data.Scenarios[1].Pass)
	assert.NotEmpty(t, response.Data.Scenarios[1].Errors)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\n"})

	out, err := executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"pop_accepted.yaml": popAccepted,
		"pop_rejected.yaml": popRejected,
	})

	out, err := executeTest(t, "text", dir, "--filter", "*_accepted")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
	assert.NotContains(t, out, "pop_rejected")
}

func TestTestCommandGoldenLifecycle(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"pop_accepted.yaml": popAccepted})
	goldenPath := filepath.Join(dir, "golden", "pop_accepted.golden")

	out, err := executeTest(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pop_accepted (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)

	scenario, err := harness.ParseScenario([]byte(popAccepted))
	require.NoError(t, err)
	result, err := harness.Run(t.Context(), scenario)
	require.NoError(t, err)
	want, err := harness.MarshalTrace(scenario.Name, result)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	// Compare against the stored golden
	out, err = executeTest(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ pop_accepted")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"pop_accepted","trace":[]}`), 0644))
	out, err = executeTest(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestHelpText(t *testing.T) {
	out, err := executeTest(t, "text", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "conformance")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a.yaml":    popAccepted,
		"b.yml":     popAccepted,
		"notes.txt": "ignored",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)

	files, err = findScenarioFiles(dir, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "present.golden"), goldenFilePath(filepath.Join("scenarios", "present.yaml")))
}
