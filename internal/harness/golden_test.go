package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Regenerate with: go test ./internal/harness -run TestScenarios_Golden -update
func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Canonical(t *testing.T) {
	code := -1
	result := NewResult()
	result.Trace = []TraceEvent{
		{Type: EntryCommand, Seq: 1, Method: "setResult", Args: map[string]any{"sceneId": "s2", "resultCode": -1}},
		{Type: EntryOutcome, Seq: 2, Action: "present", Alias: "p", State: StateResolved, Code: &code},
	}

	data, err := MarshalTrace("canonical", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"canonical","trace":[{"args":{"resultCode":-1,"sceneId":"s2"},"method":"setResult","seq":1,"type":"command"},{"action":"present","alias":"p","code":-1,"seq":2,"state":"resolved","type":"outcome"}]}`,
		string(data))
}

func TestMarshalTrace_IncludesRootUpdatesWhenPresent(t *testing.T) {
	result := NewResult()
	result.Roots = RootUpdates{Will: 1, Did: 2}

	data, err := MarshalTrace("roots", result)
	require.NoError(t, err)
	assert.Equal(t, `{"roots":{"did":2,"will":1},"scenario_name":"roots","trace":[]}`, string(data))
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/intercept_tabs.yaml")
	require.NoError(t, err)

	first, err := Run(t.Context(), s)
	require.NoError(t, err)
	second, err := Run(t.Context(), s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
