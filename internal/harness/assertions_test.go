package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dispatchEntry(seq int64, action string, params map[string]any) TraceEvent {
	return TraceEvent{
		Type:   EntryCommand,
		Seq:    seq,
		Method: "dispatch",
		Action: action,
		Args:   map[string]any{"sceneId": "s1", "action": action, "params": params},
	}
}

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		dispatchEntry(1, "push", map[string]any{"moduleName": "Detail", "props": map[string]any{"id": 7}}),
		{Type: EntryEvent, Seq: 2, Event: "navigationEvent", Args: map[string]any{"on": "componentResult"}},
		dispatchEntry(3, "present", map[string]any{"moduleName": "Picker", "requestCode": -1}),
		{Type: EntryCommand, Seq: 4, Method: "setResult", Args: map[string]any{"sceneId": "s2", "resultCode": -1}},
		dispatchEntry(5, "push", map[string]any{"moduleName": "Other"}),
	}
}

func TestAssertTraceContains_Found(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "present",
		Args:   map[string]any{"params": map[string]any{"moduleName": "Picker"}},
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_MatchesMethodName(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "setResult",
		Args:   map[string]any{"resultCode": -1},
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_NotFound(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "showModal",
	})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertTraceContains, assertErr.Type)
	assert.Contains(t, assertErr.Expected, "showModal")
	assert.Equal(t, "not found in trace", assertErr.Actual)
}

func TestAssertTraceContains_WrongArgs(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "present",
		Args:   map[string]any{"params": map[string]any{"moduleName": "Settings"}},
	})
	assert.Error(t, err)
}

func TestAssertTraceContains_NestedSubsetMatch(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "push",
		Args:   map[string]any{"params": map[string]any{"props": map[string]any{"id": 7}}},
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_IgnoresEvents(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "navigationEvent",
	})
	assert.Error(t, err)
}

func TestAssertTraceOrder_Correct(t *testing.T) {
	err := assertTraceOrder(sampleTrace(), Assertion{
		Type:    AssertTraceOrder,
		Actions: []string{"push", "present", "setResult"},
	})
	assert.NoError(t, err)
}

func TestAssertTraceOrder_WrongOrder(t *testing.T) {
	err := assertTraceOrder(sampleTrace(), Assertion{
		Type:    AssertTraceOrder,
		Actions: []string{"setResult", "present"},
	})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertTraceOrder, assertErr.Type)
	assert.Contains(t, assertErr.Actual, "setResult (pos 4) should be before present (pos 3)")
}

func TestAssertTraceOrder_MissingAction(t *testing.T) {
	err := assertTraceOrder(sampleTrace(), Assertion{
		Type:    AssertTraceOrder,
		Actions: []string{"push", "dismiss"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing action: dismiss")
}

func TestAssertTraceCount(t *testing.T) {
	tests := []struct {
		action string
		count  int
		ok     bool
	}{
		{"push", 2, true},
		{"push", 1, false},
		{"push", 3, false},
		{"present", 1, true},
		{"dismiss", 0, true},
	}
	for _, tt := range tests {
		err := assertTraceCount(sampleTrace(), Assertion{Type: AssertTraceCount, Action: tt.action, Count: tt.count})
		if tt.ok {
			assert.NoError(t, err, "%s x%d", tt.action, tt.count)
		} else {
			assert.Error(t, err, "%s x%d", tt.action, tt.count)
		}
	}
}

func TestMatchArgs_SubsetSemantics(t *testing.T) {
	actual := map[string]any{
		"moduleName":  "Picker",
		"requestCode": -1,
		"props":       map[string]any{"id": 7, "tags": []any{"a", "b"}},
	}

	tests := []struct {
		name     string
		expected map[string]any
		want     bool
	}{
		{"empty matches", nil, true},
		{"single key", map[string]any{"moduleName": "Picker"}, true},
		{"wrong value", map[string]any{"moduleName": "Other"}, false},
		{"missing key", map[string]any{"layout": map[string]any{}}, false},
		{"nested subset", map[string]any{"props": map[string]any{"id": 7}}, true},
		{"nested mismatch", map[string]any{"props": map[string]any{"id": 8}}, false},
		{"slice exact", map[string]any{"props": map[string]any{"tags": []any{"a", "b"}}}, true},
		{"slice order", map[string]any{"props": map[string]any{"tags": []any{"b", "a"}}}, false},
		{"nested against scalar", map[string]any{"moduleName": map[string]any{"x": 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchArgs(actual, tt.expected))
		})
	}
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, 1))
	assert.True(t, valuesEqual(-1, float64(-1)), "yaml int vs json number")
	assert.True(t, valuesEqual(int64(3), 3))
	assert.False(t, valuesEqual("3", 3), "strings are not numbers")
	assert.True(t, valuesEqual(true, true))
	assert.False(t, valuesEqual(true, false))
	assert.True(t, valuesEqual(map[string]any{"a": float64(1)}, map[string]any{"a": 1}))
	assert.False(t, valuesEqual(map[string]any{"a": 1, "b": 2}, map[string]any{"a": 1}), "maps compare exactly")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Action: "present"},
		{Type: AssertTraceCount, Action: "push", Count: 5},
		{Type: "final_state"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "trace_count")
	assert.Contains(t, errs[1], `unknown assertion type "final_state"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "2 occurrences of pop",
		Actual:   "1 occurrences",
		Trace:    sampleTrace()[:2],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 2 occurrences of pop")
	assert.Contains(t, msg, "Actual: 1 occurrences")
	assert.Contains(t, msg, "[1] push")
	assert.NotContains(t, msg, "navigationEvent")
}
