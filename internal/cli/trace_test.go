package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navbridge/internal/bridge"
	"github.com/roach88/navbridge/internal/journal"
	"github.com/roach88/navbridge/internal/testutil"
)

// seedJournal records one present round trip and returns the db path and
// session id.
func seedJournal(t *testing.T) (string, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "navbridge.db")
	j, err := journal.Open(path,
		journal.WithIDs(testutil.NewSequentialIDs()),
		journal.WithClock(testutil.NewDeterministicClock()),
	)
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	s, err := j.StartSession(ctx, "present_result")
	require.NoError(t, err)

	require.NoError(t, s.RecordCommand(ctx, bridge.CommandRecord{
		SceneID:     "s1",
		Method:      "dispatch",
		Action:      "present",
		RequestCode: -1,
		Args: map[string]any{
			"sceneId": "s1",
			"action":  "present",
			"params":  map[string]any{"moduleName": "Picker", "requestCode": -1},
		},
	}))
	require.NoError(t, s.RecordCommand(ctx, bridge.CommandRecord{
		SceneID: "s1",
		Method:  "dispatch",
		Action:  "pop",
		Args:    map[string]any{"sceneId": "s1", "action": "pop"},
	}))
	require.NoError(t, s.RecordEvent(ctx, testutil.ResultEvent("s2", -1, -1, map[string]any{"picked": 3})))

	return path, s.ID()
}

func executeTrace(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceCommandRequiresDB(t *testing.T) {
	_, err := executeTrace(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"db" not set`)
}

func TestTraceCommandMissingDatabase(t *testing.T) {
	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceCommandListsSessions(t *testing.T) {
	path, sessionID := seedJournal(t)

	out, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Sessions ===")
	assert.Contains(t, out, sessionID)
	assert.Contains(t, out, "present_result")
	assert.Contains(t, out, "2 commands, 1 events")
}

func TestTraceCommandListsSessionsJSON(t *testing.T) {
	path, sessionID := seedJournal(t)

	out, err := executeTrace(t, &RootOptions{Format: "json"}, "--db", path)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   SessionList `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Sessions, 1)
	assert.Equal(t, sessionID, resp.Data.Sessions[0].ID)
	assert.Equal(t, 2, resp.Data.Sessions[0].Commands)
	assert.Equal(t, 1, resp.Data.Sessions[0].Events)
}

func TestTraceCommandSessionTimeline(t *testing.T) {
	path, sessionID := seedJournal(t)

	out, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", path, "--session", sessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Session: "+sessionID)
	assert.Contains(t, out, "CMD dispatch present scene=s1 code=-1")
	assert.Contains(t, out, "CMD dispatch pop scene=s1\n")
	assert.Contains(t, out, "EVT navigationEvent scene=s2 code=-1")
	assert.Contains(t, out, "Total Entries: 3")
	assert.NotContains(t, out, "Payload:")
}

func TestTraceCommandVerboseShowsPayload(t *testing.T) {
	path, sessionID := seedJournal(t)

	out, err := executeTrace(t, &RootOptions{Format: "text", Verbose: true}, "--db", path, "--session", sessionID)
	require.NoError(t, err)
	assert.Contains(t, out, `Payload: {"action":"present","params":{"moduleName":"Picker","requestCode":-1},"sceneId":"s1"}`)
}

func TestTraceCommandFiltersByCode(t *testing.T) {
	path, sessionID := seedJournal(t)

	out, err := executeTrace(t, &RootOptions{Format: "json"}, "--db", path, "--session", sessionID, "--code", "-1")
	require.NoError(t, err)

	var resp struct {
		Data TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Data.Code)
	assert.Equal(t, -1, *resp.Data.Code)
	require.Len(t, resp.Data.Timeline, 2)
	assert.Equal(t, journal.KindCommand, resp.Data.Timeline[0].Kind)
	assert.Equal(t, journal.KindEvent, resp.Data.Timeline[1].Kind)
	assert.Equal(t, TraceStats{TotalEntries: 2, Commands: 1, Events: 1}, resp.Data.Stats)
}

func TestTraceCommandCodeNeedsSession(t *testing.T) {
	path, _ := seedJournal(t)

	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", path, "--code", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceCommandUnknownSession(t *testing.T) {
	path, _ := seedJournal(t)

	out, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", path, "--session", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "(no entries)")
}

func TestTimelineStats(t *testing.T) {
	stats := timelineStats([]journal.Entry{
		{Kind: journal.KindCommand},
		{Kind: journal.KindEvent},
		{Kind: journal.KindCommand},
	})
	assert.Equal(t, TraceStats{TotalEntries: 3, Commands: 2, Events: 1}, stats)
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "00000000...00000001", truncateID("00000000-0000-7000-8000-000000000001"))
}
