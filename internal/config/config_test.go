package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navbridge/internal/bridge"
)

func TestParse_EmptyYieldsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Nil(t, cfg.BuildInterceptor())
}

func TestParse_FullFile(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  level: debug
  format: json
journal:
  path: /var/lib/navbridge/journal.db
interceptor:
  block:
    - action: present
      to: Paywall
    - action: switchTab
      from: 0
      to: 3
host:
  command: ["./host", "--stdio"]
`))
	require.NoError(t, err)

	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, "/var/lib/navbridge/journal.db", cfg.Journal.Path)
	assert.Equal(t, []BlockRule{
		{Action: "present", To: "Paywall"},
		{Action: "switchTab", From: "0", To: "3"},
	}, cfg.Interceptor.Block)
	assert.Equal(t, []string{"./host", "--stdio"}, cfg.Host.Command)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("log:\n  level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	_, err := Parse([]byte("logging:\n  level: debug\n"))
	require.Error(t, err)

	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, ErrCodeDecode, errs[0].Code)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad format", "log:\n  format: xml\n", "log.format"},
		{"empty journal path", "journal:\n  path: \"\"\n", "journal.path"},
		{"unknown action", "interceptor:\n  block:\n    - action: teleport\n", "interceptor.block.0.action"},
		{"empty host command", "host:\n  command: []\n", "host.command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var errs Errors
			require.ErrorAs(t, err, &errs)
			require.NotEmpty(t, errs)
			assert.Equal(t, ErrCodeSchema, errs[0].Code)

			fields := make([]string, len(errs))
			for i, e := range errs {
				fields[i] = e.Field
			}
			assert.Contains(t, strings.Join(fields, " "), tt.field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	var errs Errors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, ErrCodeRead, errs[0].Code)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  path: j.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "j.db", cfg.Journal.Path)
}

func TestLogger_HonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger := cfg.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "scene_id", "s1")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"scene_id":"s1"`)
}

func TestBuildInterceptor_MatchesRules(t *testing.T) {
	cfg := &Config{Interceptor: InterceptorConfig{Block: []BlockRule{
		{Action: "present", To: "Paywall"},
		{Action: "switchTab", From: "0", To: "3"},
		{Action: "pop"},
	}}}
	icpt := cfg.BuildInterceptor()
	require.NotNil(t, icpt)

	tests := []struct {
		action string
		info   bridge.InterceptInfo
		want   bool
	}{
		{"present", bridge.InterceptInfo{To: "Paywall"}, true},
		{"present", bridge.InterceptInfo{To: "Settings"}, false},
		{"push", bridge.InterceptInfo{To: "Paywall"}, false},
		{"switchTab", bridge.InterceptInfo{From: 0, To: 3}, true},
		{"switchTab", bridge.InterceptInfo{From: 1, To: 3}, false},
		{"pop", bridge.InterceptInfo{SceneID: "any"}, true},
		{"present", bridge.InterceptInfo{}, false},
	}
	for _, tt := range tests {
		got, err := icpt(t.Context(), tt.action, tt.info)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %+v", tt.action, tt.info)
	}
}
