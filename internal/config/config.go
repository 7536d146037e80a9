// Package config loads navbridge configuration from YAML.
//
// A file is decoded strictly (unknown keys are errors), checked against an
// embedded CUE schema, and completed with defaults. Every section is
// optional; an empty file yields Default().
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (E200-E299)
const (
	ErrCodeRead   = "E201" // file could not be read
	ErrCodeDecode = "E202" // malformed YAML or unknown key
	ErrCodeSchema = "E203" // value rejected by the schema
)

// ValidationError describes one problem with a configuration file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Errors is the full list of problems found in a file.
type Errors []ValidationError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Config is the navbridge configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" json:"log"`
	Journal     JournalConfig     `yaml:"journal" json:"journal"`
	Interceptor InterceptorConfig `yaml:"interceptor" json:"interceptor"`
	Host        HostConfig        `yaml:"host" json:"host"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// JournalConfig locates the SQLite journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path" json:"path,omitempty"`
}

// InterceptorConfig lists commands the bridge must swallow.
type InterceptorConfig struct {
	Block []BlockRule `yaml:"block" json:"block,omitempty"`
}

// BlockRule matches a command by action and, optionally, its from/to.
// Empty From or To match anything.
type BlockRule struct {
	Action string `yaml:"action" json:"action"`
	From   string `yaml:"from,omitempty" json:"from,omitempty"`
	To     string `yaml:"to,omitempty" json:"to,omitempty"`
}

// HostConfig describes the host process for live runs.
type HostConfig struct {
	Command []string `yaml:"command" json:"command,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Errors{{Code: ErrCodeRead, Message: err.Error()}}
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, Errors{{Code: ErrCodeDecode, Message: err.Error()}}
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, Errors{{Code: ErrCodeDecode, Message: err.Error()}}
	}
	if errs := checkSchema(generic); len(errs) > 0 {
		return nil, errs
	}
	return cfg, nil
}

// checkSchema unifies doc with #Config and reports every violation.
func checkSchema(doc map[string]any) Errors {
	if doc == nil {
		doc = map[string]any{}
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Errors{{Code: ErrCodeSchema, Message: fmt.Sprintf("compile schema: %v", err)}}
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(doc))
	err := v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var errs Errors
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		errs = append(errs, ValidationError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrCodeSchema,
		})
	}
	return errs
}

// Level returns the slog level named by Log.Level.
func (c *Config) Level() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the structured logger described by Log, writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
