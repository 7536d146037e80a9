package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/navbridge/internal/channel"
	"github.com/roach88/navbridge/internal/harness"
	"github.com/roach88/navbridge/internal/journal"
)

// hostShutdownGrace is how long a host may take to exit after interrupt.
const hostShutdownGrace = 3 * time.Second

// HostConn is a started host process.
type HostConn struct {
	Stdout io.Reader      // host to bridge
	Stdin  io.WriteCloser // bridge to host
	Stop   func() error   // interrupts the host and waits for it
}

// HostConnector starts the host described by argv.
type HostConnector func(ctx context.Context, argv []string, stderr io.Writer) (*HostConn, error)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Host     string
	Timeout  time.Duration

	// Connect overrides how the host is started (for testing).
	// If nil, argv is spawned as a child process.
	Connect HostConnector
}

// RunResult is the outcome of a live run.
type RunResult struct {
	Scenario string   `json:"scenario"`
	Session  string   `json:"session,omitempty"`
	Pass     bool     `json:"pass"`
	Errors   []string `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario against a live host",
		Long: `Spawn the host process, speak the bridge protocol over its stdio
and execute the scenario's call and expect steps against it.

The host command comes from --host or host.command in the config file.
Every command and event is journaled to the database given by --db (or
journal.path), one session per run. Emit steps and reply rules are
skipped; the host produces its own events and answers.

Example:
  navbridge run --db ./navbridge.db --host "./demo-host --stdio" ./scenarios/present.yaml
  navbridge run --config ./navbridge.yaml ./scenarios/present.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (defaults to journal.path)")
	cmd.Flags().StringVar(&opts.Host, "host", "", "host command line (defaults to host.command)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", harness.DefaultLiveTimeout, "per-step timeout")

	return cmd
}

func runLive(opts *RunOptions, scenarioFile string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	scenario.Intercept = slices.Concat(cfg.Interceptor.Block, scenario.Intercept)

	argv := cfg.Host.Command
	if opts.Host != "" {
		argv = strings.Fields(opts.Host)
	}
	if len(argv) == 0 {
		return NewExitError(ExitCommandError, "no host command: pass --host or set host.command")
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Journal.Path
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runOpts := []harness.Option{harness.WithLogger(logger), harness.WithTimeout(opts.Timeout)}
	var session *journal.Session
	if dbPath != "" {
		logger.Info("opening journal", "path", dbPath)
		j, err := journal.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		session, err = j.StartSession(ctx, scenario.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start session", err)
		}
		runOpts = append(runOpts, harness.WithRecorder(session))
	}

	connect := opts.Connect
	if connect == nil {
		connect = spawnHost
	}
	logger.Info("starting host", "command", strings.Join(argv, " "))
	host, err := connect(ctx, argv, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start host", err)
	}

	pipe := channel.NewPipe(host.Stdout, host.Stdin, host.Stdin, channel.WithPipeLogger(logger))
	pipe.Start(ctx)

	result, runErr := harness.RunLive(ctx, scenario, pipe, runOpts...)

	if err := pipe.Close(); err != nil {
		logger.Debug("closing host stdin", "error", err)
	}
	if err := host.Stop(); err != nil {
		logger.Debug("host exited", "error", err)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "scenario run failed", runErr)
	}

	out := RunResult{Scenario: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	if session != nil {
		out.Session = session.ID()
	}
	return outputRunResult(cmd, opts.Format, out)
}

// spawnHost runs argv as a child process wired to the bridge over stdio.
func spawnHost(ctx context.Context, argv []string, stderr io.Writer) (*HostConn, error) {
	hostCtx, stop := context.WithCancel(ctx)

	c := exec.CommandContext(hostCtx, argv[0], argv[1:]...)
	c.Stderr = stderr
	c.Cancel = func() error { return c.Process.Signal(os.Interrupt) }
	c.WaitDelay = hostShutdownGrace

	stdin, err := c.StdinPipe()
	if err != nil {
		stop()
		return nil, err
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		stop()
		return nil, err
	}
	if err := c.Start(); err != nil {
		stop()
		return nil, err
	}

	return &HostConn{
		Stdout: stdout,
		Stdin:  stdin,
		Stop: func() error {
			stop()
			return c.Wait()
		},
	}, nil
}

func outputRunResult(cmd *cobra.Command, format string, result RunResult) error {
	w := cmd.OutOrStdout()
	var failed *CLIError
	if !result.Pass {
		failed = failure(ErrCodeRunFailed, "scenario %s failed", result.Scenario)
	}

	if format == "json" {
		if err := writeResponse(w, Respond(result, failed).WithSession(result.Session)); err != nil {
			return err
		}
	} else {
		markLine(w, result.Pass, result.Scenario, result.Errors...)
		if result.Session != "" {
			fmt.Fprintf(w, "Session: %s\n", result.Session)
		}
	}

	if failed != nil {
		return NewExitError(ExitFailure, failed.Message)
	}
	return nil
}
