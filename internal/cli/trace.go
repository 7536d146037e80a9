package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/navbridge/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Code     int // only used when --code is given
}

// TraceResult holds the timeline of one session.
type TraceResult struct {
	Session  string          `json:"session"`
	Code     *int            `json:"request_code,omitempty"`
	Timeline []journal.Entry `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for a timeline.
type TraceStats struct {
	TotalEntries int `json:"total_entries"`
	Commands     int `json:"commands"`
	Events       int `json:"events"`
}

// SessionList is the output of trace without --session.
type SessionList struct {
	Sessions []journal.SessionInfo `json:"sessions"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled bridge traffic",
		Long: `Read the command and event journal written by "navbridge run".

Without --session, lists the recorded sessions. With --session, prints
the session's commands and events in order. --code narrows the timeline
to the records that carry one request code (or root tag).

Examples:
  navbridge trace --db ./navbridge.db
  navbridge trace --db ./navbridge.db --session 01925f...
  navbridge trace --db ./navbridge.db --session 01925f... --code -1
  navbridge trace --db ./navbridge.db --session 01925f... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show")
	cmd.Flags().IntVar(&opts.Code, "code", 0, "only records carrying this request code")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	// Opening would create an empty journal; a missing file is a usage error.
	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer j.Close()

	if opts.Session == "" {
		if cmd.Flags().Changed("code") {
			return NewExitError(ExitCommandError, "--code requires --session")
		}
		sessions, err := j.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if opts.Format == "json" {
			return outputTraceJSON(cmd, SessionList{Sessions: sessions})
		}
		outputSessionsText(cmd.OutOrStdout(), sessions)
		return nil
	}

	result := TraceResult{Session: opts.Session}
	var entries []journal.Entry
	if cmd.Flags().Changed("code") {
		code := opts.Code
		result.Code = &code
		entries, err = j.ReadRequestCode(ctx, opts.Session, code)
	} else {
		entries, err = j.ReadSession(ctx, opts.Session)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	result.Timeline = entries
	result.Stats = timelineStats(entries)

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func timelineStats(entries []journal.Entry) TraceStats {
	stats := TraceStats{TotalEntries: len(entries)}
	for _, e := range entries {
		switch e.Kind {
		case journal.KindCommand:
			stats.Commands++
		case journal.KindEvent:
			stats.Events++
		}
	}
	return stats
}

// outputTraceJSON outputs data wrapped in the standard response.
func outputTraceJSON(cmd *cobra.Command, data any) error {
	return writeResponse(cmd.OutOrStdout(), Respond(data, nil))
}

func outputSessionsText(w io.Writer, sessions []journal.SessionInfo) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return
	}
	fmt.Fprintln(w, "=== Sessions ===")
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s  %-24s %d commands, %d events\n", s.ID, s.Label, s.Commands, s.Events)
	}
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session)
	if result.Code != nil {
		fmt.Fprintf(w, "Request Code: %d\n", *result.Code)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range result.Timeline {
		formatTimelineEntry(w, e, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Entries: %d\n", result.Stats.TotalEntries)
	fmt.Fprintf(w, "  Commands:      %d\n", result.Stats.Commands)
	fmt.Fprintf(w, "  Events:        %d\n", result.Stats.Events)
}

// formatTimelineEntry formats a single journal entry for text output.
func formatTimelineEntry(w io.Writer, e journal.Entry, verbose bool) {
	label := e.Name
	if e.Action != "" {
		label += " " + e.Action
	}
	tag := "CMD"
	if e.Kind == journal.KindEvent {
		tag = "EVT"
	}

	line := fmt.Sprintf("  [%d] %s %s", e.Seq, tag, label)
	if e.SceneID != "" {
		line += " scene=" + e.SceneID
	}
	if e.RequestCode != nil {
		line += fmt.Sprintf(" code=%d", *e.RequestCode)
	}
	fmt.Fprintln(w, line)

	if verbose {
		fmt.Fprintf(w, "       Payload: %s\n", e.Payload)
		fmt.Fprintf(w, "       ID: %s\n", truncateID(e.ID))
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
