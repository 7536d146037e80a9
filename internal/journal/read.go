package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// EntryKind tells commands from events in a merged timeline.
type EntryKind string

const (
	KindCommand EntryKind = "command"
	KindEvent   EntryKind = "event"
)

// Entry is one journal record.
//
// For commands Name is the host method and Action the dispatch action (if
// any); for events Name is the event name. Payload is canonical JSON.
type Entry struct {
	Kind        EntryKind `json:"kind"`
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	SceneID     string    `json:"scene_id,omitempty"`
	Name        string    `json:"name"`
	Action      string    `json:"action,omitempty"`
	RequestCode *int      `json:"request_code,omitempty"`
	Payload     string    `json:"payload"`
}

// SessionInfo summarizes one session.
type SessionInfo struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	StartedSeq int64  `json:"started_seq"`
	Commands   int    `json:"commands"`
	Events     int    `json:"events"`
}

const timelineSQL = `
	SELECT kind, id, seq, scene_id, name, action, request_code, payload FROM (
		SELECT 'command' AS kind, id, session_id, seq, scene_id, method AS name, action, request_code, args AS payload
		FROM commands
		UNION ALL
		SELECT 'event' AS kind, id, session_id, seq, scene_id, name, '' AS action, request_code, payload
		FROM events
	)
	WHERE session_id = ?`

// ReadSession returns the session's commands and events interleaved.
// Ordered by seq ASC, id ASC COLLATE BINARY. Returns an empty slice (not
// nil) for an unknown session.
func (j *Journal) ReadSession(ctx context.Context, sessionID string) ([]Entry, error) {
	return j.readTimeline(ctx, timelineSQL+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
}

// ReadRequestCode returns the records of one session that carry code,
// which pairs a present/setRoot command with the event answering it.
func (j *Journal) ReadRequestCode(ctx context.Context, sessionID string, code int) ([]Entry, error) {
	return j.readTimeline(ctx, timelineSQL+`
		AND request_code = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID, code)
}

func (j *Journal) readTimeline(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query timeline: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e    Entry
			kind string
			code sql.NullInt64
		)
		if err := rows.Scan(&kind, &e.ID, &e.Seq, &e.SceneID, &e.Name, &e.Action, &code, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan timeline: %w", err)
		}
		e.Kind = EntryKind(kind)
		if code.Valid {
			c := int(code.Int64)
			e.RequestCode = &c
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline: %w", err)
	}
	return entries, nil
}

// ListSessions returns every session, oldest first.
func (j *Journal) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT s.id, s.label, s.started_seq,
			(SELECT COUNT(*) FROM commands c WHERE c.session_id = s.id),
			(SELECT COUNT(*) FROM events e WHERE e.session_id = s.id)
		FROM sessions s
		ORDER BY s.started_seq ASC, s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Label, &info.StartedSeq, &info.Commands, &info.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
