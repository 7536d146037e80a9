package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/navbridge/internal/bridge"
	"github.com/roach88/navbridge/internal/wire"
)

// Session groups the records of one bridge run. It implements
// bridge.Recorder.
type Session struct {
	journal *Journal
	id      string
}

var _ bridge.Recorder = (*Session)(nil)

// StartSession opens a new session labelled label.
func (j *Journal) StartSession(ctx context.Context, label string) (*Session, error) {
	id := j.ids.NewID()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, started_seq)
		VALUES (?, ?, ?)
	`, id, label, j.clock.Next())
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &Session{journal: j, id: id}, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// RecordCommand appends an outgoing host call.
// Args are stored as canonical JSON.
func (s *Session) RecordCommand(ctx context.Context, c bridge.CommandRecord) error {
	args, err := wire.MarshalCanonical(c.Args)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}

	_, err = s.journal.db.ExecContext(ctx, `
		INSERT INTO commands
		(id, session_id, seq, scene_id, method, action, request_code, args)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.journal.ids.NewID(),
		s.id,
		s.journal.clock.Next(),
		c.SceneID,
		c.Method,
		c.Action,
		nullableCode(c.RequestCode, c.RequestCode != 0),
		string(args),
	)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// RecordEvent appends a host event. The body is stored as canonical JSON;
// scene id and request code are lifted into columns when present.
func (s *Session) RecordEvent(ctx context.Context, ev wire.Event) error {
	payload, err := wire.MarshalCanonical(ev.Body)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	code, hasCode := ev.Int(wire.KeyRequestCode)
	if !hasCode {
		code, hasCode = ev.Int(wire.KeyTag)
	}

	_, err = s.journal.db.ExecContext(ctx, `
		INSERT INTO events
		(id, session_id, seq, name, scene_id, request_code, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		s.journal.ids.NewID(),
		s.id,
		s.journal.clock.Next(),
		ev.Name,
		ev.String(wire.KeySceneID),
		nullableCode(code, hasCode),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func nullableCode(code int, valid bool) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(code), Valid: valid}
}
