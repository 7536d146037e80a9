package journal

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema
// 1 - request_code indexes for correlation lookups
const currentSchemaVersion = 1

// IDGenerator produces record ids.
type IDGenerator interface {
	NewID() string
}

// Sequencer stamps records with a logical time.
type Sequencer interface {
	Next() int64
}

// UUIDv7 generates time-ordered UUIDs.
type UUIDv7 struct{}

// NewID implements IDGenerator.
func (UUIDv7) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Journal is a SQLite append-only log of bridge commands and host events.
type Journal struct {
	db    *sql.DB
	ids   IDGenerator
	clock Sequencer
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDs replaces the id generator. Tests use a sequential one.
func WithIDs(g IDGenerator) Option {
	return func(j *Journal) {
		j.ids = g
	}
}

// WithClock replaces the sequencer. By default the clock resumes after the
// highest seq already stored.
func WithClock(c Sequencer) Option {
	return func(j *Journal) {
		j.clock = c
	}
}

// Open creates or opens the journal at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	j := &Journal{db: db, ids: UUIDv7{}}
	for _, opt := range opts {
		opt(j)
	}
	if j.clock == nil {
		last, err := lastSeq(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		j.clock = NewClockAt(last)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables and runs migrations. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_commands_request_code
		ON commands(session_id, request_code) WHERE request_code IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_events_request_code
		ON events(session_id, request_code) WHERE request_code IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// lastSeq returns the highest seq stored anywhere in the journal.
func lastSeq(db *sql.DB) (int64, error) {
	var last int64
	err := db.QueryRow(`
		SELECT MAX(m) FROM (
			SELECT COALESCE(MAX(started_seq), 0) AS m FROM sessions
			UNION ALL SELECT COALESCE(MAX(seq), 0) FROM commands
			UNION ALL SELECT COALESCE(MAX(seq), 0) FROM events
		)
	`).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return last, nil
}
