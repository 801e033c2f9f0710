package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	user_input TEXT NOT NULL,
	ai_response TEXT NOT NULL,
	processing_time REAL NOT NULL,
	created_at REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS conversations_created_at ON conversations(created_at);
`

// SQLiteStore keeps records in a local SQLite file.
type SQLiteStore struct {
	db *sqlx.DB
}

// row is a Record as stored; created_at is fractional unix seconds.
type row struct {
	ID               string  `db:"id"`
	UserInput        string  `db:"user_input"`
	AIResponse       string  `db:"ai_response"`
	ProcessingTimeMs float64 `db:"processing_time"`
	CreatedAt        float64 `db:"created_at"`
}

// OpenSQLite opens or creates the database at path. ":memory:" is accepted.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, wrap("open database", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, wrap("ping database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wrap("create schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts rec. A missing id or timestamp is filled in.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		fresh := NewRecord(rec.UserInput, rec.AIResponse, rec.ProcessingTimeMs)
		if rec.ID == "" {
			rec.ID = fresh.ID
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = fresh.CreatedAt
		}
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO conversations (id, user_input, ai_response, processing_time, created_at)
		VALUES (:id, :user_input, :ai_response, :processing_time, :created_at)
	`, row{
		ID:               rec.ID,
		UserInput:        rec.UserInput,
		AIResponse:       rec.AIResponse,
		ProcessingTimeMs: rec.ProcessingTimeMs,
		CreatedAt:        unixSeconds(rec.CreatedAt),
	})
	if err != nil {
		return wrap("insert conversation", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_input, ai_response, processing_time, created_at
		FROM conversations
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrap("query conversations", err)
	}

	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record{
			ID:               r.ID,
			UserInput:        r.UserInput,
			AIResponse:       r.AIResponse,
			ProcessingTimeMs: r.ProcessingTimeMs,
			CreatedAt:        timeFromUnix(r.CreatedAt),
		}
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

var (
	_ Sink   = (*SQLiteStore)(nil)
	_ Reader = (*SQLiteStore)(nil)
)
