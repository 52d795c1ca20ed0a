// Package history provides a SQLite-backed store for draft revisions.
// Each topic has its own revision thread: every generation or refinement
// run appends the resulting draft, and refinement runs pull the latest
// revision back as their starting point. Revisions survive restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNoDrafts means the topic has no stored revisions yet.
var ErrNoDrafts = errors.New("history: no drafts for topic")

// Revision is a single stored draft revision.
type Revision struct {
	// Topic is the thread this revision belongs to.
	Topic string
	// Text is the full draft text.
	Text string
	// Instructions is the ask that produced this revision, kept so a
	// revision list reads as a change log.
	Instructions string
	// CreatedAt is when the revision was persisted.
	CreatedAt time.Time
}

// RevisionStore persists and retrieves draft revisions keyed by topic.
// Implementations must be safe for concurrent use.
type RevisionStore interface {
	// Append persists a new revision for the topic.
	Append(ctx context.Context, rev Revision) error
	// Latest returns the most recent revision for the topic, or ErrNoDrafts.
	Latest(ctx context.Context, topic string) (Revision, error)
	// Recent returns up to n revisions for the topic, newest first.
	Recent(ctx context.Context, topic string, n int) ([]Revision, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a RevisionStore backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the draft history database.
// It resolves to ~/.draftforge/history.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("history: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".draftforge")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("history: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS revisions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    topic        TEXT    NOT NULL,
    text         TEXT    NOT NULL,
    instructions TEXT    NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_revisions_topic_created
    ON revisions (topic, created_at);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// Append persists a new revision for the topic.
func (s *SQLiteStore) Append(ctx context.Context, rev Revision) error {
	const q = `INSERT INTO revisions (topic, text, instructions, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, rev.Topic, rev.Text, rev.Instructions, time.Now().Unix()); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Latest returns the most recent revision for the topic.
func (s *SQLiteStore) Latest(ctx context.Context, topic string) (Revision, error) {
	const q = `
SELECT topic, text, instructions, created_at
FROM   revisions
WHERE  topic = ?
ORDER  BY created_at DESC, id DESC
LIMIT  1`

	var rev Revision
	var ts int64
	err := s.db.QueryRowContext(ctx, q, topic).Scan(&rev.Topic, &rev.Text, &rev.Instructions, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("history: latest %q: %w", topic, ErrNoDrafts)
	}
	if err != nil {
		return Revision{}, fmt.Errorf("history: latest: %w", err)
	}
	rev.CreatedAt = time.Unix(ts, 0)
	return rev, nil
}

// Recent returns up to n revisions for the topic, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, topic string, n int) ([]Revision, error) {
	const q = `
SELECT topic, text, instructions, created_at
FROM   revisions
WHERE  topic = ?
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, topic, n)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var rev Revision
		var ts int64
		if err := rows.Scan(&rev.Topic, &rev.Text, &rev.Instructions, &ts); err != nil {
			return nil, fmt.Errorf("history: recent scan: %w", err)
		}
		rev.CreatedAt = time.Unix(ts, 0)
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: recent rows: %w", err)
	}
	return revs, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return nil
}
