package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// SQLiteStore is a Store backed by a local SQLite database. It is the
// default durability layer: single-user, single-host, no network.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the knowledge database.
// It resolves to ~/.draftforge/knowledge.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("knowledge: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".draftforge")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("knowledge: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "knowledge.db"), nil
}

// OpenSQLite opens (or creates) a SQLiteStore at the given path and runs
// the schema migration. Use ":memory:" for an in-memory database in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, persistErr("open", err)
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

// migrate creates the schema if it does not already exist. Secondary
// indexes cover the two scan patterns: candidate pools by vendor and
// purges by document.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id          TEXT    PRIMARY KEY,
    name        TEXT    NOT NULL,
    mime        TEXT    NOT NULL,
    content     TEXT    NOT NULL,
    active      INTEGER NOT NULL,
    mode        TEXT    NOT NULL CHECK(mode IN ('context','rag')),
    indexed     INTEGER NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS chunk_records (
    chunk_id     TEXT    NOT NULL,
    vendor       TEXT    NOT NULL,
    document_id  TEXT    NOT NULL,
    ordinal      INTEGER NOT NULL,
    content      TEXT    NOT NULL,
    vector       BLOB    NOT NULL,
    PRIMARY KEY (chunk_id, vendor)
);
CREATE INDEX IF NOT EXISTS idx_chunk_records_vendor
    ON chunk_records (vendor);
CREATE INDEX IF NOT EXISTS idx_chunk_records_document
    ON chunk_records (document_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return persistErr("migrate", err)
	}
	return nil
}

// Put upserts a batch of records inside a single transaction so concurrent
// readers never observe a partially written batch.
func (s *SQLiteStore) Put(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("put begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const q = `
INSERT INTO chunk_records (chunk_id, vendor, document_id, ordinal, content, vector)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (chunk_id, vendor) DO UPDATE SET
    document_id = excluded.document_id,
    ordinal     = excluded.ordinal,
    content     = excluded.content,
    vector      = excluded.vector`

	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return persistErr("put prepare", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		c := rec.Chunk
		if _, err := stmt.ExecContext(ctx, c.ID, string(rec.Vendor), c.DocumentID, c.Ordinal, c.Text, encodeVector(rec.Vector)); err != nil {
			return persistErr("put exec", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("put commit", err)
	}
	return nil
}

// QueryByVendor returns every record tagged with the given vendor.
func (s *SQLiteStore) QueryByVendor(ctx context.Context, vendor Vendor) ([]Record, error) {
	const q = `
SELECT chunk_id, document_id, ordinal, content, vector
FROM   chunk_records
WHERE  vendor = ?
ORDER  BY document_id, ordinal`

	rows, err := s.db.QueryContext(ctx, q, string(vendor))
	if err != nil {
		return nil, persistErr("query by vendor", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec := Record{Vendor: vendor}
		var blob []byte
		if err := rows.Scan(&rec.Chunk.ID, &rec.Chunk.DocumentID, &rec.Chunk.Ordinal, &rec.Chunk.Text, &blob); err != nil {
			return nil, persistErr("query scan", err)
		}
		rec.Vector = decodeVector(blob)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("query rows", err)
	}
	return records, nil
}

// DeleteByDocument removes every record belonging to the document, across
// all vendors. A document with zero stored records is a no-op.
func (s *SQLiteStore) DeleteByDocument(ctx context.Context, documentID string) error {
	const q = `DELETE FROM chunk_records WHERE document_id = ?`
	if _, err := s.db.ExecContext(ctx, q, documentID); err != nil {
		return persistErr("delete by document", err)
	}
	return nil
}

// SaveDocument inserts or fully replaces a document by ID.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO documents (id, name, mime, content, active, mode, indexed, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name    = excluded.name,
    mime    = excluded.mime,
    content = excluded.content,
    active  = excluded.active,
    mode    = excluded.mode,
    indexed = excluded.indexed`

	_, err := s.db.ExecContext(ctx, q,
		doc.ID, doc.Name, doc.MIME, doc.Text,
		boolInt(doc.Active), string(doc.Mode), boolInt(doc.Indexed), doc.CreatedAt.Unix())
	if err != nil {
		return persistErr("save document", err)
	}
	return nil
}

// GetDocument returns the document with the given ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (Document, error) {
	const q = `
SELECT id, name, mime, content, active, mode, indexed, created_at
FROM   documents WHERE id = ?`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, persistErr("get document", err)
	}
	return doc, nil
}

// ListDocuments returns all registered documents, oldest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]Document, error) {
	const q = `
SELECT id, name, mime, content, active, mode, indexed, created_at
FROM   documents ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, persistErr("list documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, persistErr("list scan", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list rows", err)
	}
	return docs, nil
}

// DeleteDocument removes the document registration. Idempotent.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return persistErr("delete document", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return persistErr("close", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument reads one documents row.
func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var active, indexed int
	var mode string
	var ts int64
	if err := row.Scan(&doc.ID, &doc.Name, &doc.MIME, &doc.Text, &active, &mode, &indexed, &ts); err != nil {
		return Document{}, err
	}
	doc.Active = active != 0
	doc.Indexed = indexed != 0
	doc.Mode = Mode(mode)
	doc.CreatedAt = time.Unix(ts, 0)
	return doc, nil
}

// persistErr wraps a storage failure so callers can match ErrPersistence
// while retaining the driver error in the chain.
func persistErr(op string, err error) error {
	return fmt.Errorf("knowledge: %s: %w: %w", op, ErrPersistence, err)
}

// boolInt converts a bool to the 0/1 representation stored in SQLite.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeVector serialises an embedding as little-endian float32 bits.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Trailing bytes that do not
// form a whole float32 are ignored.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

// compile-time interface checks
var (
	_ VectorStore   = (*SQLiteStore)(nil)
	_ DocumentStore = (*SQLiteStore)(nil)
)
