package thread

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists threads to SQLite.
// It is suitable for single-process production use.
//
// Each snapshot is stored with its BLAKE3 digest; a Save whose bytes match
// the stored digest is skipped.
type SQLiteStore struct {
	db         *sql.DB
	mu         sync.RWMutex
	closed     bool
	maxRecords int
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteMaxRecords caps the records kept per thread.
func WithSQLiteMaxRecords(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		s.maxRecords = n
	}
}

// NewSQLiteStore creates a new SQLite thread store.
// The path should be a file path (e.g., "./threads.db") or ":memory:" for testing.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			digest BLOB NOT NULL,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create threads table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS turn_records (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			data BLOB NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_turn_records_thread
		ON turn_records(thread_id, id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	s := &SQLiteStore{db: db, maxRecords: DefaultMaxRecords}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, threadID string) (*turn.State, error) {
	data, err := s.LoadRaw(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return turn.Unmarshal(data)
}

// LoadRaw returns the stored bytes for a thread.
func (s *SQLiteStore) LoadRaw(ctx context.Context, threadID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM threads WHERE thread_id = ?
	`, threadID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return data, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, threadID string, state *turn.State) error {
	data, err := turn.Marshal(state)
	if err != nil {
		return err
	}
	digest := blake3.Sum256(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	var stored []byte
	err = s.db.QueryRowContext(ctx, `SELECT digest FROM threads WHERE thread_id = ?`, threadID).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read digest: %w", err)
	}
	if bytes.Equal(stored, digest[:]) {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (thread_id, digest, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			digest = excluded.digest,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, threadID, digest[:], data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save thread: %w", err)
	}
	return nil
}

// AppendRecord implements Store.
func (s *SQLiteStore) AppendRecord(ctx context.Context, threadID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turn_records (id, thread_id, timestamp, data) VALUES (?, ?, ?, ?)
	`, rec.ID, threadID, rec.Timestamp.UTC().Format(time.RFC3339Nano), data); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	if s.maxRecords > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM turn_records
			WHERE thread_id = ? AND id NOT IN (
				SELECT id FROM turn_records WHERE thread_id = ? ORDER BY id DESC LIMIT ?
			)
		`, threadID, threadID, s.maxRecords); err != nil {
			return fmt.Errorf("cap records: %w", err)
		}
	}

	return tx.Commit()
}

// Records implements Store.
func (s *SQLiteStore) Records(ctx context.Context, threadID string, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM turn_records
		WHERE thread_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	// Newest first from the query; callers get chronological order.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
