package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const createResultsTable = `
CREATE TABLE IF NOT EXISTS results (
    job_id     TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    created_at DATETIME NOT NULL
)`

// Compile-time interface satisfaction check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createResultsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Write inserts the result for jobID. An existing row is never replaced.
func (s *SQLiteStore) Write(ctx context.Context, jobID string, data []byte) error {
	if err := checkKey(jobID); err != nil {
		return err
	}

	if data == nil {
		data = []byte{}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO results (job_id, data, created_at) VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO NOTHING`,
		jobID, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyWritten
	}
	return nil
}

// Read retrieves the result for jobID.
func (s *SQLiteStore) Read(ctx context.Context, jobID string) ([]byte, error) {
	if err := checkKey(jobID); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM results WHERE job_id = ?", jobID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return data, nil
}

// LastSeq returns the highest job sequence number among stored results.
func (s *SQLiteStore) LastSeq(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT job_id FROM results")
	if err != nil {
		return 0, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var last int64
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan result id: %w", err)
		}
		last = maxSeq(last, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate results: %w", err)
	}
	return last, nil
}

// Count returns the number of persisted results.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}
