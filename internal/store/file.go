package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// resultExt is the file extension of persisted results.
const resultExt = ".json"

// Compile-time interface satisfaction check.
var _ ResultStore = (*FileStore)(nil)

// FileStore keeps one JSON file per job under a results directory.
//
// Results are written to a uniquely named temporary file in the same
// directory and then hard-linked to their final name. Linking fails when the
// target already exists, so each result is published exactly once and readers
// never see a partially written file.
type FileStore struct {
	dir string
}

// NewFileStore creates the results directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file that holds (or will hold) the result for jobID.
func (s *FileStore) Path(jobID string) string {
	return filepath.Join(s.dir, jobID+resultExt)
}

// Write persists data for jobID.
func (s *FileStore) Write(_ context.Context, jobID string, data []byte) error {
	if err := checkKey(jobID); err != nil {
		return err
	}

	final := s.Path(jobID)
	if _, err := os.Stat(final); err == nil {
		return ErrAlreadyWritten
	}

	tmpName := filepath.Join(s.dir, "."+jobID+"."+ulid.Make().String()+".tmp")
	tmp, err := os.OpenFile(tmpName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp result: %w", err)
	}
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp result: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp result: %w", err)
	}

	if err := os.Link(tmpName, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyWritten
		}
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Read returns the result for jobID, or ErrNotFound if none was written.
func (s *FileStore) Read(_ context.Context, jobID string) ([]byte, error) {
	if err := checkKey(jobID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(jobID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	return data, nil
}

// LastSeq scans the results directory for the highest job sequence number.
func (s *FileStore) LastSeq(_ context.Context) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list results: %w", err)
	}

	var last int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, resultExt) {
			continue
		}
		last = maxSeq(last, strings.TrimSuffix(name, resultExt))
	}
	return last, nil
}

// Close is a no-op; FileStore holds no open handles.
func (s *FileStore) Close() error {
	return nil
}
