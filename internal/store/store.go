// Package store persists serialized job results keyed by job identifier.
package store

import (
	"context"
	"errors"
	"regexp"

	"github.com/seantiz/surveyd/internal/model"
)

var (
	// ErrNotFound is returned when no result has been written for a job yet.
	ErrNotFound = errors.New("result not found")

	// ErrAlreadyWritten is returned when a result already exists for a job.
	// The stored result is left untouched.
	ErrAlreadyWritten = errors.New("result already written")

	// ErrInvalidKey is returned for job identifiers that cannot be mapped
	// safely onto a storage key.
	ErrInvalidKey = errors.New("invalid job id")
)

// ResultStore defines the persistence operations for job results. Each job
// identifier maps onto exactly one record, written at most once.
type ResultStore interface {
	Write(ctx context.Context, jobID string, data []byte) error
	Read(ctx context.Context, jobID string) ([]byte, error)

	// LastSeq returns the highest job sequence number among persisted
	// results, or zero when there are none.
	LastSeq(ctx context.Context) (int64, error)

	Close() error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func checkKey(jobID string) error {
	if !validKey.MatchString(jobID) {
		return ErrInvalidKey
	}
	return nil
}

// maxSeq folds a job identifier into the running maximum sequence number.
// Identifiers that do not follow the job_id_<n> format are ignored.
func maxSeq(cur int64, jobID string) int64 {
	if n, ok := model.ParseJobID(jobID); ok && n > cur {
		return n
	}
	return cur
}
