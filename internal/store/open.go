package store

import (
	"context"
	"fmt"

	"github.com/seantiz/surveyd/internal/config"
)

// Open returns the result store selected by cfg.ResultBackend.
func Open(ctx context.Context, cfg config.Config) (ResultStore, error) {
	var (
		s   ResultStore
		err error
	)
	switch cfg.ResultBackend {
	case config.BackendFile:
		s, err = NewFileStore(cfg.ResultsDir)
	case config.BackendSQLite:
		s, err = NewSQLiteStore(cfg.DBPath)
	case config.BackendRedis:
		s, err = NewRedisStore(ctx, cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown result backend %q", cfg.ResultBackend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
