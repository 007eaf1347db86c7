// testserver starts a surveyd API server over a fixture dataset for E2E testing.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/seantiz/surveyd/internal/api"
	"github.com/seantiz/surveyd/internal/config"
	"github.com/seantiz/surveyd/internal/engine"
	"github.com/seantiz/surveyd/internal/model"
	"github.com/seantiz/surveyd/internal/store"
	"github.com/seantiz/surveyd/internal/survey"
)

// delayedAnswerer sleeps before answering so tests can observe running jobs.
type delayedAnswerer struct {
	next  engine.Answerer
	delay time.Duration
}

func (a delayedAnswerer) Answer(ctx context.Context, queryType string, payload model.Payload) (*model.Result, error) {
	time.Sleep(a.delay)
	return a.next.Answer(ctx, queryType, payload)
}

func main() {
	addr := ":8080"
	if v := os.Getenv("SURVEYD_LISTEN_ADDR"); v != "" {
		addr = v
	}
	csvPath := "internal/survey/testdata/survey.csv"
	if v := os.Getenv("SURVEYD_CSV_PATH"); v != "" {
		csvPath = v
	}
	var delay time.Duration
	if v := os.Getenv("SURVEYD_TEST_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid SURVEYD_TEST_DELAY_MS: %v", err)
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	logger := config.NewLogger(os.Stdout, slog.LevelInfo)

	ds, err := survey.Load(csvPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}

	results, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open result store: %v", err)
	}
	defer results.Close()

	d := engine.New(results, delayedAnswerer{next: ds, delay: delay}, logger, engine.WithWorkers(2))
	srv := api.NewServer(addr, d, logger)

	logger.Info("testserver: starting", "addr", addr, "delay", delay)
	if err := srv.Run(context.Background()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
