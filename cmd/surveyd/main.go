package main

import (
	"context"
	"log"
	"os"

	"github.com/seantiz/surveyd/internal/api"
	"github.com/seantiz/surveyd/internal/config"
	"github.com/seantiz/surveyd/internal/engine"
	"github.com/seantiz/surveyd/internal/store"
	"github.com/seantiz/surveyd/internal/survey"
)

func main() {
	cfg := config.Load()
	out, closeLog := cfg.LogOutput(os.Stdout)
	defer closeLog()
	logger := config.NewLogger(out, cfg.LogLevel)

	logger.Info("surveyd: starting",
		"listen_addr", cfg.ListenAddr,
		"csv_path", cfg.CSVPath,
		"result_backend", cfg.ResultBackend,
		"workers", cfg.Workers,
	)

	ds, err := survey.Load(cfg.CSVPath)
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	logger.Info("dataset loaded", "rows", ds.Rows(), "questions", len(ds.Questions()))

	ctx := context.Background()
	results, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open result store: %v", err)
	}
	defer results.Close()

	last, err := results.LastSeq(ctx)
	if err != nil {
		log.Fatalf("failed to scan result store: %v", err)
	}

	d := engine.New(results, ds, logger,
		engine.WithWorkers(cfg.Workers),
		engine.WithFirstSeq(last+1),
	)
	srv := api.NewServer(cfg.ListenAddr, d, logger,
		api.WithSubmitLimit(cfg.SubmitRate, cfg.SubmitBurst),
	)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
