package config

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultListenAddr    = ":8080"
	defaultCSVPath       = "nutrition_activity_obesity_usa_subset.csv"
	defaultResultBackend = BackendFile
	defaultResultsDir    = "results"
	defaultDBPath        = "surveyd.db"
	defaultRedisAddr     = "localhost:6379"
	defaultSubmitBurst   = 1
	defaultLogMaxSizeMB  = 1
	defaultLogBackups    = 3

	envListenAddr    = "SURVEYD_LISTEN_ADDR"
	envCSVPath       = "SURVEYD_CSV_PATH"
	envResultBackend = "SURVEYD_RESULT_BACKEND"
	envResultsDir    = "SURVEYD_RESULTS_DIR"
	envDBPath        = "SURVEYD_DB_PATH"
	envRedisAddr     = "SURVEYD_REDIS_ADDR"
	envSubmitRate    = "SURVEYD_SUBMIT_RATE"
	envSubmitBurst   = "SURVEYD_SUBMIT_BURST"
	envLogLevel      = "SURVEYD_LOG_LEVEL"
	envLogFile       = "SURVEYD_LOG_FILE"
	envLogMaxSizeMB  = "SURVEYD_LOG_MAX_SIZE_MB"
	envLogBackups    = "SURVEYD_LOG_MAX_BACKUPS"
	envNumWorkers    = "TP_NUM_OF_THREADS"
)

// Result store backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	CSVPath       string
	ResultBackend string
	ResultsDir    string
	DBPath        string
	RedisAddr     string
	Workers       int
	SubmitRate    float64
	SubmitBurst   int
	LogLevel      slog.Level

	// LogFile, when set, receives a copy of every log line and is rotated
	// once it reaches LogMaxSizeMB, keeping LogMaxBackups old files.
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:    defaultListenAddr,
		CSVPath:       defaultCSVPath,
		ResultBackend: defaultResultBackend,
		ResultsDir:    defaultResultsDir,
		DBPath:        defaultDBPath,
		RedisAddr:     defaultRedisAddr,
		Workers:       WorkerCount(os.Getenv(envNumWorkers), runtime.NumCPU()),
		SubmitBurst:   defaultSubmitBurst,
		LogLevel:      slog.LevelInfo,
		LogMaxSizeMB:  defaultLogMaxSizeMB,
		LogMaxBackups: defaultLogBackups,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envCSVPath); v != "" {
		cfg.CSVPath = v
	}
	if v := os.Getenv(envResultBackend); v != "" {
		cfg.ResultBackend = parseBackend(v)
	}
	if v := os.Getenv(envResultsDir); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv(envSubmitRate); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.SubmitRate = f
		}
	}
	if v := os.Getenv(envSubmitBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SubmitBurst = n
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envLogFile); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv(envLogMaxSizeMB); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LogMaxSizeMB = n
		}
	}
	if v := os.Getenv(envLogBackups); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LogMaxBackups = n
		}
	}

	return cfg
}

// WorkerCount sizes the worker pool. An explicit positive override is clamped
// to ncpu; an empty or invalid override falls back to ncpu.
func WorkerCount(override string, ncpu int) int {
	if ncpu < 1 {
		ncpu = 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(override))
	if err != nil || n < 1 {
		return ncpu
	}
	return min(n, ncpu)
}

func parseBackend(s string) string {
	switch strings.ToLower(s) {
	case BackendSQLite:
		return BackendSQLite
	case BackendRedis:
		return BackendRedis
	default:
		return BackendFile
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogOutput returns the writer loggers should use: console alone, or console
// plus a rotating LogFile. The returned close function releases the file.
func (c Config) LogOutput(console io.Writer) (io.Writer, func() error) {
	if c.LogFile == "" {
		return console, func() error { return nil }
	}
	file := &lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
	}
	return io.MultiWriter(console, file), file.Close
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
