package internal

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	FilesDir          string        `env:"FILES_DIR,default=files"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	PollInterval      time.Duration `env:"POLL_INTERVAL,default=1s"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}

// Logger builds the client's slog logger from a level string; unknown
// levels fall back to info.
func Logger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
