package logger

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
)

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger,
	}
}

// New builds the process logger: text output for dev, JSON for prod.
func New(w io.Writer, env string, version string, debug bool) (*SlogLogger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler

	switch env {
	case "dev":
		handler = slog.NewTextHandler(w, opts)
	case "prod":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("environment can only be dev or prod")
	}

	baseLogger := slog.New(handler).With(
		slog.String("app", "bookshelf"),
		slog.String("runtime", runtime.Version()),
		slog.String("os", runtime.GOOS),
		slog.String("architecture", runtime.GOARCH),
		slog.String("version", version),
	)

	return NewSlogLogger(baseLogger), nil
}

// Discard drops everything. Used where no logger is wired.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Slog() *slog.Logger {
	return l.logger
}
