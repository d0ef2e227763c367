// Package logging provides structured logging for axonspread using log/slog.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level represents a log level.
type Level int

const (
	// LevelDebug is for numeric diagnostics (eigenvalues, intensity loss, shapes).
	LevelDebug Level = iota
	// LevelInfo is for pipeline progress.
	LevelInfo
	// LevelWarn is for suspicious but accepted input.
	LevelWarn
	// LevelError is for failures.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatText outputs logs in human-readable text format.
	FormatText Format = iota
	// FormatJSON outputs logs in JSON format.
	FormatJSON
)

// ParseFormat converts "text" or "json" to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", s)
	}
}

var defaultLogger *slog.Logger

func init() {
	Init(LevelInfo, FormatText, os.Stderr)
}

// Init replaces the global logger.
func Init(level Level, format Format, w io.Writer) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Setup configures logging for the CLI. Output goes to stderr and, when
// logFile is non-empty, is duplicated to that file (appended). The returned
// function closes the file and must be called on exit.
func Setup(verbose bool, format string, logFile string) (func() error, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	level := LevelInfo
	if verbose {
		level = LevelDebug
	}

	if logFile == "" {
		Init(level, f, os.Stderr)
		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	Init(level, f, io.MultiWriter(os.Stderr, file))
	return file.Close, nil
}

// Logger returns the global logger instance.
func Logger() *slog.Logger {
	return defaultLogger
}

// OrDefault returns l, or the global logger when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return defaultLogger
	}
	return l
}

// Discard returns a logger that drops everything. Useful in tests and benchmarks.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
