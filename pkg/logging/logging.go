package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging port every component receives at construction.
// Success is a convenience level for end-of-run summaries; the slog
// implementation maps it to Info with a status attribute.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Success(msg string, args ...any)
}

// Config controls the production logger.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
}

// DefaultConfig returns text logging at info level, which suits the CLI.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "text",
	}
}

type slogLogger struct {
	l *slog.Logger
}

// New builds a Logger backed by log/slog writing to stderr.
func New(cfg Config) Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return &slogLogger{l: slog.New(handler)}
}

// Wrap adapts an existing slog.Logger to the Logger port.
func Wrap(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) Success(msg string, args ...any) {
	s.l.Info(msg, append([]any{"status", "success"}, args...)...)
}

// Entry is one captured log call.
type Entry struct {
	Level   string
	Message string
	Args    []any
}

// Capture records every call for test assertions. Not safe for
// concurrent use; indexer tests that need it wrap it themselves.
type Capture struct {
	Entries []Entry
}

// NewCapture returns an empty capturing logger.
func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) add(level, msg string, args []any) {
	c.Entries = append(c.Entries, Entry{Level: level, Message: msg, Args: args})
}

func (c *Capture) Debug(msg string, args ...any)   { c.add("debug", msg, args) }
func (c *Capture) Info(msg string, args ...any)    { c.add("info", msg, args) }
func (c *Capture) Warn(msg string, args ...any)    { c.add("warn", msg, args) }
func (c *Capture) Error(msg string, args ...any)   { c.add("error", msg, args) }
func (c *Capture) Success(msg string, args ...any) { c.add("success", msg, args) }

// Count returns how many entries were recorded at the given level.
func (c *Capture) Count(level string) int {
	n := 0
	for _, e := range c.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Has reports whether a message containing substr was logged at level.
func (c *Capture) Has(level, substr string) bool {
	for _, e := range c.Entries {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Discard drops everything. Useful as a default in constructors.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...any)   {}
func (discard) Info(string, ...any)    {}
func (discard) Warn(string, ...any)    {}
func (discard) Error(string, ...any)   {}
func (discard) Success(string, ...any) {}
