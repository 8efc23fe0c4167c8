// Package logging builds the *slog.Logger shared by skillkit components.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Format represents the log output format.
type Format int

const (
	// FormatText produces human-readable key=value output. This is the
	// default for an interactive CLI.
	FormatText Format = iota
	// FormatJSON produces one JSON object per line.
	FormatJSON
)

type config struct {
	format Format
	level  slog.Leveler
	output io.Writer
}

// Option configures the logger created by New.
type Option func(*config)

// WithFormat sets the output format.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithLevel sets the minimum log level. The default is warn, so routine
// CLI invocations stay quiet unless something degraded.
func WithLevel(l slog.Leveler) Option {
	return func(c *config) {
		c.level = l
	}
}

// WithOutput sets the destination writer. The default is os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// New creates a configured logger.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		format: FormatText,
		level:  slog.LevelWarn,
		output: os.Stderr,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       cfg.level,
		ReplaceAttr: replaceAttr,
	}
	var handler slog.Handler
	switch cfg.format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	default:
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config string to a level, defaulting to warn.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// ParseFormat maps a config string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339))
		}
	}
	return a
}
