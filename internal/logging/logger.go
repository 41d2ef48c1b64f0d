// Package logging configures runtime JSONL logging output.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the log sink.
type Options struct {
	Enable     bool
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// Runtime bundles the configured logger and its open file handle lifecycle.
type Runtime struct {
	Logger  *slog.Logger
	Path    string
	closer  io.Closer
	enabled *atomic.Bool
}

// ErrDisabled is returned when logging is toggled on but no sink was opened at startup.
var ErrDisabled = errors.New("logging is disabled in config")

// SetEnabled pauses or resumes writes to the log file.
func (r Runtime) SetEnabled(on bool) error {
	if r.enabled == nil {
		return ErrDisabled
	}
	r.enabled.Store(on)
	return nil
}

// Close flushes and closes the logger output sink.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New builds a rotating JSONL logger rooted at the resolved state path.
// A disabled sink yields a logger that discards every record.
func New(opts Options) (Runtime, error) {
	if !opts.Enable {
		return Runtime{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}, nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return Runtime{}, err
	}

	path, err := resolveLogPath()
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}

	enabled := &atomic.Bool{}
	enabled.Store(true)
	h := gate{next: slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level}), on: enabled}
	return Runtime{Logger: slog.New(h), Path: path, closer: sink, enabled: enabled}, nil
}

// gate drops every record while on is false.
type gate struct {
	next slog.Handler
	on   *atomic.Bool
}

func (g gate) Enabled(ctx context.Context, level slog.Level) bool {
	return g.on.Load() && g.next.Enabled(ctx, level)
}

func (g gate) Handle(ctx context.Context, r slog.Record) error {
	return g.next.Handle(ctx, r)
}

func (g gate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return gate{next: g.next.WithAttrs(attrs), on: g.on}
}

func (g gate) WithGroup(name string) slog.Handler {
	return gate{next: g.next.WithGroup(name), on: g.on}
}

// ParseLevel maps config level names onto slog levels. Empty means info.
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// resolveLogPath selects XDG_STATE_HOME when available, otherwise ~/.local/state.
func resolveLogPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "vocode", "log.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "vocode", "log.jsonl"), nil
}
