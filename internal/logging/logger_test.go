package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLogPathUsesXDGStateHome(t *testing.T) {
	xdgStateHome := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("HOME", t.TempDir())

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdgStateHome, "vocode", "log.jsonl"), path)
}

func TestResolveLogPathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", home)

	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "vocode", "log.jsonl"), path)
}

func TestNewCreatesWritableJSONLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New(Options{Enable: true, Level: "info", MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	runtime.Logger.Info("unit-test-log", "component", "logging")
	runtime.Logger.Debug("filtered-debug")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.Contains(t, string(contents), `"msg":"unit-test-log"`)
	require.Contains(t, string(contents), `"component":"logging"`)
	require.NotContains(t, string(contents), "filtered-debug")

	stat, err := os.Stat(runtime.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestNewDisabledDiscardsWithoutCreatingFile(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	runtime, err := New(Options{Enable: false})
	require.NoError(t, err)
	require.Empty(t, runtime.Path)
	runtime.Logger.Error("dropped")
	require.NoError(t, runtime.Close())

	_, err = os.Stat(filepath.Join(state, "vocode", "log.jsonl"))
	require.True(t, os.IsNotExist(err))
}

func TestSetEnabledPausesWrites(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	runtime, err := New(Options{Enable: true, Level: "info", MaxSizeMB: 1, MaxBackups: 1})
	require.NoError(t, err)

	require.NoError(t, runtime.SetEnabled(false))
	runtime.Logger.With("component", "test").Info("paused-record")
	require.NoError(t, runtime.SetEnabled(true))
	runtime.Logger.Info("resumed-record")
	require.NoError(t, runtime.Close())

	contents, err := os.ReadFile(runtime.Path)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "paused-record")
	require.Contains(t, string(contents), "resumed-record")
}

func TestSetEnabledWithoutSink(t *testing.T) {
	runtime, err := New(Options{Enable: false})
	require.NoError(t, err)
	require.ErrorIs(t, runtime.SetEnabled(true), ErrDisabled)
}

func TestParseLevel(t *testing.T) {
	for raw, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	_, err := ParseLevel("trace")
	require.Error(t, err)
}
