package feedback

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/config"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.FeedbackConfig {
	t.Helper()
	t.Setenv("LANG", "en_US.UTF-8")
	cfg := config.Default().Feedback
	cfg.Sound = false
	cfg.Notifications = true
	cfg.Backend = "hypr"
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestNotifierRoutesSeveritiesThroughHyprctl(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	n := NewNotifier(testConfig(t), nil)
	n.ShowThinking(context.Background())
	n.HideThinking(context.Background())
	n.Notify(context.Background(), "Line 42", SeverityInfo)
	n.Notify(context.Background(), "No active editor", SeverityWarning)
	n.Notify(context.Background(), "Save failed", SeverityError)
	n.Close()

	lines := readLines(t, argsFile)
	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 rgb(cba6f7) Thinking…",
		"--quiet dispatch dismissnotify",
		"--quiet dispatch notify 5 1200 rgb(a6e3a1) Line 42",
		"--quiet dispatch notify 0 1600 rgb(f9e2af) No active editor",
		"--quiet dispatch notify 3 1600 rgb(f38ba8) Save failed",
	}, lines)
}

func TestNotifyEmptyMessages(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	cfg := testConfig(t)
	cfg.ErrorTimeoutMS = 0
	n := NewNotifier(cfg, nil)
	n.Notify(context.Background(), "  ", SeverityInfo)
	n.Notify(context.Background(), "", SeverityError)

	require.Equal(t, []string{"--quiet dispatch notify 3 1200 rgb(f38ba8) Command failed"}, readLines(t, argsFile))
}

func TestHideThinkingRunsAfterCancellation(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNotifier(testConfig(t), nil)
	n.HideThinking(ctx)

	require.Equal(t, []string{"--quiet dispatch dismissnotify"}, readLines(t, argsFile))
}

func TestNotifierDisabledSkipsDispatch(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*config.FeedbackConfig)
	}{
		{name: "notifications off", modify: func(c *config.FeedbackConfig) { c.Notifications = false }},
		{name: "backend none", modify: func(c *config.FeedbackConfig) { c.Backend = "none" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
			t.Setenv("HYPR_ARGS_FILE", argsFile)
			installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

			cfg := testConfig(t)
			tc.modify(&cfg)
			n := NewNotifier(cfg, nil)
			n.ShowThinking(context.Background())
			n.Notify(context.Background(), "ignored", SeverityError)
			n.HideThinking(context.Background())

			_, err := os.Stat(argsFile)
			require.True(t, os.IsNotExist(err))
		})
	}
}

func TestSetNotificationsTogglesAtRuntime(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "hypr-args.log")
	t.Setenv("HYPR_ARGS_FILE", argsFile)
	installStub(t, "hyprctl", `
printf '%s\n' "$*" >> "${HYPR_ARGS_FILE}"
`)

	n := NewNotifier(testConfig(t), nil)
	n.SetNotifications(false)
	n.Notify(context.Background(), "muted", SeverityInfo)
	n.SetNotifications(true)
	n.Notify(context.Background(), "Line 42", SeverityInfo)
	n.Close()

	require.Equal(t, []string{"--quiet dispatch notify 5 1200 rgb(a6e3a1) Line 42"}, readLines(t, argsFile))
}

func TestDesktopBackendReplacesNotificationID(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installStub(t, "busctl", `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "$*" == *" Notify "* ]]; then
  echo "u 42"
fi
`)

	cfg := testConfig(t)
	cfg.Backend = "desktop"
	n := NewNotifier(cfg, nil)
	n.ShowThinking(context.Background())
	n.Notify(context.Background(), "Saved", SeverityInfo)
	n.HideThinking(context.Background())

	lines := readLines(t, argsFile)
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i vocode 0  Thinking…")
	require.Contains(t, lines[1], "Notify susssasa{sv}i vocode 42  Saved")
	require.Contains(t, lines[1], "urgency y 0")
	require.True(t, strings.HasSuffix(lines[2], "CloseNotification u 42"))
}

func TestSpeakRunsCommandWithText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	t.Setenv("SPOKEN_FILE", out)
	script := installStub(t, "fake-speak", `
printf '%s\n' "$*" >> "${SPOKEN_FILE}"
`)

	cfg := testConfig(t)
	cfg.Speech = true
	cfg.SpeakCmd = config.CommandConfig{Raw: script + " -v en", Argv: []string{script, "-v", "en"}}
	n := NewNotifier(cfg, nil)
	n.Speak(context.Background(), "hello there")
	n.Close()

	require.Equal(t, []string{"-v en hello there"}, readLines(t, out))
}

func TestCloseLetsSpeechFinish(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	t.Setenv("SPOKEN_FILE", out)
	script := installStub(t, "slow-speak", `
sleep 0.3
printf '%s\n' "$*" >> "${SPOKEN_FILE}"
`)

	cfg := testConfig(t)
	cfg.Speech = true
	cfg.SpeakCmd = config.CommandConfig{Raw: script, Argv: []string{script}}
	n := NewNotifier(cfg, nil)
	n.Speak(context.Background(), "the whole answer")
	n.Close()

	require.Equal(t, []string{"the whole answer"}, readLines(t, out))
}

func TestStopSpeechCancelsRunningCommand(t *testing.T) {
	script := installStub(t, "slow-speak", `
exec sleep 5
`)

	cfg := testConfig(t)
	cfg.Speech = true
	cfg.SpeakCmd = config.CommandConfig{Raw: script, Argv: []string{script}}
	n := NewNotifier(cfg, nil)
	n.Speak(context.Background(), "a long answer")

	start := time.Now()
	n.StopSpeech()
	n.Close()
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestSpeakDisabledIsNoop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Speech = false
	cfg.SpeakCmd = config.CommandConfig{Raw: "/does/not/exist", Argv: []string{"/does/not/exist"}}
	n := NewNotifier(cfg, nil)
	n.Speak(context.Background(), "hello")
	n.Close()
}

func TestSeverityFor(t *testing.T) {
	require.Equal(t, SeverityInfo, SeverityFor(command.StatusSuccess))
	require.Equal(t, SeverityWarning, SeverityFor(command.StatusTargetMissing))
	require.Equal(t, SeverityError, SeverityFor(command.StatusFailed))
}

func TestLocaleMessages(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale(""))
	require.Equal(t, localeKorean, resolveLocale("ko_KR.UTF-8"))

	require.Equal(t, "Thinking…", localizedMessages(localeEnglish).thinking)
	require.Equal(t, "생각 중…", localizedMessages(localeKorean).thinking)
}

func installStub(t *testing.T, name string, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
	return path
}
