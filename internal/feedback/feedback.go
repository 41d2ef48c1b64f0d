// Package feedback delivers notices, the thinking indicator, spoken output, and audio cues.
package feedback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/config"
	"github.com/rbright/vocode/internal/hypr"
)

// Severity ranks a notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityFor maps a command status onto the notice severity shown to the user.
func SeverityFor(status command.Status) Severity {
	switch status {
	case command.StatusSuccess:
		return SeverityInfo
	case command.StatusTargetMissing:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Sink is the feedback surface the resolution engine talks to.
type Sink interface {
	Notify(ctx context.Context, message string, severity Severity)
	ShowThinking(ctx context.Context)
	HideThinking(ctx context.Context)
	Speak(ctx context.Context, text string)
	StopSpeech()
}

// Nop discards all feedback.
type Nop struct{}

func (Nop) Notify(context.Context, string, Severity) {}
func (Nop) ShowThinking(context.Context)             {}
func (Nop) HideThinking(context.Context)             {}
func (Nop) Speak(context.Context, string)            {}
func (Nop) StopSpeech()                              {}

type style struct {
	icon      int
	color     string
	timeoutMS int
	cue       cueKind
}

// Notifier routes feedback through Hyprland or the desktop notification bus, speaks through
// an external command, and plays earcons over PulseAudio.
type Notifier struct {
	cfg      config.FeedbackConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	notifications         atomic.Bool

	speech  speaker
	soundMu sync.Mutex
	wg      sync.WaitGroup
}

var _ Sink = (*Notifier)(nil)

// NewNotifier creates a notifier from config.
func NewNotifier(cfg config.FeedbackConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: messagesFromEnv(),
		speech:   speaker{argv: cfg.SpeakCmd.Argv, logger: logger},
	}
	n.notifications.Store(cfg.Notifications)
	return n
}

// SetNotifications turns visible notices on or off at runtime. Earcons are unaffected.
func (n *Notifier) SetNotifications(on bool) {
	n.notifications.Store(on)
}

// Notify shows message with a style matching severity and plays the matching cue.
func (n *Notifier) Notify(ctx context.Context, message string, severity Severity) {
	message = strings.TrimSpace(message)
	if message == "" {
		if severity != SeverityError {
			return
		}
		message = n.messages.errorText
	}
	s := n.style(severity)
	n.playCue(s.cue)
	n.logger.Debug("notice", "severity", string(severity), "message", message)

	if !n.visible() {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, s.icon, s.timeoutMS, s.color, message)
	})
}

// ShowThinking displays the long-lived "thinking" notice.
func (n *Notifier) ShowThinking(ctx context.Context) {
	n.playCue(cueThinking)
	if !n.visible() {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(cba6f7)", n.messages.thinking)
	})
}

// HideThinking dismisses the thinking notice. It ignores ctx cancellation so cleanup still
// runs on aborted requests.
func (n *Notifier) HideThinking(ctx context.Context) {
	if !n.visible() {
		return
	}
	n.run(context.WithoutCancel(ctx), n.dismiss)
}

// Speak reads text aloud, replacing any speech still in progress.
func (n *Notifier) Speak(_ context.Context, text string) {
	if !n.cfg.Speech {
		return
	}
	n.speech.say(&n.wg, text)
}

// StopSpeech cancels speech in progress.
func (n *Notifier) StopSpeech() {
	n.speech.stop()
}

// Close waits for background cue and speech work. Speech in progress finishes; call
// StopSpeech first to cut it off.
func (n *Notifier) Close() {
	n.wg.Wait()
}

func (n *Notifier) visible() bool {
	return n.notifications.Load() && !strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "none")
}

func (n *Notifier) style(severity Severity) style {
	errTimeout := n.cfg.ErrorTimeoutMS
	if errTimeout <= 0 {
		errTimeout = 1200
	}
	switch severity {
	case SeverityError:
		return style{icon: 3, color: "rgb(f38ba8)", timeoutMS: errTimeout, cue: cueError}
	case SeverityWarning:
		return style{icon: 0, color: "rgb(f9e2af)", timeoutMS: errTimeout, cue: cueWarning}
	default:
		return style{icon: 5, color: "rgb(a6e3a1)", timeoutMS: 1200, cue: cueSuccess}
	}
}

// notify dispatches output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.notifyDesktop(ctx, timeoutMS, text, urgencyFor(icon))
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop") {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string, urgency int) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "vocode"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS, urgency)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes a notification operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.logger.Debug("feedback dispatch failed", "error", err.Error())
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.Sound {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind); err != nil {
			n.logger.Debug("audio cue failed", "error", err.Error())
		}
	}()
}
