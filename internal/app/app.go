package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/vocode/internal/audio"
	"github.com/rbright/vocode/internal/cli"
	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/config"
	"github.com/rbright/vocode/internal/doctor"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/feedback"
	"github.com/rbright/vocode/internal/ipc"
	"github.com/rbright/vocode/internal/logging"
	"github.com/rbright/vocode/internal/patterns"
	"github.com/rbright/vocode/internal/session"
	"github.com/rbright/vocode/internal/version"
	"golang.org/x/sync/errgroup"
)

const (
	forwardTimeout = 2 * time.Second
	// sayTimeout covers a full resolution including every remote stage.
	sayTimeout = 60 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText())
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, parsed.Help)
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(logging.Options{
		Enable:     cfgLoaded.Config.Logging.Enable,
		Level:      cfgLoaded.Config.Logging.Level,
		MaxSizeMB:  cfgLoaded.Config.Logging.MaxSizeMB,
		MaxBackups: cfgLoaded.Config.Logging.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		report.Render(r.Stdout)
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded, logRuntime, logger)
	case cli.CommandResolve:
		return r.commandResolve(ctx, cfgLoaded, parsed, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandSay:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandSay, Utterance: parsed.Utterance}, sayTimeout)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop}, forwardTimeout)
	case cli.CommandFocus:
		path, err := filepath.Abs(parsed.File)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandFocus, Path: path, Line: parsed.Line}, forwardTimeout)
	case cli.CommandPatternsList:
		return r.commandPatternsList(ctx)
	case cli.CommandPatternsAdd:
		rule := parsed.Rule
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandPatternsAdd, Rule: &rule, First: parsed.First}, forwardTimeout)
	case cli.CommandPatternsRemove:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandPatternsRemove, Action: parsed.Action}, forwardTimeout)
	case cli.CommandPatternsReset:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandPatternsReset}, forwardTimeout)
	case cli.CommandSet:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandSet, Option: parsed.Option, Enabled: parsed.Enabled}, forwardTimeout)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListSinks(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio output sinks found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}
	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// commandServe owns the socket and the engine until ctx ends.
func (r Runner) commandServe(ctx context.Context, loaded config.Loaded, logRuntime logging.Runtime, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	notifier := feedback.NewNotifier(loaded.Config.Feedback, logger)
	defer notifier.Close()

	eng, err := newEngine(ctx, engineOptions{Loaded: loaded, Feedback: notifier, Logger: logger})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("engine setup failed", "error", err.Error())
		return 1
	}
	defer eng.Close()

	handler := &daemon{engine: eng, notifications: notifier, logging: logRuntime, logger: logger}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return ipc.Serve(groupCtx, listener, handler)
	})
	if loaded.Config.Patterns.Watch {
		group.Go(func() error {
			if err := patterns.Watch(groupCtx, eng.patternsPath, eng.library, 0, logger); err != nil {
				logger.Warn("pattern watcher stopped", "error", err.Error())
			}
			return nil
		})
	}

	fmt.Fprintf(r.Stdout, "vocode serving %s on %s\n", eng.workspace.Root(), socketPath)
	logger.Info("daemon started", "socket", socketPath, "root", eng.workspace.Root())

	if err := group.Wait(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon failed", "error", err.Error())
		return 1
	}
	logger.Info("daemon stopped")
	return 0
}

// commandResolve runs one utterance against a private workspace without a daemon.
func (r Runner) commandResolve(ctx context.Context, loaded config.Loaded, parsed cli.Parsed, logger *slog.Logger) int {
	eng, err := newEngine(ctx, engineOptions{Loaded: loaded, Feedback: feedback.Nop{}, Logger: logger})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer eng.Close()

	if parsed.File != "" {
		if _, err := eng.workspace.Focus(ctx, parsed.File, parsed.Line); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	result := eng.controller.Submit(ctx, parsed.Utterance)
	logSessionResult(logger, result)
	code := r.printResult(result)

	if parsed.Write {
		if err := eng.workspace.Execute(ctx, "", editor.ActionSaveAll); err != nil {
			fmt.Fprintf(r.Stderr, "error: save: %v\n", err)
			return 1
		}
	}
	return code
}

func (r Runner) printResult(result session.Result) int {
	outcome := result.Outcome
	switch {
	case errors.Is(result.Err, session.ErrEmptyUtterance):
		fmt.Fprintln(r.Stdout, "ignored")
		return 0
	case result.Err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	case result.Cancelled:
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	case !outcome.Resolved:
		if result.Committed != "" {
			fmt.Fprintf(r.Stdout, "unresolved: inserted %q\n", result.Committed)
		} else {
			fmt.Fprintln(r.Stdout, "unresolved")
		}
		return 0
	}

	fmt.Fprintf(r.Stdout, "%s [%s] %s: %s\n", outcome.Stage, outcome.Label, outcome.Result.Status, outcome.Result.Message)
	if outcome.Result.Speech != "" {
		fmt.Fprintln(r.Stdout, outcome.Result.Speech)
	}
	if result.Committed != "" {
		fmt.Fprintf(r.Stdout, "inserted %q\n", result.Committed)
	}
	if outcome.Result.Status == command.StatusFailed {
		return 1
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "idle"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

func (r Runner) commandPatternsList(ctx context.Context) int {
	resp, code := r.forward(ctx, ipc.Request{Command: ipc.CommandPatternsList}, forwardTimeout)
	if code != 0 {
		return code
	}
	for _, p := range resp.Patterns {
		fmt.Fprintf(r.Stdout, "%-8s %-20s %s\n", p.Source, p.Action, p.Label)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request, timeout time.Duration) int {
	resp, code := r.forward(ctx, req, timeout)
	if code != 0 {
		return code
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forward(ctx context.Context, req ipc.Request, timeout time.Duration) (ipc.Response, int) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ipc.Response{}, 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req, timeout)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running vocode daemon (start one with `vocode serve`)\n")
		return ipc.Response{}, 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return resp, 1
	}
	return resp, 0
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"request_id", result.Outcome.RequestID.String(),
		"stage", string(result.Outcome.Stage),
		"resolved", result.Outcome.Resolved,
		"status", string(result.Outcome.Result.Status),
		"utterance_length", len(result.Utterance),
		"committed_length", len(result.Committed),
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

// tryForward sends req to a running daemon. handled is false when nothing is listening.
func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsUnavailable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
