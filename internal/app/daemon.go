package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rbright/vocode/internal/ipc"
	"github.com/rbright/vocode/internal/patterns"
)

type notificationToggle interface {
	SetNotifications(on bool)
}

type loggingToggle interface {
	SetEnabled(on bool) error
}

// daemon routes workspace and pattern-library commands itself and hands the rest to the
// session controller.
type daemon struct {
	engine        *engine
	notifications notificationToggle
	logging       loggingToggle
	logger        *slog.Logger
}

var _ ipc.Handler = (*daemon)(nil)

func (d *daemon) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	d.logger.Debug("daemon request", "command", req.Command)

	switch req.Command {
	case ipc.CommandFocus:
		return d.focus(ctx, req)
	case ipc.CommandPatternsList:
		return d.listPatterns()
	case ipc.CommandPatternsAdd:
		return d.addPattern(req)
	case ipc.CommandPatternsRemove:
		return d.removePatterns(req.Action)
	case ipc.CommandPatternsReset:
		return d.resetPatterns()
	case ipc.CommandSet:
		return d.set(req.Option, req.Enabled)
	default:
		return d.engine.controller.Handle(ctx, req)
	}
}

func (d *daemon) state() string {
	return string(d.engine.controller.State())
}

func (d *daemon) fail(format string, args ...any) ipc.Response {
	return ipc.Response{OK: false, State: d.state(), Error: fmt.Sprintf(format, args...)}
}

func (d *daemon) ok(format string, args ...any) ipc.Response {
	return ipc.Response{OK: true, State: d.state(), Message: fmt.Sprintf(format, args...)}
}

func (d *daemon) focus(ctx context.Context, req ipc.Request) ipc.Response {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return d.fail("focus requires a path")
	}
	view, err := d.engine.workspace.Focus(ctx, path, req.Line)
	if err != nil {
		return d.fail("focus %s: %v", path, err)
	}
	rel, err := filepath.Rel(d.engine.workspace.Root(), view.Document.Path)
	if err != nil {
		rel = view.Document.Path
	}
	return d.ok("%s:%d", rel, view.Cursor.Line+1)
}

func (d *daemon) listPatterns() ipc.Response {
	list := d.engine.library.Snapshot()
	infos := make([]ipc.PatternInfo, 0, len(list))
	for _, p := range list {
		infos = append(infos, ipc.PatternInfo{
			Label:  p.Label(),
			Action: p.Action,
			Source: string(p.Source),
		})
	}
	resp := d.ok("%d patterns", len(infos))
	resp.Patterns = infos
	return resp
}

func (d *daemon) addPattern(req ipc.Request) ipc.Response {
	if req.Rule == nil {
		return d.fail("patterns.add requires a rule")
	}
	p, err := req.Rule.Pattern()
	if err != nil {
		return d.fail("%v", err)
	}

	add := d.engine.library.Add
	if req.First {
		add = d.engine.library.AddFirst
	}
	if err := add(p); err != nil {
		return d.fail("%v", err)
	}
	d.logger.Info("pattern added", "label", p.Label(), "action", p.Action, "first", req.First)
	return d.ok("added %s", p.Label())
}

func (d *daemon) removePatterns(action string) ipc.Response {
	action = strings.TrimSpace(action)
	if action == "" {
		return d.fail("patterns.remove requires an action")
	}
	n := d.engine.library.RemoveByAction(action)
	if n == 0 {
		return d.fail("no pattern with action %q", action)
	}
	d.logger.Info("patterns removed", "action", action, "count", n)
	return d.ok("removed %d", n)
}

// resetPatterns restores the defaults and re-reads the user file so its rules survive.
func (d *daemon) resetPatterns() ipc.Response {
	d.engine.library.ResetToDefaults()
	if err := patterns.Reload(d.engine.patternsPath, d.engine.library); err != nil {
		d.logger.Warn("user patterns not reloaded", "path", d.engine.patternsPath, "error", err.Error())
	}
	return d.ok("%d patterns", d.engine.library.Len())
}

func (d *daemon) set(option string, on bool) ipc.Response {
	switch option {
	case ipc.OptionLLMMatching:
		d.engine.SetLLMMatching(on)
	case ipc.OptionNotifications:
		if d.notifications == nil {
			return d.fail("notifications are not available")
		}
		d.notifications.SetNotifications(on)
	case ipc.OptionLogging:
		if d.logging == nil {
			return d.fail("logging is not available")
		}
		if err := d.logging.SetEnabled(on); err != nil {
			return d.fail("%v", err)
		}
	default:
		return d.fail("unknown option %q", option)
	}
	d.logger.Info("option set", "option", option, "enabled", on)
	return d.ok("%s %s", option, onOff(on))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
