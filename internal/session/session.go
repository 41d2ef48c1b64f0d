// Package session serializes utterances through the resolver and owns the feedback for
// outcomes the resolver leaves to its caller.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/feedback"
	"github.com/rbright/vocode/internal/fsm"
	"github.com/rbright/vocode/internal/ipc"
	"github.com/rbright/vocode/internal/resolve"
	"github.com/rbright/vocode/internal/utterance"
)

// Result is the complete output of one Submit.
type Result struct {
	State      fsm.State
	Utterance  string
	Outcome    resolve.Outcome
	Committed  string
	Cancelled  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Options wires a Controller.
type Options struct {
	Resolver  Resolver
	Committer Committer
	Feedback  feedback.Sink
	Format    utterance.Options
	// CancelledText is the notice shown when a resolution is stopped.
	CancelledText string
	Logger        *slog.Logger
}

// Controller runs one resolution at a time.
type Controller struct {
	logger        *slog.Logger
	resolver      Resolver
	commit        Committer
	feedback      feedback.Sink
	format        utterance.Options
	cancelledText string

	mu     sync.Mutex
	state  fsm.State
	cancel context.CancelFunc
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = ResolverFunc(func(_ context.Context, u string) (resolve.Outcome, error) {
			return resolve.Outcome{Utterance: u, Stage: resolve.StageUnresolved}, nil
		})
	}
	committer := opts.Committer
	if committer == nil {
		committer = CommitFunc(func(context.Context, string, editor.Snapshot) error { return nil })
	}
	sink := opts.Feedback
	if sink == nil {
		sink = feedback.Nop{}
	}
	cancelled := strings.TrimSpace(opts.CancelledText)
	if cancelled == "" {
		cancelled = "Cancelled"
	}

	return &Controller{
		logger:        logger,
		resolver:      resolver,
		commit:        committer,
		feedback:      sink,
		format:        opts.Format,
		cancelledText: cancelled,
		state:         fsm.StateIdle,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionLocked(event)
}

func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// begin claims the controller for one resolution.
func (c *Controller) begin(cancel context.CancelFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != fsm.StateIdle {
		return ErrBusy
	}
	if err := c.transitionLocked(fsm.EventSubmit); err != nil {
		return err
	}
	c.cancel = cancel
	return nil
}

// release drops the cancel hook before any transition back to idle can admit the next Submit.
func (c *Controller) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil
}

// Submit normalizes raw, resolves it, and commits literal text when nothing (or a
// non-exclusive pattern) claimed it. A second Submit while one is in flight fails with
// ErrBusy.
func (c *Controller) Submit(ctx context.Context, raw string) Result {
	result := Result{StartedAt: time.Now()}
	finish := func() Result {
		result.State = c.State()
		result.FinishedAt = time.Now()
		return result
	}

	text := utterance.Normalize(raw)
	result.Utterance = text
	if text == "" {
		c.logger.Debug("utterance dropped", "raw_chars", len(raw))
		result.Err = ErrEmptyUtterance
		return finish()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := c.begin(cancel); err != nil {
		result.Err = err
		return finish()
	}

	outcome, err := c.resolver.Resolve(runCtx, text)
	c.release()
	result.Outcome = outcome
	switch {
	case err != nil:
		c.logger.Error("resolution failed", "error", err.Error())
		result.Err = err
		c.toErrorAndReset()
		return finish()
	case outcome.Aborted:
		c.feedback.Notify(context.WithoutCancel(ctx), c.cancelledText, feedback.SeverityWarning)
		result.Cancelled = true
		_ = c.transition(fsm.EventAbort)
		return finish()
	}

	if !outcome.Resolved || outcome.InsertText {
		formatted := utterance.Format(text, c.format)
		if err := c.commit.Commit(runCtx, formatted, outcome.Snapshot); err != nil {
			c.logger.Error("text commit failed", "error", err.Error())
			if !outcome.Resolved {
				c.feedback.Notify(context.WithoutCancel(ctx), "Text insertion failed", feedback.SeverityError)
			}
			result.Err = fmt.Errorf("commit text: %w", err)
			c.toErrorAndReset()
			return finish()
		}
		result.Committed = formatted
	}

	if err := c.transition(fsm.EventResolved); err != nil {
		result.Err = err
		c.toErrorAndReset()
	}
	return finish()
}

// Stop cancels the in-flight resolution and any speech. It reports whether a resolution
// was running.
func (c *Controller) Stop() bool {
	c.feedback.StopSpeech()

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Handle serves the session's daemon commands.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case ipc.CommandSay:
		return c.say(ctx, req.Utterance)
	case ipc.CommandStop:
		state := c.State()
		if c.Stop() {
			return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
		}
		return ipc.Response{OK: true, State: string(state), Message: "nothing to stop"}
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) say(ctx context.Context, raw string) ipc.Response {
	result := c.Submit(ctx, raw)
	resp := ipc.Response{
		State:   string(result.State),
		Stage:   string(result.Outcome.Stage),
		Status:  string(result.Outcome.Result.Status),
		Message: result.Outcome.Result.Message,
	}

	switch {
	case errors.Is(result.Err, ErrEmptyUtterance):
		resp.OK = true
		resp.Message = "ignored"
	case result.Err != nil:
		resp.Error = result.Err.Error()
	case result.Cancelled:
		resp.Error = "cancelled"
	case !result.Outcome.Resolved:
		resp.OK = true
		resp.Message = "inserted as text"
		if result.Committed == "" {
			resp.Message = "unresolved"
		}
	default:
		resp.OK = result.Outcome.Result.OK()
		if !resp.OK {
			resp.Error = result.Outcome.Result.Message
		}
	}
	return resp
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}
