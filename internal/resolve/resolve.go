// Package resolve decides what an utterance means by trying an ordered list of strategies
// and then runs the single decision it reaches.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/feedback"
	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/patterns"
)

// Stage names a resolution strategy.
type Stage string

const (
	StageClassifier Stage = "classifier"
	StagePatterns   Stage = "patterns"
	StageFuzzy      Stage = "fuzzy"
	StageScripts    Stage = "scripts"
	StageUnresolved Stage = "unresolved"
)

// Request is the immutable input every strategy sees.
type Request struct {
	ID        uuid.UUID
	Utterance string
	Snapshot  editor.Snapshot
	Patterns  []patterns.Pattern
}

// Decision is what a strategy chose. Run performs the effect; it is local and is only
// called once deciding has finished.
type Decision struct {
	Stage Stage
	Label string
	// InsertText asks the caller to also emit the utterance as literal text.
	InsertText bool
	Run        func(ctx context.Context) command.Result
}

// Resolver is one strategy. Attempt returns nil for "no match" and an error only for
// configuration failures.
type Resolver interface {
	Name() Stage
	Remote() bool
	Attempt(ctx context.Context, req Request) (*Decision, error)
}

// Capturer snapshots the editing context at the start of a request.
type Capturer interface {
	Capture() (editor.Snapshot, error)
}

// PatternSource supplies the pattern list a request resolves against.
type PatternSource interface {
	Snapshot() []patterns.Pattern
}

// Outcome summarizes one resolution.
type Outcome struct {
	RequestID  uuid.UUID
	Utterance  string
	Snapshot   editor.Snapshot
	Resolved   bool
	Stage      Stage
	Label      string
	Result     command.Result
	InsertText bool
	Aborted    bool
	Latency    time.Duration
}

// Options wires a Pipeline.
type Options struct {
	Resolvers []Resolver
	Context   Capturer
	Patterns  PatternSource
	Feedback  feedback.Sink
	// Timeouts bounds each remote stage. Stages without an entry use DefaultStageTimeout.
	Timeouts map[Stage]time.Duration
	Logger   *slog.Logger
}

// DefaultStageTimeout bounds a remote stage with no configured timeout.
const DefaultStageTimeout = 5 * time.Second

// Pipeline runs resolvers in order; the first decision wins.
type Pipeline struct {
	resolvers []Resolver
	context   Capturer
	patterns  PatternSource
	feedback  feedback.Sink
	timeouts  map[Stage]time.Duration
	logger    *slog.Logger
}

// New builds a Pipeline.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sink := opts.Feedback
	if sink == nil {
		sink = feedback.Nop{}
	}
	return &Pipeline{
		resolvers: opts.Resolvers,
		context:   opts.Context,
		patterns:  opts.Patterns,
		feedback:  sink,
		timeouts:  opts.Timeouts,
		logger:    logger,
	}
}

// Stages lists the configured strategy order.
func (p *Pipeline) Stages() []Stage {
	out := make([]Stage, 0, len(p.resolvers))
	for _, r := range p.resolvers {
		out = append(out, r.Name())
	}
	return out
}

// Resolve decides and runs one utterance. Resolved outcomes produce exactly one notice.
// Unresolved and aborted outcomes produce none; the caller owns those. A configuration
// error is shown once and returned.
func (p *Pipeline) Resolve(ctx context.Context, utterance string) (Outcome, error) {
	started := time.Now()
	req := Request{
		ID:        uuid.New(),
		Utterance: strings.TrimSpace(utterance),
		Snapshot:  p.capture(),
	}
	if p.patterns != nil {
		req.Patterns = p.patterns.Snapshot()
	}

	out := Outcome{
		RequestID: req.ID,
		Utterance: req.Utterance,
		Snapshot:  req.Snapshot,
		Stage:     StageUnresolved,
	}
	logger := p.logger.With("request_id", req.ID.String())
	finish := func(out Outcome) Outcome {
		out.Latency = time.Since(started)
		logger.Info("resolution finished",
			"stage", string(out.Stage),
			"resolved", out.Resolved,
			"aborted", out.Aborted,
			"status", string(out.Result.Status),
			"latency_ms", out.Latency.Milliseconds(),
		)
		return out
	}

	if req.Utterance == "" {
		return finish(out), nil
	}

	decision, err := p.decide(ctx, req, logger)
	if err != nil {
		if ctx.Err() != nil {
			out.Aborted = true
			return finish(out), nil
		}
		out.Result = command.Failed(err.Error())
		p.feedback.Notify(context.WithoutCancel(ctx), out.Result.Message, feedback.SeverityError)
		return finish(out), err
	}
	if ctx.Err() != nil {
		out.Aborted = true
		return finish(out), nil
	}
	if decision == nil {
		return finish(out), nil
	}

	out.Resolved = true
	out.Stage = decision.Stage
	out.Label = decision.Label
	out.InsertText = decision.InsertText
	out.Result = decision.Run(ctx)

	if !out.Result.OK() && ctx.Err() != nil {
		out.Aborted = true
		return finish(out), nil
	}
	p.acknowledge(ctx, out.Result)
	return finish(out), nil
}

func (p *Pipeline) capture() editor.Snapshot {
	if p.context == nil {
		return editor.Snapshot{}
	}
	snap, err := p.context.Capture()
	if err != nil {
		p.logger.Debug("editor context unavailable", "error", err.Error())
		return editor.Snapshot{}
	}
	return snap
}

// decide walks the strategies. It stops at the first decision, a configuration error, or
// cancellation.
func (p *Pipeline) decide(ctx context.Context, req Request, logger *slog.Logger) (*Decision, error) {
	for _, r := range p.resolvers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		began := time.Now()
		decision, err := p.attempt(ctx, r, req)
		logger.Debug("stage attempted",
			"stage", string(r.Name()),
			"matched", decision != nil,
			"latency_ms", time.Since(began).Milliseconds(),
		)
		if err != nil {
			if errors.Is(err, llm.ErrMissingCredentials) || ctx.Err() != nil {
				return nil, err
			}
			logger.Warn("stage failed", "stage", string(r.Name()), "error", err.Error())
			continue
		}
		if decision != nil {
			if decision.Stage == "" {
				decision.Stage = r.Name()
			}
			return decision, nil
		}
	}
	return nil, nil
}

// attempt runs one strategy, bounding remote ones and keeping the thinking indicator up
// only while they are outstanding.
func (p *Pipeline) attempt(ctx context.Context, r Resolver, req Request) (*Decision, error) {
	if !r.Remote() {
		return r.Attempt(ctx, req)
	}

	timeout, ok := p.timeouts[r.Name()]
	if !ok || timeout <= 0 {
		timeout = DefaultStageTimeout
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.feedback.ShowThinking(ctx)
	defer p.feedback.HideThinking(ctx)

	decision, err := r.Attempt(stageCtx, req)
	if err != nil && !errors.Is(err, llm.ErrMissingCredentials) && ctx.Err() == nil && stageCtx.Err() != nil {
		// The stage ran out of time; that is a fall-through, not a failure.
		return nil, nil
	}
	return decision, err
}

func (p *Pipeline) acknowledge(ctx context.Context, result command.Result) {
	ctx = context.WithoutCancel(ctx)
	p.feedback.Notify(ctx, result.Message, feedback.SeverityFor(result.Status))
	if result.Speech != "" {
		p.feedback.Speak(ctx, result.Speech)
	}
}
