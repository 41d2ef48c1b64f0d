package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rbright/vocode/internal/assist"
	"github.com/rbright/vocode/internal/classifier"
	"github.com/rbright/vocode/internal/config"
	"github.com/rbright/vocode/internal/dispatch"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/feedback"
	"github.com/rbright/vocode/internal/fuzzy"
	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/output"
	"github.com/rbright/vocode/internal/patterns"
	"github.com/rbright/vocode/internal/resolve"
	"github.com/rbright/vocode/internal/scripts"
	"github.com/rbright/vocode/internal/session"
	"github.com/rbright/vocode/internal/utterance"
	"github.com/rbright/vocode/internal/workspace"
)

const scriptTableTTL = 30 * time.Second

// engine is the resolution stack shared by the daemon and the one-shot resolve command.
type engine struct {
	logger       *slog.Logger
	workspace    *workspace.Workspace
	tracker      *editor.Tracker
	dispatcher   *dispatch.Dispatcher
	library      *patterns.Library
	patternsPath string
	controller   *session.Controller

	// llmMatching selects between the full pipeline and the pattern-only one.
	llmMatching  atomic.Bool
	withLLM      *resolve.Pipeline
	patternsOnly *resolve.Pipeline

	unsubscribe func()
}

type engineOptions struct {
	Loaded   config.Loaded
	Feedback feedback.Sink
	Logger   *slog.Logger
	// Runner overrides the run_in_terminal task runner.
	Runner workspace.TaskRunner
}

func newEngine(ctx context.Context, opts engineOptions) (*engine, error) {
	cfg := opts.Loaded.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sink := opts.Feedback
	if sink == nil {
		sink = feedback.Nop{}
	}

	root, err := config.WorkspaceRoot(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	applied, envWarnings := config.LoadEnv(filepath.Dir(opts.Loaded.Path), root)
	for _, w := range envWarnings {
		logger.Warn("dotenv warning", "message", w.Message)
	}
	if len(applied) > 0 {
		logger.Debug("dotenv applied", "files", applied)
	}

	backend, err := llm.New(ctx, llm.Settings{
		Provider:          cfg.LLM.Provider,
		Model:             cfg.LLM.Model,
		BaseURL:           cfg.LLM.BaseURL,
		Timeout:           time.Duration(cfg.LLM.TimeoutMS) * time.Millisecond,
		MaxTokens:         cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("build llm backend: %w", err)
	}

	wsOpts := workspace.Options{Root: root, Runner: opts.Runner, Logger: logger}
	if len(cfg.Clipboard.Argv) > 0 {
		wsOpts.Clipboard = output.NewClipboard(cfg.Clipboard)
	}
	ws, err := workspace.New(wsOpts)
	if err != nil {
		return nil, err
	}

	tracker := editor.NewTracker(ws)
	tracker.Start()

	slot := &editor.SuggestionSlot{}
	unsubscribe := ws.Subscribe(func(view editor.View, fileBacked bool) {
		if fileBacked {
			slot.CursorMoved(view.Cursor.Line)
		}
	})

	table := scripts.NewTable(root, scriptTableTTL)
	scriptResolver := scripts.NewResolver(table, backend, logger)

	dispatcher := dispatch.New(dispatch.Options{
		Host:         ws,
		Tracker:      tracker,
		Files:        ws,
		Scripts:      scriptResolver,
		Assistant:    assist.New(backend, cfg.LLM.MaxTokens),
		Locator:      backend,
		Suggestions:  slot,
		Thinking:     sink,
		ModelTimeout: time.Duration(cfg.Resolver.ActionTimeoutMS) * time.Millisecond,
		Logger:       logger,
	})

	library := patterns.NewLibrary(func() []patterns.Pattern {
		return dispatch.DefaultPatterns(dispatcher)
	})
	patternsPath := config.PatternsPath(opts.Loaded.Path, cfg.Patterns.File)
	if err := patterns.Reload(patternsPath, library); err != nil {
		logger.Warn("user patterns not loaded", "path", patternsPath, "error", err.Error())
	}

	timeouts := map[resolve.Stage]time.Duration{
		resolve.StageClassifier: time.Duration(cfg.Resolver.ClassifierTimeoutMS) * time.Millisecond,
		resolve.StageFuzzy:      time.Duration(cfg.Resolver.FuzzyTimeoutMS) * time.Millisecond,
		resolve.StageScripts:    time.Duration(cfg.Resolver.ScriptTimeoutMS) * time.Millisecond,
	}
	pipeline := func(enableLLM bool, finder resolve.ScriptFinder) *resolve.Pipeline {
		return resolve.New(resolve.Options{
			Resolvers: resolve.Standard(resolve.StandardOptions{
				Classifier: classifier.New(backend, classifier.Options{
					Threshold: cfg.Resolver.ConfidenceThreshold,
					MaxTokens: cfg.LLM.MaxTokens,
					Logger:    logger,
				}),
				Fuzzy:     fuzzy.New(backend, logger),
				Scripts:   finder,
				Executor:  dispatcher,
				EnableLLM: enableLLM,
				Logger:    logger,
			}),
			Context:  tracker,
			Patterns: library,
			Feedback: sink,
			Timeouts: timeouts,
			Logger:   logger,
		})
	}

	e := &engine{
		logger:       logger,
		workspace:    ws,
		tracker:      tracker,
		dispatcher:   dispatcher,
		library:      library,
		patternsPath: patternsPath,
		withLLM:      pipeline(true, scriptResolver),
		// Exact script names still resolve without a model.
		patternsOnly: pipeline(false, scripts.NewResolver(table, nil, logger)),
		unsubscribe:  unsubscribe,
	}
	e.llmMatching.Store(cfg.Resolver.EnableLLMMatching)

	e.controller = session.NewController(session.Options{
		Resolver:  e,
		Committer: newCommitter(cfg, dispatcher, logger),
		Feedback:  sink,
		Format: utterance.Options{
			Capitalize:    cfg.Text.Capitalize,
			TrailingSpace: cfg.Text.TrailingSpace,
		},
		CancelledText: feedback.CancelledText(),
		Logger:        logger,
	})

	logger.Info("engine ready",
		"root", ws.Root(),
		"provider", cfg.LLM.Provider,
		"llm_matching", cfg.Resolver.EnableLLMMatching,
		"patterns", library.Len(),
		"stages", stageNames(e.withLLM.Stages()),
	)
	return e, nil
}

// Resolve routes through the pipeline selected by the llm_matching toggle.
func (e *engine) Resolve(ctx context.Context, text string) (resolve.Outcome, error) {
	if e.llmMatching.Load() {
		return e.withLLM.Resolve(ctx, text)
	}
	return e.patternsOnly.Resolve(ctx, text)
}

func (e *engine) SetLLMMatching(on bool) {
	e.llmMatching.Store(on)
}

func (e *engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.tracker.Close()
}

// newCommitter maps text.sink onto the literal-text destination.
func newCommitter(cfg config.Config, dispatcher *dispatch.Dispatcher, logger *slog.Logger) session.Committer {
	switch cfg.Text.Sink {
	case "paste":
		paster := output.NewPaster(cfg, logger)
		return session.CommitFunc(func(ctx context.Context, text string, _ editor.Snapshot) error {
			return paster.Emit(ctx, text)
		})
	case "none":
		return session.CommitFunc(func(context.Context, string, editor.Snapshot) error { return nil })
	default:
		return session.CommitFunc(func(ctx context.Context, text string, snap editor.Snapshot) error {
			result := dispatcher.Insert(ctx, text, snap)
			if !result.OK() {
				return errors.New(result.Message)
			}
			return nil
		})
	}
}

func stageNames(stages []resolve.Stage) []string {
	out := make([]string, 0, len(stages))
	for _, s := range stages {
		out = append(out, string(s))
	}
	return out
}
