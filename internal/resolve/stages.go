package resolve

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/rbright/vocode/internal/classifier"
	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/patterns"
	"github.com/rbright/vocode/internal/scripts"
)

// Executor performs decided commands. dispatch.Dispatcher satisfies it.
type Executor interface {
	Dispatch(ctx context.Context, intent command.Intent, snap editor.Snapshot) command.Result
	ExecutePattern(ctx context.Context, p patterns.Pattern, captures patterns.Captures, utterance string, snap editor.Snapshot) command.Result
	RunScript(ctx context.Context, script scripts.Script, snap editor.Snapshot) command.Result
}

// Classifier is the semantic classification stage's backend.
type Classifier interface {
	Classify(ctx context.Context, utterance string) (classifier.Result, bool, error)
}

// FuzzyMatcher picks a pattern from a list.
type FuzzyMatcher interface {
	Match(ctx context.Context, utterance string, list []patterns.Pattern) (patterns.Pattern, bool, error)
}

// ScriptFinder looks up a project script by its spoken name.
type ScriptFinder interface {
	Lookup(ctx context.Context, spoken string) (scripts.Script, bool, error)
}

type classification struct {
	classifier Classifier
	exec       Executor
	logger     *slog.Logger
}

// Classification dispatches by the classifier's category when it is confident enough.
func Classification(c Classifier, exec Executor, logger *slog.Logger) Resolver {
	return &classification{classifier: c, exec: exec, logger: orDiscard(logger)}
}

func (*classification) Name() Stage  { return StageClassifier }
func (*classification) Remote() bool { return true }

func (s *classification) Attempt(ctx context.Context, req Request) (*Decision, error) {
	result, ok, err := s.classifier.Classify(ctx, req.Utterance)
	if err != nil || !ok {
		return nil, err
	}
	intent, ok := result.Intent(req.Utterance)
	if !ok {
		s.logger.Debug("classification missing parameters",
			"category", string(result.Category),
			"parameters", result.Parameters,
		)
		return nil, nil
	}
	return &Decision{
		Stage: StageClassifier,
		Label: string(result.Category),
		Run: func(ctx context.Context) command.Result {
			return s.exec.Dispatch(ctx, intent, req.Snapshot)
		},
	}, nil
}

type patternScan struct {
	exec Executor
}

// PatternScan matches the request's pattern list directly; first match wins.
func PatternScan(exec Executor) Resolver {
	return &patternScan{exec: exec}
}

func (*patternScan) Name() Stage  { return StagePatterns }
func (*patternScan) Remote() bool { return false }

func (s *patternScan) Attempt(_ context.Context, req Request) (*Decision, error) {
	p, captures, ok := patterns.Match(req.Patterns, req.Utterance)
	if !ok {
		return nil, nil
	}
	return patternDecision(StagePatterns, s.exec, p, captures, req), nil
}

type fuzzyStage struct {
	matcher FuzzyMatcher
	exec    Executor
}

// Fuzzy asks the language model to choose from the request's pattern list.
func Fuzzy(m FuzzyMatcher, exec Executor) Resolver {
	return &fuzzyStage{matcher: m, exec: exec}
}

func (*fuzzyStage) Name() Stage  { return StageFuzzy }
func (*fuzzyStage) Remote() bool { return true }

func (s *fuzzyStage) Attempt(ctx context.Context, req Request) (*Decision, error) {
	p, ok, err := s.matcher.Match(ctx, req.Utterance, patterns.FuzzyCandidates(req.Patterns))
	if err != nil || !ok || p.NeedsCaptures {
		return nil, err
	}
	// A chosen pattern did not match literally, so group 0 carries the whole utterance.
	captures := patterns.Captures{req.Utterance}
	return patternDecision(StageFuzzy, s.exec, p, captures, req), nil
}

func patternDecision(stage Stage, exec Executor, p patterns.Pattern, captures patterns.Captures, req Request) *Decision {
	return &Decision{
		Stage:      stage,
		Label:      p.Label(),
		InsertText: !p.PreventDefault,
		Run: func(ctx context.Context) command.Result {
			return exec.ExecutePattern(ctx, p, captures, req.Utterance, req.Snapshot)
		},
	}
}

// runRequest recognizes utterances that ask to run something.
var runRequest = regexp.MustCompile(`(?i)^(?:run|start|execute|launch|npm|yarn|pnpm|make|poetry run)\s+(.+)$`)

type scriptStage struct {
	finder ScriptFinder
	exec   Executor
}

// Scripts looks "run X" style utterances up in the project's task list.
func Scripts(finder ScriptFinder, exec Executor) Resolver {
	return &scriptStage{finder: finder, exec: exec}
}

func (*scriptStage) Name() Stage  { return StageScripts }
func (*scriptStage) Remote() bool { return true }

func (s *scriptStage) Attempt(ctx context.Context, req Request) (*Decision, error) {
	m := runRequest.FindStringSubmatch(req.Utterance)
	if m == nil {
		return nil, nil
	}
	script, ok, err := s.finder.Lookup(ctx, strings.TrimSpace(m[1]))
	if err != nil || !ok {
		return nil, err
	}
	return &Decision{
		Stage: StageScripts,
		Label: script.Name,
		Run: func(ctx context.Context) command.Result {
			return s.exec.RunScript(ctx, script, req.Snapshot)
		},
	}, nil
}

// StandardOptions selects the stages of the default order.
type StandardOptions struct {
	Classifier Classifier
	Fuzzy      FuzzyMatcher
	Scripts    ScriptFinder
	Executor   Executor
	EnableLLM  bool
	Logger     *slog.Logger
}

// Standard returns classification, pattern scan, fuzzy match, then script lookup. Remote
// stages are left out when LLM matching is disabled or their collaborator is missing.
func Standard(opts StandardOptions) []Resolver {
	var out []Resolver
	if opts.EnableLLM && opts.Classifier != nil {
		out = append(out, Classification(opts.Classifier, opts.Executor, opts.Logger))
	}
	out = append(out, PatternScan(opts.Executor))
	if opts.EnableLLM && opts.Fuzzy != nil {
		out = append(out, Fuzzy(opts.Fuzzy, opts.Executor))
	}
	if opts.Scripts != nil {
		out = append(out, Scripts(opts.Scripts, opts.Executor))
	}
	return out
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
