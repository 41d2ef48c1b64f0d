package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/feedback"
	"github.com/rbright/vocode/internal/fsm"
	"github.com/rbright/vocode/internal/resolve"
	"github.com/rbright/vocode/internal/utterance"
	"github.com/stretchr/testify/require"
)

type notice struct {
	message  string
	severity feedback.Severity
}

type fakeFeedback struct {
	mu          sync.Mutex
	notices     []notice
	speechStops atomic.Int32
}

func (f *fakeFeedback) Notify(_ context.Context, message string, severity feedback.Severity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice{message: message, severity: severity})
}

func (*fakeFeedback) ShowThinking(context.Context)  {}
func (*fakeFeedback) HideThinking(context.Context)  {}
func (*fakeFeedback) Speak(context.Context, string) {}
func (f *fakeFeedback) StopSpeech()                 { f.speechStops.Add(1) }

func (f *fakeFeedback) all() []notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notice(nil), f.notices...)
}

type commit struct {
	text string
	snap editor.Snapshot
}

type fakeCommitter struct {
	mu      sync.Mutex
	commits []commit
	err     error
}

func (f *fakeCommitter) Commit(_ context.Context, text string, snap editor.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.commits = append(f.commits, commit{text: text, snap: snap})
	return nil
}

func unresolvedAt(snap editor.Snapshot) Resolver {
	return ResolverFunc(func(_ context.Context, u string) (resolve.Outcome, error) {
		return resolve.Outcome{Utterance: u, Snapshot: snap, Stage: resolve.StageUnresolved}, nil
	})
}

func TestSubmitCommitsFormattedTextWhenUnresolved(t *testing.T) {
	snap := editor.Snapshot{Document: editor.DocumentForPath("/tmp/notes.txt"), Cursor: editor.Position{Line: 3, Column: 2}}
	committer := &fakeCommitter{}
	sink := &fakeFeedback{}
	ctrl := NewController(Options{
		Resolver:  unresolvedAt(snap),
		Committer: committer,
		Feedback:  sink,
		Format:    utterance.Options{Capitalize: true, TrailingSpace: true},
	})

	result := ctrl.Submit(context.Background(), "um i think this works.")
	require.NoError(t, result.Err)
	require.Equal(t, "i think this works", result.Utterance)
	require.Equal(t, "I think this works ", result.Committed)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Equal(t, []commit{{text: "I think this works ", snap: snap}}, committer.commits)
	require.Empty(t, sink.all())
}

func TestSubmitResolvedCommandDoesNotCommit(t *testing.T) {
	committer := &fakeCommitter{}
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(_ context.Context, u string) (resolve.Outcome, error) {
			return resolve.Outcome{Utterance: u, Resolved: true, Stage: resolve.StagePatterns, Result: command.Success("Saved")}, nil
		}),
		Committer: committer,
	})

	result := ctrl.Submit(context.Background(), "save file")
	require.NoError(t, result.Err)
	require.Empty(t, result.Committed)
	require.Empty(t, committer.commits)
	require.Equal(t, resolve.StagePatterns, result.Outcome.Stage)
}

func TestSubmitResolvedPatternWithDefaultInsertionCommits(t *testing.T) {
	committer := &fakeCommitter{}
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(_ context.Context, u string) (resolve.Outcome, error) {
			return resolve.Outcome{Utterance: u, Resolved: true, InsertText: true, Result: command.Success("Logged")}, nil
		}),
		Committer: committer,
	})

	result := ctrl.Submit(context.Background(), "note to self")
	require.NoError(t, result.Err)
	require.Equal(t, "note to self", result.Committed)
	require.Len(t, committer.commits, 1)
}

func TestSubmitDropsNoise(t *testing.T) {
	var calls atomic.Int32
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(context.Context, string) (resolve.Outcome, error) {
			calls.Add(1)
			return resolve.Outcome{}, nil
		}),
	})

	for _, raw := range []string{"", "   ", "[BLANK_AUDIO]", "um.", "Thanks for watching!"} {
		result := ctrl.Submit(context.Background(), raw)
		require.ErrorIs(t, result.Err, ErrEmptyUtterance, raw)
		require.Equal(t, fsm.StateIdle, result.State)
	}
	require.Zero(t, calls.Load())
}

func TestSubmitAbortNotifiesCancelledOnce(t *testing.T) {
	committer := &fakeCommitter{}
	sink := &fakeFeedback{}
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(_ context.Context, u string) (resolve.Outcome, error) {
			return resolve.Outcome{Utterance: u, Stage: resolve.StageUnresolved, Aborted: true}, nil
		}),
		Committer:     committer,
		Feedback:      sink,
		CancelledText: "취소됨",
	})

	result := ctrl.Submit(context.Background(), "explain this function")
	require.True(t, result.Cancelled)
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Empty(t, committer.commits)
	require.Equal(t, []notice{{message: "취소됨", severity: feedback.SeverityWarning}}, sink.all())
}

func TestSubmitResolverErrorResetsToIdle(t *testing.T) {
	sink := &fakeFeedback{}
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(context.Context, string) (resolve.Outcome, error) {
			return resolve.Outcome{}, errors.New("openai: set OPENAI_API_KEY: llm credentials not configured")
		}),
		Feedback: sink,
	})

	result := ctrl.Submit(context.Background(), "go to line 4")
	require.Error(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
	require.Empty(t, sink.all())
}

func TestSubmitCommitFailure(t *testing.T) {
	sink := &fakeFeedback{}
	ctrl := NewController(Options{
		Resolver:  unresolvedAt(editor.Snapshot{}),
		Committer: &fakeCommitter{err: errors.New("no focused window")},
		Feedback:  sink,
	})

	result := ctrl.Submit(context.Background(), "hello there")
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "commit text")
	require.Equal(t, fsm.StateIdle, result.State)
	require.Equal(t, []notice{{message: "Text insertion failed", severity: feedback.SeverityError}}, sink.all())
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(_ context.Context, u string) (resolve.Outcome, error) {
			close(entered)
			<-release
			return resolve.Outcome{Utterance: u, Resolved: true, Result: command.Success("done")}, nil
		}),
	})

	first := make(chan Result, 1)
	go func() { first <- ctrl.Submit(context.Background(), "format document") }()

	<-entered
	require.Equal(t, fsm.StateResolving, ctrl.State())
	second := ctrl.Submit(context.Background(), "save file")
	require.ErrorIs(t, second.Err, ErrBusy)

	close(release)
	result := <-first
	require.NoError(t, result.Err)
	require.Equal(t, fsm.StateIdle, result.State)
}

func TestStopCancelsInFlightResolution(t *testing.T) {
	entered := make(chan struct{})
	sink := &fakeFeedback{}
	ctrl := NewController(Options{
		Resolver: ResolverFunc(func(ctx context.Context, u string) (resolve.Outcome, error) {
			close(entered)
			<-ctx.Done()
			return resolve.Outcome{Utterance: u, Stage: resolve.StageUnresolved, Aborted: true}, nil
		}),
		Feedback: sink,
	})

	done := make(chan Result, 1)
	go func() { done <- ctrl.Submit(context.Background(), "what does this do") }()

	<-entered
	require.True(t, ctrl.Stop())

	select {
	case result := <-done:
		require.True(t, result.Cancelled)
		require.Equal(t, fsm.StateIdle, result.State)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not cancel the resolution")
	}
	require.Equal(t, int32(1), sink.speechStops.Load())
	require.Equal(t, []notice{{message: "Cancelled", severity: feedback.SeverityWarning}}, sink.all())

	require.False(t, ctrl.Stop())
}

func TestCommitFuncDelegates(t *testing.T) {
	called := false
	fn := CommitFunc(func(_ context.Context, text string, snap editor.Snapshot) error {
		called = true
		require.Equal(t, "hello", text)
		require.Equal(t, 7, snap.Cursor.Line)
		return nil
	})

	require.NoError(t, fn.Commit(context.Background(), "hello", editor.Snapshot{Cursor: editor.Position{Line: 7}}))
	require.True(t, called)
}

func TestResultTimestampsAdvance(t *testing.T) {
	ctrl := NewController(Options{})

	result := ctrl.Submit(context.Background(), "ok then")
	require.False(t, result.StartedAt.IsZero())
	require.False(t, result.FinishedAt.IsZero())
	require.False(t, result.FinishedAt.Before(result.StartedAt))
	require.LessOrEqual(t, result.FinishedAt.Sub(result.StartedAt), 2*time.Second)
}
