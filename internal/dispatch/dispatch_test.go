package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/vocode/internal/assist"
	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/workspace"
	"github.com/stretchr/testify/require"
)

const goSource = `package main

import "fmt"

func helper() int {
	count := 0
	return count
}

func main() {
	fmt.Println(helper())
}
`

const pySource = `class Cart:
    def total(self):
        subtotal = 1
        return subtotal
`

type scriptedBackend struct {
	reply string
	err   error
	calls int
	last  llm.Request
}

func (b *scriptedBackend) Complete(_ context.Context, req llm.Request) (string, error) {
	b.calls++
	b.last = req
	return b.reply, b.err
}

// stalledBackend answers only when its context ends.
type stalledBackend struct{}

func (stalledBackend) Complete(ctx context.Context, _ llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type recordingIndicator struct {
	events []string
}

func (r *recordingIndicator) ShowThinking(context.Context) { r.events = append(r.events, "show") }
func (r *recordingIndicator) HideThinking(context.Context) { r.events = append(r.events, "hide") }

type fixture struct {
	ws      *workspace.Workspace
	tracker *editor.Tracker
	d       *Dispatcher
	picked  [][]string
}

func newFixture(t *testing.T, files map[string]string, opts Options) *fixture {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	f := &fixture{}
	ws, err := workspace.New(workspace.Options{
		Root: root,
		Picker: func(_ string, items []string) (int, error) {
			f.picked = append(f.picked, items)
			return len(items) - 1, nil
		},
		Runner: &recordingRunner{},
	})
	require.NoError(t, err)

	tracker := editor.NewTracker(ws)
	tracker.Start()
	t.Cleanup(tracker.Close)

	opts.Host = ws
	opts.Tracker = tracker
	if opts.Files == nil {
		opts.Files = ws
	}
	f.ws = ws
	f.tracker = tracker
	f.d = New(opts)
	return f
}

func (f *fixture) open(t *testing.T, name string, line int, column int) editor.Snapshot {
	t.Helper()
	view, err := f.ws.Open(context.Background(), name)
	require.NoError(t, err)
	require.NoError(t, f.ws.Reveal(context.Background(), view.Document.URI, editor.Position{Line: line, Column: column}))
	snap, err := f.tracker.Capture()
	require.NoError(t, err)
	return snap
}

func (f *fixture) cursor(t *testing.T) editor.Position {
	t.Helper()
	view, ok := f.ws.Focused()
	require.True(t, ok)
	return view.Cursor
}

type recordingRunner struct {
	commands []string
}

func (r *recordingRunner) Run(_ context.Context, _ string, command string) error {
	r.commands = append(r.commands, command)
	return nil
}

func TestGoToLineMovesCursorToZeroIndexedLine(t *testing.T) {
	f := newFixture(t, map[string]string{"long.txt": strings.Repeat("line\n", 60)}, Options{})
	snap := f.open(t, "long.txt", 0, 0)

	result := f.d.Dispatch(context.Background(), command.GoToLine{Line: 42}, snap)
	require.Equal(t, command.StatusSuccess, result.Status)
	require.Equal(t, editor.Position{Line: 41}, f.cursor(t))
}

func TestGoToLineWithoutEditor(t *testing.T) {
	f := newFixture(t, nil, Options{})

	result := f.d.Dispatch(context.Background(), command.GoToLine{Line: 42}, editor.Snapshot{})
	require.Equal(t, command.StatusTargetMissing, result.Status)
	require.Equal(t, "No active editor", result.Message)
}

func TestGoToLineOutOfRangeLeavesCursor(t *testing.T) {
	f := newFixture(t, map[string]string{"short.txt": "a\nb\n"}, Options{})
	snap := f.open(t, "short.txt", 1, 0)

	for _, line := range []int{0, 3} {
		result := f.d.Dispatch(context.Background(), command.GoToLine{Line: line}, snap)
		require.Equal(t, command.StatusTargetMissing, result.Status)
	}
	require.Equal(t, editor.Position{Line: 1}, f.cursor(t))
}

func TestStaleSnapshotFallsBackToFocusedEditor(t *testing.T) {
	f := newFixture(t, map[string]string{"a.txt": "a\n", "b.txt": strings.Repeat("b\n", 5)}, Options{})
	stale := f.open(t, "a.txt", 0, 0)
	f.open(t, "b.txt", 0, 0)
	require.NoError(t, f.ws.Close(stale.Document.URI))

	result := f.d.Dispatch(context.Background(), command.GoToLine{Line: 4}, stale)
	require.True(t, result.OK())

	view, ok := f.ws.Focused()
	require.True(t, ok)
	require.True(t, strings.HasSuffix(view.Document.Path, "b.txt"))
	require.Equal(t, 3, view.Cursor.Line)
}

func TestGoToFunctionUsesSymbolTreeFirst(t *testing.T) {
	locator := &scriptedBackend{reply: "1"}
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{Locator: locator})
	snap := f.open(t, "main.go", 10, 0)

	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "Helper"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, editor.Position{Line: 4}, f.cursor(t))
	require.Zero(t, locator.calls)
}

func TestGoToFunctionFallsBackToLocator(t *testing.T) {
	source := "# build helpers\n\ndef_build() {\n  echo hi\n}\n"
	locator := &scriptedBackend{reply: "```\n3\n```"}
	f := newFixture(t, map[string]string{"build.txt": source}, Options{Locator: locator})
	snap := f.open(t, "build.txt", 0, 0)

	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "def_build"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, editor.Position{Line: 2}, f.cursor(t))
	require.Contains(t, locator.last.User, "3: def_build() {")
}

func TestGoToFunctionNotFound(t *testing.T) {
	locator := &scriptedBackend{reply: "NOT_FOUND"}
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{Locator: locator})
	snap := f.open(t, "main.go", 10, 0)

	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "missing"}, snap)
	require.Equal(t, command.StatusTargetMissing, result.Status)
	require.Equal(t, editor.Position{Line: 10}, f.cursor(t))
}

func TestGoToFunctionMissingCredentialsFails(t *testing.T) {
	locator := llm.Unconfigured{Provider: "openai", EnvVars: []string{"OPENAI_API_KEY"}}
	f := newFixture(t, map[string]string{"notes.txt": "nothing\n"}, Options{Locator: locator})
	snap := f.open(t, "notes.txt", 0, 0)

	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "x"}, snap)
	require.Equal(t, command.StatusFailed, result.Status)
	require.Contains(t, result.Message, "OPENAI_API_KEY")
}

func TestGoToFunctionLocatorIsBoundedByModelTimeout(t *testing.T) {
	indicator := &recordingIndicator{}
	f := newFixture(t, map[string]string{"notes.txt": "nothing\n"}, Options{
		Locator:      stalledBackend{},
		Thinking:     indicator,
		ModelTimeout: 50 * time.Millisecond,
	})
	snap := f.open(t, "notes.txt", 0, 0)

	start := time.Now()
	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "build"}, snap)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, command.StatusTargetMissing, result.Status)
	require.Equal(t, []string{"show", "hide"}, indicator.events)
}

func TestGoToFunctionShowsThinkingAroundLocator(t *testing.T) {
	indicator := &recordingIndicator{}
	locator := &scriptedBackend{reply: "1"}
	f := newFixture(t, map[string]string{"notes.txt": "def_build\n"}, Options{Locator: locator, Thinking: indicator})
	snap := f.open(t, "notes.txt", 0, 0)

	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "def_build"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, []string{"show", "hide"}, indicator.events)
}

func TestGoToFunctionSymbolHitSkipsThinking(t *testing.T) {
	indicator := &recordingIndicator{}
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{Locator: &scriptedBackend{}, Thinking: indicator})
	snap := f.open(t, "main.go", 10, 0)

	result := f.d.Dispatch(context.Background(), command.GoToFunction{Name: "helper"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Empty(t, indicator.events)
}

func TestGoToVariable(t *testing.T) {
	f := newFixture(t, map[string]string{"main.go": goSource, "cart.py": pySource}, Options{})

	snap := f.open(t, "main.go", 0, 0)
	result := f.d.Dispatch(context.Background(), command.GoToVariable{Name: "count"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, editor.Position{Line: 5, Column: 1}, f.cursor(t))

	snap = f.open(t, "cart.py", 0, 0)
	result = f.d.Dispatch(context.Background(), command.GoToVariable{Name: "subtotal"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, editor.Position{Line: 2, Column: 8}, f.cursor(t))

	result = f.d.Dispatch(context.Background(), command.GoToVariable{Name: "nothing"}, snap)
	require.Equal(t, command.StatusTargetMissing, result.Status)
	require.Equal(t, editor.Position{Line: 2, Column: 8}, f.cursor(t))
}

func TestGoToVariableFallsBackToDefinition(t *testing.T) {
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{})
	snap := f.open(t, "main.go", 10, 0)

	result := f.d.Dispatch(context.Background(), command.GoToVariable{Name: "main"}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, editor.Position{Line: 9}, f.cursor(t))
}

func TestGoToParent(t *testing.T) {
	f := newFixture(t, map[string]string{"cart.py": pySource, "main.go": goSource}, Options{})

	snap := f.open(t, "cart.py", 3, 10)
	result := f.d.Dispatch(context.Background(), command.GoToParent{}, snap)
	require.True(t, result.OK(), result.Message)
	require.Equal(t, "Parent Cart", result.Message)
	require.Equal(t, editor.Position{}, f.cursor(t))

	snap = f.open(t, "main.go", 5, 1)
	result = f.d.Dispatch(context.Background(), command.GoToParent{}, snap)
	require.Equal(t, command.StatusTargetMissing, result.Status)
	require.Contains(t, result.Message, "helper has no parent scope")

	snap = f.open(t, "main.go", 1, 0)
	result = f.d.Dispatch(context.Background(), command.GoToParent{}, snap)
	require.Equal(t, command.StatusTargetMissing, result.Status)
}

func TestOpenFileByNameAndType(t *testing.T) {
	f := newFixture(t, map[string]string{
		"cmd/app/main.go": "package main\n",
		"scripts/a.py":    "print(1)\n",
		"scripts/b.py":    "print(2)\n",
	}, Options{})

	result := f.d.Dispatch(context.Background(), command.OpenFile{Name: "main dot go"}, editor.Snapshot{})
	require.True(t, result.OK(), result.Message)
	view, ok := f.ws.Focused()
	require.True(t, ok)
	require.True(t, strings.HasSuffix(view.Document.Path, "cmd/app/main.go"))
	require.Empty(t, f.picked)

	result = f.d.Dispatch(context.Background(), command.OpenFile{Type: "파이썬 파일"}, editor.Snapshot{})
	require.True(t, result.OK(), result.Message)
	require.Equal(t, [][]string{{"scripts/a.py", "scripts/b.py"}}, f.picked)
	view, _ = f.ws.Focused()
	require.True(t, strings.HasSuffix(view.Document.Path, "scripts/b.py"))

	result = f.d.Dispatch(context.Background(), command.OpenFile{Type: "cobol"}, editor.Snapshot{})
	require.Equal(t, command.StatusTargetMissing, result.Status)

	result = f.d.Dispatch(context.Background(), command.OpenFile{Name: "zzzz"}, editor.Snapshot{})
	require.Equal(t, command.StatusTargetMissing, result.Status)
}

func TestFileCandidatesRanksFuzzyNames(t *testing.T) {
	files := []string{"internal/cart/user_service.go", "internal/cart/user_service_test.go", "README.md"}

	got, err := FileCandidates(files, "user service", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Contains(t, got, "internal/cart/user_service.go")

	got, err = FileCandidates(files, "readme", "")
	require.NoError(t, err)
	require.Equal(t, []string{"README.md"}, got)

	got, err = FileCandidates(files, "", "test file")
	require.NoError(t, err)
	require.Equal(t, []string{"internal/cart/user_service_test.go"}, got)
}

func TestEditorOpSavesTargetDocument(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.txt": "one\n"}, Options{})
	snap := f.open(t, "notes.txt", 0, 3)
	require.True(t, f.d.Insert(context.Background(), " two", snap).OK())

	result := f.d.Dispatch(context.Background(), command.EditorOp{Action: editor.ActionSave}, snap)
	require.Equal(t, command.Success("Saved"), result)

	data, err := os.ReadFile(filepath.Join(f.ws.Root(), "notes.txt"))
	require.NoError(t, err)
	require.Equal(t, "one two\n", string(data))
}

func TestEditorOpFailures(t *testing.T) {
	f := newFixture(t, map[string]string{"notes.md": "text\n"}, Options{})

	result := f.d.Dispatch(context.Background(), command.EditorOp{Action: editor.ActionUndo}, editor.Snapshot{})
	require.Equal(t, command.StatusTargetMissing, result.Status)

	snap := f.open(t, "notes.md", 0, 0)
	result = f.d.Dispatch(context.Background(), command.EditorOp{Action: editor.ActionToggleComment}, snap)
	require.Equal(t, command.StatusFailed, result.Status)

	result = f.d.Dispatch(context.Background(), command.EditorOp{Action: "teleport"}, snap)
	require.Equal(t, command.StatusFailed, result.Status)
}

func TestGenerateInsertsOneEditAtCursor(t *testing.T) {
	backend := &scriptedBackend{reply: "```go\n\treturn count * 2\n```"}
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{Assistant: assist.New(backend, 0)})
	snap := f.open(t, "main.go", 6, 0)

	result := f.d.Dispatch(context.Background(), command.GenerateCode{Request: "return twice the count"}, snap)
	require.True(t, result.OK(), result.Message)

	text, err := f.ws.Text(snap.Document.URI)
	require.NoError(t, err)
	require.Contains(t, text, "return count * 2\treturn count\n")

	require.NoError(t, f.ws.Execute(context.Background(), snap.Document.URI, editor.ActionUndo))
	text, _ = f.ws.Text(snap.Document.URI)
	require.Equal(t, goSource, text)
}

func TestAskSpeaksAnswer(t *testing.T) {
	backend := &scriptedBackend{reply: "It prints the helper result."}
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{Assistant: assist.New(backend, 0)})
	snap := f.open(t, "main.go", 10, 0)

	result := f.d.Dispatch(context.Background(), command.AskQuestion{Question: "what does main do"}, snap)
	require.True(t, result.OK())
	require.Equal(t, "It prints the helper result.", result.Speech)
	require.Contains(t, backend.last.User, "func main() {")
}

func TestAssistCallsAreBoundedByModelTimeout(t *testing.T) {
	indicator := &recordingIndicator{}
	f := newFixture(t, map[string]string{"main.go": goSource}, Options{
		Assistant:    assist.New(stalledBackend{}, 0),
		Thinking:     indicator,
		ModelTimeout: 50 * time.Millisecond,
	})
	snap := f.open(t, "main.go", 6, 0)

	start := time.Now()
	result := f.d.Dispatch(context.Background(), command.GenerateCode{Request: "double it"}, snap)
	require.Equal(t, command.StatusFailed, result.Status)

	result = f.d.Dispatch(context.Background(), command.AskQuestion{Question: "what does main do"}, snap)
	require.Equal(t, command.StatusFailed, result.Status)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, []string{"show", "hide", "show", "hide"}, indicator.events)

	text, err := f.ws.Text(snap.Document.URI)
	require.NoError(t, err)
	require.Equal(t, goSource, text)
}

func TestNewDefaultsModelTimeout(t *testing.T) {
	require.Equal(t, DefaultModelTimeout, New(Options{}).timeout)
	require.Equal(t, time.Second, New(Options{ModelTimeout: time.Second}).timeout)
}

func TestAssistUnconfigured(t *testing.T) {
	f := newFixture(t, nil, Options{})
	result := f.d.Dispatch(context.Background(), command.AskQuestion{Question: "why"}, editor.Snapshot{})
	require.Equal(t, command.StatusFailed, result.Status)
}

func TestLocateFunctionReplies(t *testing.T) {
	text := "a\nb\nc\n"
	cases := []struct {
		reply string
		line  int
		found bool
	}{
		{reply: "2", line: 2, found: true},
		{reply: "Line 3.", line: 3, found: true},
		{reply: "NOT_FOUND", found: false},
		{reply: "9", found: false},
		{reply: "no idea", found: false},
	}
	for _, tc := range cases {
		line, found, err := LocateFunction(context.Background(), &scriptedBackend{reply: tc.reply}, "x", text)
		require.NoError(t, err)
		require.Equal(t, tc.found, found, tc.reply)
		require.Equal(t, tc.line, line, tc.reply)
	}
}

func TestFindDeclaration(t *testing.T) {
	cases := []struct {
		name string
		text string
		want editor.Position
	}{
		{name: "go short var", text: "func f() {\n\tx, total := 1, 2\n}", want: editor.Position{Line: 1, Column: 4}},
		{name: "js const", text: "// total\nconst total = 3;", want: editor.Position{Line: 1, Column: 6}},
		{name: "rust let mut", text: "let mut total = 0;", want: editor.Position{Column: 8}},
		{name: "python attr", text: "def f(self):\n    self.total = 0", want: editor.Position{Line: 1, Column: 9}},
		{name: "java typed", text: "return total;\nint total = 0;", want: editor.Position{Line: 1, Column: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FindDeclaration(tc.text, "total")
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}

	_, ok := FindDeclaration("total == 1", "total")
	require.False(t, ok)
}
