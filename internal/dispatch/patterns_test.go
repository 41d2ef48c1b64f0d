package dispatch

import (
	"context"
	"testing"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/patterns"
	"github.com/stretchr/testify/require"
)

func TestDefaultPatternsAreValid(t *testing.T) {
	f := newFixture(t, nil, Options{})
	for _, p := range DefaultPatterns(f.d) {
		require.NoError(t, p.Validate(), p.Label())
		require.True(t, p.PreventDefault, p.Label())
	}
}

func TestDefaultPatternsFlagRulesThatReadCaptures(t *testing.T) {
	f := newFixture(t, nil, Options{})

	needs := map[string]bool{}
	for _, p := range DefaultPatterns(f.d) {
		needs[p.Action] = p.NeedsCaptures
	}
	for _, action := range []string{"go_to_function", "find_function", "go_to_variable", "open_file", "run_script", "go_to_line"} {
		require.True(t, needs[action], action)
	}
	for _, action := range []string{"go_to_parent", "accept_suggestion", "save", "indent"} {
		require.False(t, needs[action], action)
	}
}

func TestDefaultPatternsPreferSpecificRules(t *testing.T) {
	f := newFixture(t, nil, Options{})
	list := DefaultPatterns(f.d)

	cases := map[string]string{
		"go to function line 12":         "go_to_function",
		"find the handleSubmit function": "find_function",
		"jump to variable total":         "go_to_variable",
		"go to parent scope":             "go_to_parent",
		"go to line 42":                  "go_to_line",
		"save file":                      "save",
		"save all":                       "save_all",
		"Save File":                      "save",
		"indent 3 times":                 "indent",
		"open main dot go":               "open_file",
		"run the script build":           "run_script",
		"accept suggestion":              "accept_suggestion",
	}
	for utterance, action := range cases {
		p, _, ok := patterns.Match(list, utterance)
		require.True(t, ok, utterance)
		require.Equal(t, action, p.Action, utterance)
	}

	_, _, ok := patterns.Match(list, "asdkfjasldkf")
	require.False(t, ok)
}

func TestSaveFileDispatchesSaveOnce(t *testing.T) {
	host := &countingHost{fakeView: editor.View{
		Document:  editor.Document{URI: "file:///tmp/a.go", Path: "/tmp/a.go", Language: "go"},
		LineCount: 3,
	}}
	d := New(Options{Host: host})
	list := DefaultPatterns(d)

	p, captures, ok := patterns.Match(list, "save file")
	require.True(t, ok)
	result := d.ExecutePattern(context.Background(), p, captures, "save file", editor.SnapshotOf(host.fakeView))
	require.True(t, result.OK())
	require.Equal(t, []editor.Action{editor.ActionSave}, host.executed)
}

func TestExecutePatternInsertTextAndArgs(t *testing.T) {
	f := newFixture(t, map[string]string{"main.go": "x\n"}, Options{})
	snap := f.open(t, "main.go", 0, 0)

	insert := patterns.Pattern{
		Description: "log line",
		Matcher:     patterns.Literal("log it"),
		Action:      "insert_text",
		InsertText:  "log.Println()\n",
	}
	result := f.d.ExecutePattern(context.Background(), insert, patterns.Captures{"log it"}, "log it", snap)
	require.True(t, result.OK(), result.Message)
	text, _ := f.ws.Text(snap.Document.URI)
	require.Equal(t, "log.Println()\nx\n", text)

	list := DefaultPatterns(f.d)
	p, captures, ok := patterns.Match(list, "indent 2 times")
	require.True(t, ok)
	snap, err := f.tracker.Capture()
	require.NoError(t, err)
	result = f.d.ExecutePattern(context.Background(), p, captures, "indent 2 times", snap)
	require.True(t, result.OK(), result.Message)
	text, _ = f.ws.Text(snap.Document.URI)
	require.Equal(t, "log.Println()\n\t\tx\n", text)
}

func TestSuggestionPatterns(t *testing.T) {
	f := newFixture(t, map[string]string{"main.go": "x\n"}, Options{})
	snap := f.open(t, "main.go", 0, 1)
	list := DefaultPatterns(f.d)
	run := func(utterance string) command.Result {
		p, captures, ok := patterns.Match(list, utterance)
		require.True(t, ok, utterance)
		return f.d.ExecutePattern(context.Background(), p, captures, utterance, snap)
	}

	require.Equal(t, command.StatusTargetMissing, run("accept suggestion").Status)

	f.d.Suggestions().Offer(0, " := 1")
	read := run("read suggestion")
	require.Equal(t, " := 1", read.Speech)

	require.True(t, run("accept suggestion").OK())
	text, _ := f.ws.Text(snap.Document.URI)
	require.Equal(t, "x := 1\n", text)

	f.d.Suggestions().Offer(0, "y")
	require.True(t, run("dismiss suggestion").OK())
	_, live := f.d.Suggestions().Current()
	require.False(t, live)
	require.Equal(t, command.StatusTargetMissing, run("reject suggestion").Status)
}

type countingHost struct {
	fakeView editor.View
	executed []editor.Action
}

func (h *countingHost) Focused() (editor.View, bool) { return h.fakeView, true }
func (h *countingHost) Visible() []editor.View { return []editor.View{h.fakeView} }
func (h *countingHost) View(uri string) (editor.View, bool) {
	return h.fakeView, uri == h.fakeView.Document.URI
}
func (h *countingHost) IsOpen(uri string) bool { return uri == h.fakeView.Document.URI }
func (h *countingHost) Text(string) (string, error) { return "", nil }
func (h *countingHost) Subscribe(editor.FocusListener) func() { return func() {} }
func (h *countingHost) Open(context.Context, string) (editor.View, error) {
	return h.fakeView, nil
}
func (h *countingHost) Reveal(context.Context, string, editor.Position) error { return nil }
func (h *countingHost) ApplyEdit(context.Context, string, editor.Range, string) error {
	return nil
}
func (h *countingHost) Execute(_ context.Context, _ string, action editor.Action, _ ...string) error {
	h.executed = append(h.executed, action)
	return nil
}
func (h *countingHost) Symbols(context.Context, string) ([]editor.Symbol, error) { return nil, nil }
func (h *countingHost) Pick(context.Context, string, []string) (int, error) { return 0, nil }
