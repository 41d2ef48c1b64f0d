// Package dispatch executes resolved commands against the editor.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/vocode/internal/assist"
	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/scripts"
)

// FileLister enumerates candidate files for open-file commands.
type FileLister interface {
	Files(ctx context.Context) ([]string, error)
}

// Options wires a Dispatcher. Host and Tracker are required; the rest are optional and the
// commands that need them report failure when absent. Thinking is shown while an
// execution-time model call runs, each bounded by ModelTimeout (DefaultModelTimeout when zero).
type Options struct {
	Host         editor.Host
	Tracker      *editor.Tracker
	Files        FileLister
	Scripts      *scripts.Resolver
	Assistant    *assist.Assistant
	Locator      llm.Backend
	Suggestions  *editor.SuggestionSlot
	Thinking     Indicator
	ModelTimeout time.Duration
	Logger       *slog.Logger
}

// Indicator is the thinking notice shown around slow calls.
type Indicator interface {
	ShowThinking(ctx context.Context)
	HideThinking(ctx context.Context)
}

// DefaultModelTimeout bounds execution-time model calls when Options.ModelTimeout is unset.
const DefaultModelTimeout = 15 * time.Second

// Dispatcher performs the effect of a resolved command. Every call returns exactly one result.
type Dispatcher struct {
	host        editor.Host
	tracker     *editor.Tracker
	files       FileLister
	scripts     *scripts.Resolver
	assistant   *assist.Assistant
	locator     llm.Backend
	suggestions *editor.SuggestionSlot
	thinking    Indicator
	timeout     time.Duration
	logger      *slog.Logger
}

// New constructs a Dispatcher.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tracker := opts.Tracker
	if tracker == nil {
		tracker = editor.NewTracker(opts.Host)
	}
	suggestions := opts.Suggestions
	if suggestions == nil {
		suggestions = &editor.SuggestionSlot{}
	}
	timeout := opts.ModelTimeout
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &Dispatcher{
		host:        opts.Host,
		tracker:     tracker,
		files:       opts.Files,
		scripts:     opts.Scripts,
		assistant:   opts.Assistant,
		locator:     opts.Locator,
		suggestions: suggestions,
		thinking:    opts.Thinking,
		timeout:     timeout,
		logger:      logger,
	}
}

// remote runs a model call under the execution timeout with the thinking notice up.
func (d *Dispatcher) remote(ctx context.Context, call func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if d.thinking != nil {
		d.thinking.ShowThinking(callCtx)
		defer d.thinking.HideThinking(callCtx)
	}
	return call(callCtx)
}

// Suggestions exposes the live inline-suggestion slot.
func (d *Dispatcher) Suggestions() *editor.SuggestionSlot {
	return d.suggestions
}

// Dispatch executes intent against the editor the snapshot refers to.
func (d *Dispatcher) Dispatch(ctx context.Context, intent command.Intent, snap editor.Snapshot) command.Result {
	switch in := intent.(type) {
	case command.GoToLine:
		return d.goToLine(ctx, in.Line, snap)
	case command.GoToFunction:
		return d.goToFunction(ctx, in.Name, snap)
	case command.GoToVariable:
		return d.goToVariable(ctx, in.Name, snap)
	case command.GoToParent:
		return d.goToParent(ctx, snap)
	case command.RunScript:
		return d.runScript(ctx, in.Name, snap)
	case command.OpenFile:
		return d.openFile(ctx, in.Name, in.Type)
	case command.EditorOp:
		return d.editorOp(ctx, in.Action, in.Args, snap)
	case command.GenerateCode:
		return d.generate(ctx, in.Request, snap)
	case command.AskQuestion:
		return d.ask(ctx, in.Question, snap)
	default:
		return command.Failed(fmt.Sprintf("Unsupported command %T", intent))
	}
}

const noEditorMessage = "No active editor"

// target revalidates the snapshot and walks the editor fallback chain.
func (d *Dispatcher) target(snap editor.Snapshot) (editor.View, bool) {
	view, err := d.tracker.Resolve(snap)
	if err != nil {
		if !snap.IsZero() {
			d.logger.Debug("snapshot editor unavailable", "uri", snap.Document.URI, "error", err.Error())
		}
		return editor.View{}, false
	}
	return view, true
}

var actionMessages = map[editor.Action]string{
	editor.ActionSave:           "Saved",
	editor.ActionSaveAll:        "Saved all files",
	editor.ActionUndo:           "Undone",
	editor.ActionRedo:           "Redone",
	editor.ActionCopy:           "Copied",
	editor.ActionCut:            "Cut",
	editor.ActionPaste:          "Pasted",
	editor.ActionFormat:         "Formatted",
	editor.ActionCloseEditor:    "Closed editor",
	editor.ActionGoToDefinition: "Moved to definition",
}

func actionMessage(action editor.Action) string {
	if msg, ok := actionMessages[action]; ok {
		return msg
	}
	label := strings.ReplaceAll(string(action), "_", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

func (d *Dispatcher) editorOp(ctx context.Context, action editor.Action, args []string, snap editor.Snapshot) command.Result {
	if _, ok := editor.ParseAction(string(action)); !ok {
		return command.Failed(fmt.Sprintf("Unknown editor action %q", action))
	}

	uri := ""
	view, ok := d.target(snap)
	switch {
	case ok:
		uri = view.Document.URI
	case action != editor.ActionSaveAll && action != editor.ActionRunInTerminal:
		return command.Missing(noEditorMessage)
	}

	if err := d.host.Execute(ctx, uri, action, args...); err != nil {
		return d.executeFailure(action, err)
	}
	return command.Success(actionMessage(action))
}

func (d *Dispatcher) executeFailure(action editor.Action, err error) command.Result {
	d.logger.Warn("editor action failed", "action", string(action), "error", err.Error())
	switch {
	case errors.Is(err, editor.ErrNotFound):
		return command.Missing("Definition not found")
	case errors.Is(err, editor.ErrDocumentClosed):
		return command.Missing(noEditorMessage)
	case errors.Is(err, editor.ErrUnknownAction):
		return command.Failed(fmt.Sprintf("The editor cannot %s", strings.ReplaceAll(string(action), "_", " ")))
	default:
		return command.Failed(fmt.Sprintf("%s failed: %v", actionMessage(action), err))
	}
}

func (d *Dispatcher) runScript(ctx context.Context, name string, snap editor.Snapshot) command.Result {
	if d.scripts == nil {
		return command.Missing("No project scripts available")
	}
	script, ok, err := d.scripts.Lookup(ctx, name)
	if err != nil {
		return command.Failed(err.Error())
	}
	if !ok {
		return command.Missing(fmt.Sprintf("No script named %q", name))
	}
	return d.RunScript(ctx, script, snap)
}

// RunScript starts a resolved project script in the terminal.
func (d *Dispatcher) RunScript(ctx context.Context, script scripts.Script, snap editor.Snapshot) command.Result {
	uri := ""
	if view, ok := d.target(snap); ok {
		uri = view.Document.URI
	}
	if err := d.host.Execute(ctx, uri, editor.ActionRunInTerminal, script.Run); err != nil {
		return d.executeFailure(editor.ActionRunInTerminal, err)
	}
	return command.Success(fmt.Sprintf("Running %s", script.Name))
}

func (d *Dispatcher) excerpt(view editor.View) assist.Excerpt {
	text, err := d.host.Text(view.Document.URI)
	if err != nil {
		return assist.Excerpt{}
	}
	return assist.Excerpt{
		Path:     view.Document.Path,
		Language: view.Document.Language,
		Text:     text,
		Line:     view.Cursor.Line,
	}
}

func (d *Dispatcher) generate(ctx context.Context, request string, snap editor.Snapshot) command.Result {
	if d.assistant == nil {
		return command.Failed("Code generation is not configured")
	}
	view, ok := d.target(snap)
	if !ok {
		return command.Missing(noEditorMessage)
	}
	var code string
	err := d.remote(ctx, func(ctx context.Context) (err error) {
		code, err = d.assistant.Generate(ctx, request, d.excerpt(view))
		return err
	})
	if err != nil {
		return command.Failed(err.Error())
	}

	at := view.Selection
	if at.IsEmpty() {
		at = editor.Range{Start: view.Cursor, End: view.Cursor}
	}
	if err := d.host.ApplyEdit(ctx, view.Document.URI, at, code); err != nil {
		return command.Failed(fmt.Sprintf("Insert generated code failed: %v", err))
	}
	return command.Success("Inserted generated code")
}

func (d *Dispatcher) ask(ctx context.Context, question string, snap editor.Snapshot) command.Result {
	if d.assistant == nil {
		return command.Failed("Question answering is not configured")
	}
	var doc assist.Excerpt
	if view, ok := d.target(snap); ok {
		doc = d.excerpt(view)
	}
	var answer string
	err := d.remote(ctx, func(ctx context.Context) (err error) {
		answer, err = d.assistant.Answer(ctx, question, doc)
		return err
	})
	if err != nil {
		return command.Failed(err.Error())
	}
	return command.Success(summarize(answer, 120)).WithSpeech(answer)
}

func summarize(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
