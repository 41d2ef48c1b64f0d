package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/patterns"
)

// ExecutePattern runs the behaviour of a matched pattern.
func (d *Dispatcher) ExecutePattern(ctx context.Context, p patterns.Pattern, captures patterns.Captures, utterance string, snap editor.Snapshot) command.Result {
	switch {
	case p.Handler != nil:
		return p.Handler.Execute(ctx, patterns.Invocation{
			Utterance: utterance,
			Captures:  captures,
			Snapshot:  snap,
			Pattern:   p,
		})
	case p.InsertText != "":
		return d.insert(ctx, p.InsertText, snap, "Inserted text")
	}

	action, ok := editor.ParseAction(p.Action)
	if !ok {
		return command.Failed(fmt.Sprintf("Unknown editor action %q", p.Action))
	}
	args, err := p.EditorArgs(captures)
	if err != nil {
		return command.Failed(fmt.Sprintf("Pattern %q: %v", p.Description, err))
	}
	return d.editorOp(ctx, action, args, snap)
}

// Insert writes text at the snapshot cursor, replacing a non-empty selection.
func (d *Dispatcher) Insert(ctx context.Context, text string, snap editor.Snapshot) command.Result {
	return d.insert(ctx, text, snap, "Inserted text")
}

func (d *Dispatcher) insert(ctx context.Context, text string, snap editor.Snapshot, message string) command.Result {
	view, ok := d.target(snap)
	if !ok {
		return command.Missing(noEditorMessage)
	}
	at := view.Selection
	if at.IsEmpty() {
		at = editor.Range{Start: view.Cursor, End: view.Cursor}
	}
	if at.End.Before(at.Start) {
		at.Start, at.End = at.End, at.Start
	}
	if err := d.host.ApplyEdit(ctx, view.Document.URI, at, text); err != nil {
		return command.Failed(fmt.Sprintf("Insert failed: %v", err))
	}
	return command.Success(message)
}

func (d *Dispatcher) acceptSuggestion(ctx context.Context, snap editor.Snapshot) command.Result {
	suggestion, ok := d.suggestions.Take()
	if !ok {
		return command.Missing("No suggestion to accept")
	}
	return d.insert(ctx, suggestion.Text, snap, "Suggestion accepted")
}

func (d *Dispatcher) rejectSuggestion() command.Result {
	if _, ok := d.suggestions.Current(); !ok {
		return command.Missing("No suggestion to dismiss")
	}
	d.suggestions.Clear()
	return command.Success("Suggestion dismissed")
}

func (d *Dispatcher) readSuggestion() command.Result {
	suggestion, ok := d.suggestions.MarkRead()
	if !ok {
		return command.Missing("No suggestion to read")
	}
	return command.Success("Reading suggestion").WithSpeech(suggestion.Text)
}

// intentHandler adapts a capture-to-intent function into a pattern handler.
func (d *Dispatcher) intentHandler(build func(patterns.Captures) (command.Intent, error)) patterns.Handler {
	return patterns.HandlerFunc(func(ctx context.Context, inv patterns.Invocation) command.Result {
		intent, err := build(inv.Captures)
		if err != nil {
			return command.Failed(err.Error())
		}
		return d.Dispatch(ctx, intent, inv.Snapshot)
	})
}

type actionPhrases struct {
	action      editor.Action
	description string
	phrases     []string
}

var editorPhrases = []actionPhrases{
	{editor.ActionSaveAll, "save every open file", []string{"save all", "save all files", "save everything"}},
	{editor.ActionSave, "save the current file", []string{"save file", "save", "save this file", "save the file"}},
	{editor.ActionUndo, "undo the last change", []string{"undo", "undo that"}},
	{editor.ActionRedo, "redo the last undone change", []string{"redo", "redo that"}},
	{editor.ActionCopy, "copy the selection or line", []string{"copy", "copy that", "copy line"}},
	{editor.ActionCut, "cut the selection or line", []string{"cut", "cut that", "cut line"}},
	{editor.ActionPaste, "paste the clipboard", []string{"paste", "paste that"}},
	{editor.ActionSelectAll, "select the whole document", []string{"select all", "select everything"}},
	{editor.ActionSelectLine, "select the current line", []string{"select line", "select this line"}},
	{editor.ActionDeleteLine, "delete the current line", []string{"delete line", "delete this line", "remove line"}},
	{editor.ActionDuplicateLine, "duplicate the current line", []string{"duplicate line", "copy line down"}},
	{editor.ActionToggleComment, "comment or uncomment lines", []string{"toggle comment", "comment", "comment line", "uncomment", "uncomment line"}},
	{editor.ActionFormat, "format the document", []string{"format document", "format file", "format", "format code"}},
	{editor.ActionNewLineBelow, "insert a line below", []string{"new line below", "new line", "line below"}},
	{editor.ActionNewLineAbove, "insert a line above", []string{"new line above", "line above"}},
	{editor.ActionGoToTop, "go to the top of the file", []string{"go to top", "top of file", "go to the top"}},
	{editor.ActionGoToBottom, "go to the bottom of the file", []string{"go to bottom", "bottom of file", "go to the bottom", "go to end"}},
	{editor.ActionCloseEditor, "close the current editor", []string{"close editor", "close file", "close this file", "close tab"}},
	{editor.ActionGoToDefinition, "jump to the definition under the cursor", []string{"go to definition", "jump to definition"}},
}

func phraseMatcher(phrases []string) patterns.Matcher {
	if len(phrases) == 1 {
		return patterns.Literal(phrases[0])
	}
	return patterns.MustRegex(`^(?:` + strings.Join(phrases, "|") + `)$`)
}

// DefaultPatterns is the built-in library. Order is priority: specific phrasings come before
// general ones so that, for example, a function name containing "line 2" is not read as a line
// number.
func DefaultPatterns(d *Dispatcher) []patterns.Pattern {
	handler := func(description string, m patterns.Matcher, action string, build func(patterns.Captures) (command.Intent, error)) patterns.Pattern {
		return patterns.Pattern{
			Description:    description,
			Matcher:        m,
			Action:         action,
			Handler:        d.intentHandler(build),
			PreventDefault: true,
			NeedsCaptures:  true,
			Source:         patterns.SourceDefault,
		}
	}
	local := func(description string, m patterns.Matcher, action string, run func(context.Context, editor.Snapshot) command.Result) patterns.Pattern {
		return patterns.Pattern{
			Description: description,
			Matcher:     m,
			Action:      action,
			Handler: patterns.HandlerFunc(func(ctx context.Context, inv patterns.Invocation) command.Result {
				return run(ctx, inv.Snapshot)
			}),
			PreventDefault: true,
			Source:         patterns.SourceDefault,
		}
	}

	list := []patterns.Pattern{
		handler("go to a function by name",
			patterns.MustRegex(`^(?:go to|jump to|find|show)\s+(?:the\s+)?(?:function|method)\s+([\w.$]+)`),
			"go_to_function",
			func(c patterns.Captures) (command.Intent, error) {
				return command.GoToFunction{Name: c.Group(1)}, nil
			}),
		handler("find a function by name",
			patterns.MustRegex(`^(?:go to|jump to|find|show)\s+(?:the\s+)?([\w.$]+)\s+(?:function|method)$`),
			"find_function",
			func(c patterns.Captures) (command.Intent, error) {
				return command.GoToFunction{Name: c.Group(1)}, nil
			}),
		handler("go to a variable definition",
			patterns.MustRegex(`^(?:go to|jump to|find|show)\s+(?:the\s+)?variable\s+([\w$]+)`),
			"go_to_variable",
			func(c patterns.Captures) (command.Intent, error) {
				return command.GoToVariable{Name: c.Group(1)}, nil
			}),
		local("go to the enclosing scope",
			patterns.MustRegex(`^(?:go to|jump to|go up to)\s+(?:the\s+)?(?:parent|enclosing)(?:\s+(?:scope|function|symbol|block|class))?$`),
			"go_to_parent",
			func(ctx context.Context, snap editor.Snapshot) command.Result {
				return d.Dispatch(ctx, command.GoToParent{}, snap)
			}),
		handler("open a file by name or type",
			patterns.MustRegex(`^open\s+(?:the\s+)?(?:file\s+)?(.+?)(?:\s+file)?$`),
			"open_file",
			func(c patterns.Captures) (command.Intent, error) {
				target := c.Group(1)
				if _, ok := typeFilter(target); ok {
					return command.OpenFile{Type: target}, nil
				}
				return command.OpenFile{Name: target}, nil
			}),
		handler("run a project script",
			patterns.MustRegex(`^run\s+(?:the\s+)?(?:script|task|target)\s+(.+)$`),
			"run_script",
			func(c patterns.Captures) (command.Intent, error) {
				return command.RunScript{Name: c.Group(1)}, nil
			}),
		local("accept the inline suggestion", patterns.MustRegex(`^(?:accept|take|insert)\s+(?:the\s+)?suggestion$`), "accept_suggestion", d.acceptSuggestion),
		local("dismiss the inline suggestion", patterns.MustRegex(`^(?:reject|dismiss|ignore)\s+(?:the\s+)?suggestion$`), "reject_suggestion",
			func(context.Context, editor.Snapshot) command.Result { return d.rejectSuggestion() }),
		local("read the inline suggestion aloud", patterns.MustRegex(`^(?:read|what is|what's)\s+(?:the\s+)?suggestion$`), "read_suggestion",
			func(context.Context, editor.Snapshot) command.Result { return d.readSuggestion() }),
	}

	for _, entry := range editorPhrases {
		list = append(list, patterns.Declarative(entry.description, phraseMatcher(entry.phrases), entry.action))
	}

	indent := func(action editor.Action, verb string) patterns.Pattern {
		p := patterns.Declarative(verb+" lines, optionally N times",
			patterns.MustRegex(`^`+verb+`(?:\s+(\d+)\s+times)?$`), action)
		p.Extract = func(c patterns.Captures) ([]string, error) {
			if c.Group(1) == "" {
				return nil, nil
			}
			if _, err := strconv.Atoi(c.Group(1)); err != nil {
				return nil, err
			}
			return []string{c.Group(1)}, nil
		}
		return p
	}
	list = append(list, indent(editor.ActionIndent, "indent"), indent(editor.ActionOutdent, "outdent"))

	// The line-number rule matches anywhere in the utterance, so it stays last.
	list = append(list, handler("go to a line number",
		patterns.MustRegex(`\bline\s+(\d+)\b`),
		"go_to_line",
		func(c patterns.Captures) (command.Intent, error) {
			n, err := strconv.Atoi(c.Group(1))
			if err != nil {
				return nil, fmt.Errorf("invalid line number %q", c.Group(1))
			}
			return command.GoToLine{Line: n}, nil
		}))

	return list
}
