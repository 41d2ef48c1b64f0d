package editor

import (
	"context"
	"errors"
)

var (
	// ErrNotAvailable means no focused or previously focused file editor exists at capture time.
	ErrNotAvailable = errors.New("no editor context available")
	// ErrNoEditor means every fallback in the editor resolution chain failed.
	ErrNoEditor = errors.New("no active editor")
	// ErrDocumentClosed means the referenced document is no longer open.
	ErrDocumentClosed = errors.New("document is no longer open")
	// ErrUnknownAction means the host does not implement the requested action.
	ErrUnknownAction = errors.New("unknown editor action")
	// ErrNotFound means a definition lookup found no matching symbol.
	ErrNotFound = errors.New("definition not found")
)

// Action names an editor-native operation.
type Action string

const (
	ActionSave           Action = "save"
	ActionSaveAll        Action = "save_all"
	ActionUndo           Action = "undo"
	ActionRedo           Action = "redo"
	ActionCopy           Action = "copy"
	ActionCut            Action = "cut"
	ActionPaste          Action = "paste"
	ActionSelectAll      Action = "select_all"
	ActionSelectLine     Action = "select_line"
	ActionDeleteLine     Action = "delete_line"
	ActionDuplicateLine  Action = "duplicate_line"
	ActionToggleComment  Action = "toggle_comment"
	ActionIndent         Action = "indent"
	ActionOutdent        Action = "outdent"
	ActionFormat         Action = "format"
	ActionNewLineBelow   Action = "new_line_below"
	ActionNewLineAbove   Action = "new_line_above"
	ActionGoToTop        Action = "go_to_top"
	ActionGoToBottom     Action = "go_to_bottom"
	ActionCloseEditor    Action = "close_editor"
	ActionGoToDefinition Action = "go_to_definition"
	ActionRunInTerminal  Action = "run_in_terminal"
)

var knownActions = []Action{
	ActionSave,
	ActionSaveAll,
	ActionUndo,
	ActionRedo,
	ActionCopy,
	ActionCut,
	ActionPaste,
	ActionSelectAll,
	ActionSelectLine,
	ActionDeleteLine,
	ActionDuplicateLine,
	ActionToggleComment,
	ActionIndent,
	ActionOutdent,
	ActionFormat,
	ActionNewLineBelow,
	ActionNewLineAbove,
	ActionGoToTop,
	ActionGoToBottom,
	ActionCloseEditor,
	ActionGoToDefinition,
	ActionRunInTerminal,
}

// Actions returns every action id in a stable order.
func Actions() []Action {
	out := make([]Action, len(knownActions))
	copy(out, knownActions)
	return out
}

// ParseAction validates a raw action id.
func ParseAction(raw string) (Action, bool) {
	for _, action := range knownActions {
		if string(action) == raw {
			return action, true
		}
	}
	return "", false
}

// FocusListener observes focus and cursor changes. fileBacked is false when focus moved
// to a non-file surface such as a panel.
type FocusListener func(view View, fileBacked bool)

// Host is the editor command surface the resolution engine invokes.
type Host interface {
	Focused() (View, bool)
	Visible() []View
	View(uri string) (View, bool)
	IsOpen(uri string) bool
	Text(uri string) (string, error)
	Subscribe(FocusListener) (unsubscribe func())

	Open(ctx context.Context, path string) (View, error)
	Reveal(ctx context.Context, uri string, pos Position) error
	ApplyEdit(ctx context.Context, uri string, r Range, text string) error
	Execute(ctx context.Context, uri string, action Action, args ...string) error
	Symbols(ctx context.Context, uri string) ([]Symbol, error)
	Pick(ctx context.Context, prompt string, items []string) (int, error)
}
