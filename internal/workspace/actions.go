package workspace

import (
	"context"
	"fmt"
	"go/format"
	"os"
	"strconv"
	"strings"

	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/symbols"
)

// Execute runs an editor-native action against uri.
func (w *Workspace) Execute(ctx context.Context, uri string, action editor.Action, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch action {
	case editor.ActionRunInTerminal:
		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			return fmt.Errorf("run_in_terminal requires a command")
		}
		return w.runner.Run(ctx, w.root, args[0])
	case editor.ActionSaveAll:
		return w.saveAll()
	case editor.ActionGoToDefinition:
		return w.goToDefinition(ctx, uri, args)
	case editor.ActionCopy, editor.ActionCut:
		return w.copy(ctx, uri, action == editor.ActionCut)
	}

	w.mu.Lock()
	b, ok := w.buffers[uri]
	if !ok {
		w.mu.Unlock()
		return editor.ErrDocumentClosed
	}
	moved, err := w.apply(b, action, args)
	view := b.view()
	focused := w.focused == uri
	w.mu.Unlock()

	if err != nil {
		return err
	}
	if moved && focused {
		w.emit(view, true)
	}
	return nil
}

// apply runs a buffer-local action under the workspace lock and reports whether the cursor moved.
func (w *Workspace) apply(b *buffer, action editor.Action, args []string) (bool, error) {
	before := b.cursor
	switch action {
	case editor.ActionSave:
		return false, writeBuffer(b)
	case editor.ActionUndo:
		if len(b.undo) == 0 {
			return false, nil
		}
		prev := b.undo[len(b.undo)-1]
		b.undo = b.undo[:len(b.undo)-1]
		b.redo = append(b.redo, b.state())
		b.restore(prev)
	case editor.ActionRedo:
		if len(b.redo) == 0 {
			return false, nil
		}
		next := b.redo[len(b.redo)-1]
		b.redo = b.redo[:len(b.redo)-1]
		b.undo = append(b.undo, b.state())
		b.restore(next)
	case editor.ActionPaste:
		w.paste(b)
	case editor.ActionSelectAll:
		last := len(b.lines) - 1
		b.selection = editor.Range{End: editor.Position{Line: last, Column: len(b.lines[last])}}
		b.cursor = b.selection.End
	case editor.ActionSelectLine:
		line := b.cursor.Line
		b.selection = editor.Range{
			Start: editor.Position{Line: line},
			End:   editor.Position{Line: line, Column: len(b.lines[line])},
		}
		b.cursor = b.selection.End
	case editor.ActionDeleteLine:
		b.checkpoint()
		start, end := b.selectedLines()
		b.lines = append(b.lines[:start], b.lines[end+1:]...)
		if len(b.lines) == 0 {
			b.lines = []string{""}
		}
		b.moveTo(editor.Position{Line: start})
	case editor.ActionDuplicateLine:
		b.checkpoint()
		start, end := b.selectedLines()
		block := append([]string(nil), b.lines[start:end+1]...)
		lines := append([]string(nil), b.lines[:end+1]...)
		lines = append(lines, block...)
		b.lines = append(lines, b.lines[end+1:]...)
		b.moveTo(editor.Position{Line: b.cursor.Line + len(block), Column: b.cursor.Column})
	case editor.ActionToggleComment:
		return false, toggleComment(b)
	case editor.ActionIndent, editor.ActionOutdent:
		count, err := repeatCount(args)
		if err != nil {
			return false, err
		}
		shift(b, indentUnit(b.doc.Language), count, action == editor.ActionOutdent)
	case editor.ActionFormat:
		return false, formatBuffer(b)
	case editor.ActionNewLineBelow, editor.ActionNewLineAbove:
		b.checkpoint()
		line := b.cursor.Line
		indent := leadingWhitespace(b.lines[line])
		at := line + 1
		if action == editor.ActionNewLineAbove {
			at = line
		}
		lines := append([]string(nil), b.lines[:at]...)
		lines = append(lines, indent)
		b.lines = append(lines, b.lines[at:]...)
		b.moveTo(editor.Position{Line: at, Column: len(indent)})
	case editor.ActionGoToTop:
		b.moveTo(editor.Position{})
	case editor.ActionGoToBottom:
		last := len(b.lines) - 1
		b.moveTo(editor.Position{Line: last, Column: len(b.lines[last])})
	case editor.ActionCloseEditor:
		return false, w.closeLocked(b.doc.URI)
	default:
		return false, fmt.Errorf("%w: %s", editor.ErrUnknownAction, action)
	}
	return b.cursor != before, nil
}

func (w *Workspace) copy(ctx context.Context, uri string, cut bool) error {
	w.mu.Lock()
	b, ok := w.buffers[uri]
	if !ok {
		w.mu.Unlock()
		return editor.ErrDocumentClosed
	}
	var text string
	if b.selection.IsEmpty() {
		line := b.cursor.Line
		text = b.lines[line] + "\n"
		w.linewise = true
		if cut {
			b.checkpoint()
			b.lines = append(b.lines[:line], b.lines[line+1:]...)
			if len(b.lines) == 0 {
				b.lines = []string{""}
			}
			b.moveTo(editor.Position{Line: line})
		}
	} else {
		sel := b.selection
		if sel.End.Before(sel.Start) {
			sel.Start, sel.End = sel.End, sel.Start
		}
		text = b.rangeText(sel)
		w.linewise = false
		if cut {
			b.checkpoint()
			b.replace(sel, "")
		}
	}
	w.register = text
	w.mu.Unlock()

	if w.clipboard == nil {
		return nil
	}
	if err := w.clipboard.Copy(ctx, text); err != nil {
		w.logger.Warn("clipboard mirror failed", "error", err.Error())
	}
	return nil
}

func (w *Workspace) paste(b *buffer) {
	if w.register == "" {
		return
	}
	b.checkpoint()
	if w.linewise {
		line := b.cursor.Line
		block := strings.Split(strings.TrimSuffix(w.register, "\n"), "\n")
		lines := append([]string(nil), b.lines[:line]...)
		lines = append(lines, block...)
		b.lines = append(lines, b.lines[line:]...)
		b.moveTo(editor.Position{Line: line + len(block), Column: b.cursor.Column})
		return
	}
	sel := b.selection
	if sel.End.Before(sel.Start) {
		sel.Start, sel.End = sel.End, sel.Start
	}
	b.replace(sel, w.register)
}

func (w *Workspace) saveAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, uri := range w.order {
		b := w.buffers[uri]
		if !b.dirty {
			continue
		}
		if err := writeBuffer(b); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) goToDefinition(ctx context.Context, uri string, args []string) error {
	w.mu.Lock()
	b, ok := w.buffers[uri]
	if !ok {
		w.mu.Unlock()
		return editor.ErrDocumentClosed
	}
	name := b.wordAt(b.cursor)
	w.mu.Unlock()
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		name = strings.TrimSpace(args[0])
	}
	if name == "" {
		return fmt.Errorf("%w: no symbol under cursor", editor.ErrNotFound)
	}

	tree, err := w.Symbols(ctx, uri)
	if err != nil {
		return err
	}
	symbol, ok := symbols.Find(tree, name)
	if !ok {
		return fmt.Errorf("%w: %s", editor.ErrNotFound, name)
	}
	return w.Reveal(ctx, uri, symbol.Range.Start)
}

func writeBuffer(b *buffer) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(b.doc.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(b.doc.Path, []byte(b.text()), mode); err != nil {
		return fmt.Errorf("save %s: %w", b.doc.Path, err)
	}
	b.dirty = false
	return nil
}

func commentPrefix(language string) (string, bool) {
	switch language {
	case "go", "javascript", "typescript", "rust", "java", "c", "cpp":
		return "//", true
	case "python", "shell", "yaml":
		return "#", true
	}
	return "", false
}

func toggleComment(b *buffer) error {
	prefix, ok := commentPrefix(b.doc.Language)
	if !ok {
		return fmt.Errorf("no line comment syntax for %s", b.doc.Language)
	}
	start, end := b.selectedLines()

	commented := true
	for _, line := range b.lines[start : end+1] {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, prefix) {
			commented = false
			break
		}
	}

	b.checkpoint()
	for i := start; i <= end; i++ {
		line := b.lines[i]
		indent := leadingWhitespace(line)
		body := line[len(indent):]
		if body == "" {
			continue
		}
		if commented {
			body = strings.TrimPrefix(body, prefix)
			body = strings.TrimPrefix(body, " ")
		} else {
			body = prefix + " " + body
		}
		b.lines[i] = indent + body
	}
	b.cursor = b.clamp(b.cursor)
	return nil
}

func indentUnit(language string) string {
	switch language {
	case "go":
		return "\t"
	case "python", "rust", "java", "c", "cpp":
		return "    "
	}
	return "  "
}

func repeatCount(args []string) (int, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid repeat count %q", args[0])
	}
	return n, nil
}

func shift(b *buffer, unit string, count int, outdent bool) {
	start, end := b.selectedLines()
	b.checkpoint()
	for i := start; i <= end; i++ {
		for n := 0; n < count; n++ {
			if outdent {
				line := b.lines[i]
				switch {
				case strings.HasPrefix(line, unit):
					b.lines[i] = line[len(unit):]
				case strings.HasPrefix(line, "\t"):
					b.lines[i] = line[1:]
				default:
					b.lines[i] = strings.TrimLeft(line, " ")
				}
			} else if b.lines[i] != "" {
				b.lines[i] = unit + b.lines[i]
			}
		}
	}
	b.cursor = b.clamp(b.cursor)
}

func formatBuffer(b *buffer) error {
	var formatted string
	if b.doc.Language == "go" {
		out, err := format.Source([]byte(b.text()))
		if err != nil {
			return fmt.Errorf("format %s: %w", b.doc.Path, err)
		}
		formatted = string(out)
	} else {
		lines := make([]string, len(b.lines))
		for i, line := range b.lines {
			lines[i] = strings.TrimRight(line, " \t")
		}
		formatted = strings.Join(lines, "\n")
		if b.trailingNewline {
			formatted += "\n"
		}
	}
	if formatted == b.text() {
		return nil
	}
	cursor := b.cursor
	b.checkpoint()
	b.setContent(formatted)
	b.moveTo(cursor)
	return nil
}
