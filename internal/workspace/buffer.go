package workspace

import (
	"fmt"
	"strings"

	"github.com/rbright/vocode/internal/editor"
)

type bufferState struct {
	lines  []string
	cursor editor.Position
}

// buffer is one open document. Columns are byte offsets into a line.
type buffer struct {
	doc             editor.Document
	lines           []string
	trailingNewline bool
	cursor          editor.Position
	selection       editor.Range
	undo            []bufferState
	redo            []bufferState
	dirty           bool
}

func newBuffer(doc editor.Document, content string) *buffer {
	b := &buffer{doc: doc}
	b.setContent(content)
	return b
}

func (b *buffer) setContent(content string) {
	b.trailingNewline = strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	b.lines = strings.Split(content, "\n")
}

func (b *buffer) text() string {
	out := strings.Join(b.lines, "\n")
	if b.trailingNewline {
		out += "\n"
	}
	return out
}

func (b *buffer) view() editor.View {
	return editor.View{
		Document:  b.doc,
		Cursor:    b.cursor,
		Selection: b.selection,
		LineCount: len(b.lines),
	}
}

// checkpoint records the current state for undo and invalidates redo.
func (b *buffer) checkpoint() {
	b.undo = append(b.undo, b.state())
	b.redo = nil
	b.dirty = true
}

func (b *buffer) state() bufferState {
	lines := make([]string, len(b.lines))
	copy(lines, b.lines)
	return bufferState{lines: lines, cursor: b.cursor}
}

func (b *buffer) restore(s bufferState) {
	b.lines = s.lines
	b.moveTo(s.cursor)
	b.dirty = true
}

func (b *buffer) moveTo(pos editor.Position) {
	b.cursor = b.clamp(pos)
	b.selection = editor.Range{Start: b.cursor, End: b.cursor}
}

func (b *buffer) clamp(pos editor.Position) editor.Position {
	if pos.Line < 0 {
		pos.Line = 0
	}
	if pos.Line >= len(b.lines) {
		pos.Line = len(b.lines) - 1
	}
	if pos.Column < 0 {
		pos.Column = 0
	}
	if n := len(b.lines[pos.Line]); pos.Column > n {
		pos.Column = n
	}
	return pos
}

func (b *buffer) validPosition(pos editor.Position) error {
	if pos.Line < 0 || pos.Line >= len(b.lines) {
		return fmt.Errorf("line %d out of range (document has %d lines)", pos.Line+1, len(b.lines))
	}
	if pos.Column < 0 || pos.Column > len(b.lines[pos.Line]) {
		return fmt.Errorf("column %d out of range on line %d", pos.Column, pos.Line+1)
	}
	return nil
}

func (b *buffer) validRange(r editor.Range) error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("range end precedes start")
	}
	if err := b.validPosition(r.Start); err != nil {
		return err
	}
	return b.validPosition(r.End)
}

// rangeText returns the text covered by r. r must be valid.
func (b *buffer) rangeText(r editor.Range) string {
	if r.Start.Line == r.End.Line {
		return b.lines[r.Start.Line][r.Start.Column:r.End.Column]
	}
	parts := []string{b.lines[r.Start.Line][r.Start.Column:]}
	parts = append(parts, b.lines[r.Start.Line+1:r.End.Line]...)
	parts = append(parts, b.lines[r.End.Line][:r.End.Column])
	return strings.Join(parts, "\n")
}

// replace swaps r for text and leaves the cursor after the inserted text. r must be valid.
func (b *buffer) replace(r editor.Range, text string) {
	prefix := b.lines[r.Start.Line][:r.Start.Column]
	suffix := b.lines[r.End.Line][r.End.Column:]
	inserted := strings.Split(text, "\n")

	replacement := strings.Split(prefix+text+suffix, "\n")
	lines := make([]string, 0, len(b.lines)+len(replacement))
	lines = append(lines, b.lines[:r.Start.Line]...)
	lines = append(lines, replacement...)
	lines = append(lines, b.lines[r.End.Line+1:]...)
	b.lines = lines

	end := editor.Position{Line: r.Start.Line + len(inserted) - 1}
	if len(inserted) == 1 {
		end.Column = r.Start.Column + len(text)
	} else {
		end.Column = len(inserted[len(inserted)-1])
	}
	b.moveTo(end)
}

// selectedLines returns the inclusive line span covered by the selection, or the cursor line.
func (b *buffer) selectedLines() (int, int) {
	if b.selection.IsEmpty() {
		return b.cursor.Line, b.cursor.Line
	}
	start, end := b.selection.Start.Line, b.selection.End.Line
	if end > start && b.selection.End.Column == 0 {
		end--
	}
	return start, end
}

func (b *buffer) wordAt(pos editor.Position) string {
	line := b.lines[pos.Line]
	start, end := pos.Column, pos.Column
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	return line[start:end]
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}
