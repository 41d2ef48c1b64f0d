// Package editor defines the editor command surface and the snapshot of where the user is.
package editor

import (
	"path/filepath"
	"strings"
	"time"
)

// Position is a zero-indexed line/column location in a document.
type Position struct {
	Line   int
	Column int
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// IsEmpty reports whether the range selects nothing.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether p falls inside r (end inclusive, matching editor caret semantics).
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// Document identifies an open, file-backed document.
type Document struct {
	URI      string
	Path     string
	Language string
}

// DocumentForPath builds a Document with a file URI and a language guessed from the extension.
func DocumentForPath(path string) Document {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Document{
		URI:      "file://" + filepath.ToSlash(abs),
		Path:     abs,
		Language: LanguageForPath(abs),
	}
}

// LanguageForPath maps common source extensions to language identifiers.
func LanguageForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".mjs", ".cjs", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".md":
		return "markdown"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".sh":
		return "shell"
	default:
		return "plaintext"
	}
}

// View is one editor pane showing a document.
type View struct {
	Document  Document
	Cursor    Position
	Selection Range
	LineCount int
}

// Snapshot is the immutable editing context captured when a resolution starts.
type Snapshot struct {
	Document   Document
	Cursor     Position
	Selection  Range
	CapturedAt time.Time
}

// SnapshotOf captures the current state of a view.
func SnapshotOf(v View) Snapshot {
	return Snapshot{
		Document:   v.Document,
		Cursor:     v.Cursor,
		Selection:  v.Selection,
		CapturedAt: time.Now(),
	}
}

// IsZero reports whether the snapshot references no document.
func (s Snapshot) IsZero() bool {
	return s.Document.URI == ""
}

// SymbolKind classifies a document symbol.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolClass     SymbolKind = "class"
	SymbolStruct    SymbolKind = "struct"
	SymbolInterface SymbolKind = "interface"
	SymbolType      SymbolKind = "type"
	SymbolVariable  SymbolKind = "variable"
	SymbolConstant  SymbolKind = "constant"
)

// Symbol is one node of a document's symbol tree.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Range    Range
	Children []Symbol
}
