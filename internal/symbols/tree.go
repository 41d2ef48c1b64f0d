package symbols

import (
	"strings"

	"github.com/rbright/vocode/internal/editor"
)

// Enclosing returns the chain of symbols containing pos, outermost first.
func Enclosing(tree []editor.Symbol, pos editor.Position) []editor.Symbol {
	var chain []editor.Symbol
	level := tree
	for {
		found := false
		for _, s := range level {
			if s.Range.Contains(pos) {
				chain = append(chain, s)
				level = s.Children
				found = true
				break
			}
		}
		if !found {
			return chain
		}
	}
}

// Find returns the first symbol named name (case-insensitive), depth first, optionally
// restricted to kinds.
func Find(tree []editor.Symbol, name string, kinds ...editor.SymbolKind) (editor.Symbol, bool) {
	for _, s := range tree {
		if strings.EqualFold(s.Name, name) && kindAllowed(s.Kind, kinds) {
			return s, true
		}
		if hit, ok := Find(s.Children, name, kinds...); ok {
			return hit, true
		}
	}
	return editor.Symbol{}, false
}

// Flatten lists every symbol in document order.
func Flatten(tree []editor.Symbol) []editor.Symbol {
	var out []editor.Symbol
	for _, s := range tree {
		out = append(out, s)
		out = append(out, Flatten(s.Children)...)
	}
	return out
}

func kindAllowed(kind editor.SymbolKind, kinds []editor.SymbolKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
