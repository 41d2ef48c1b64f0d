// Package symbols builds document symbol trees with tree-sitter.
package symbols

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/rbright/vocode/internal/editor"
)

// ErrUnsupported means no grammar is registered for the language.
var ErrUnsupported = errors.New("language not supported for symbols")

// rule describes how one node type becomes a symbol.
type rule struct {
	kind      editor.SymbolKind
	nameField string
	classify  func(n *sitter.Node) (editor.SymbolKind, bool)
}

type grammar struct {
	language func() *sitter.Language
	rules    map[string]rule
}

var grammars = map[string]grammar{
	"go": {
		language: golang.GetLanguage,
		rules: map[string]rule{
			"function_declaration": {kind: editor.SymbolFunction, nameField: "name"},
			"method_declaration":   {kind: editor.SymbolMethod, nameField: "name"},
			"type_spec":            {nameField: "name", classify: goTypeKind},
		},
	},
	"python": {
		language: python.GetLanguage,
		rules: map[string]rule{
			"function_definition": {kind: editor.SymbolFunction, nameField: "name"},
			"class_definition":    {kind: editor.SymbolClass, nameField: "name"},
		},
	},
	"javascript": {
		language: javascript.GetLanguage,
		rules:    jsRules(),
	},
	"typescript": {
		language: typescript.GetLanguage,
		rules: func() map[string]rule {
			r := jsRules()
			r["interface_declaration"] = rule{kind: editor.SymbolInterface, nameField: "name"}
			r["type_alias_declaration"] = rule{kind: editor.SymbolType, nameField: "name"}
			r["abstract_class_declaration"] = rule{kind: editor.SymbolClass, nameField: "name"}
			return r
		}(),
	},
	"rust": {
		language: rust.GetLanguage,
		rules: map[string]rule{
			"function_item": {kind: editor.SymbolFunction, nameField: "name"},
			"struct_item":   {kind: editor.SymbolStruct, nameField: "name"},
			"enum_item":     {kind: editor.SymbolType, nameField: "name"},
			"trait_item":    {kind: editor.SymbolInterface, nameField: "name"},
			"impl_item":     {kind: editor.SymbolClass, nameField: "type"},
			"mod_item":      {kind: editor.SymbolType, nameField: "name"},
		},
	},
}

func jsRules() map[string]rule {
	return map[string]rule{
		"function_declaration": {kind: editor.SymbolFunction, nameField: "name"},
		"class_declaration":    {kind: editor.SymbolClass, nameField: "name"},
		"method_definition":    {kind: editor.SymbolMethod, nameField: "name"},
		"variable_declarator":  {nameField: "name", classify: jsFunctionValue},
	}
}

func goTypeKind(n *sitter.Node) (editor.SymbolKind, bool) {
	t := n.ChildByFieldName("type")
	if t == nil {
		return editor.SymbolType, true
	}
	switch t.Type() {
	case "struct_type":
		return editor.SymbolStruct, true
	case "interface_type":
		return editor.SymbolInterface, true
	default:
		return editor.SymbolType, true
	}
}

func jsFunctionValue(n *sitter.Node) (editor.SymbolKind, bool) {
	v := n.ChildByFieldName("value")
	if v == nil {
		return "", false
	}
	switch v.Type() {
	case "arrow_function", "function", "function_expression":
		return editor.SymbolFunction, true
	default:
		return "", false
	}
}

// Supported reports whether language has a grammar.
func Supported(language string) bool {
	_, ok := grammars[strings.ToLower(language)]
	return ok
}

// Extract parses src and returns its symbol tree.
func Extract(ctx context.Context, language string, src []byte) ([]editor.Symbol, error) {
	g, ok := grammars[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, language)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.language())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", language, err)
	}
	defer tree.Close()

	return g.collect(tree.RootNode(), src, false), nil
}

func (g grammar) collect(n *sitter.Node, src []byte, inClass bool) []editor.Symbol {
	var out []editor.Symbol
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}

		r, ok := g.rules[child.Type()]
		if !ok {
			out = append(out, g.collect(child, src, inClass)...)
			continue
		}

		kind := r.kind
		if r.classify != nil {
			k, accept := r.classify(child)
			if !accept {
				out = append(out, g.collect(child, src, inClass)...)
				continue
			}
			kind = k
		}
		if kind == editor.SymbolFunction && inClass {
			kind = editor.SymbolMethod
		}

		name := ""
		if nameNode := child.ChildByFieldName(r.nameField); nameNode != nil {
			name = nameNode.Content(src)
		}
		if name == "" {
			out = append(out, g.collect(child, src, inClass)...)
			continue
		}

		container := kind == editor.SymbolClass || kind == editor.SymbolStruct || kind == editor.SymbolInterface
		out = append(out, editor.Symbol{
			Name:     name,
			Kind:     kind,
			Range:    nodeRange(child),
			Children: g.collect(child, src, container),
		})
	}
	return out
}

func nodeRange(n *sitter.Node) editor.Range {
	start, end := n.StartPoint(), n.EndPoint()
	return editor.Range{
		Start: editor.Position{Line: int(start.Row), Column: int(start.Column)},
		End:   editor.Position{Line: int(end.Row), Column: int(end.Column)},
	}
}
