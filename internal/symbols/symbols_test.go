package symbols

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/vocode/internal/editor"
)

const goSource = `package demo

type Store struct {
	items []string
}

type Reader interface {
	Read() string
}

type ID string

func (s *Store) Add(item string) {
	s.items = append(s.items, item)
}

func handleSubmit() {
	done := func() {}
	done()
}
`

const pySource = `class Cart:
    def add(self, item):
        self.items.append(item)

    def total(self):
        return 0


def checkout(cart):
    return cart.total()
`

const tsSource = `interface Props { name: string }

export class Widget {
  render() {
    return null;
  }
}

const handleClick = () => {
  console.log("hi");
};

const limit = 3;
`

type flat struct {
	Name string
	Kind editor.SymbolKind
}

func flatten(tree []editor.Symbol) []flat {
	var out []flat
	for _, s := range Flatten(tree) {
		out = append(out, flat{Name: s.Name, Kind: s.Kind})
	}
	return out
}

func TestExtractGo(t *testing.T) {
	tree, err := Extract(context.Background(), "go", []byte(goSource))
	require.NoError(t, err)
	require.Equal(t, []flat{
		{Name: "Store", Kind: editor.SymbolStruct},
		{Name: "Reader", Kind: editor.SymbolInterface},
		{Name: "ID", Kind: editor.SymbolType},
		{Name: "Add", Kind: editor.SymbolMethod},
		{Name: "handleSubmit", Kind: editor.SymbolFunction},
	}, flatten(tree))

	fn, ok := Find(tree, "HANDLESUBMIT")
	require.True(t, ok)
	require.Equal(t, 16, fn.Range.Start.Line)
	require.Equal(t, 19, fn.Range.End.Line)
}

func TestExtractPythonNestsMethodsInClasses(t *testing.T) {
	tree, err := Extract(context.Background(), "python", []byte(pySource))
	require.NoError(t, err)
	require.Len(t, tree, 2)

	require.Equal(t, "Cart", tree[0].Name)
	require.Equal(t, editor.SymbolClass, tree[0].Kind)
	require.Len(t, tree[0].Children, 2)
	require.Equal(t, "add", tree[0].Children[0].Name)
	require.Equal(t, editor.SymbolMethod, tree[0].Children[0].Kind)

	require.Equal(t, "checkout", tree[1].Name)
	require.Equal(t, editor.SymbolFunction, tree[1].Kind)
}

func TestExtractTypeScript(t *testing.T) {
	tree, err := Extract(context.Background(), "typescript", []byte(tsSource))
	require.NoError(t, err)
	require.Equal(t, []flat{
		{Name: "Props", Kind: editor.SymbolInterface},
		{Name: "Widget", Kind: editor.SymbolClass},
		{Name: "render", Kind: editor.SymbolMethod},
		{Name: "handleClick", Kind: editor.SymbolFunction},
	}, flatten(tree))
}

func TestExtractUnsupported(t *testing.T) {
	require.False(t, Supported("cobol"))
	require.True(t, Supported("Go"))

	_, err := Extract(context.Background(), "cobol", []byte("IDENTIFICATION DIVISION."))
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestEnclosingWalksToInnermost(t *testing.T) {
	tree, err := Extract(context.Background(), "python", []byte(pySource))
	require.NoError(t, err)

	chain := Enclosing(tree, editor.Position{Line: 2, Column: 10})
	require.Len(t, chain, 2)
	require.Equal(t, "Cart", chain[0].Name)
	require.Equal(t, "add", chain[1].Name)

	require.Empty(t, Enclosing(tree, editor.Position{Line: 7, Column: 0}))
}

func TestFindRestrictsKinds(t *testing.T) {
	tree := []editor.Symbol{
		{Name: "run", Kind: editor.SymbolVariable},
		{Name: "Job", Kind: editor.SymbolClass, Children: []editor.Symbol{{Name: "run", Kind: editor.SymbolMethod}}},
	}

	got, ok := Find(tree, "run", editor.SymbolFunction, editor.SymbolMethod)
	require.True(t, ok)
	require.Equal(t, editor.SymbolMethod, got.Kind)

	_, ok = Find(tree, "missing")
	require.False(t, ok)
}
