package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/symbols"
)

const locatePrompt = `You locate definitions in source code.
The user message names a function and contains the document with 1-indexed line numbers.
Reply with only the line number where that function or method is defined, or NOT_FOUND.`

// maxLocateLines bounds the document sent to the language model.
const maxLocateLines = 3000

var locateNumber = regexp.MustCompile(`\d+`)

func (d *Dispatcher) goToLine(ctx context.Context, line int, snap editor.Snapshot) command.Result {
	view, ok := d.target(snap)
	if !ok {
		return command.Missing(noEditorMessage)
	}
	if line < 1 || line > view.LineCount {
		return command.Missing(fmt.Sprintf("Line %d is out of range (1-%d)", line, view.LineCount))
	}
	if err := d.host.Reveal(ctx, view.Document.URI, editor.Position{Line: line - 1}); err != nil {
		return command.Failed(fmt.Sprintf("Go to line %d failed: %v", line, err))
	}
	return command.Success(fmt.Sprintf("Line %d", line))
}

func (d *Dispatcher) goToFunction(ctx context.Context, name string, snap editor.Snapshot) command.Result {
	name = strings.TrimSpace(name)
	view, ok := d.target(snap)
	if !ok {
		return command.Missing(noEditorMessage)
	}
	uri := view.Document.URI

	tree, err := d.host.Symbols(ctx, uri)
	if err != nil {
		d.logger.Warn("symbol lookup failed", "uri", uri, "error", err.Error())
	}
	if symbol, found := symbols.Find(tree, name, editor.SymbolFunction, editor.SymbolMethod); found {
		return d.reveal(ctx, uri, symbol.Range.Start, fmt.Sprintf("Function %s", symbol.Name))
	}

	if d.locator == nil {
		return command.Missing(fmt.Sprintf("Function %s not found", name))
	}
	text, err := d.host.Text(uri)
	if err != nil {
		return command.Missing(noEditorMessage)
	}
	var line int
	var found bool
	err = d.remote(ctx, func(ctx context.Context) (err error) {
		line, found, err = LocateFunction(ctx, d.locator, name, text)
		return err
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredentials) {
			return command.Failed(err.Error())
		}
		d.logger.Warn("function locate failed", "name", name, "error", err.Error())
		return command.Missing(fmt.Sprintf("Function %s not found", name))
	}
	if !found || line > view.LineCount {
		return command.Missing(fmt.Sprintf("Function %s not found", name))
	}
	return d.reveal(ctx, uri, editor.Position{Line: line - 1}, fmt.Sprintf("Function %s", name))
}

// LocateFunction asks backend for the 1-indexed definition line of name in text.
func LocateFunction(ctx context.Context, backend llm.Backend, name string, text string) (int, bool, error) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) > maxLocateLines {
		lines = lines[:maxLocateLines]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Function: %s\n\n", name)
	for i, line := range lines {
		fmt.Fprintf(&b, "%d: %s\n", i+1, line)
	}

	raw, err := backend.Complete(ctx, llm.Request{System: locatePrompt, User: b.String(), MaxTokens: 16})
	if err != nil {
		return 0, false, err
	}
	reply := strings.ToUpper(strings.TrimSpace(llm.StripCodeFence(raw)))
	if reply == "" || strings.Contains(reply, "NOT_FOUND") || strings.Contains(reply, "NOT FOUND") {
		return 0, false, nil
	}
	digits := locateNumber.FindString(reply)
	if digits == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > len(lines) {
		return 0, false, nil
	}
	return n, true, nil
}

// declarationIdioms are tried in order; %s is the quoted variable name.
var declarationIdioms = []string{
	`\b(?:var|let|const)\s+(?:mut\s+)?(%s)\b`,
	`(?:^|[\s,(])(%s)(?:\s*,\s*\w+)*\s*:=`,
	`^\s*(?:self\.)?(%s)\s*(?::\s*[^=]+)?=[^=]`,
	`\b[A-Za-z_][\w<>\[\].*]*\s+\*?(%s)\s*(?:=[^=]|;)`,
}

// FindDeclaration returns the position of the first declaration of name in text.
func FindDeclaration(text string, name string) (editor.Position, bool) {
	if name == "" {
		return editor.Position{}, false
	}
	quoted := regexp.QuoteMeta(name)
	lines := strings.Split(text, "\n")
	for _, idiom := range declarationIdioms {
		re := regexp.MustCompile(fmt.Sprintf(idiom, quoted))
		for i, line := range lines {
			loc := re.FindStringSubmatchIndex(line)
			if loc == nil || strings.HasPrefix(strings.TrimSpace(line), "return ") {
				continue
			}
			return editor.Position{Line: i, Column: loc[2]}, true
		}
	}
	return editor.Position{}, false
}

func (d *Dispatcher) goToVariable(ctx context.Context, name string, snap editor.Snapshot) command.Result {
	name = strings.TrimSpace(name)
	view, ok := d.target(snap)
	if !ok {
		return command.Missing(noEditorMessage)
	}
	uri := view.Document.URI

	text, err := d.host.Text(uri)
	if err != nil {
		return command.Missing(noEditorMessage)
	}
	if pos, found := FindDeclaration(text, name); found {
		return d.reveal(ctx, uri, pos, fmt.Sprintf("Variable %s", name))
	}

	if err := d.host.Execute(ctx, uri, editor.ActionGoToDefinition, name); err != nil {
		d.logger.Debug("definition fallback failed", "name", name, "error", err.Error())
		return command.Missing(fmt.Sprintf("Variable %s not found", name))
	}
	return command.Success(fmt.Sprintf("Variable %s", name))
}

func (d *Dispatcher) goToParent(ctx context.Context, snap editor.Snapshot) command.Result {
	view, ok := d.target(snap)
	if !ok {
		return command.Missing(noEditorMessage)
	}
	uri := view.Document.URI

	tree, err := d.host.Symbols(ctx, uri)
	if err != nil {
		return command.Failed(fmt.Sprintf("Symbol lookup failed: %v", err))
	}
	chain := symbols.Enclosing(tree, view.Cursor)
	if len(chain) == 0 {
		return command.Missing("Cursor is not inside a symbol")
	}
	if len(chain) == 1 {
		return command.Missing(fmt.Sprintf("%s has no parent scope", chain[0].Name))
	}
	parent := chain[len(chain)-2]
	return d.reveal(ctx, uri, parent.Range.Start, fmt.Sprintf("Parent %s", parent.Name))
}

func (d *Dispatcher) reveal(ctx context.Context, uri string, pos editor.Position, message string) command.Result {
	if err := d.host.Reveal(ctx, uri, pos); err != nil {
		return command.Failed(fmt.Sprintf("Navigation failed: %v", err))
	}
	return command.Success(message)
}
