// Package workspace is the daemon's headless editor: file-backed buffers rooted in a project
// directory, exposed through editor.Host.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rbright/vocode/internal/editor"
	"github.com/rbright/vocode/internal/symbols"
)

// Clipboard mirrors copied text to the system clipboard.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// TaskRunner starts a shell command for run_in_terminal.
type TaskRunner interface {
	Run(ctx context.Context, dir string, command string) error
}

// Picker chooses one item for a prompt; it returns the chosen index.
type Picker func(prompt string, items []string) (int, error)

// FirstItem is the default picker policy for a headless workspace.
func FirstItem(_ string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("nothing to pick")
	}
	return 0, nil
}

// Options configures a Workspace.
type Options struct {
	Root      string
	Clipboard Clipboard
	Runner    TaskRunner
	Picker    Picker
	Logger    *slog.Logger
}

// Workspace implements editor.Host over files under one root directory.
type Workspace struct {
	root      string
	clipboard Clipboard
	runner    TaskRunner
	picker    Picker
	logger    *slog.Logger

	mu        sync.Mutex
	buffers   map[string]*buffer
	order     []string
	focused   string
	register  string
	linewise  bool
	listeners map[int]editor.FocusListener
	nextID    int
}

var _ editor.Host = (*Workspace)(nil)

// New creates an empty workspace rooted at opts.Root.
func New(opts Options) (*Workspace, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %q is not a directory", root)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	runner := opts.Runner
	if runner == nil {
		runner = ShellRunner{Logger: logger}
	}
	picker := opts.Picker
	if picker == nil {
		picker = FirstItem
	}

	return &Workspace{
		root:      root,
		clipboard: opts.Clipboard,
		runner:    runner,
		picker:    picker,
		logger:    logger,
		buffers:   map[string]*buffer{},
		listeners: map[int]editor.FocusListener{},
	}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Focused returns the focused file editor. It reports false while a panel has focus.
func (w *Workspace) Focused() (editor.View, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffers[w.focused]
	if !ok {
		return editor.View{}, false
	}
	return b.view(), true
}

// Visible returns every open editor in the order it was opened.
func (w *Workspace) Visible() []editor.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]editor.View, 0, len(w.order))
	for _, uri := range w.order {
		out = append(out, w.buffers[uri].view())
	}
	return out
}

// View returns the open editor for uri.
func (w *Workspace) View(uri string) (editor.View, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffers[uri]
	if !ok {
		return editor.View{}, false
	}
	return b.view(), true
}

// IsOpen reports whether uri is an open document.
func (w *Workspace) IsOpen(uri string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.buffers[uri]
	return ok
}

// Text returns the current buffer contents of uri.
func (w *Workspace) Text(uri string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buffers[uri]
	if !ok {
		return "", editor.ErrDocumentClosed
	}
	return b.text(), nil
}

// Subscribe registers a focus listener. Listeners run outside the workspace lock.
func (w *Workspace) Subscribe(listener editor.FocusListener) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// Open opens path (relative paths resolve against the root) and focuses it.
func (w *Workspace) Open(ctx context.Context, path string) (editor.View, error) {
	if err := ctx.Err(); err != nil {
		return editor.View{}, err
	}
	abs := w.resolve(path)
	doc := editor.DocumentForPath(abs)

	w.mu.Lock()
	if _, ok := w.buffers[doc.URI]; !ok {
		data, err := os.ReadFile(abs)
		if err != nil {
			w.mu.Unlock()
			return editor.View{}, fmt.Errorf("open %s: %w", path, err)
		}
		w.buffers[doc.URI] = newBuffer(doc, string(data))
		w.order = append(w.order, doc.URI)
	}
	w.focused = doc.URI
	view := w.buffers[doc.URI].view()
	w.mu.Unlock()

	w.emit(view, true)
	return view, nil
}

// Focus opens path and, when line is positive, reveals that 1-indexed line.
func (w *Workspace) Focus(ctx context.Context, path string, line int) (editor.View, error) {
	view, err := w.Open(ctx, path)
	if err != nil || line <= 0 {
		return view, err
	}
	if err := w.Reveal(ctx, view.Document.URI, editor.Position{Line: line - 1}); err != nil {
		return editor.View{}, err
	}
	current, _ := w.View(view.Document.URI)
	return current, nil
}

// FocusPanel moves focus to a non-file surface such as a terminal.
func (w *Workspace) FocusPanel() {
	w.mu.Lock()
	w.focused = ""
	w.mu.Unlock()
	w.emit(editor.View{}, false)
}

// Close discards the buffer for uri without saving.
func (w *Workspace) Close(uri string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked(uri)
}

func (w *Workspace) closeLocked(uri string) error {
	if _, ok := w.buffers[uri]; !ok {
		return editor.ErrDocumentClosed
	}
	delete(w.buffers, uri)
	for i, u := range w.order {
		if u == uri {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	if w.focused == uri {
		w.focused = ""
	}
	return nil
}

// Reveal moves the cursor of uri to pos and focuses that editor.
func (w *Workspace) Reveal(ctx context.Context, uri string, pos editor.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	b, ok := w.buffers[uri]
	if !ok {
		w.mu.Unlock()
		return editor.ErrDocumentClosed
	}
	if err := b.validPosition(pos); err != nil {
		w.mu.Unlock()
		return err
	}
	b.moveTo(pos)
	w.focused = uri
	view := b.view()
	w.mu.Unlock()

	w.emit(view, true)
	return nil
}

// ApplyEdit replaces r in uri with text as one undoable step.
func (w *Workspace) ApplyEdit(ctx context.Context, uri string, r editor.Range, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	b, ok := w.buffers[uri]
	if !ok {
		w.mu.Unlock()
		return editor.ErrDocumentClosed
	}
	if err := b.validRange(r); err != nil {
		w.mu.Unlock()
		return err
	}
	b.checkpoint()
	b.replace(r, text)
	view := b.view()
	focused := w.focused == uri
	w.mu.Unlock()

	if focused {
		w.emit(view, true)
	}
	return nil
}

// Symbols parses uri's current text. Unsupported languages have no symbols.
func (w *Workspace) Symbols(ctx context.Context, uri string) ([]editor.Symbol, error) {
	w.mu.Lock()
	b, ok := w.buffers[uri]
	if !ok {
		w.mu.Unlock()
		return nil, editor.ErrDocumentClosed
	}
	language := b.doc.Language
	text := b.text()
	w.mu.Unlock()

	if !symbols.Supported(language) {
		return nil, nil
	}
	return symbols.Extract(ctx, language, []byte(text))
}

// Pick delegates to the configured picker policy.
func (w *Workspace) Pick(ctx context.Context, prompt string, items []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	if len(items) == 0 {
		return -1, fmt.Errorf("pick %q: no items", prompt)
	}
	idx, err := w.picker(prompt, items)
	if err != nil {
		return -1, err
	}
	if idx < 0 || idx >= len(items) {
		return -1, fmt.Errorf("pick %q: index %d out of range", prompt, idx)
	}
	return idx, nil
}

// Files lists workspace files relative to the root, skipping hidden and dependency directories.
func (w *Workspace) Files(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != w.root && skipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return relErr
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list workspace files: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

func skipDir(name string) bool {
	switch name {
	case "node_modules", "vendor", "dist", "build", "target", "__pycache__":
		return true
	}
	return strings.HasPrefix(name, ".")
}

func (w *Workspace) resolve(path string) string {
	path = strings.TrimPrefix(path, "file://")
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.root, path)
}

func (w *Workspace) emit(view editor.View, fileBacked bool) {
	w.mu.Lock()
	ids := make([]int, 0, len(w.listeners))
	for id := range w.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]editor.FocusListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, w.listeners[id])
	}
	w.mu.Unlock()

	for _, listener := range listeners {
		listener(view, fileBacked)
	}
}
