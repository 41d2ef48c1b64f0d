package editor

import "sync"

// Tracker remembers the most recently focused file-backed editor for the lifetime of a
// daemon. Only its focus subscription writes; resolution code reads.
type Tracker struct {
	host Host

	mu          sync.RWMutex
	lastURI     string
	unsubscribe func()
}

// NewTracker creates a tracker bound to host. Call Start to subscribe.
func NewTracker(host Host) *Tracker {
	return &Tracker{host: host}
}

// Start seeds the tracker from the focused editor and subscribes to focus changes.
func (t *Tracker) Start() {
	t.mu.RLock()
	started := t.unsubscribe != nil
	t.mu.RUnlock()
	if started {
		return
	}

	if view, ok := t.host.Focused(); ok {
		t.observe(view, true)
	}
	unsubscribe := t.host.Subscribe(t.observe)

	t.mu.Lock()
	t.unsubscribe = unsubscribe
	t.mu.Unlock()
}

// Close drops the focus subscription.
func (t *Tracker) Close() {
	t.mu.Lock()
	unsubscribe := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (t *Tracker) observe(view View, fileBacked bool) {
	if !fileBacked || view.Document.URI == "" {
		return
	}
	t.mu.Lock()
	t.lastURI = view.Document.URI
	t.mu.Unlock()
}

// Last returns the last focused file editor when its document is still open.
func (t *Tracker) Last() (View, bool) {
	t.mu.RLock()
	uri := t.lastURI
	t.mu.RUnlock()

	if uri == "" {
		return View{}, false
	}
	return t.host.View(uri)
}

// Capture snapshots the focused editor, falling back to the last focused file editor.
func (t *Tracker) Capture() (Snapshot, error) {
	if view, ok := t.host.Focused(); ok {
		return SnapshotOf(view), nil
	}
	if view, ok := t.Last(); ok {
		return SnapshotOf(view), nil
	}
	return Snapshot{}, ErrNotAvailable
}

// Revalidate reports whether the snapshot's document is still open.
func (t *Tracker) Revalidate(s Snapshot) bool {
	if s.IsZero() {
		return false
	}
	return t.host.IsOpen(s.Document.URI)
}

// Resolve returns the view a command should act on: the snapshot's document when still open
// (keeping the captured cursor and selection), else the focused editor, the last editor, the
// first visible editor, in that order.
func (t *Tracker) Resolve(s Snapshot) (View, error) {
	if t.Revalidate(s) {
		if view, ok := t.host.View(s.Document.URI); ok {
			view.Cursor = s.Cursor
			view.Selection = s.Selection
			return view, nil
		}
	}
	if view, ok := t.host.Focused(); ok {
		return view, nil
	}
	if view, ok := t.Last(); ok {
		return view, nil
	}
	if visible := t.host.Visible(); len(visible) > 0 {
		return visible[0], nil
	}
	return View{}, ErrNoEditor
}
