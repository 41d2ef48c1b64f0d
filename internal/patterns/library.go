package patterns

import (
	"sync"

	"github.com/rbright/vocode/internal/editor"
)

// Library is the ordered pattern list. Order is priority: the first pattern whose matcher
// accepts an utterance wins, so specific rules must precede general catch-alls. User file
// rules sit in front of the defaults; Add appends behind everything.
//
// Matching takes a read lock; administrative operations take the write lock. Resolutions
// work on Snapshot copies, so an in-flight resolution keeps the list it started with.
type Library struct {
	mu       sync.RWMutex
	patterns []Pattern
	defaults func() []Pattern
}

// NewLibrary seeds the library from defaults.
func NewLibrary(defaults func() []Pattern) *Library {
	if defaults == nil {
		defaults = func() []Pattern { return nil }
	}
	l := &Library{defaults: defaults}
	l.patterns = l.freshDefaults()
	return l
}

func (l *Library) freshDefaults() []Pattern {
	defaults := l.defaults()
	out := make([]Pattern, 0, len(defaults))
	for _, p := range defaults {
		if p.Source == "" {
			p.Source = SourceDefault
		}
		out = append(out, p)
	}
	return out
}

// TryMatch scans the current list in order.
func (l *Library) TryMatch(utterance string) (Pattern, Captures, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Match(l.patterns, utterance)
}

// Match scans list in order and returns the first match.
func Match(list []Pattern, utterance string) (Pattern, Captures, bool) {
	for _, p := range list {
		if captures, ok := p.Matcher.Match(utterance); ok {
			return p, captures, true
		}
	}
	return Pattern{}, nil, false
}

// Snapshot copies the current list.
func (l *Library) Snapshot() []Pattern {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Pattern, len(l.patterns))
	copy(out, l.patterns)
	return out
}

// Len reports the number of registered patterns.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patterns)
}

// Add appends p at the lowest priority.
func (l *Library) Add(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Source == "" {
		p.Source = SourceAdmin
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = append(l.patterns, p)
	return nil
}

// AddFirst inserts p at the highest priority.
func (l *Library) AddFirst(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Source == "" {
		p.Source = SourceAdmin
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = append([]Pattern{p}, l.patterns...)
	return nil
}

// RemoveByAction drops every pattern with the given action id and reports how many.
func (l *Library) RemoveByAction(action string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := make([]Pattern, 0, len(l.patterns))
	removed := 0
	for _, p := range l.patterns {
		if p.Action == action {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	l.patterns = kept
	return removed
}

// Clear removes every pattern.
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = nil
}

// ResetToDefaults discards all user and admin patterns.
func (l *Library) ResetToDefaults() {
	fresh := l.freshDefaults()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = fresh
}

// SetUserPatterns replaces the user-file rules, keeping them in front of everything else.
func (l *Library) SetUserPatterns(user []Pattern) error {
	for _, p := range user {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]Pattern, 0, len(user)+len(l.patterns))
	for _, p := range user {
		p.Source = SourceUser
		next = append(next, p)
	}
	for _, p := range l.patterns {
		if p.Source != SourceUser {
			next = append(next, p)
		}
	}
	l.patterns = next
	return nil
}

// Declarative builds a rule that runs one editor action.
func Declarative(description string, m Matcher, action editor.Action, args ...string) Pattern {
	return Pattern{
		Description:    description,
		Matcher:        m,
		Action:         string(action),
		Args:           args,
		PreventDefault: true,
	}
}
