package editor

import "sync"

// Suggestion is the single live inline-completion proposal.
type Suggestion struct {
	Line int
	Text string
	Read bool
}

// SuggestionSlot holds at most one live suggestion.
type SuggestionSlot struct {
	mu      sync.Mutex
	current *Suggestion
}

// Offer replaces any live suggestion.
func (s *SuggestionSlot) Offer(line int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &Suggestion{Line: line, Text: text}
}

// Current returns the live suggestion without changing it.
func (s *SuggestionSlot) Current() (Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Suggestion{}, false
	}
	return *s.current, true
}

// MarkRead flags the live suggestion as read aloud and returns it.
func (s *SuggestionSlot) MarkRead() (Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Suggestion{}, false
	}
	s.current.Read = true
	return *s.current, true
}

// Take removes and returns the live suggestion (accept).
func (s *SuggestionSlot) Take() (Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Suggestion{}, false
	}
	out := *s.current
	s.current = nil
	return out, true
}

// Clear drops the live suggestion (reject).
func (s *SuggestionSlot) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// CursorMoved clears the suggestion when the cursor leaves its line.
func (s *SuggestionSlot) CursorMoved(line int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.Line != line {
		s.current = nil
	}
}
