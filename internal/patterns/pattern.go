// Package patterns holds the ordered rule library that maps phrasings to commands.
package patterns

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/editor"
)

// ErrInvalidPattern marks a pattern that cannot be registered.
var ErrInvalidPattern = errors.New("invalid pattern")

// Source records where a pattern came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceUser    Source = "user"
	SourceAdmin   Source = "admin"
)

// Captures holds the matched text at index 0 followed by regex groups.
type Captures []string

// Group returns capture i, or "" when absent.
func (c Captures) Group(i int) string {
	if i < 0 || i >= len(c) {
		return ""
	}
	return c[i]
}

// Invocation is everything a handler receives when its pattern fires.
type Invocation struct {
	Utterance string
	Captures  Captures
	Snapshot  editor.Snapshot
	Pattern   Pattern
}

// Handler performs a pattern's effect itself.
type Handler interface {
	Execute(ctx context.Context, inv Invocation) command.Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, inv Invocation) command.Result

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, inv Invocation) command.Result {
	return f(ctx, inv)
}

// Matcher is a literal phrase or a case-insensitive regular expression.
type Matcher struct {
	literal string
	re      *regexp.Regexp
}

// Literal matches the whole utterance, ignoring case and repeated whitespace.
func Literal(phrase string) Matcher {
	return Matcher{literal: normalizeSpace(phrase)}
}

// Regex compiles expr case-insensitively. Partial matches count.
func Regex(expr string) (Matcher, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Matcher{}, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return Matcher{re: re}, nil
}

// MustRegex is Regex for built-in rules.
func MustRegex(expr string) Matcher {
	m, err := Regex(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// IsRegex reports whether the matcher is a regular expression.
func (m Matcher) IsRegex() bool {
	return m.re != nil
}

// IsZero reports whether the matcher was never set.
func (m Matcher) IsZero() bool {
	return m.re == nil && m.literal == ""
}

// String renders the matcher for menus and listings.
func (m Matcher) String() string {
	if m.re != nil {
		return "/" + strings.TrimPrefix(m.re.String(), "(?i)") + "/"
	}
	return fmt.Sprintf("%q", m.literal)
}

// Match tests utterance and returns captures.
func (m Matcher) Match(utterance string) (Captures, bool) {
	if m.re != nil {
		groups := m.re.FindStringSubmatch(utterance)
		if groups == nil {
			return nil, false
		}
		return Captures(groups), true
	}
	normalized := normalizeSpace(utterance)
	if m.literal == "" || !strings.EqualFold(normalized, m.literal) {
		return nil, false
	}
	return Captures{normalized}, true
}

// Pattern pairs a matcher with what to do. Exactly one of Handler, InsertText, or a
// declarative editor Action is the behaviour. Action doubles as the id used by RemoveByAction.
type Pattern struct {
	Description    string
	Matcher        Matcher
	Action         string
	Args           []string
	Extract        func(Captures) ([]string, error)
	Handler        Handler
	InsertText     string
	PreventDefault bool
	// NeedsCaptures marks rules whose behaviour reads regex groups. They only run from a
	// direct match and are never offered to the fuzzy matcher.
	NeedsCaptures bool
	Source        Source
}

// Validate checks the pattern is well formed.
func (p Pattern) Validate() error {
	if p.Matcher.IsZero() {
		return fmt.Errorf("%w: empty matcher", ErrInvalidPattern)
	}
	if strings.TrimSpace(p.Action) == "" {
		return fmt.Errorf("%w: action id is required", ErrInvalidPattern)
	}
	if p.Handler != nil || p.InsertText != "" {
		return nil
	}
	if _, ok := editor.ParseAction(p.Action); !ok {
		return fmt.Errorf("%w: unknown editor action %q", ErrInvalidPattern, p.Action)
	}
	return nil
}

// Label is the menu text for the pattern.
func (p Pattern) Label() string {
	if p.Description == "" {
		return p.Matcher.String()
	}
	return p.Description + " " + p.Matcher.String()
}

// FuzzyCandidates returns the rules that can run without capture groups, in order.
func FuzzyCandidates(list []Pattern) []Pattern {
	out := make([]Pattern, 0, len(list))
	for _, p := range list {
		if !p.NeedsCaptures {
			out = append(out, p)
		}
	}
	return out
}

// EditorArgs resolves static arguments followed by extracted ones.
func (p Pattern) EditorArgs(captures Captures) ([]string, error) {
	args := append([]string(nil), p.Args...)
	if p.Extract == nil {
		return args, nil
	}
	extra, err := p.Extract(captures)
	if err != nil {
		return nil, err
	}
	return append(args, extra...), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
