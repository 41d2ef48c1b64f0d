// Package fuzzy asks the language model which registered pattern, if any, an utterance means.
package fuzzy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/rbright/vocode/internal/llm"
	"github.com/rbright/vocode/internal/patterns"
)

const systemPrompt = `You map a spoken editor command onto a numbered menu of known commands.
Reply with only the number of the single best entry, or NONE if no entry fits.`

var firstNumber = regexp.MustCompile(`\d+`)

// Matcher is the menu-based LLM matching stage.
type Matcher struct {
	backend llm.Backend
	logger  *slog.Logger
}

// New builds a Matcher.
func New(backend llm.Backend, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Matcher{backend: backend, logger: logger}
}

// Match returns the chosen pattern. Transient failures and out-of-range answers are no match;
// only configuration errors are returned.
func (m *Matcher) Match(ctx context.Context, utterance string, list []patterns.Pattern) (patterns.Pattern, bool, error) {
	if len(list) == 0 {
		return patterns.Pattern{}, false, nil
	}

	raw, err := m.backend.Complete(ctx, llm.Request{
		System:    systemPrompt,
		User:      Menu(utterance, list),
		MaxTokens: 8,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredentials) {
			return patterns.Pattern{}, false, err
		}
		m.logger.Warn("fuzzy match failed", "error", err.Error())
		return patterns.Pattern{}, false, nil
	}

	index, ok := ParseChoice(raw, len(list))
	if !ok {
		m.logger.Debug("fuzzy match declined", "response", raw)
		return patterns.Pattern{}, false, nil
	}
	return list[index], true, nil
}

// Menu renders the numbered prompt.
func Menu(utterance string, list []patterns.Pattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %q\n\nMenu:\n", utterance)
	for i, p := range list {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Label())
	}
	return b.String()
}

// ParseChoice converts a 1-based menu answer into a 0-based index.
func ParseChoice(raw string, n int) (int, bool) {
	text := strings.TrimSpace(llm.StripCodeFence(raw))
	if text == "" || strings.HasPrefix(strings.ToUpper(text), "NONE") {
		return 0, false
	}
	digits := firstNumber.FindString(text)
	if digits == "" {
		return 0, false
	}
	choice, err := strconv.Atoi(digits)
	if err != nil || choice < 1 || choice > n {
		return 0, false
	}
	return choice - 1, true
}
