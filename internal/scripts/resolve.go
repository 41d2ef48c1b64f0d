package scripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/rbright/vocode/internal/fuzzy"
	"github.com/rbright/vocode/internal/llm"
)

const pickPrompt = `You match a spoken request against a project's task list.
Reply with only the number of the task the user wants to run, or NONE.`

var spokenNoise = map[string]bool{
	"run": true, "the": true, "script": true, "task": true, "target": true,
	"npm": true, "make": true, "execute": true,
}

// Resolver finds the script a spoken request refers to.
type Resolver struct {
	table   *Table
	backend llm.Backend
	logger  *slog.Logger
}

// NewResolver builds a Resolver. A nil backend disables the LLM pick.
func NewResolver(table *Table, backend llm.Backend, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{table: table, backend: backend, logger: logger}
}

// Lookup returns the matching script. An exact normalized name match wins; otherwise the
// language model picks from the list. Only configuration errors are returned.
func (r *Resolver) Lookup(ctx context.Context, spoken string) (Script, bool, error) {
	list, err := r.table.Scripts()
	if err != nil {
		r.logger.Warn("script table unavailable", "error", err.Error())
		return Script{}, false, nil
	}
	if len(list) == 0 {
		return Script{}, false, nil
	}

	if s, ok := Exact(list, spoken); ok {
		return s, true, nil
	}
	if r.backend == nil {
		return Script{}, false, nil
	}

	raw, err := r.backend.Complete(ctx, llm.Request{
		System:    pickPrompt,
		User:      menu(spoken, list),
		MaxTokens: 8,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredentials) {
			return Script{}, false, err
		}
		r.logger.Warn("script pick failed", "error", err.Error())
		return Script{}, false, nil
	}

	index, ok := fuzzy.ParseChoice(raw, len(list))
	if !ok {
		return Script{}, false, nil
	}
	return list[index], true, nil
}

// Exact matches spoken against task names ignoring case, separators and filler words.
func Exact(list []Script, spoken string) (Script, bool) {
	key := normalizeSpoken(spoken)
	if key == "" {
		return Script{}, false
	}
	for _, s := range list {
		if normalizeName(s.Name) == key {
			return s, true
		}
	}
	return Script{}, false
}

func menu(spoken string, list []Script) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request: %q\n\nTasks:\n", spoken)
	for i, s := range list {
		if s.Command != "" {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, s.Name, s.Command)
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Name)
	}
	return b.String()
}

func normalizeSpoken(spoken string) string {
	words := strings.Fields(strings.ToLower(spoken))
	kept := words[:0]
	for _, w := range words {
		if spokenNoise[w] {
			continue
		}
		kept = append(kept, w)
	}
	return normalizeName(strings.Join(kept, ""))
}

func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
