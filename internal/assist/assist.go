// Package assist hands questions and code-generation requests to the language model.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/rbright/vocode/internal/llm"
)

const (
	answerPrompt = `You are a concise programming assistant answering a spoken question about the user's code.
Answer in at most three short sentences of plain prose suitable for text-to-speech. No markdown, no code blocks.`

	generatePrompt = `You write code that is inserted verbatim at the user's cursor.
Reply with only the code to insert, matching the file's language and indentation. No explanations, no markdown fences.`

	// excerptRadius is how many lines either side of the cursor are sent as context.
	excerptRadius = 60
)

// Excerpt is the document context sent with a request.
type Excerpt struct {
	Path     string
	Language string
	Text     string
	// Line is the 0-indexed cursor line.
	Line int
}

// Assistant answers questions and generates code over one backend.
type Assistant struct {
	backend   llm.Backend
	maxTokens int
}

// New creates an assistant. maxTokens <= 0 uses the backend default.
func New(backend llm.Backend, maxTokens int) *Assistant {
	return &Assistant{backend: backend, maxTokens: maxTokens}
}

// Answer returns a short spoken answer to question.
func (a *Assistant) Answer(ctx context.Context, question string, doc Excerpt) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("empty question")
	}
	raw, err := a.backend.Complete(ctx, llm.Request{
		System:    answerPrompt,
		User:      userPrompt("Question", question, doc),
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("answer question: %w", err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", fmt.Errorf("answer question: empty reply")
	}
	return answer, nil
}

// Generate returns code for request with any markdown fence removed.
func (a *Assistant) Generate(ctx context.Context, request string, doc Excerpt) (string, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return "", fmt.Errorf("empty code request")
	}
	raw, err := a.backend.Complete(ctx, llm.Request{
		System:    generatePrompt,
		User:      userPrompt("Request", request, doc),
		MaxTokens: a.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := llm.StripCodeFence(raw)
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("generate code: empty reply")
	}
	return code, nil
}

func userPrompt(label string, body string, doc Excerpt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", label, body)
	if doc.Text == "" {
		return b.String()
	}
	fmt.Fprintf(&b, "\nFile: %s (%s)\nCursor line: %d\n\n", doc.Path, doc.Language, doc.Line+1)
	b.WriteString(numbered(doc.Text, doc.Line, excerptRadius))
	return b.String()
}

// numbered renders lines around center with 1-indexed line numbers.
func numbered(text string, center int, radius int) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	start := max(center-radius, 0)
	end := min(center+radius+1, len(lines))
	var b strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "%5d| %s\n", i+1, lines[i])
	}
	return b.String()
}
