// Package classifier maps an utterance onto the command taxonomy with one LLM round trip.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rbright/vocode/internal/command"
	"github.com/rbright/vocode/internal/llm"
)

// DefaultThreshold is the minimum confidence the pipeline acts on.
const DefaultThreshold = 0.7

// Result is one parsed classification.
type Result struct {
	Category   command.Category `json:"category"`
	Confidence float64          `json:"confidence"`
	Parameters map[string]any   `json:"parameters"`
	Reasoning  string           `json:"reasoning"`
}

// Options tunes a Client.
type Options struct {
	Threshold float64
	MaxTokens int
	Logger    *slog.Logger
}

// Client classifies utterances.
type Client struct {
	backend   llm.Backend
	threshold float64
	maxTokens int
	logger    *slog.Logger
	system    string
}

// New builds a classifier client over backend.
func New(backend llm.Backend, opts Options) *Client {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		backend:   backend,
		threshold: threshold,
		maxTokens: maxTokens,
		logger:    logger,
		system:    taxonomyPrompt(),
	}
}

// Threshold reports the active acceptance threshold.
func (c *Client) Threshold() float64 {
	return c.threshold
}

// Classify returns ok=false for every transient failure, for low confidence, and for the
// "none" category. Only configuration errors are returned.
func (c *Client) Classify(ctx context.Context, utterance string) (Result, bool, error) {
	raw, err := c.backend.Complete(ctx, llm.Request{
		System:    c.system,
		User:      utterance,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredentials) {
			return Result{}, false, err
		}
		c.logger.Warn("classification failed", "error", err.Error())
		return Result{}, false, nil
	}

	result, err := Parse(raw)
	if err != nil {
		c.logger.Warn("classification unparsable", "error", err.Error(), "response", truncate(raw, 200))
		return Result{}, false, nil
	}

	if result.Confidence < c.threshold {
		c.logger.Debug("classification below threshold",
			"category", string(result.Category),
			"confidence", result.Confidence,
			"threshold", c.threshold,
			"reasoning", result.Reasoning,
		)
		return result, false, nil
	}
	if result.Category == command.CategoryNone {
		return result, false, nil
	}
	return result, true, nil
}

// Parse decodes a classification response, tolerating a surrounding code fence.
func Parse(raw string) (Result, error) {
	body := llm.StripCodeFence(raw)
	if start, end := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); start > 0 && end > start {
		body = body[start : end+1]
	}

	var result Result
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return Result{}, fmt.Errorf("decode classification: %w", err)
	}
	if _, ok := command.ParseCategory(string(result.Category)); !ok {
		return Result{}, fmt.Errorf("unknown category %q", result.Category)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return Result{}, fmt.Errorf("confidence %.2f out of range", result.Confidence)
	}
	if result.Parameters == nil {
		result.Parameters = map[string]any{}
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
