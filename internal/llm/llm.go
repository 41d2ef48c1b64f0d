// Package llm provides chat-completion backends behind one call shape.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials means the selected provider has no API key.
var ErrMissingCredentials = errors.New("llm credentials not configured")

// Request is one chat-completion round trip.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	// Temperature is nil when the caller leaves it to the configured default.
	Temperature *float64
}

// Temperature returns a request temperature.
func Temperature(v float64) *float64 {
	return &v
}

// Backend completes a prompt.
type Backend interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Unconfigured is the backend installed when credentials are missing.
// Every call reports ErrMissingCredentials so callers surface one configuration error.
type Unconfigured struct {
	Provider string
	EnvVars  []string
}

// Complete always fails with ErrMissingCredentials.
func (u Unconfigured) Complete(context.Context, Request) (string, error) {
	if len(u.EnvVars) == 0 {
		return "", fmt.Errorf("%s: %w", u.Provider, ErrMissingCredentials)
	}
	return "", fmt.Errorf("%s: set %s: %w", u.Provider, strings.Join(u.EnvVars, " or "), ErrMissingCredentials)
}

// StripCodeFence removes a surrounding markdown code fence, with or without a language tag.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	body := strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		tag := strings.TrimSpace(body[:newline])
		if !strings.ContainsAny(tag, "{[") {
			body = body[newline+1:]
		}
	} else {
		body = strings.TrimLeft(body, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
