package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Settings selects and configures a backend.
type Settings struct {
	Provider          string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
}

// Configured applies default token and temperature settings to every request.
type Configured struct {
	next        Backend
	maxTokens   int
	temperature float64
}

// Complete fills unset request fields from settings.
func (c Configured) Complete(ctx context.Context, req Request) (string, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}
	if req.Temperature == nil {
		req.Temperature = Temperature(c.temperature)
	}
	return c.next.Complete(ctx, req)
}

// CredentialEnv lists the environment variables checked for a provider's API key.
func CredentialEnv(provider string) []string {
	switch provider {
	case "openai":
		return []string{"OPENAI_API_KEY"}
	case "anthropic":
		return []string{"ANTHROPIC_API_KEY"}
	case "gemini":
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return nil
	}
}

// LookupCredential returns the first non-empty API key for provider.
func LookupCredential(provider string) (string, bool) {
	for _, name := range CredentialEnv(provider) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// New builds the backend for s. Missing credentials yield an Unconfigured backend rather
// than an error so the daemon still starts; the first remote stage then reports the
// configuration error.
func New(ctx context.Context, s Settings) (Backend, error) {
	key, ok := LookupCredential(s.Provider)
	if !ok {
		return Unconfigured{Provider: s.Provider, EnvVars: CredentialEnv(s.Provider)}, nil
	}

	client := &http.Client{Timeout: s.Timeout}

	var backend Backend
	switch s.Provider {
	case "openai":
		backend = NewOpenAI(key, s.BaseURL, s.Model, client)
	case "anthropic":
		backend = NewAnthropic(key, s.BaseURL, s.Model, client)
	case "gemini":
		g, err := NewGemini(ctx, key, s.BaseURL, s.Model, s.Timeout)
		if err != nil {
			return nil, err
		}
		backend = g
	default:
		return nil, fmt.Errorf("unknown llm provider %q", s.Provider)
	}

	backend = Configured{next: backend, maxTokens: s.MaxTokens, temperature: s.Temperature}
	return NewLimited(backend, s.RequestsPerSecond), nil
}
