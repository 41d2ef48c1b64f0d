package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds a Gemini backend. The SDK client is created without network I/O.
// A positive timeout bounds every request.
func NewGemini(ctx context.Context, apiKey, baseURL, model string, timeout time.Duration) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: geminiHTTPOptions(baseURL, timeout),
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func geminiHTTPOptions(baseURL string, timeout time.Duration) genai.HTTPOptions {
	opts := genai.HTTPOptions{BaseURL: baseURL}
	if timeout > 0 {
		opts.Timeout = genai.Ptr(timeout)
	}
	return opts
}

// Complete implements Backend.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini: no completion returned")
	}
	return text, nil
}
