package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	anthropicVersion        = "2023-06-01"
)

// Anthropic talks to the Messages API.
type Anthropic struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewAnthropic builds an Anthropic backend. Empty baseURL and model select the public defaults.
func NewAnthropic(apiKey, baseURL, model string, client *http.Client) *Anthropic {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Anthropic{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, client: client}
}

// Complete implements Backend.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	var resp anthropicResponse
	err := postJSON(ctx, a.client, a.baseURL+"/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}, anthropicRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.User}},
		Temperature: req.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", errors.New("anthropic: " + resp.Error.Message)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", errors.New("anthropic: no completion returned")
	}
	return strings.TrimSpace(out.String()), nil
}
