package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAI talks to the chat completions endpoint of OpenAI-compatible servers.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAI builds an OpenAI backend. Empty baseURL and model select the public defaults.
func NewOpenAI(apiKey, baseURL, model string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), model: model, client: client}
}

// Complete implements Backend.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.User})

	var resp openAIResponse
	err := postJSON(ctx, o.client, o.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, openAIRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", errors.New("openai: " + resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
