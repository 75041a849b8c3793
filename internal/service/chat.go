package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultChatBaseURL = "https://api.openai.com/v1"

// ChatMessage is one role-tagged message of a chat completion.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest describes a single completion call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
	// JSONMode asks the backend for a json_object response.
	JSONMode bool
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

// NewChatClient creates a chat client from the llm config section.
func NewChatClient(cfg *config.LLMConfig) *ChatClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}

	return &ChatClient{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:   cfg.APIKey,
	}
}

// IsConfigured reports whether an API key is available.
func (c *ChatClient) IsConfigured() bool {
	return c.apiKey != ""
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends the request and returns the trimmed content of the first choice.
// Returns:
//   - string: completion text, never empty on success.
//   - error: ErrNotConfigured without an API key, MalformedOutputError on an
//     empty completion, otherwise the transport or API error.
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("chat completion: %w", domain.ErrNotConfigured)
	}

	body := chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatCompletionResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("chat completion API call failed: %w", err)
	}

	switch status := httpResp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "", fmt.Errorf("%w: chat completion API rejected credentials (status %d)", domain.ErrNotConfigured, status)
	case status < 200 || status >= 300:
		if resp.Error != nil {
			return "", fmt.Errorf("chat completion API error: %s", resp.Error.Message)
		}
		return "", fmt.Errorf("chat completion API error: status %d", status)
	}

	if len(resp.Choices) == 0 {
		return "", &domain.MalformedOutputError{Reason: "no choices in response"}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &domain.MalformedOutputError{Reason: "empty completion"}
	}
	return content, nil
}
