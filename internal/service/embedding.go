package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/go-resty/resty/v2"
	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"google.golang.org/genai"
)

const (
	jinaEndpoint          = "https://api.jina.ai/v1/embeddings"
	defaultEmbeddingCalls = 30 * time.Second
)

// embeddingBackend performs one embedding request for already-normalized text.
type embeddingBackend interface {
	embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingClient turns text into a fixed-length vector. The same client
// embeds content, bridges and campaign themes so all vectors are comparable.
type EmbeddingClient struct {
	backend    embeddingBackend
	model      string
	dimensions int
	timeout    time.Duration
	// configErr is set when the backend could not be built; Embed returns it.
	configErr error
}

// NewEmbeddingClient builds the client for cfg.Provider. A missing API key
// does not fail construction; every Embed call reports a config error instead.
func NewEmbeddingClient(ctx context.Context, cfg *config.EmbeddingConfig) *EmbeddingClient {
	c := &EmbeddingClient{
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
	}
	if c.timeout <= 0 {
		c.timeout = defaultEmbeddingCalls
	}

	if cfg.APIKey == "" {
		c.configErr = domain.NewError(domain.KindConfig, "embedding",
			fmt.Errorf("%w: no API key for provider %q (set %s)", domain.ErrNotConfigured, cfg.Provider, cfg.APIKeyEnv))
		return c
	}

	switch cfg.Provider {
	case "openai":
		opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		c.backend = &openAIEmbedder{
			sdk:        openaisdk.NewClient(opts...),
			model:      cfg.Model,
			dimensions: cfg.Dimensions,
		}
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			c.configErr = domain.NewError(domain.KindConfig, "embedding", fmt.Errorf("gemini client: %w", err))
			return c
		}
		c.backend = &geminiEmbedder{client: client, model: cfg.Model, dimensions: cfg.Dimensions}
	case "jina":
		c.backend = newHTTPEmbedder(jinaEndpoint, cfg, "retrieval.passage")
	case "openai-compatible":
		c.backend = newHTTPEmbedder(strings.TrimRight(cfg.BaseURL, "/")+"/embeddings", cfg, "")
	default:
		c.configErr = domain.NewError(domain.KindConfig, "embedding",
			fmt.Errorf("%w: unknown provider %q", domain.ErrNotConfigured, cfg.Provider))
	}
	return c
}

// Model returns the configured embedding model name.
func (c *EmbeddingClient) Model() string {
	return c.model
}

func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Embed normalizes text and returns its vector.
// Parameters:
//   - ctx: context for cancellation; a per-call timeout is applied on top.
//   - text: raw text; newlines are collapsed and surrounding space trimmed.
// Returns:
//   - []float32: vector of the configured dimension.
//   - error: ErrEmptyText (no call made), a config error, or a transient/malformed service error.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	normalized := NormalizeEmbeddingText(text)
	if normalized == "" {
		return nil, domain.NewError(domain.KindValidation, "embedding", domain.ErrEmptyText)
	}
	if c.configErr != nil {
		return nil, c.configErr
	}

	call := logger.Call(ctx, logger.CallEmbedding, logger.Fields{logger.FieldModel: c.model})

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vec, err := c.backend.embed(callCtx, normalized)
	if err != nil {
		err = classifyCallError("embedding", err)
		call.Failed(string(domain.KindOf(err)), err)
		return nil, err
	}
	if c.dimensions > 0 && len(vec) != c.dimensions {
		err := domain.NewError(domain.KindMalformed, "embedding",
			&domain.MalformedOutputError{Reason: fmt.Sprintf("got %d dimensions, want %d", len(vec), c.dimensions)})
		call.Failed(string(domain.KindMalformed), err)
		return nil, err
	}

	call.Succeeded(logger.Fields{"dimensions": len(vec)})
	return vec, nil
}

// classifyCallError tags an external call error with its kind unless it is
// already classified.
func classifyCallError(op string, err error) error {
	var classified *domain.Error
	if errors.As(err, &classified) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return domain.NewError(domain.KindConfig, op, err)
	case errors.Is(err, domain.ErrMalformedOutput):
		return domain.NewError(domain.KindMalformed, op, err)
	}
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return domain.NewError(domain.KindConfig, op, err)
	}
	return domain.NewError(domain.KindTransient, op, err)
}

// openAIEmbedder uses the official OpenAI SDK.
type openAIEmbedder struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

func (e *openAIEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
		Model: e.model,
	}
	if e.dimensions > 0 {
		params.Dimensions = param.NewOpt(int64(e.dimensions))
	}

	resp, err := e.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, &domain.MalformedOutputError{Reason: "no embedding in response"}
	}

	emb := resp.Data[0].Embedding
	out := make([]float32, len(emb))
	for i := range emb {
		out[i] = float32(emb[i])
	}
	return out, nil
}

// geminiEmbedder uses the Gen AI SDK against the Gemini API.
type geminiEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
}

func (e *geminiEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	cfg := &genai.EmbedContentConfig{}
	if e.dimensions > 0 {
		dim := int32(e.dimensions)
		cfg.OutputDimensionality = &dim
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, &domain.MalformedOutputError{Reason: "no embedding in response"}
	}

	out := make([]float32, len(resp.Embeddings[0].Values))
	copy(out, resp.Embeddings[0].Values)
	return out, nil
}

// httpEmbedder speaks the OpenAI-style /embeddings wire format used by Jina
// and self-hosted gateways.
type httpEmbedder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
	task       string
}

func newHTTPEmbedder(endpoint string, cfg *config.EmbeddingConfig, task string) *httpEmbedder {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	return &httpEmbedder{
		client:     client,
		endpoint:   endpoint,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		task:       task,
	}
}

type embeddingRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *httpEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	req := embeddingRequest{
		Model:      e.model,
		Task:       e.task,
		Dimensions: e.dimensions,
		Input:      []string{text},
	}
	if e.task != "" {
		req.EmbeddingType = "float"
	}

	var resp embeddingResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(e.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	switch status := httpResp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, fmt.Errorf("%w: embedding API rejected credentials (status %d)", domain.ErrNotConfigured, status)
	case status < 200 || status >= 300:
		if resp.Error != nil && resp.Error.Message != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Error.Message)
		}
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", status)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &domain.MalformedOutputError{Reason: "no embedding in response"}
	}
	return resp.Data[0].Embedding, nil
}
