package service

import (
	"context"
	"fmt"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"google.golang.org/genai"
)

// GeminiGenerator issues structured (JSON) generation calls to the Gemini API.
type GeminiGenerator struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

// NewGeminiGenerator creates the generator. Without an API key it returns a
// generator whose calls fail with ErrNotConfigured, so the rest of the
// service can still start.
func NewGeminiGenerator(ctx context.Context, cfg *config.GeneratorConfig) (*GeminiGenerator, error) {
	g := &GeminiGenerator{
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiGenerator) Model() string {
	return g.model
}

// GenerateJSON sends one call with a system instruction and JSON response
// directive and returns the raw response text.
func (g *GeminiGenerator) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("gemini: %w", domain.ErrNotConfigured)
	}

	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), &genai.GenerateContentConfig{
		Temperature:       &temperature,
		MaxOutputTokens:   g.maxOutputTokens,
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    transplantSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", &domain.MalformedOutputError{Reason: "empty response"}
	}
	return text, nil
}

// transplantSchema mirrors the JSON object the transplant contract asks for.
func transplantSchema() *genai.Schema {
	three := int64(3)
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"engine_selected": {
				Type: genai.TypeString,
				Enum: []string{string(domain.EngineWordTrap), string(domain.EngineBehaviorTrap), string(domain.EngineHyperbole)},
			},
			"reasoning": str("Why this engine fits the reference joke."),
			"brainstorming": {
				Type:     genai.TypeArray,
				Items:    str("Option N: [Trait/Angle] -> [Scenario]"),
				MinItems: &three,
				MaxItems: &three,
			},
			"selected_strategy": str("The best option from the brainstorm."),
			"draft_joke":        str("Final joke, at most 40 words, starting with the setup."),
		},
		Required:         []string{"engine_selected", "reasoning", "brainstorming", "selected_strategy", "draft_joke"},
		PropertyOrdering: []string{"engine_selected", "reasoning", "brainstorming", "selected_strategy", "draft_joke"},
	}
}
