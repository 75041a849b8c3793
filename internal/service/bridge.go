package service

import (
	"context"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/prompts"
)

// BridgeSynthesizer writes the one-sentence, noun-free search description of a joke.
type BridgeSynthesizer struct {
	chat        *ChatClient
	model       string
	temperature float64
	maxTokens   int
}

func NewBridgeSynthesizer(chat *ChatClient, cfg *config.LLMConfig) *BridgeSynthesizer {
	return &BridgeSynthesizer{
		chat:        chat,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.BridgeMaxTokens,
	}
}

// Synthesize returns the bridge for jokeText, which must be the searchable text.
// On any failure it returns an error and no bridge; callers never store a
// partial one.
func (s *BridgeSynthesizer) Synthesize(ctx context.Context, jokeText string) (string, error) {
	jokeText = strings.TrimSpace(jokeText)
	if jokeText == "" {
		return "", domain.NewError(domain.KindValidation, "bridge synthesis", domain.ErrEmptyText)
	}

	call := logger.Call(ctx, logger.CallBridgeSynthesis, logger.Fields{logger.FieldModel: s.model})
	content, err := s.chat.Complete(ctx, ChatRequest{
		Model:       s.model,
		Messages:    []ChatMessage{{Role: "user", Content: prompts.BridgePrompt(jokeText)}},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		err = classifyCallError("bridge synthesis", err)
		call.Failed(string(domain.KindOf(err)), err)
		return "", err
	}

	bridge := stripQuotes(firstLine(content))
	if bridge == "" {
		err := domain.NewError(domain.KindMalformed, "bridge synthesis", &domain.MalformedOutputError{
			Reason:  "no description in completion",
			Excerpt: truncateRunes(content, 80),
		})
		call.Failed(string(domain.KindMalformed), err)
		return "", err
	}

	call.Succeeded(nil)
	return bridge, nil
}
