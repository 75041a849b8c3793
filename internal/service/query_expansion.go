package service

import (
	"context"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/prompts"
)

// ThemeExpander turns a headline into abstract comma-separated themes so that
// retrieval matches on mechanism instead of the headline's literal nouns.
type ThemeExpander struct {
	chat        *ChatClient
	model       string
	temperature float64
	maxTokens   int
}

// NewThemeExpander creates a ThemeExpander using the llm config section.
func NewThemeExpander(chat *ChatClient, cfg *config.LLMConfig) *ThemeExpander {
	return &ThemeExpander{
		chat:        chat,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.ThemeMaxTokens,
	}
}

// Expand returns the themes for headline.
func (s *ThemeExpander) Expand(ctx context.Context, headline string) (string, error) {
	headline = strings.TrimSpace(headline)
	if headline == "" {
		return "", domain.NewError(domain.KindValidation, "theme expansion", domain.ErrEmptyText)
	}

	call := logger.Call(ctx, logger.CallThemeExpansion, logger.Fields{logger.FieldModel: s.model})
	content, err := s.chat.Complete(ctx, ChatRequest{
		Model:       s.model,
		Messages:    []ChatMessage{{Role: "user", Content: prompts.ThemePrompt(headline)}},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		err = classifyCallError("theme expansion", err)
		call.Failed(string(domain.KindOf(err)), err)
		return "", err
	}

	themes := joinLines(content)
	if themes == "" {
		err := domain.NewError(domain.KindMalformed, "theme expansion", &domain.MalformedOutputError{Reason: "no themes"})
		call.Failed(string(domain.KindMalformed), err)
		return "", err
	}

	call.Succeeded(nil)
	return themes, nil
}

// ExpandWithFallback expands headline and returns it unchanged on any error.
// degraded reports whether the fallback was used.
func (s *ThemeExpander) ExpandWithFallback(ctx context.Context, headline string) (themes string, degraded bool) {
	expanded, err := s.Expand(ctx, headline)
	if err != nil {
		logger.With(logger.Fields{
			logger.FieldHeadline:    headline,
			logger.FieldFailureKind: domain.KindDegraded,
		}).WithError(err).Warn(ctx, "Theme expansion failed, searching with the headline")
		return headline, true
	}
	return expanded, false
}
