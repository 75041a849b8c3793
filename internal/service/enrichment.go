package service

import (
	"context"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
)

// embedder is satisfied by *EmbeddingClient.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// bridgeSynthesizer is satisfied by *BridgeSynthesizer.
type bridgeSynthesizer interface {
	Synthesize(ctx context.Context, jokeText string) (string, error)
}

// Enricher produces the derived bridge fields of a joke.
type Enricher struct {
	bridges  bridgeSynthesizer
	embedder embedder
}

func NewEnricher(bridges bridgeSynthesizer, embedder embedder) *Enricher {
	return &Enricher{bridges: bridges, embedder: embedder}
}

// Enrich synthesizes a bridge for jokeText and, if that worked, embeds it.
// The result may carry zero, one or both fields. Synthesis and embedding
// failures are logged and absorbed; only empty input is an error.
func (e *Enricher) Enrich(ctx context.Context, jokeText string) (domain.Enrichment, error) {
	if strings.TrimSpace(jokeText) == "" {
		return domain.Enrichment{}, domain.NewError(domain.KindValidation, "enrich", domain.ErrEmptyText)
	}

	bridge, err := e.bridges.Synthesize(ctx, jokeText)
	if err != nil {
		logger.With(logger.Fields{logger.FieldFailureKind: domain.KindDegraded}).
			WithError(err).
			Warn(ctx, "Bridge synthesis failed, joke stays unbridged")
		return domain.Enrichment{}, nil
	}

	result := domain.Enrichment{BridgeContent: bridge}
	vec, err := e.embedder.Embed(ctx, bridge)
	if err != nil {
		logger.With(logger.Fields{logger.FieldFailureKind: domain.KindDegraded}).
			WithError(err).
			Warn(ctx, "Bridge embedding failed, joke has bridge text but is not indexed")
		return result, nil
	}
	result.BridgeEmbedding = vec
	return result, nil
}
