package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
)

type thresholdSearcher interface {
	SimilaritySearchWithThreshold(ctx context.Context, query []float32, k int, threshold float32) ([]domain.JokeMatch, error)
}

type jokeReader interface {
	Get(ctx context.Context, id int64) (*domain.JokeRecord, error)
	List(ctx context.Context, limit, offset int) ([]domain.JokeRecord, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// SearchConfig holds configuration for search service.
type SearchConfig struct {
	Count          int
	ScoreThreshold float32 // minimum content similarity of the fallback search
}

// SearchService answers free-text searches and read-only listings.
type SearchService struct {
	themes    themeExpander
	embedder  embedder
	searcher  thresholdSearcher
	jokes     jokeReader
	count     int
	threshold float32
}

// NewSearchService creates a new search service.
// Parameters:
//   - themes: headline-to-themes expander; failures fall back to the query.
//   - embedder: embedding client for the expanded themes.
//   - searcher: bridge store similarity search.
//   - jokes: record reader for listings and stats.
//   - cfg: search configuration settings.
//
// Returns:
//   - *SearchService: initialized search service.
func NewSearchService(themes themeExpander, embedder embedder, searcher thresholdSearcher, jokes jokeReader, cfg *SearchConfig) *SearchService {
	s := &SearchService{
		themes:    themes,
		embedder:  embedder,
		searcher:  searcher,
		jokes:     jokes,
		count:     15,
		threshold: 0.15,
	}
	if cfg != nil {
		if cfg.Count > 0 {
			s.count = cfg.Count
		}
		if cfg.ScoreThreshold > 0 {
			s.threshold = cfg.ScoreThreshold
		}
	}
	return s
}

// SearchRequest represents a text search request.
type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	Count int    `json:"count"`
}

// SearchResponse represents the search response.
type SearchResponse struct {
	Success        bool               `json:"success"`
	Query          string             `json:"query"`
	Themes         string             `json:"themes"`
	ThemesDegraded bool               `json:"themes_degraded"`
	Results        []domain.JokeMatch `json:"results"`
	Count          int                `json:"count"`
}

// Search expands the query into themes, embeds them and ranks jokes by
// bridge similarity, falling back to content similarity above the configured threshold.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: search request parameters.
//
// Returns:
//   - *SearchResponse: search results and metadata.
//   - error: validation error for an empty query, otherwise the embedding or search failure.
func (s *SearchService) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.NewError(domain.KindValidation, "search", fmt.Errorf("query: %w", domain.ErrEmptyText))
	}
	count := req.Count
	if count <= 0 || count > s.count {
		count = s.count
	}

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldComponent: "search",
		logger.FieldHeadline:  query,
	})

	themes, degraded := s.themes.ExpandWithFallback(ctx, query)

	vec, err := s.embedder.Embed(ctx, themes)
	if err != nil {
		return nil, fmt.Errorf("failed to embed search themes: %w", err)
	}

	results, err := s.searcher.SimilaritySearchWithThreshold(ctx, vec, count, s.threshold)
	if err != nil {
		return nil, err
	}

	for i := range results {
		results[i].Similarity = roundTo(results[i].Similarity, 3)
	}

	logger.CtxInfo(ctx, "Search completed: themes=%q, results=%d, degraded=%t", themes, len(results), degraded)

	return &SearchResponse{
		Success:        true,
		Query:          query,
		Themes:         themes,
		ThemesDegraded: degraded,
		Results:        results,
		Count:          len(results),
	}, nil
}

// GetJoke retrieves a joke by its ID.
func (s *SearchService) GetJoke(ctx context.Context, id int64) (*domain.JokeView, error) {
	joke, err := s.jokes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := joke.View()
	return &view, nil
}

// JokeListResponse represents the response for listing jokes.
type JokeListResponse struct {
	Success  bool              `json:"success"`
	Segments []domain.JokeView `json:"segments"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ListJokes returns jokes newest first with embedding flags.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return; defaults to 100, capped at 1000.
//   - offset: number of records to skip.
//
// Returns:
//   - *JokeListResponse: one page of jokes.
//   - error: non-nil if retrieval fails.
func (s *SearchService) ListJokes(ctx context.Context, limit, offset int) (*JokeListResponse, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}

	jokes, err := s.jokes.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	views := make([]domain.JokeView, len(jokes))
	for i := range jokes {
		views[i] = jokes[i].View()
	}

	return &JokeListResponse{
		Success:  true,
		Segments: views,
		Total:    len(views),
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// GetStats returns bridge coverage statistics.
func (s *SearchService) GetStats(ctx context.Context) (*domain.Stats, error) {
	return s.jokes.Stats(ctx)
}
