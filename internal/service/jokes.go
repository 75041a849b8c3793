package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/repository"
	"github.com/Khushalgogia/joke-manager-v12/internal/source"
	"golang.org/x/time/rate"
)

type jokeStore interface {
	Create(ctx context.Context, joke *domain.JokeRecord) error
	Get(ctx context.Context, id int64) (*domain.JokeRecord, error)
	UpdateContent(ctx context.Context, id int64, upd repository.ContentUpdate) error
	UpdateBridge(ctx context.Context, id int64, bridge string, embedding []float32) error
	Delete(ctx context.Context, id int64) error
	ListMissingBridge(ctx context.Context, afterID int64, limit int) ([]domain.JokeRecord, error)
	CountMissingBridge(ctx context.Context) (int64, error)
}

// BackfillConfig tunes FillMissingBridges.
type BackfillConfig struct {
	Workers   int
	BatchSize int
	RateLimit float64 // bridge syntheses per second, 0 disables
}

// BackfillConfigFromConfig converts the enrichment config section.
func BackfillConfigFromConfig(cfg *config.EnrichmentConfig) BackfillConfig {
	return BackfillConfig{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
		RateLimit: cfg.RateLimit,
	}
}

// JokeService owns every write to the joke store: manual adds, imports,
// edits, bridge refreshes and the missing-bridge backfill.
type JokeService struct {
	store    jokeStore
	embedder embedder
	bridges  bridgeSynthesizer
	enricher jokeEnricher
	ingest   *IngestService
	backfill BackfillConfig
	limiter  *rate.Limiter
}

// NewJokeService wires the service. ingest serves ImportSegments.
func NewJokeService(store jokeStore, embedder embedder, bridges bridgeSynthesizer, enricher jokeEnricher, ingest *IngestService, backfill BackfillConfig) *JokeService {
	if backfill.Workers <= 0 {
		backfill.Workers = 1
	}
	if backfill.BatchSize <= 0 {
		backfill.BatchSize = 10
	}
	s := &JokeService{
		store:    store,
		embedder: embedder,
		bridges:  bridges,
		enricher: enricher,
		ingest:   ingest,
		backfill: backfill,
	}
	if backfill.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(backfill.RateLimit), 1)
	}
	return s
}

// AddJokeRequest is a manually entered joke.
type AddJokeRequest struct {
	JokeText string   `json:"joke_text" binding:"required"`
	RawText  string   `json:"raw_text"`
	Keywords []string `json:"keywords"`
	Source   string   `json:"source"`
}

type AddJokeResponse struct {
	Success       bool   `json:"success"`
	ID            int64  `json:"id"`
	HasBridge     bool   `json:"has_bridge"`
	BridgeContent string `json:"bridge_content"`
	Message       string `json:"message"`
}

// AddJoke stores one joke. The content embedding is required: when it fails
// nothing is inserted. A failed enrichment still inserts the joke without a bridge.
func (s *JokeService) AddJoke(ctx context.Context, req *AddJokeRequest) (*AddJokeResponse, error) {
	sourceID := strings.TrimSpace(req.Source)
	if sourceID == "" {
		sourceID = domain.SourceManual
	}

	record, enrichment, err := buildJokeRecord(ctx, s.embedder, s.enricher, source.SegmentItem{
		SourceID:       sourceID,
		SearchableText: req.JokeText,
		RawText:        req.RawText,
		Tags:           req.Keywords,
	}, true)
	if err != nil {
		return nil, fmt.Errorf("could not add joke: %w", err)
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}

	ctx = logger.SetJokeID(ctx, record.ID)
	logger.With(logger.Fields{"has_bridge": enrichment.HasBridge()}).Info(ctx, "Joke added")

	message := "Joke added with bridge embedding!"
	if !enrichment.HasBridge() {
		message = "Joke added without a bridge; fill missing bridges to retry."
	}
	return &AddJokeResponse{
		Success:       true,
		ID:            record.ID,
		HasBridge:     enrichment.HasBridge(),
		BridgeContent: enrichment.BridgeContent,
		Message:       message,
	}, nil
}

// ImportSegmentsRequest carries reviewed segments of one video.
type ImportSegmentsRequest struct {
	SourceID string           `json:"video_id"`
	Segments []domain.Segment `json:"segments"`
	// SkipEnrichment defers bridges to a later backfill.
	SkipEnrichment bool `json:"skip_enrichment"`
}

type ImportSegmentsResponse struct {
	Success    bool   `json:"success"`
	Count      int64  `json:"count"`
	Skipped    int64  `json:"skipped"`
	WithBridge int64  `json:"with_bridge"`
	Message    string `json:"message"`
}

// ImportSegments embeds, enriches and stores segments. Segments with empty
// text or a failed content embedding are skipped.
func (s *JokeService) ImportSegments(ctx context.Context, req *ImportSegmentsRequest) (*ImportSegmentsResponse, error) {
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" || len(req.Segments) == 0 {
		return nil, domain.NewError(domain.KindValidation, "import segments", fmt.Errorf("missing video_id or segments"))
	}

	items := make([]source.SegmentItem, len(req.Segments))
	for i, seg := range req.Segments {
		items[i] = source.SegmentItem{
			SearchableText: seg.SearchableContent,
			RawText:        seg.OriginalText,
			Tags:           seg.Keywords,
		}
	}
	src := source.NewSliceSource(sourceID, items)

	stats, err := s.ingest.IngestFromSource(ctx, src, src.Len(), &IngestOptions{SkipEnrichment: req.SkipEnrichment})
	if err != nil {
		return nil, err
	}

	return &ImportSegmentsResponse{
		Success:    true,
		Count:      stats.AddedItems,
		Skipped:    stats.SkippedItems,
		WithBridge: stats.BridgedItems,
		Message:    fmt.Sprintf("Uploaded %d segments (%d with bridges)!", stats.AddedItems, stats.BridgedItems),
	}, nil
}

// UpdateJokeRequest replaces the editable fields of a joke.
type UpdateJokeRequest struct {
	RawText        string   `json:"original_text"`
	SearchableText string   `json:"searchable_text" binding:"required"`
	Tags           []string `json:"meta_tags"`
	// RefreshBridge regenerates the bridge when the searchable text changed.
	RefreshBridge bool `json:"refresh_bridge"`
}

// UpdateJoke applies an edit and re-embeds the searchable text. When the
// embedding fails the previous content embedding is kept.
func (s *JokeService) UpdateJoke(ctx context.Context, id int64, req *UpdateJokeRequest) (*domain.JokeView, error) {
	text := strings.TrimSpace(req.SearchableText)
	if text == "" {
		return nil, domain.NewError(domain.KindValidation, "update joke", fmt.Errorf("searchable_text: %w", domain.ErrEmptyText))
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetJokeID(ctx, id)

	upd := repository.ContentUpdate{
		RawText:        req.RawText,
		SearchableText: text,
		Tags:           domain.StringArray(req.Tags),
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.With(logger.Fields{logger.FieldFailureKind: domain.KindOf(err)}).
			WithError(err).
			Warn(ctx, "Keeping previous content embedding")
	} else {
		upd.Embedding = vec
	}

	if err := s.store.UpdateContent(ctx, id, upd); err != nil {
		return nil, err
	}

	if req.RefreshBridge && text != existing.SearchableText {
		if _, err := s.RefreshBridge(ctx, id); err != nil {
			logger.With(nil).WithError(err).Warn(ctx, "Bridge left stale after edit")
		}
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := updated.View()
	return &view, nil
}

type RefreshBridgeResponse struct {
	Success            bool   `json:"success"`
	SegmentID          int64  `json:"segment_id"`
	BridgeContent      string `json:"bridge_content"`
	HasBridgeEmbedding bool   `json:"has_bridge_embedding"`
	Message            string `json:"message"`
}

// RefreshBridge regenerates the bridge of a joke from its searchable text and
// overwrites the stored one. A bridge failure writes nothing; an embedding
// failure stores the new text and clears the old vector.
func (s *JokeService) RefreshBridge(ctx context.Context, id int64) (*RefreshBridgeResponse, error) {
	joke, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = logger.SetJokeID(ctx, id)

	bridge, err := s.bridges.Synthesize(ctx, joke.SearchableText)
	if err != nil {
		return nil, fmt.Errorf("failed to generate bridge content: %w", err)
	}

	vec, err := s.embedder.Embed(ctx, bridge)
	if err != nil {
		logger.With(logger.Fields{logger.FieldFailureKind: domain.KindOf(err)}).
			WithError(err).
			Warn(ctx, "Bridge stored without embedding")
		vec = nil
	}

	if err := s.store.UpdateBridge(ctx, id, bridge, vec); err != nil {
		return nil, err
	}

	return &RefreshBridgeResponse{
		Success:            true,
		SegmentID:          id,
		BridgeContent:      bridge,
		HasBridgeEmbedding: len(vec) > 0,
		Message:            "Bridge refreshed successfully!",
	}, nil
}

// DeleteJoke removes a joke from the store and its vector index.
func (s *JokeService) DeleteJoke(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}
