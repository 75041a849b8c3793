package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/source"
)

type jokeEnricher interface {
	Enrich(ctx context.Context, jokeText string) (domain.Enrichment, error)
}

type segmentWriter interface {
	CreateBatch(ctx context.Context, jokes []*domain.JokeRecord) error
}

// IngestService handles the segment import pipeline: each item is embedded,
// enriched with a bridge and written to the store in batches.
type IngestService struct {
	store     segmentWriter
	embedder  embedder
	enricher  jokeEnricher
	workers   int
	batchSize int
}

// IngestConfig holds configuration for the ingest service
type IngestConfig struct {
	Workers   int
	BatchSize int
}

// NewIngestService creates a new ingest service
func NewIngestService(store segmentWriter, embedder embedder, enricher jokeEnricher, cfg *IngestConfig) *IngestService {
	workers, batchSize := 1, 50
	if cfg != nil {
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
		if cfg.BatchSize > 0 {
			batchSize = cfg.BatchSize
		}
	}
	return &IngestService{
		store:     store,
		embedder:  embedder,
		enricher:  enricher,
		workers:   workers,
		batchSize: batchSize,
	}
}

// IngestStats holds statistics for an ingestion run
type IngestStats struct {
	TotalItems   int64     `json:"total"`
	AddedItems   int64     `json:"added"`
	SkippedItems int64     `json:"skipped"`
	FailedItems  int64     `json:"failed"`
	BridgedItems int64     `json:"with_bridge"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// IngestOptions holds options for ingestion
type IngestOptions struct {
	// SkipEnrichment stores segments without bridges, leaving them for a backfill.
	SkipEnrichment bool
}

// IngestFromSource imports up to limit segments from src.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - src: segment source.
//   - limit: maximum number of items to fetch; <= 0 means all.
//   - opts: optional ingestion options.
// Returns:
//   - *IngestStats: counters for the run, also on error.
//   - error: non-nil if fetching or inserting failed. Skipped segments
//     (empty text, failed content embedding) are not errors.
func (s *IngestService) IngestFromSource(ctx context.Context, src source.Source, limit int, opts *IngestOptions) (*IngestStats, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	stats := &IngestStats{
		StartTime: time.Now(),
	}
	ctx = logger.SetSourceID(ctx, src.GetSourceID())

	logger.With(logger.Fields{
		"source":          src.GetDisplayName(),
		"limit":           limit,
		"skip_enrichment": opts.SkipEnrichment,
	}).Info(ctx, "Starting segment import")

	itemsChan := make(chan source.SegmentItem, s.workers*2)
	resultsChan := make(chan *processResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, itemsChan, resultsChan, opts)
		}()
	}

	// The collector is the only writer, so batches are inserted one at a time.
	var insertErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		pending := make([]*domain.JokeRecord, 0, s.batchSize)
		flush := func() {
			if len(pending) == 0 {
				return
			}
			if insertErr == nil {
				if err := s.store.CreateBatch(ctx, pending); err != nil {
					insertErr = fmt.Errorf("failed to insert segments: %w", err)
				}
			}
			if insertErr != nil {
				atomic.AddInt64(&stats.FailedItems, int64(len(pending)))
			} else {
				atomic.AddInt64(&stats.AddedItems, int64(len(pending)))
			}
			pending = make([]*domain.JokeRecord, 0, s.batchSize)
		}

		for result := range resultsChan {
			switch {
			case result.skipped:
				atomic.AddInt64(&stats.SkippedItems, 1)
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
			default:
				if result.record.HasBridge() {
					atomic.AddInt64(&stats.BridgedItems, 1)
				}
				pending = append(pending, result.record)
				if len(pending) >= s.batchSize {
					flush()
				}
			}
		}
		flush()
	}()

	fetchErr := s.feed(ctx, src, limit, itemsChan, stats)

	close(itemsChan)
	wg.Wait()

	close(resultsChan)
	<-done

	stats.EndTime = time.Now()

	logger.With(logger.Fields{
		"total":       stats.TotalItems,
		"added":       stats.AddedItems,
		"skipped":     stats.SkippedItems,
		"failed":      stats.FailedItems,
		"with_bridge": stats.BridgedItems,
	}).WithDuration(stats.EndTime.Sub(stats.StartTime)).Info(ctx, "Segment import completed")

	if fetchErr != nil {
		return stats, fetchErr
	}
	if insertErr != nil {
		return stats, insertErr
	}
	return stats, ctx.Err()
}

// feed pages through src and hands items to the workers.
func (s *IngestService) feed(ctx context.Context, src source.Source, limit int, items chan<- source.SegmentItem, stats *IngestStats) error {
	cursor := ""
	totalFetched := 0
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if limit > 0 {
			remaining := limit - totalFetched
			if remaining <= 0 {
				return nil
			}
			if batchLimit > remaining {
				batchLimit = remaining
			}
		}

		batch, nextCursor, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			logger.With(nil).WithError(err).Error(ctx, "Failed to fetch batch")
			return fmt.Errorf("failed to fetch segments from %s: %w", src.GetSourceID(), err)
		}
		if len(batch) == 0 {
			return nil
		}

		atomic.AddInt64(&stats.TotalItems, int64(len(batch)))
		totalFetched += len(batch)

		for _, item := range batch {
			select {
			case items <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if nextCursor == "" {
			return nil
		}
		cursor = nextCursor
	}
	return ctx.Err()
}

type processResult struct {
	record  *domain.JokeRecord
	skipped bool
	err     error
}

func (s *IngestService) worker(ctx context.Context, items <-chan source.SegmentItem, results chan<- *processResult, opts *IngestOptions) {
	for item := range items {
		if ctx.Err() != nil {
			results <- &processResult{err: ctx.Err()}
			continue
		}

		record, _, err := buildJokeRecord(ctx, s.embedder, s.enricher, item, !opts.SkipEnrichment)
		if err != nil {
			logger.With(logger.Fields{
				logger.FieldFailureKind: domain.KindOf(err),
				"preview":               truncatePreview(item.SearchableText, 60),
			}).WithError(err).Warn(ctx, "Skipping segment")
			results <- &processResult{skipped: true}
			continue
		}
		results <- &processResult{record: record}
	}
}

// buildJokeRecord turns a segment into an unsaved record. The content
// embedding is required; enrichment failures leave the bridge fields empty.
func buildJokeRecord(ctx context.Context, emb embedder, enricher jokeEnricher, item source.SegmentItem, enrich bool) (*domain.JokeRecord, domain.Enrichment, error) {
	text := strings.TrimSpace(item.SearchableText)
	if text == "" {
		return nil, domain.Enrichment{}, domain.NewError(domain.KindValidation, "build joke", domain.ErrEmptyText)
	}

	vec, err := emb.Embed(ctx, text)
	if err != nil {
		return nil, domain.Enrichment{}, fmt.Errorf("content embedding: %w", err)
	}

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	record := &domain.JokeRecord{
		SourceID:       item.SourceID,
		RawText:        item.RawText,
		SearchableText: text,
		Tags:           domain.StringArray(tags),
	}
	record.SetContentEmbedding(vec)

	var enrichment domain.Enrichment
	if enrich && enricher != nil {
		// Enrich only fails on empty input, which was rejected above.
		enrichment, _ = enricher.Enrich(ctx, text)
		enrichment.ApplyTo(record)
	}
	return record, enrichment, nil
}
