package repository

import (
	"context"
	"fmt"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
)

// DefaultFallbackThreshold is the minimum content similarity used when the
// bridge search is unavailable.
const DefaultFallbackThreshold float32 = 0.10

// BridgeStore is the access layer over joke rows and their vector index.
// Writes go to the relational store first; the index is synced afterwards and
// a sync failure is logged, never returned.
type BridgeStore struct {
	repo              *JokeRepository
	index             VectorIndex
	fallbackThreshold float32
	// inPlace is true when the index reads the rows directly and needs no sync.
	inPlace bool
}

// NewBridgeStore creates a BridgeStore.
// Parameters:
//   - repo: joke row repository.
//   - index: vector index used for similarity queries.
//   - fallbackThreshold: minimum content similarity for the fallback search; <= 0 uses DefaultFallbackThreshold.
// Returns:
//   - *BridgeStore: store instance.
func NewBridgeStore(repo *JokeRepository, index VectorIndex, fallbackThreshold float32) *BridgeStore {
	if fallbackThreshold <= 0 {
		fallbackThreshold = DefaultFallbackThreshold
	}
	_, inPlace := index.(*PGVectorIndex)
	return &BridgeStore{
		repo:              repo,
		index:             index,
		fallbackThreshold: fallbackThreshold,
		inPlace:           inPlace,
	}
}

// SimilaritySearch returns at most k jokes ordered by descending similarity,
// using the store's default fallback threshold.
func (s *BridgeStore) SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.JokeMatch, error) {
	return s.SimilaritySearchWithThreshold(ctx, query, k, s.fallbackThreshold)
}

// SimilaritySearchWithThreshold ranks by bridge embedding with no minimum
// similarity. If the bridge search fails for any reason it searches content
// embeddings instead, dropping hits at or below threshold.
// Returns:
//   - []domain.JokeMatch: hits, length <= k.
//   - error: KindHardStep error when both searches fail.
func (s *BridgeStore) SimilaritySearchWithThreshold(ctx context.Context, query []float32, k int, threshold float32) ([]domain.JokeMatch, error) {
	if k <= 0 {
		return []domain.JokeMatch{}, nil
	}
	if len(query) == 0 {
		return nil, domain.NewError(domain.KindValidation, "similarity search", domain.ErrNoEmbedding)
	}

	call := logger.Call(ctx, logger.CallSimilaritySearch, logger.Fields{"index": "bridge", "k": k})
	matches, err := s.index.MatchBridges(ctx, query, k)
	if err == nil {
		call.Succeeded(logger.Fields{logger.FieldCount: len(matches)})
		return capMatches(matches, k), nil
	}
	call.Failed(string(domain.KindDegraded), err)

	call = logger.Call(ctx, logger.CallSimilaritySearch, logger.Fields{"index": "content", "k": k, "threshold": threshold})
	matches, fallbackErr := s.index.MatchContent(ctx, query, threshold, k)
	if fallbackErr != nil {
		call.Failed(string(domain.KindHardStep), fallbackErr)
		return nil, domain.NewError(domain.KindHardStep, "similarity search",
			fmt.Errorf("bridge search: %v; content fallback: %w", err, fallbackErr))
	}
	call.Succeeded(logger.Fields{logger.FieldCount: len(matches)})
	return capMatches(matches, k), nil
}

func capMatches(matches []domain.JokeMatch, k int) []domain.JokeMatch {
	if matches == nil {
		return []domain.JokeMatch{}
	}
	if len(matches) > k {
		return matches[:k]
	}
	return matches
}

// sync mirrors the current row into the index.
func (s *BridgeStore) sync(ctx context.Context, joke *domain.JokeRecord) {
	if s.inPlace {
		return
	}
	if err := s.index.Index(ctx, joke); err != nil {
		logger.With(logger.Fields{logger.FieldJokeID: joke.ID}).
			WithError(err).
			Warn(ctx, "Failed to sync joke into vector index")
	}
}

func (s *BridgeStore) syncByID(ctx context.Context, id int64) {
	if s.inPlace {
		return
	}
	joke, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.With(logger.Fields{logger.FieldJokeID: id}).
			WithError(err).
			Warn(ctx, "Failed to reload joke for vector index sync")
		return
	}
	s.sync(ctx, joke)
}

func (s *BridgeStore) Create(ctx context.Context, joke *domain.JokeRecord) error {
	if err := s.repo.Create(ctx, joke); err != nil {
		return err
	}
	s.sync(ctx, joke)
	return nil
}

func (s *BridgeStore) CreateBatch(ctx context.Context, jokes []*domain.JokeRecord) error {
	if err := s.repo.CreateBatch(ctx, jokes); err != nil {
		return err
	}
	for _, joke := range jokes {
		s.sync(ctx, joke)
	}
	return nil
}

func (s *BridgeStore) Get(ctx context.Context, id int64) (*domain.JokeRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *BridgeStore) UpdateContent(ctx context.Context, id int64, upd ContentUpdate) error {
	if err := s.repo.UpdateContent(ctx, id, upd); err != nil {
		return err
	}
	s.syncByID(ctx, id)
	return nil
}

func (s *BridgeStore) UpdateBridge(ctx context.Context, id int64, bridge string, embedding []float32) error {
	if err := s.repo.UpdateBridge(ctx, id, bridge, embedding); err != nil {
		return err
	}
	s.syncByID(ctx, id)
	return nil
}

func (s *BridgeStore) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if !s.inPlace {
		if err := s.index.Remove(ctx, id); err != nil {
			logger.With(logger.Fields{logger.FieldJokeID: id}).
				WithError(err).
				Warn(ctx, "Failed to remove joke from vector index")
		}
	}
	return nil
}

func (s *BridgeStore) List(ctx context.Context, limit, offset int) ([]domain.JokeRecord, error) {
	return s.repo.List(ctx, limit, offset)
}

// ListMissingBridge is the backfill filter: bridge_content IS NULL.
func (s *BridgeStore) ListMissingBridge(ctx context.Context, afterID int64, limit int) ([]domain.JokeRecord, error) {
	return s.repo.ListMissingBridge(ctx, afterID, limit)
}

func (s *BridgeStore) CountMissingBridge(ctx context.Context) (int64, error) {
	return s.repo.CountMissingBridge(ctx)
}

// ListMissingBridgeEmbedding returns rows with bridge text but no bridge vector.
func (s *BridgeStore) ListMissingBridgeEmbedding(ctx context.Context, limit int) ([]domain.JokeRecord, error) {
	return s.repo.ListMissingBridgeEmbedding(ctx, limit)
}

func (s *BridgeStore) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.repo.Stats(ctx)
}

// Reindex pushes every row into the index. It is a no-op for in-place indexes.
// Returns the number of rows indexed.
func (s *BridgeStore) Reindex(ctx context.Context, batchSize int) (int, error) {
	if s.inPlace {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	indexed := 0
	err := s.repo.ForEachBatch(ctx, batchSize, func(batch []domain.JokeRecord) error {
		for i := range batch {
			if err := s.index.Index(ctx, &batch[i]); err != nil {
				return fmt.Errorf("index joke %d: %w", batch[i].ID, err)
			}
			indexed++
		}
		return nil
	})
	if err != nil {
		return indexed, err
	}
	logger.With(logger.Fields{logger.FieldCount: indexed}).Info(ctx, "Reindexed jokes into vector index")
	return indexed, nil
}
