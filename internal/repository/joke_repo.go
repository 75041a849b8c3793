package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// JokeRepository handles comic_segments rows.
type JokeRepository struct {
	db *gorm.DB
}

// NewJokeRepository creates a new JokeRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JokeRepository: repository instance bound to db.
func NewJokeRepository(db *gorm.DB) *JokeRepository {
	return &JokeRepository{db: db}
}

// Create inserts a new joke; the store assigns ID and CreatedAt.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - joke: record to persist; its ID is populated on success.
// Returns:
//   - error: non-nil if the insert fails.
func (r *JokeRepository) Create(ctx context.Context, joke *domain.JokeRecord) error {
	if err := r.db.WithContext(ctx).Create(joke).Error; err != nil {
		return fmt.Errorf("failed to create joke: %w", err)
	}
	return nil
}

// CreateBatch inserts jokes in batches of 100.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jokes: records to persist; IDs are populated on success.
// Returns:
//   - error: non-nil if any insert fails.
func (r *JokeRepository) CreateBatch(ctx context.Context, jokes []*domain.JokeRecord) error {
	if len(jokes) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(jokes, 100).Error; err != nil {
		return fmt.Errorf("failed to create jokes: %w", err)
	}
	return nil
}

// GetByID retrieves a joke by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: joke ID.
// Returns:
//   - *domain.JokeRecord: record if found.
//   - error: domain.ErrNotFound when no row matches.
func (r *JokeRepository) GetByID(ctx context.Context, id int64) (*domain.JokeRecord, error) {
	var joke domain.JokeRecord
	if err := r.db.WithContext(ctx).First(&joke, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("joke %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get joke %d: %w", id, err)
	}
	return &joke, nil
}

// ContentUpdate replaces the editable text fields of a joke.
// A nil Embedding leaves the stored content embedding untouched.
type ContentUpdate struct {
	RawText        string
	SearchableText string
	Tags           domain.StringArray
	Embedding      []float32
}

// UpdateContent applies a text edit.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: joke ID.
//   - upd: new field values.
// Returns:
//   - error: domain.ErrNotFound when no row matches.
func (r *JokeRepository) UpdateContent(ctx context.Context, id int64, upd ContentUpdate) error {
	tags := upd.Tags
	if tags == nil {
		tags = domain.StringArray{}
	}
	values := map[string]interface{}{
		"original_text":   upd.RawText,
		"searchable_text": upd.SearchableText,
		"meta_tags":       tags,
	}
	if len(upd.Embedding) > 0 {
		values["embedding"] = pgvector.NewVector(upd.Embedding)
	}
	return r.updateColumns(ctx, id, values)
}

// UpdateBridge stores freshly generated bridge fields. A nil embedding clears
// bridge_embedding so the row shows up as "has bridge text but not indexed"
// instead of keeping a vector of the previous bridge.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: joke ID.
//   - bridge: new bridge text, must be non-empty.
//   - embedding: vector of bridge, or nil when embedding failed.
// Returns:
//   - error: domain.ErrNotFound when no row matches.
func (r *JokeRepository) UpdateBridge(ctx context.Context, id int64, bridge string, embedding []float32) error {
	if bridge == "" {
		return fmt.Errorf("update bridge of joke %d: %w", id, domain.ErrEmptyText)
	}
	values := map[string]interface{}{
		"bridge_content":   bridge,
		"bridge_embedding": nil,
	}
	if len(embedding) > 0 {
		values["bridge_embedding"] = pgvector.NewVector(embedding)
	}
	return r.updateColumns(ctx, id, values)
}

func (r *JokeRepository) updateColumns(ctx context.Context, id int64, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&domain.JokeRecord{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update joke %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("joke %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a joke.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: joke ID.
// Returns:
//   - error: domain.ErrNotFound when no row matches.
func (r *JokeRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&domain.JokeRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete joke %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("joke %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns jokes newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records; <= 0 means no limit.
//   - offset: number of records to skip.
// Returns:
//   - []domain.JokeRecord: matching records.
//   - error: non-nil if the query fails.
func (r *JokeRepository) List(ctx context.Context, limit, offset int) ([]domain.JokeRecord, error) {
	var jokes []domain.JokeRecord
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&jokes).Error; err != nil {
		return nil, fmt.Errorf("failed to list jokes: %w", err)
	}
	return jokes, nil
}

// ListMissingBridge returns jokes with id > afterID whose bridge_content IS NULL,
// oldest ID first.
func (r *JokeRepository) ListMissingBridge(ctx context.Context, afterID int64, limit int) ([]domain.JokeRecord, error) {
	var jokes []domain.JokeRecord
	if err := r.db.WithContext(ctx).
		Where("bridge_content IS NULL AND id > ?", afterID).
		Order("id").
		Limit(limit).
		Find(&jokes).Error; err != nil {
		return nil, fmt.Errorf("failed to list jokes missing bridge: %w", err)
	}
	return jokes, nil
}

// CountMissingBridge counts jokes whose bridge_content IS NULL.
func (r *JokeRepository) CountMissingBridge(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.JokeRecord{}).
		Where("bridge_content IS NULL").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count jokes missing bridge: %w", err)
	}
	return count, nil
}

// ListMissingBridgeEmbedding returns jokes that have bridge text but no bridge vector.
func (r *JokeRepository) ListMissingBridgeEmbedding(ctx context.Context, limit int) ([]domain.JokeRecord, error) {
	var jokes []domain.JokeRecord
	if err := r.db.WithContext(ctx).
		Where("bridge_content IS NOT NULL AND bridge_embedding IS NULL").
		Order("id").
		Limit(limit).
		Find(&jokes).Error; err != nil {
		return nil, fmt.Errorf("failed to list jokes missing bridge embedding: %w", err)
	}
	return jokes, nil
}

// Stats summarizes bridge coverage and per-source counts.
func (r *JokeRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	db := r.db.WithContext(ctx).Model(&domain.JokeRecord{})
	stats := &domain.Stats{Sources: make(map[string]int64)}

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalSegments).Error; err != nil {
		return nil, fmt.Errorf("failed to count jokes: %w", err)
	}
	if err := db.Session(&gorm.Session{}).
		Where("bridge_content IS NOT NULL AND bridge_content <> ''").
		Count(&stats.WithBridge).Error; err != nil {
		return nil, fmt.Errorf("failed to count bridged jokes: %w", err)
	}
	if err := db.Session(&gorm.Session{}).
		Where("bridge_embedding IS NOT NULL").
		Count(&stats.WithBridgeEmbedding).Error; err != nil {
		return nil, fmt.Errorf("failed to count indexed jokes: %w", err)
	}
	stats.WithoutBridge = stats.TotalSegments - stats.WithBridge

	var perSource []struct {
		VideoID string
		Count   int64
	}
	if err := db.Session(&gorm.Session{}).
		Select("video_id, COUNT(*) AS count").
		Group("video_id").
		Scan(&perSource).Error; err != nil {
		return nil, fmt.Errorf("failed to count jokes per source: %w", err)
	}
	for _, row := range perSource {
		stats.Sources[row.VideoID] = row.Count
	}

	return stats, nil
}

// ForEachBatch walks all jokes in ID order, batchSize at a time.
func (r *JokeRepository) ForEachBatch(ctx context.Context, batchSize int, fn func(batch []domain.JokeRecord) error) error {
	var batch []domain.JokeRecord
	result := r.db.WithContext(ctx).Order("id").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		return fmt.Errorf("failed to iterate jokes: %w", result.Error)
	}
	return nil
}
