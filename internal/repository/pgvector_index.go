package repository

import (
	"context"
	"fmt"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// VectorIndex answers nearest-neighbor queries over joke vectors.
// MatchBridges ranks by bridge_embedding with no minimum similarity;
// MatchContent ranks by the content embedding and drops hits at or below threshold.
type VectorIndex interface {
	MatchBridges(ctx context.Context, query []float32, count int) ([]domain.JokeMatch, error)
	MatchContent(ctx context.Context, query []float32, threshold float32, count int) ([]domain.JokeMatch, error)
	// Index makes the record's current vectors searchable.
	Index(ctx context.Context, joke *domain.JokeRecord) error
	Remove(ctx context.Context, id int64) error
}

// PGVectorIndex calls the match_joke_bridges / match_jokes SQL functions.
// Vectors live in the comic_segments columns, so Index and Remove are no-ops.
type PGVectorIndex struct {
	db *gorm.DB
}

func NewPGVectorIndex(db *gorm.DB) *PGVectorIndex {
	return &PGVectorIndex{db: db}
}

var _ VectorIndex = (*PGVectorIndex)(nil)

type matchRow struct {
	ID             int64              `gorm:"column:id"`
	VideoID        string             `gorm:"column:video_id"`
	SearchableText string             `gorm:"column:searchable_text"`
	BridgeContent  *string            `gorm:"column:bridge_content"`
	MetaTags       domain.StringArray `gorm:"column:meta_tags"`
	Similarity     float64            `gorm:"column:similarity"`
}

func (m matchRow) toMatch() domain.JokeMatch {
	match := domain.JokeMatch{
		ID:             m.ID,
		SourceID:       m.VideoID,
		SearchableText: m.SearchableText,
		Tags:           m.MetaTags,
		Similarity:     m.Similarity,
	}
	if m.BridgeContent != nil {
		match.BridgeContent = *m.BridgeContent
	}
	return match
}

func (i *PGVectorIndex) MatchBridges(ctx context.Context, query []float32, count int) ([]domain.JokeMatch, error) {
	var rows []matchRow
	err := i.db.WithContext(ctx).
		Raw("SELECT * FROM match_joke_bridges(?, ?)", pgvector.NewVector(query), count).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match_joke_bridges: %w", err)
	}
	return toMatches(rows), nil
}

func (i *PGVectorIndex) MatchContent(ctx context.Context, query []float32, threshold float32, count int) ([]domain.JokeMatch, error) {
	var rows []matchRow
	err := i.db.WithContext(ctx).
		Raw("SELECT * FROM match_jokes(?, ?, ?)", pgvector.NewVector(query), threshold, count).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match_jokes: %w", err)
	}
	return toMatches(rows), nil
}

func (i *PGVectorIndex) Index(ctx context.Context, joke *domain.JokeRecord) error {
	return nil
}

func (i *PGVectorIndex) Remove(ctx context.Context, id int64) error {
	return nil
}

func toMatches(rows []matchRow) []domain.JokeMatch {
	matches := make([]domain.JokeMatch, len(rows))
	for i, row := range rows {
		matches[i] = row.toMatch()
	}
	return matches
}
