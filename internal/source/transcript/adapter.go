package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/source"
)

// Extractor turns a transcript into joke segments.
type Extractor interface {
	Extract(ctx context.Context, transcript, language string) ([]domain.Segment, error)
}

// Adapter implements the Source interface for a plain-text transcript file.
// Segments are extracted on the first FetchBatch and cached.
type Adapter struct {
	path     string
	sourceID string
	language string
	extract  Extractor
	segments []domain.Segment
	items    []source.SegmentItem
	loaded   bool
}

// NewAdapter creates a transcript adapter. An empty sourceID uses the file
// name without extension.
func NewAdapter(path, sourceID, language string, extractor Extractor) *Adapter {
	if sourceID == "" {
		base := filepath.Base(path)
		sourceID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return &Adapter{
		path:     path,
		sourceID: sourceID,
		language: language,
		extract:  extractor,
	}
}

// GetSourceID returns the unique identifier for this source
func (a *Adapter) GetSourceID() string {
	return a.sourceID
}

// GetDisplayName returns a human-readable name for this source
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Transcript (%s)", filepath.Base(a.path))
}

// FetchBatch fetches a batch of extracted segments
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.SegmentItem, string, error) {
	if err := a.load(ctx); err != nil {
		return nil, "", err
	}
	return source.Page(a.items, cursor, limit)
}

// Segments returns the extracted segments, running extraction if needed.
func (a *Adapter) Segments(ctx context.Context) ([]domain.Segment, error) {
	if err := a.load(ctx); err != nil {
		return nil, err
	}
	return a.segments, nil
}

func (a *Adapter) load(ctx context.Context) error {
	if a.loaded {
		return nil
	}

	data, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("transcript %s: %w", a.path, domain.ErrEmptyText)
	}

	segments, err := a.extract.Extract(ctx, text, a.language)
	if err != nil {
		return fmt.Errorf("failed to extract segments: %w", err)
	}

	a.segments = segments
	a.items = make([]source.SegmentItem, 0, len(segments))
	for _, seg := range segments {
		a.items = append(a.items, source.SegmentItem{
			SourceID:       a.sourceID,
			SearchableText: seg.SearchableContent,
			RawText:        seg.OriginalText,
			Tags:           seg.Keywords,
		})
	}
	a.loaded = true
	return nil
}
