package source

import (
	"context"
	"fmt"
	"strconv"
)

// SegmentItem is one joke segment offered for import.
type SegmentItem struct {
	SourceID       string // Video or document the segment came from
	SearchableText string // Cleaned joke text; the embedding input
	RawText        string // Transcript text as spoken
	Tags           []string
}

// Source defines the interface for segment sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// FetchBatch fetches a batch of segments starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of segment items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []SegmentItem, nextCursor string, err error)
}

// Page slices items using an index cursor, the paging scheme shared by the
// in-memory sources.
// Parameters:
//   - items: all items of the source.
//   - cursor: index string or empty for the first page.
//   - limit: maximum number of items to return.
// Returns:
//   - []SegmentItem: the page.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if the cursor is not an index.
func Page(items []SegmentItem, cursor string, limit int) ([]SegmentItem, string, error) {
	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(items) {
		return []SegmentItem{}, "", nil
	}
	if limit <= 0 {
		limit = len(items)
	}

	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[start:end], next, nil
}

// SliceSource serves segments already held in memory, such as the body of an
// import request.
type SliceSource struct {
	sourceID string
	items    []SegmentItem
}

// NewSliceSource creates a source over items. Items without a SourceID get sourceID.
func NewSliceSource(sourceID string, items []SegmentItem) *SliceSource {
	filled := make([]SegmentItem, len(items))
	for i, item := range items {
		if item.SourceID == "" {
			item.SourceID = sourceID
		}
		filled[i] = item
	}
	return &SliceSource{sourceID: sourceID, items: filled}
}

func (s *SliceSource) GetSourceID() string {
	return s.sourceID
}

func (s *SliceSource) GetDisplayName() string {
	return fmt.Sprintf("Request (%s)", s.sourceID)
}

func (s *SliceSource) FetchBatch(ctx context.Context, cursor string, limit int) ([]SegmentItem, string, error) {
	return Page(s.items, cursor, limit)
}

// Len returns the number of items held.
func (s *SliceSource) Len() int {
	return len(s.items)
}
