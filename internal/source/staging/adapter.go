package staging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/source"
)

const (
	// ManifestFileName is the JSONL file holding reviewed segments of one source.
	ManifestFileName = "segments.jsonl"
)

// ManifestItem is one line of segments.jsonl: an extracted segment, plus an
// optional source id overriding the directory name.
type ManifestItem struct {
	SourceID string `json:"source_id,omitempty"`
	domain.Segment
}

// Adapter implements the Source interface for a staging directory laid out
// as <basePath>/<sourceID>/segments.jsonl.
type Adapter struct {
	basePath string
	sourceID string
	items    []source.SegmentItem
	loaded   bool
	skipped  int
}

// NewAdapter creates a new staging adapter.
// Parameters:
//   - basePath: base path to the staging directory.
//   - sourceID: video or document id, also the sub-directory name.
// Returns:
//   - *Adapter: initialized staging adapter.
func NewAdapter(basePath, sourceID string) *Adapter {
	return &Adapter{
		basePath: basePath,
		sourceID: sourceID,
	}
}

// GetSourceID returns the video id segments are stored under.
func (a *Adapter) GetSourceID() string {
	return a.sourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Staging (%s)", a.sourceID)
}

// FetchBatch fetches a batch of segments from the manifest.
// Parameters:
//   - ctx: context for cancellation and deadlines (unused for local reads).
//   - cursor: pagination cursor as an index string.
//   - limit: maximum number of items to fetch.
// Returns:
//   - []source.SegmentItem: batch of segments.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if loading or parsing fails.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.SegmentItem, string, error) {
	if err := a.ensureLoaded(); err != nil {
		return nil, "", err
	}
	return source.Page(a.items, cursor, limit)
}

func (a *Adapter) ensureLoaded() error {
	if a.loaded {
		return nil
	}
	if err := a.loadItems(); err != nil {
		return fmt.Errorf("failed to load staged segments: %w", err)
	}
	a.loaded = true
	return nil
}

// ManifestPath returns the manifest location of this source.
func (a *Adapter) ManifestPath() string {
	return filepath.Join(a.basePath, a.sourceID, ManifestFileName)
}

// loadItems loads all items from the manifest file
func (a *Adapter) loadItems() error {
	manifestPath := a.ManifestPath()

	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		return fmt.Errorf("manifest file not found: %s. Run jokectl extract --stage first", manifestPath)
	}

	file, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var lines []ManifestItem
	a.skipped = 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			// Skip malformed lines
			a.skipped++
			continue
		}
		lines = append(lines, item)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading manifest: %w", err)
	}

	// Keep extraction order
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].SegmentID < lines[j].SegmentID
	})

	a.items = make([]source.SegmentItem, 0, len(lines))
	for _, item := range lines {
		sourceID := item.SourceID
		if sourceID == "" {
			sourceID = a.sourceID
		}
		a.items = append(a.items, source.SegmentItem{
			SourceID:       sourceID,
			SearchableText: item.SearchableContent,
			RawText:        item.OriginalText,
			Tags:           item.Keywords,
		})
	}
	return nil
}

// GetTotalCount returns the number of segments staged for this source.
// Parameters: none.
// Returns:
//   - int: total item count.
//   - error: non-nil if loading fails.
func (a *Adapter) GetTotalCount() (int, error) {
	if err := a.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(a.items), nil
}

// MalformedLines returns how many manifest lines could not be parsed.
func (a *Adapter) MalformedLines() int {
	return a.skipped
}

// WriteManifest stages segments for review, replacing any previous manifest.
// Parameters:
//   - basePath: base path to the staging directory.
//   - sourceID: video or document id.
//   - segments: extracted segments in order.
// Returns:
//   - string: path of the written manifest.
//   - error: non-nil if the directory or file cannot be written.
func WriteManifest(basePath, sourceID string, segments []domain.Segment) (string, error) {
	dir := filepath.Join(basePath, sourceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	manifestPath := filepath.Join(dir, ManifestFileName)
	file, err := os.Create(manifestPath)
	if err != nil {
		return "", fmt.Errorf("failed to create manifest: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, seg := range segments {
		if err := enc.Encode(ManifestItem{Segment: seg}); err != nil {
			return "", fmt.Errorf("failed to write segment %d: %w", seg.SegmentID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush manifest: %w", err)
	}
	return manifestPath, nil
}

// ListStagingSources lists all available staging sources.
// Parameters:
//   - basePath: base path to the staging directory.
// Returns:
//   - []string: list of staged source IDs.
//   - error: non-nil if reading the directory fails.
func ListStagingSources(basePath string) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() {
			manifestPath := filepath.Join(basePath, entry.Name(), ManifestFileName)
			if _, err := os.Stat(manifestPath); err == nil {
				sources = append(sources, entry.Name())
			}
		}
	}

	return sources, nil
}
