package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/repository"
)

var errBoom = errors.New("boom")

// fakeEmbedder returns a vector derived from the text length unless fail
// matches the text.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls []string
	fail  func(text string) bool
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.fail != nil && f.fail(text) {
		return nil, domain.NewError(domain.KindTransient, "embedding", errBoom)
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBridges struct {
	mu    sync.Mutex
	calls int
	fn    func(text string) (string, error)
}

func (f *fakeBridges) Synthesize(ctx context.Context, jokeText string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(jokeText)
	}
	return "bridge of " + jokeText, nil
}

type fakeThemes struct {
	themes   string
	degraded bool
	got      string
}

func (f *fakeThemes) ExpandWithFallback(ctx context.Context, headline string) (string, bool) {
	f.got = headline
	if f.degraded {
		return headline, true
	}
	return f.themes, false
}

type fakeSearcher struct {
	matches       []domain.JokeMatch
	err           error
	gotK          int
	gotThreshold  float32
	gotQueryEmpty bool
}

func (f *fakeSearcher) SimilaritySearch(ctx context.Context, query []float32, k int) ([]domain.JokeMatch, error) {
	f.gotK = k
	f.gotQueryEmpty = len(query) == 0
	if f.err != nil {
		return nil, f.err
	}
	if len(f.matches) > k {
		return f.matches[:k], nil
	}
	return f.matches, nil
}

func (f *fakeSearcher) SimilaritySearchWithThreshold(ctx context.Context, query []float32, k int, threshold float32) ([]domain.JokeMatch, error) {
	f.gotThreshold = threshold
	return f.SimilaritySearch(ctx, query, k)
}

type fakeChat struct {
	mu       sync.Mutex
	requests []ChatRequest
	fn       func(req ChatRequest) (string, error)
}

func (f *fakeChat) Complete(ctx context.Context, req ChatRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.fn(req)
}

// memoryStore is an in-memory joke store for service tests.
type memoryStore struct {
	mu        sync.Mutex
	nextID    int64
	jokes     map[int64]*domain.JokeRecord
	createErr error
	batches   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{nextID: 1, jokes: make(map[int64]*domain.JokeRecord)}
}

func (m *memoryStore) Create(ctx context.Context, joke *domain.JokeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	joke.ID = m.nextID
	m.nextID++
	copied := *joke
	m.jokes[joke.ID] = &copied
	return nil
}

func (m *memoryStore) CreateBatch(ctx context.Context, jokes []*domain.JokeRecord) error {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
	for _, j := range jokes {
		if err := m.Create(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryStore) Get(ctx context.Context, id int64) (*domain.JokeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jokes[id]
	if !ok {
		return nil, fmt.Errorf("joke %d: %w", id, domain.ErrNotFound)
	}
	copied := *j
	return &copied, nil
}

func (m *memoryStore) UpdateContent(ctx context.Context, id int64, upd repository.ContentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jokes[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.RawText = upd.RawText
	j.SearchableText = upd.SearchableText
	j.Tags = upd.Tags
	if len(upd.Embedding) > 0 {
		j.SetContentEmbedding(upd.Embedding)
	}
	return nil
}

func (m *memoryStore) UpdateBridge(ctx context.Context, id int64, bridge string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jokes[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.BridgeContent = &bridge
	j.BridgeEmbedding = nil
	domain.Enrichment{BridgeContent: bridge, BridgeEmbedding: embedding}.ApplyTo(j)
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jokes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.jokes, id)
	return nil
}

func (m *memoryStore) sorted() []domain.JokeRecord {
	ids := make([]int64, 0, len(m.jokes))
	for id := range m.jokes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]domain.JokeRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.jokes[id])
	}
	return out
}

func (m *memoryStore) List(ctx context.Context, limit, offset int) ([]domain.JokeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted()
	if offset >= len(all) {
		return []domain.JokeRecord{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memoryStore) ListMissingBridge(ctx context.Context, afterID int64, limit int) ([]domain.JokeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JokeRecord
	for _, j := range m.sorted() {
		if j.BridgeContent == nil && j.ID > afterID {
			out = append(out, j)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) CountMissingBridge(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, j := range m.jokes {
		if j.BridgeContent == nil {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Stats(ctx context.Context) (*domain.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.Stats{Sources: map[string]int64{}}
	for _, j := range m.jokes {
		stats.TotalSegments++
		if j.HasBridge() {
			stats.WithBridge++
		}
		if j.HasBridgeEmbedding() {
			stats.WithBridgeEmbedding++
		}
		stats.Sources[j.SourceID]++
	}
	stats.WithoutBridge = stats.TotalSegments - stats.WithBridge
	return stats, nil
}

func (m *memoryStore) seed(text string, bridge *string) int64 {
	rec := &domain.JokeRecord{SourceID: "vid", SearchableText: text}
	rec.SetContentEmbedding([]float32{1, 2, 3})
	rec.BridgeContent = bridge
	_ = m.Create(context.Background(), rec)
	return rec.ID
}
