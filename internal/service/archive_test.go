package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/storage"
	"github.com/segmentio/ksuid"
)

type memoryBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (b *memoryBucket) EnsureBucket(ctx context.Context) error { return nil }

func (b *memoryBucket) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	b.types[key] = contentType
	return nil
}

func (b *memoryBucket) GetObject(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("memory: %s: %w", key, domain.ErrNotFound)
	}
	return data, nil
}

func (b *memoryBucket) List(ctx context.Context, prefix string, limit int) ([]storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var keys []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]storage.ObjectInfo, 0, len(keys))
	for _, k := range keys {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(b.objects[k]))})
	}
	return out, nil
}

func (b *memoryBucket) ObjectURL(key string) string {
	return "mem://bucket/" + key
}

func TestCampaignArchiver_KeyFor(t *testing.T) {
	a := NewCampaignArchiver(newMemoryBucket(), "/archive/")
	id, err := ksuid.NewRandomWithTime(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewRandomWithTime() error = %v", err)
	}

	key, err := a.KeyFor(id.String())
	if err != nil {
		t.Fatalf("KeyFor() error = %v", err)
	}
	if want := "archive/2026/03/" + id.String() + ".json"; key != want {
		t.Errorf("KeyFor() = %q, want %q", key, want)
	}

	if _, err := a.KeyFor("../../etc/passwd"); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("KeyFor(bad) kind = %q, want validation", domain.KindOf(err))
	}
	if got := NewCampaignArchiver(newMemoryBucket(), "").prefix; got != "campaigns" {
		t.Errorf("default prefix = %q, want campaigns", got)
	}
}

func TestCampaignArchiver_ArchiveAndLoad(t *testing.T) {
	bucket := newMemoryBucket()
	a := NewCampaignArchiver(bucket, "campaigns")
	result := &domain.CampaignResult{
		ID:             ksuid.New().String(),
		Success:        true,
		Headline:       "Metro fares go up",
		Themes:         "Commuting, Money",
		TotalAttempted: 1,
		TotalGenerated: 1,
		Jokes:          []domain.GeneratedJoke{{OriginalID: 4, Engine: domain.EngineWordTrap, Joke: "fare is fair"}},
	}

	key, err := a.Archive(context.Background(), result)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if bucket.types[key] != "application/json" {
		t.Errorf("content type = %q, want application/json", bucket.types[key])
	}

	loaded, err := a.Load(context.Background(), result.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Headline != result.Headline || len(loaded.Jokes) != 1 || loaded.Jokes[0].Engine != domain.EngineWordTrap {
		t.Errorf("Load() = %+v, want the archived campaign", loaded)
	}

	url, err := a.URL(result.ID)
	if err != nil || !strings.HasSuffix(url, key) {
		t.Errorf("URL() = %q, %v, want suffix %q", url, err, key)
	}
}

func TestCampaignArchiver_LoadMissing(t *testing.T) {
	a := NewCampaignArchiver(newMemoryBucket(), "campaigns")
	_, err := a.Load(context.Background(), ksuid.New().String())
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("KindOf(err) = %q, want %q", domain.KindOf(err), domain.KindNotFound)
	}
}

func TestCampaignArchiver_Recent(t *testing.T) {
	bucket := newMemoryBucket()
	a := NewCampaignArchiver(bucket, "campaigns")

	var ids []string
	for i, month := range []time.Month{time.January, time.February, time.March} {
		id, err := ksuid.NewRandomWithTime(time.Date(2026, month, 1+i, 0, 0, 0, 0, time.UTC))
		if err != nil {
			t.Fatalf("NewRandomWithTime() error = %v", err)
		}
		ids = append(ids, id.String())
		if _, err := a.Archive(context.Background(), &domain.CampaignResult{ID: id.String()}); err != nil {
			t.Fatalf("Archive() error = %v", err)
		}
	}
	bucket.objects["campaigns/notes.txt"] = []byte("x")

	got, err := a.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Recent()) = %d, want 2", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Errorf("Recent() ids = %s, %s, want %s, %s", got[0].ID, got[1].ID, ids[2], ids[1])
	}
	if got[0].GeneratedAt.Month() != time.March || !strings.HasPrefix(got[0].URL, "mem://bucket/campaigns/2026/03/") {
		t.Errorf("Recent()[0] = %+v", got[0])
	}
}
