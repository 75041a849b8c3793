package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
)

type fakeTransplanter struct {
	mu     sync.Mutex
	topics []string
	fn     func(ref string) (*domain.TransplantResult, error)
}

func (f *fakeTransplanter) Transplant(ctx context.Context, referenceJoke, newTopic string) (*domain.TransplantResult, error) {
	f.mu.Lock()
	f.topics = append(f.topics, newTopic)
	f.mu.Unlock()
	return f.fn(referenceJoke)
}

type fakeCampaignArchiver struct {
	archived []*domain.CampaignResult
	err      error
}

func (f *fakeCampaignArchiver) Archive(ctx context.Context, result *domain.CampaignResult) (string, error) {
	f.archived = append(f.archived, result)
	return "campaigns/key.json", f.err
}

func okTransplant(ref string) (*domain.TransplantResult, error) {
	return &domain.TransplantResult{
		EngineSelected:   domain.EngineWordTrap,
		Reasoning:        "pivot word",
		Brainstorming:    []string{"one", "two", "three"},
		SelectedStrategy: "two",
		DraftJoke:        "new joke for " + ref,
	}, nil
}

func matches(n int) []domain.JokeMatch {
	out := make([]domain.JokeMatch, n)
	for i := range out {
		out[i] = domain.JokeMatch{
			ID:             int64(100 + i),
			SearchableText: strings.Repeat("x", 10) + string(rune('a'+i)),
			BridgeContent:  "bridge",
			Similarity:     0.912345 - float64(i)*0.01,
		}
	}
	return out
}

func newTestGenerator(themes *fakeThemes, emb *fakeEmbedder, search *fakeSearcher, tr *fakeTransplanter, arch campaignArchiver) *CampaignGenerator {
	return NewCampaignGenerator(themes, emb, search, tr, arch, CampaignOptions{
		DefaultCount: 5,
		MaxCount:     20,
		Workers:      4,
		CallTimeout:  time.Second,
		PreviewChars: 5,
	})
}

func TestCampaignGenerator_PreservesRankOrder(t *testing.T) {
	candidates := matches(6)
	tr := &fakeTransplanter{fn: func(ref string) (*domain.TransplantResult, error) {
		// Earlier ranks finish last.
		delay := time.Duration('f'-ref[len(ref)-1]) * 5 * time.Millisecond
		time.Sleep(delay)
		return okTransplant(ref)
	}}
	arch := &fakeCampaignArchiver{}
	g := newTestGenerator(&fakeThemes{themes: "irony, status"}, &fakeEmbedder{}, &fakeSearcher{matches: candidates}, tr, arch)

	result, err := g.Generate(context.Background(), "  Traffic  ", 6)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !result.Success {
		t.Fatal("Success = false, want true")
	}
	if result.Headline != "Traffic" {
		t.Errorf("Headline = %q, want %q", result.Headline, "Traffic")
	}
	if result.Themes != "irony, status" {
		t.Errorf("Themes = %q, want %q", result.Themes, "irony, status")
	}
	if result.TotalAttempted != 6 || result.TotalGenerated != 6 {
		t.Errorf("attempted/generated = %d/%d, want 6/6", result.TotalAttempted, result.TotalGenerated)
	}
	for i, joke := range result.Jokes {
		if joke.OriginalID != candidates[i].ID {
			t.Errorf("Jokes[%d].OriginalID = %d, want %d", i, joke.OriginalID, candidates[i].ID)
		}
	}
	if got := result.Jokes[0].ReferenceJoke; got != "xxxxx..." {
		t.Errorf("ReferenceJoke = %q, want %q", got, "xxxxx...")
	}
	if got := result.Jokes[0].Similarity; got != 0.912 {
		t.Errorf("Similarity = %v, want 0.912", got)
	}
	if result.ID == "" {
		t.Error("ID is empty")
	}
	if len(arch.archived) != 1 {
		t.Errorf("archived = %d results, want 1", len(arch.archived))
	}
	for _, topic := range tr.topics {
		if topic != "Traffic" {
			t.Errorf("transplant topic = %q, want %q", topic, "Traffic")
		}
	}
}

func TestCampaignGenerator_PartialFailure(t *testing.T) {
	candidates := matches(3)
	tr := &fakeTransplanter{fn: func(ref string) (*domain.TransplantResult, error) {
		if strings.HasSuffix(ref, "b") {
			return nil, domain.NewError(domain.KindMalformed, "transplant", domain.ErrMalformedOutput)
		}
		return okTransplant(ref)
	}}
	g := newTestGenerator(&fakeThemes{themes: "t"}, &fakeEmbedder{}, &fakeSearcher{matches: candidates}, tr, nil)

	result, err := g.Generate(context.Background(), "Traffic", 3)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.TotalAttempted != 3 || result.TotalGenerated != 2 {
		t.Errorf("attempted/generated = %d/%d, want 3/2", result.TotalAttempted, result.TotalGenerated)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("len(Failures) = %d, want 1", len(result.Failures))
	}
	f := result.Failures[0]
	if f.OriginalID != candidates[1].ID || f.Rank != 2 || f.Kind != domain.KindMalformed {
		t.Errorf("Failures[0] = %+v, want id %d rank 2 kind malformed", f, candidates[1].ID)
	}
	if result.Jokes[0].OriginalID != candidates[0].ID || result.Jokes[1].OriginalID != candidates[2].ID {
		t.Errorf("jokes out of order: %d, %d", result.Jokes[0].OriginalID, result.Jokes[1].OriginalID)
	}
}

func TestCampaignGenerator_NoCandidates(t *testing.T) {
	tr := &fakeTransplanter{fn: okTransplant}
	g := newTestGenerator(&fakeThemes{themes: "t"}, &fakeEmbedder{}, &fakeSearcher{}, tr, nil)

	result, err := g.Generate(context.Background(), "Traffic", 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !result.Success || result.Message != NoMatchesMessage {
		t.Errorf("result = %+v, want success with %q", result, NoMatchesMessage)
	}
	if result.Jokes == nil || len(result.Jokes) != 0 {
		t.Errorf("Jokes = %v, want empty non-nil", result.Jokes)
	}
	if len(tr.topics) != 0 {
		t.Errorf("transplant calls = %d, want 0", len(tr.topics))
	}
}

func TestCampaignGenerator_ThemeFallbackUsesHeadline(t *testing.T) {
	emb := &fakeEmbedder{}
	search := &fakeSearcher{matches: matches(1)}
	g := newTestGenerator(&fakeThemes{degraded: true}, emb, search, &fakeTransplanter{fn: okTransplant}, nil)

	result, err := g.Generate(context.Background(), "Traffic", 1)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Themes != "Traffic" || !result.ThemesDegraded {
		t.Errorf("Themes = %q degraded %t, want %q degraded true", result.Themes, result.ThemesDegraded, "Traffic")
	}
	if len(emb.calls) != 1 || emb.calls[0] != "Traffic" {
		t.Errorf("embedded %v, want [Traffic]", emb.calls)
	}
	if result.TotalGenerated != 1 {
		t.Errorf("TotalGenerated = %d, want 1", result.TotalGenerated)
	}
}

func TestCampaignGenerator_HardFailures(t *testing.T) {
	tests := []struct {
		name     string
		emb      *fakeEmbedder
		search   *fakeSearcher
		wantKind domain.ErrorKind
	}{
		{
			name:     "embedding fails",
			emb:      &fakeEmbedder{fail: func(string) bool { return true }},
			search:   &fakeSearcher{matches: matches(2)},
			wantKind: domain.KindHardStep,
		},
		{
			name:     "search fails",
			emb:      &fakeEmbedder{},
			search:   &fakeSearcher{err: errBoom},
			wantKind: domain.KindHardStep,
		},
		{
			name:     "embedding not configured",
			emb:      &fakeEmbedder{err: domain.NewError(domain.KindConfig, "embedding", domain.ErrNotConfigured)},
			search:   &fakeSearcher{matches: matches(2)},
			wantKind: domain.KindConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransplanter{fn: okTransplant}
			arch := &fakeCampaignArchiver{}
			g := newTestGenerator(&fakeThemes{themes: "t"}, tt.emb, tt.search, tr, arch)

			result, err := g.Generate(context.Background(), "Traffic", 2)
			if err == nil {
				t.Fatal("Generate() error = nil, want hard failure")
			}
			if kind := domain.KindOf(err); kind != tt.wantKind {
				t.Errorf("KindOf(err) = %q, want %q", kind, tt.wantKind)
			}
			if result == nil || result.Success || result.Error == "" {
				t.Errorf("result = %+v, want failed result with error", result)
			}
			if len(result.Jokes) != 0 {
				t.Errorf("Jokes = %v, want empty", result.Jokes)
			}
			if len(tr.topics) != 0 {
				t.Errorf("transplant calls = %d, want 0", len(tr.topics))
			}
			if len(arch.archived) != 0 {
				t.Errorf("archived = %d, want 0", len(arch.archived))
			}
		})
	}
}

func TestCampaignGenerator_EmptyHeadline(t *testing.T) {
	g := newTestGenerator(&fakeThemes{}, &fakeEmbedder{}, &fakeSearcher{}, &fakeTransplanter{fn: okTransplant}, nil)
	_, err := g.Generate(context.Background(), "   ", 3)
	if domain.KindOf(err) != domain.KindValidation {
		t.Errorf("KindOf(err) = %q, want %q", domain.KindOf(err), domain.KindValidation)
	}
	if !errors.Is(err, domain.ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestCampaignGenerator_ArchiveFailureIsNotFatal(t *testing.T) {
	arch := &fakeCampaignArchiver{err: errBoom}
	g := newTestGenerator(&fakeThemes{themes: "t"}, &fakeEmbedder{}, &fakeSearcher{matches: matches(1)}, &fakeTransplanter{fn: okTransplant}, arch)
	result, err := g.Generate(context.Background(), "Traffic", 1)
	if err != nil || !result.Success {
		t.Errorf("Generate() = %+v, %v, want success", result, err)
	}
}

func TestCampaignGenerator_ClampCount(t *testing.T) {
	g := newTestGenerator(&fakeThemes{}, &fakeEmbedder{}, &fakeSearcher{}, &fakeTransplanter{fn: okTransplant}, nil)
	tests := []struct {
		in, want int
	}{
		{0, 5},
		{-1, 5},
		{7, 7},
		{99, 20},
	}
	for _, tt := range tests {
		if got := g.ClampCount(tt.in); got != tt.want {
			t.Errorf("ClampCount(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
