package service

import (
	"context"
	"strings"
	"testing"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		size      int
		overlap   int
		wantSizes []int
	}{
		{name: "short", length: 100, size: 6000, overlap: 2000, wantSizes: []int{100}},
		{name: "exact", length: 6000, size: 6000, overlap: 2000, wantSizes: []int{6000}},
		{name: "two chunks", length: 10000, size: 6000, overlap: 2000, wantSizes: []int{6000, 6000}},
		{name: "three chunks", length: 13000, size: 6000, overlap: 2000, wantSizes: []int{6000, 6000, 5000}},
		{name: "no overlap", length: 10, size: 4, overlap: 0, wantSizes: []int{4, 4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitChunks(strings.Repeat("a", tt.length), tt.size, tt.overlap)
			if len(chunks) != len(tt.wantSizes) {
				t.Fatalf("len(chunks) = %d, want %d", len(chunks), len(tt.wantSizes))
			}
			for i, c := range chunks {
				if len(c) != tt.wantSizes[i] {
					t.Errorf("len(chunks[%d]) = %d, want %d", i, len(c), tt.wantSizes[i])
				}
			}
		})
	}
}

func TestSplitChunks_CountsRunes(t *testing.T) {
	chunks := splitChunks(strings.Repeat("क", 10), 4, 1)
	// windows start at 0, 3, 6 and the third one reaches the end
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if got := len([]rune(chunks[2])); got != 4 {
		t.Errorf("runes in last chunk = %d, want 4", got)
	}
}

func TestDedupeSegments(t *testing.T) {
	long := strings.Repeat("y", 120)
	segments := []domain.Segment{
		{OriginalText: "  Same Joke ", SearchableContent: "first"},
		{OriginalText: "same joke", SearchableContent: "second"},
		{OriginalText: "", SearchableContent: "Only searchable"},
		{OriginalText: "", SearchableContent: "only SEARCHABLE"},
		{OriginalText: long + "a"},
		{OriginalText: long + "b"},
		{OriginalText: "", SearchableContent: "  "},
	}

	got := dedupeSegments(segments)
	if len(got) != 3 {
		t.Fatalf("len(dedupeSegments()) = %d, want 3", len(got))
	}
	if got[0].SearchableContent != "first" {
		t.Errorf("kept %q, want first occurrence", got[0].SearchableContent)
	}
	for i, seg := range got {
		if seg.SegmentID != i+1 {
			t.Errorf("SegmentID = %d, want %d", seg.SegmentID, i+1)
		}
	}
}

func TestSegmentExtractor_SkipsFailedChunks(t *testing.T) {
	chat := &fakeChat{fn: func(req ChatRequest) (string, error) {
		user := req.Messages[1].Content
		switch {
		case strings.Contains(user, "CHUNK-B"):
			return "", errBoom
		case strings.Contains(user, "CHUNK-C"):
			return "not json", nil
		}
		return `{"segments":[{"segment_id":7,"original_text":"hello joke","searchable_content":"Hello joke","keywords":["greeting"]},{"segment_id":8,"original_text":"hello joke","searchable_content":"dup"}]}`, nil
	}}
	e := NewSegmentExtractor(chat, &config.ExtractionConfig{ChunkSize: 10, Overlap: 0, Model: "gpt-4o", Temperature: 0.4})

	transcript := "CHUNK-A..." + "CHUNK-B..." + "CHUNK-C..."
	report, err := e.ExtractReport(context.Background(), "vid-1", transcript, "english")
	if err != nil {
		t.Fatalf("ExtractReport() error = %v", err)
	}
	if report.ChunksProcessed != 3 || report.ChunksFailed != 2 {
		t.Errorf("chunks processed/failed = %d/%d, want 3/2", report.ChunksProcessed, report.ChunksFailed)
	}
	if report.Count != 1 || len(report.Segments) != 1 {
		t.Fatalf("Count = %d, want 1", report.Count)
	}
	seg := report.Segments[0]
	if seg.SegmentID != 1 || seg.ChunkIndex != 0 || seg.Keywords[0] != "greeting" {
		t.Errorf("segment = %+v", seg)
	}
	if report.TranscriptLength != len(transcript) {
		t.Errorf("TranscriptLength = %d, want %d", report.TranscriptLength, len(transcript))
	}

	req := chat.requests[0]
	if !req.JSONMode || req.Model != "gpt-4o" || req.Temperature != 0.4 {
		t.Errorf("request = %+v, want JSON mode gpt-4o at 0.4", req)
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("roles = %s/%s, want system/user", req.Messages[0].Role, req.Messages[1].Role)
	}
}

func TestSegmentExtractor_LanguagePrompt(t *testing.T) {
	chat := &fakeChat{fn: func(req ChatRequest) (string, error) {
		return `{"segments":[]}`, nil
	}}
	e := NewSegmentExtractor(chat, &config.ExtractionConfig{ChunkSize: 6000, Overlap: 2000})

	if _, err := e.Extract(context.Background(), "text", "Hinglish"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if _, err := e.Extract(context.Background(), "text", "english"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if chat.requests[0].Messages[1].Content == chat.requests[1].Messages[1].Content {
		t.Error("hinglish and english prompts are identical")
	}
}

func TestSegmentExtractor_Errors(t *testing.T) {
	chat := &fakeChat{fn: func(req ChatRequest) (string, error) {
		return "", domain.ErrNotConfigured
	}}
	e := NewSegmentExtractor(chat, &config.ExtractionConfig{ChunkSize: 6000, Overlap: 2000})

	if _, err := e.Extract(context.Background(), "  ", "english"); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("empty transcript: KindOf(err) = %q, want %q", domain.KindOf(err), domain.KindValidation)
	}
	if _, err := e.Extract(context.Background(), "some text", "english"); domain.KindOf(err) != domain.KindConfig {
		t.Errorf("all chunks failed: KindOf(err) = %q, want %q", domain.KindOf(err), domain.KindConfig)
	}
}
