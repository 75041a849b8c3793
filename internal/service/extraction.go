package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/config"
	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/prompts"
)

const (
	extractionSystemPrompt = "Comedy curator. Output valid JSON only. Extract ALL comedy segments, don't skip any."
	dedupeKeyChars         = 100
)

type chatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// ExtractionReport is the outcome of one transcript extraction.
type ExtractionReport struct {
	SourceID         string           `json:"video_id"`
	Segments         []domain.Segment `json:"segments"`
	Count            int              `json:"count"`
	TranscriptLength int              `json:"transcript_length"`
	ChunksProcessed  int              `json:"chunks_processed"`
	ChunksFailed     int              `json:"chunks_failed"`
}

// SegmentExtractor splits a transcript into overlapping chunks and asks the
// chat model for the comedy segments of each.
type SegmentExtractor struct {
	chat        chatCompleter
	model       string
	temperature float64
	chunkSize   int
	overlap     int
}

func NewSegmentExtractor(chat chatCompleter, cfg *config.ExtractionConfig) *SegmentExtractor {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 6000
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	return &SegmentExtractor{
		chat:        chat,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		chunkSize:   chunkSize,
		overlap:     overlap,
	}
}

// Extract returns the deduplicated segments of transcript.
func (e *SegmentExtractor) Extract(ctx context.Context, transcript, language string) ([]domain.Segment, error) {
	report, err := e.ExtractReport(ctx, "", transcript, language)
	if err != nil {
		return nil, err
	}
	return report.Segments, nil
}

// ExtractReport runs extraction and reports chunk statistics.
// Parameters:
//   - ctx: request context.
//   - sourceID: video id echoed in the report.
//   - transcript: full transcript text.
//   - language: "hindi"/"hinglish" select the translating prompt, anything else English.
// Returns:
//   - *ExtractionReport: segments renumbered from 1 in transcript order.
//   - error: validation error on an empty transcript, or the last chunk error
//     when every chunk failed. Individual failed chunks are skipped.
func (e *SegmentExtractor) ExtractReport(ctx context.Context, sourceID, transcript, language string) (*ExtractionReport, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, domain.NewError(domain.KindValidation, "segment extraction", domain.ErrEmptyText)
	}

	chunks := splitChunks(transcript, e.chunkSize, e.overlap)
	report := &ExtractionReport{
		SourceID:         sourceID,
		TranscriptLength: len([]rune(transcript)),
		ChunksProcessed:  len(chunks),
	}

	var all []domain.Segment
	var lastErr error
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		segments, err := e.extractChunk(ctx, i, len(chunks), chunk, language)
		if err != nil {
			report.ChunksFailed++
			lastErr = err
			continue
		}
		all = append(all, segments...)
	}

	if report.ChunksFailed == len(chunks) {
		return nil, lastErr
	}

	report.Segments = dedupeSegments(all)
	report.Count = len(report.Segments)

	logger.With(logger.Fields{
		"chunks":        len(chunks),
		"chunks_failed": report.ChunksFailed,
		"raw_segments":  len(all),
	}).WithCount(report.Count).Info(ctx, "Transcript segments extracted")

	return report, nil
}

type extractedSegments struct {
	Segments []struct {
		OriginalText      string   `json:"original_text"`
		SearchableContent string   `json:"searchable_content"`
		Keywords          []string `json:"keywords"`
	} `json:"segments"`
}

func (e *SegmentExtractor) extractChunk(ctx context.Context, index, total int, chunk, language string) ([]domain.Segment, error) {
	call := logger.Call(ctx, logger.CallSegmentExtract, logger.Fields{
		logger.FieldModel: e.model,
		"chunk":           fmt.Sprintf("%d/%d", index+1, total),
	})

	content, err := e.chat.Complete(ctx, ChatRequest{
		Model: e.model,
		Messages: []ChatMessage{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompts.SegmentExtractionUserPrompt(language, chunk)},
		},
		Temperature: e.temperature,
		JSONMode:    true,
	})
	if err != nil {
		err = classifyCallError("segment extraction", err)
		call.Failed(string(domain.KindOf(err)), err)
		return nil, err
	}

	var parsed extractedSegments
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		err = domain.NewError(domain.KindMalformed, "segment extraction", &domain.MalformedOutputError{
			Reason:  err.Error(),
			Excerpt: truncateRunes(content, 80),
		})
		call.Failed(string(domain.KindMalformed), err)
		return nil, err
	}

	segments := make([]domain.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		keywords := s.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		segments = append(segments, domain.Segment{
			OriginalText:      s.OriginalText,
			SearchableContent: s.SearchableContent,
			Keywords:          keywords,
			ChunkIndex:        index,
		})
	}

	call.Succeeded(logger.Fields{logger.FieldCount: len(segments)})
	return segments, nil
}

// splitChunks cuts text into rune windows of size chunkSize, each starting
// overlap runes before the previous end. The last window ends at the text end.
func splitChunks(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	var chunks []string
	pos := 0
	for pos < len(runes) {
		end := pos + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[pos:end]))
		if end < len(runes) {
			pos = end - overlap
		} else {
			pos = len(runes)
		}
	}
	return chunks
}

// dedupeSegments drops segments whose first 100 lowercased characters of
// original text (or searchable content when there is none) were already
// seen, then renumbers the survivors from 1.
func dedupeSegments(segments []domain.Segment) []domain.Segment {
	seen := make(map[string]struct{}, len(segments))
	unique := make([]domain.Segment, 0, len(segments))
	for _, seg := range segments {
		key := strings.ToLower(strings.TrimSpace(seg.OriginalText))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(seg.SearchableContent))
		}
		key = truncateRunes(key, dedupeKeyChars)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		seg.SegmentID = len(unique) + 1
		unique = append(unique, seg)
	}
	return unique
}
