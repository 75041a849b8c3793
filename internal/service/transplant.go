package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
	"github.com/Khushalgogia/joke-manager-v12/internal/logger"
	"github.com/Khushalgogia/joke-manager-v12/internal/prompts"
)

const (
	draftJokeSoftWordCap = 40
	excerptRunes         = 200
)

// structuredGenerator is satisfied by *GeminiGenerator.
type structuredGenerator interface {
	GenerateJSON(ctx context.Context, system, user string) (string, error)
}

// TransplantEngine moves the comedic mechanism of a reference joke onto a new
// topic with one structured generation call. It never retries.
type TransplantEngine struct {
	generator structuredGenerator
	model     string
}

func NewTransplantEngine(generator structuredGenerator, model string) *TransplantEngine {
	return &TransplantEngine{generator: generator, model: model}
}

// Transplant drafts a joke on newTopic using the engine of referenceJoke.
// Returns:
//   - *domain.TransplantResult: validated result.
//   - error: KindConfig when the backend is not configured, KindMalformed when
//     the output cannot be parsed or validated, KindTransient otherwise.
func (e *TransplantEngine) Transplant(ctx context.Context, referenceJoke, newTopic string) (*domain.TransplantResult, error) {
	if strings.TrimSpace(referenceJoke) == "" || strings.TrimSpace(newTopic) == "" {
		return nil, domain.NewError(domain.KindValidation, "transplant", domain.ErrEmptyText)
	}

	call := logger.Call(ctx, logger.CallTransplant, logger.Fields{logger.FieldModel: e.model})
	text, err := e.generator.GenerateJSON(ctx, prompts.TransplantSystemPrompt, prompts.TransplantUserPrompt(referenceJoke, newTopic))
	if err != nil {
		err = classifyCallError("transplant", err)
		call.Failed(string(domain.KindOf(err)), err)
		return nil, err
	}

	result, err := ParseTransplantResult(text)
	if err != nil {
		err = domain.NewError(domain.KindMalformed, "transplant", err)
		call.Failed(string(domain.KindMalformed), err)
		return nil, err
	}

	if words := wordCount(result.DraftJoke); words > draftJokeSoftWordCap {
		logger.With(logger.Fields{"words": words, logger.FieldEngine: result.EngineSelected}).
			Warn(ctx, "Draft joke exceeds %d words", draftJokeSoftWordCap)
	}

	call.Succeeded(logger.Fields{logger.FieldEngine: result.EngineSelected})
	return result, nil
}

// rawTransplant uses pointers so missing fields can be told apart from empty ones.
type rawTransplant struct {
	EngineSelected   *string   `json:"engine_selected"`
	Reasoning        *string   `json:"reasoning"`
	Brainstorming    *[]string `json:"brainstorming"`
	SelectedStrategy *string   `json:"selected_strategy"`
	DraftJoke        *string   `json:"draft_joke"`
}

// ParseTransplantResult decodes and validates a transplant response. Strict
// decoding is tried first; if it fails, the first balanced JSON object in the
// text is decoded instead.
func ParseTransplantResult(text string) (*domain.TransplantResult, error) {
	var raw rawTransplant
	strictErr := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw)
	if strictErr != nil {
		block, ok := extractJSONObject(text)
		if !ok {
			return nil, &domain.MalformedOutputError{
				Reason:  fmt.Sprintf("no JSON object found: %v", strictErr),
				Excerpt: truncateRunes(text, excerptRunes),
			}
		}
		raw = rawTransplant{}
		if err := json.Unmarshal([]byte(block), &raw); err != nil {
			return nil, &domain.MalformedOutputError{
				Reason:  fmt.Sprintf("extracted block is not valid: %v", err),
				Excerpt: truncateRunes(block, excerptRunes),
			}
		}
	}
	return raw.validate(text)
}

func (r rawTransplant) validate(text string) (*domain.TransplantResult, error) {
	malformed := func(reason string) error {
		return &domain.MalformedOutputError{Reason: reason, Excerpt: truncateRunes(text, excerptRunes)}
	}

	required := map[string]*string{
		"engine_selected":   r.EngineSelected,
		"reasoning":         r.Reasoning,
		"selected_strategy": r.SelectedStrategy,
		"draft_joke":        r.DraftJoke,
	}
	for _, name := range []string{"engine_selected", "reasoning", "selected_strategy", "draft_joke"} {
		if v := required[name]; v == nil || strings.TrimSpace(*v) == "" {
			return nil, malformed("missing or empty " + name)
		}
	}

	engine, ok := normalizeEngine(*r.EngineSelected)
	if !ok {
		return nil, malformed(fmt.Sprintf("unknown engine %q", *r.EngineSelected))
	}

	if r.Brainstorming == nil {
		return nil, malformed("missing brainstorming")
	}
	options := *r.Brainstorming
	if len(options) != 3 {
		return nil, malformed(fmt.Sprintf("brainstorming has %d options, want 3", len(options)))
	}
	seen := make(map[string]struct{}, 3)
	cleaned := make([]string, 0, 3)
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return nil, malformed("empty brainstorming option")
		}
		key := strings.ToLower(opt)
		if _, dup := seen[key]; dup {
			return nil, malformed("brainstorming options are not distinct")
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, opt)
	}

	return &domain.TransplantResult{
		EngineSelected:   engine,
		Reasoning:        strings.TrimSpace(*r.Reasoning),
		Brainstorming:    cleaned,
		SelectedStrategy: strings.TrimSpace(*r.SelectedStrategy),
		DraftJoke:        unwrapQuotes(*r.DraftJoke),
	}, nil
}

// normalizeEngine maps "Type A", "type a", "A" or "Type A: Word Trap" to the engine tag.
func normalizeEngine(s string) (domain.Engine, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "type"))
	// "Type A/B/C" echoed from the template is not a choice
	if s == "" || strings.ContainsAny(s, "/|") {
		return "", false
	}
	if len(s) > 1 {
		next := s[1]
		if next >= 'a' && next <= 'z' {
			return "", false
		}
	}
	switch s[0] {
	case 'a':
		return domain.EngineWordTrap, true
	case 'b':
		return domain.EngineBehaviorTrap, true
	case 'c':
		return domain.EngineHyperbole, true
	}
	return "", false
}

// extractJSONObject returns the first balanced {...} block, skipping braces
// inside string literals.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
