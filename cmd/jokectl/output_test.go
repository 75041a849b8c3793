package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Khushalgogia/joke-manager-v12/internal/domain"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    outputFormat
		wantErr bool
	}{
		{in: "", want: formatText},
		{in: "text", want: formatText},
		{in: " JSON ", want: formatJSON},
		{in: "yaml", want: formatYAML},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_YAMLKeepsJSONNamesAndOrder(t *testing.T) {
	result := &domain.CampaignResult{
		ID:             "2abc",
		Success:        true,
		Headline:       "Airline loses luggage",
		TotalAttempted: 1,
		TotalGenerated: 1,
		Jokes: []domain.GeneratedJoke{{
			OriginalID:    7,
			Engine:        domain.EngineWordTrap,
			Brainstorming: []string{"a", "b", "c"},
			Joke:          "My suitcase has seen more of the world than I have.",
		}},
	}

	var buf bytes.Buffer
	if err := render(&buf, formatYAML, result); err != nil {
		t.Fatalf("render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"id: 2abc", "total_generated: 1", "original_id: 7", "engine: Type A", "- b"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "headline:") > strings.Index(out, "jokes:") {
		t.Errorf("headline should come before jokes:\n%s", out)
	}
	if strings.Contains(out, "{") {
		t.Errorf("yaml output uses flow style:\n%s", out)
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := render(&buf, formatJSON, map[string]int{"count": 3}); err != nil {
		t.Fatalf("render() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "{\n  \"count\": 3\n}" {
		t.Errorf("render() = %q", got)
	}
}

func TestWriteCampaignText(t *testing.T) {
	result := &domain.CampaignResult{
		Headline:       "Rain cancels parade",
		Themes:         "Rain cancels parade",
		ThemesDegraded: true,
		TotalAttempted: 2,
		TotalGenerated: 1,
		Jokes: []domain.GeneratedJoke{{
			OriginalID:    3,
			ReferenceJoke: "I told my   umbrella a secret.",
			Similarity:    0.81234,
			Engine:        domain.EngineHyperbole,
			Joke:          "The parade was so wet the floats filed for boat status.",
		}},
		Failures: []domain.CandidateFailure{{OriginalID: 9, Rank: 2, Kind: domain.KindMalformed, Error: "bad json"}},
	}

	var buf bytes.Buffer
	writeCampaignText(&buf, result)
	out := buf.String()

	for _, want := range []string{
		"theme expansion failed",
		"Generated 1 of 2",
		"1. [Type C] The parade was so wet",
		"similarity 0.812",
		"I told my umbrella a secret.",
		"skipped #9 (rank 2, malformed): bad json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := preview("a  b\nc", 10); got != "a b c" {
		t.Errorf("preview() = %q, want %q", got, "a b c")
	}
	if got := preview("héllo wörld", 5); got != "héllo..." {
		t.Errorf("preview() = %q, want %q", got, "héllo...")
	}
}
