package domain

import "time"

// Engine is the comedic mechanism a transplant was built on.
type Engine string

const (
	EngineWordTrap     Engine = "Type A"
	EngineBehaviorTrap Engine = "Type B"
	EngineHyperbole    Engine = "Type C"
)

// Valid reports whether e is one of the three known engines.
func (e Engine) Valid() bool {
	switch e {
	case EngineWordTrap, EngineBehaviorTrap, EngineHyperbole:
		return true
	}
	return false
}

// TransplantResult is the validated output of one transplant call.
type TransplantResult struct {
	EngineSelected   Engine   `json:"engine_selected"`
	Reasoning        string   `json:"reasoning"`
	Brainstorming    []string `json:"brainstorming"`
	SelectedStrategy string   `json:"selected_strategy"`
	DraftJoke        string   `json:"draft_joke"`
}

// GeneratedJoke is one campaign entry derived from a retrieved reference joke.
type GeneratedJoke struct {
	OriginalID       int64    `json:"original_id"`
	ReferenceJoke    string   `json:"reference_joke"`
	BridgeContent    string   `json:"bridge_content"`
	Similarity       float64  `json:"similarity"`
	Engine           Engine   `json:"engine"`
	Reasoning        string   `json:"reasoning"`
	Brainstorming    []string `json:"brainstorming"`
	SelectedStrategy string   `json:"selected_strategy"`
	Joke             string   `json:"joke"`
}

// CandidateFailure records a transplant that was dropped from the campaign.
type CandidateFailure struct {
	OriginalID int64     `json:"original_id"`
	Rank       int       `json:"rank"`
	Kind       ErrorKind `json:"kind"`
	Error      string    `json:"error"`
}

// CampaignResult is the outcome of one campaign generation run.
type CampaignResult struct {
	ID             string             `json:"id"`
	Success        bool               `json:"success"`
	Headline       string             `json:"headline"`
	Themes         string             `json:"themes"`
	ThemesDegraded bool               `json:"themes_degraded"`
	TotalAttempted int                `json:"total_attempted"`
	TotalGenerated int                `json:"total_generated"`
	Jokes          []GeneratedJoke    `json:"jokes"`
	Failures       []CandidateFailure `json:"failures,omitempty"`
	Message        string             `json:"message,omitempty"`
	Error          string             `json:"error,omitempty"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// FailedCampaign builds the result reported for a hard failure.
func FailedCampaign(headline string, err error) *CampaignResult {
	return &CampaignResult{
		Success:     false,
		Headline:    headline,
		Jokes:       []GeneratedJoke{},
		Error:       err.Error(),
		GeneratedAt: time.Now().UTC(),
	}
}

// Segment is a transcript-derived joke candidate awaiting import.
type Segment struct {
	SegmentID         int      `json:"segment_id"`
	OriginalText      string   `json:"original_text"`
	SearchableContent string   `json:"searchable_content"`
	Keywords          []string `json:"keywords"`
	ChunkIndex        int      `json:"chunk_index,omitempty"`
}
