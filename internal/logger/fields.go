package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Fields propagated through the call chain via context.
const (
	FieldRequestID  = "request_id"
	FieldCampaignID = "campaign_id"
	FieldJokeID     = "joke_id"
	FieldSourceID   = "source_id"
	FieldComponent  = "component"
	FieldHeadline   = "headline"
)

// Fields attached to single entries, used for aggregation and alerting.
const (
	FieldDurationMs    = "duration_ms"
	FieldCount         = "count"
	FieldStatus        = "status"
	FieldCandidateRank = "candidate_rank"
	FieldEngine        = "engine"
	FieldSimilarity    = "similarity"
	FieldExternalCall  = "external_call"
	FieldCallOutcome   = "call_outcome"
	FieldFailureKind   = "failure_kind"
	FieldModel         = "model"
	FieldSize          = "size"
)

// External call names used with Call.
const (
	CallEmbedding        = "embedding"
	CallThemeExpansion   = "theme_expansion"
	CallBridgeSynthesis  = "bridge_synthesis"
	CallSimilaritySearch = "similarity_search"
	CallTransplant       = "transplant"
	CallSegmentExtract   = "segment_extraction"
)

// Outcomes recorded under FieldCallOutcome.
const (
	OutcomeAttempt = "attempt"
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
