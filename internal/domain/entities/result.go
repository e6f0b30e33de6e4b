package entities

// MatchDetail explains why a candidate scored the way it did.
type MatchDetail struct {
	TitleMatches       []string `json:"title_matches,omitempty"`
	DescriptionMatches []string `json:"description_matches,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// RankedResult pairs a candidate with its content-match score.
type RankedResult struct {
	Product *Product    `json:"product"`
	Score   float64     `json:"score"`
	Match   MatchDetail `json:"match"`
}

// ChatResult is the full outcome of one pipeline invocation.
type ChatResult struct {
	DisplayText string          `json:"display_text"`
	Results     []RankedResult  `json:"results"`
	Query       StructuredQuery `json:"query"`
	Reasoning   string          `json:"reasoning,omitempty"`
	Confidence  float64         `json:"confidence"`
	Diagnostics ChatDiagnostics `json:"diagnostics"`
}

// ChatDiagnostics carries per-stage details for debugging; nothing in it is
// required for correctness.
type ChatDiagnostics struct {
	SessionID         string   `json:"session_id"`
	ConsolidatedInput string   `json:"consolidated_input,omitempty"`
	NormalizedInput   string   `json:"normalized_input"`
	Phrases           []Phrase `json:"phrases"`
	FallbackDepth     int      `json:"fallback_depth"`
	RawCandidateCount int      `json:"raw_candidate_count"`
	InterpreterUsed   bool     `json:"interpreter_used"`
}
