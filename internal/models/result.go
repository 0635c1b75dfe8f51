package models

// ScoreBreakdown itemizes the named factors contributing to a tag-weighted
// score. The values sum to the total score.
type ScoreBreakdown struct {
	PhilosopherExact int `json:"philosopher_exact"`
	ThemeExact       int `json:"theme_exact"`
	RelevanceBonus   int `json:"relevance_bonus"`
	DifficultyBonus  int `json:"difficulty_bonus"`
	Penalty          int `json:"penalty"`
}

// Total sums all breakdown factors.
func (b ScoreBreakdown) Total() int {
	return b.PhilosopherExact + b.ThemeExact + b.RelevanceBonus + b.DifficultyBonus + b.Penalty
}

// ResultItem is a single discovery result as returned to callers.
// Title is guaranteed non-empty; ingestion rejects untitled records.
type ResultItem struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	URL          string          `json:"url"`
	Summary      string          `json:"summary"`
	EpisodeType  string          `json:"episode_type"`
	Difficulty   Difficulty      `json:"difficulty"`
	Philosophers []string        `json:"philosophers"`
	Themes       []string        `json:"themes"`
	Score        float64         `json:"score"`
	Breakdown    *ScoreBreakdown `json:"score_breakdown,omitempty"`
}

// DiscoverResult is the response envelope for a discovery query.
type DiscoverResult struct {
	Results       []ResultItem `json:"results"`
	FallbackLevel int          `json:"fallback_level"`
	Message       *string      `json:"message"`
	TotalFound    int          `json:"total_found"`
}
