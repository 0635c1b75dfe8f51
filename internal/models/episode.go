// Package models defines data structures for the discovery episode catalog.
package models

import "strings"

// CasualMarker is the title substring that marks an episode as casual chat
// rather than a philosophy discussion. Detected once at ingestion and stored
// on the episode; scoring never re-derives it.
const CasualMarker = "雑談"

// MaxBodyChars caps the stored episode body text.
const MaxBodyChars = 5000

// Difficulty is the episode difficulty rating.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Ordinal returns the 1-3 ordinal for the difficulty.
// Unknown values map to intermediate, matching the catalog's default.
func (d Difficulty) Ordinal() int {
	switch d {
	case DifficultyBeginner:
		return 1
	case DifficultyAdvanced:
		return 3
	default:
		return 2
	}
}

// Relevance is the episode's relevance-to-domain rating.
type Relevance string

const (
	RelevanceLow    Relevance = "low"
	RelevanceMedium Relevance = "medium"
	RelevanceHigh   Relevance = "high"
)

// Ordinal returns the 1-3 ordinal for the relevance rating.
// Unknown values map to low.
func (r Relevance) Ordinal() int {
	switch r {
	case RelevanceHigh:
		return 3
	case RelevanceMedium:
		return 2
	default:
		return 1
	}
}

// Episode is an immutable catalog record. Episodes are created by ingestion
// and never mutated by the discovery core; the embedding is filled in by the
// embedding pipeline after the fact and may be absent.
type Episode struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Summary      string     `json:"summary"`
	Body         string     `json:"body,omitempty"`
	EpisodeType  string     `json:"episode_type"`
	Difficulty   Difficulty `json:"difficulty"`
	Relevance    Relevance  `json:"relevance"`
	Philosophers []string   `json:"philosophers"`
	Themes       []string   `json:"themes"`

	// Casual marks off-topic chat episodes, computed at ingestion
	// from CasualMarker in the title.
	Casual bool `json:"casual"`

	// Position is the insertion order within the catalog. Later positions
	// are newer episodes; used as a recency proxy when no other ranking
	// signal exists.
	Position int `json:"position"`

	// Embedding is the precomputed text vector, absent until the
	// embedding pipeline has run for this episode.
	Embedding []float32 `json:"embedding,omitempty"`
}

// HasPhilosopher reports whether the episode is tagged with the philosopher.
func (e *Episode) HasPhilosopher(name string) bool {
	for _, p := range e.Philosophers {
		if p == name {
			return true
		}
	}
	return false
}

// HasTheme reports whether the episode is tagged with the theme.
func (e *Episode) HasTheme(name string) bool {
	for _, t := range e.Themes {
		if t == name {
			return true
		}
	}
	return false
}

// MatchesKeyword reports whether the keyword occurs as a case-insensitive
// substring of the title or summary.
func (e *Episode) MatchesKeyword(keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(e.Title), k) ||
		strings.Contains(strings.ToLower(e.Summary), k)
}

// EmbeddingText returns the text the embedding pipeline encodes for this
// episode: summary plus a capped prefix of the body.
func (e *Episode) EmbeddingText() string {
	body := e.Body
	if len(body) > 2000 {
		body = body[:2000]
	}
	if body == "" {
		return e.Summary
	}
	return e.Summary + "\n\n" + body
}

// ParseDifficulty normalizes a raw difficulty cell from the catalog export.
// Both the Japanese export labels and the English names are accepted.
func ParseDifficulty(raw string) Difficulty {
	switch strings.TrimSpace(raw) {
	case "入門", "beginner":
		return DifficultyBeginner
	case "上級", "advanced":
		return DifficultyAdvanced
	default:
		return DifficultyIntermediate
	}
}

// ParseRelevance normalizes a raw relevance cell from the catalog export.
func ParseRelevance(raw string) Relevance {
	switch strings.TrimSpace(raw) {
	case "高", "high":
		return RelevanceHigh
	case "中", "medium":
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}
