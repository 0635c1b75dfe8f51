package recommend

import (
	"context"
	"strings"

	"github.com/soretetsu/discovery-go/internal/models"
)

// Scored pairs a candidate episode with its total score and, for the
// tag-weighted strategy, the itemized factor breakdown. Scored values are
// ephemeral: created per request, never persisted.
type Scored struct {
	Episode   models.Episode
	Score     float64
	Breakdown *models.ScoreBreakdown
}

// Scorer assigns relevance scores to candidate episodes. Two strategies
// exist: TagScorer (deterministic, breakdown-reporting) and EmbeddingScorer
// (vector similarity with tag boosts). Neither is authoritative; the
// surrounding system selects one by configuration.
type Scorer interface {
	Score(ctx context.Context, q Query, candidates []models.Episode) ([]Scored, error)
}

// Weights holds the tag-weighted scoring constants.
type Weights struct {
	// PhilosopherMatch is awarded per queried philosopher tagged on the
	// episode. PhilosopherTitleMatch replaces it when the philosopher's
	// name also appears in the episode title, a stronger centrality signal.
	PhilosopherMatch      int
	PhilosopherTitleMatch int

	// ThemeMatch is awarded per queried theme tagged on the episode.
	ThemeMatch int

	// CasualPenalty is applied to episodes flagged as casual chat. It is
	// large enough to drive the total negative.
	CasualPenalty int
}

// DefaultWeights returns the reference scoring weights.
func DefaultWeights() Weights {
	return Weights{
		PhilosopherMatch:      100,
		PhilosopherTitleMatch: 200,
		ThemeMatch:            30,
		CasualPenalty:         -200,
	}
}

// relevanceBonus maps the relevance ordinal to its additive bonus.
var relevanceBonus = map[int]int{1: 1, 2: 3, 3: 5}

// TagScorer scores candidates purely from tag matches and episode metadata.
// It needs no embedding model and always reports a factor breakdown.
type TagScorer struct {
	weights Weights
}

// NewTagScorer creates a tag-weighted scorer with the given weights.
func NewTagScorer(w Weights) *TagScorer {
	return &TagScorer{weights: w}
}

var _ Scorer = (*TagScorer)(nil)

// Score computes tag-weighted scores for all candidates. Episodes whose
// total is zero or negative are excluded from the result entirely.
func (s *TagScorer) Score(_ context.Context, q Query, candidates []models.Episode) ([]Scored, error) {
	out := make([]Scored, 0, len(candidates))
	for i := range candidates {
		ep := &candidates[i]
		breakdown := s.scoreEpisode(q, ep)
		total := breakdown.Total()
		if total <= 0 {
			continue
		}
		out = append(out, Scored{
			Episode:   candidates[i],
			Score:     float64(total),
			Breakdown: &breakdown,
		})
	}
	return out, nil
}

func (s *TagScorer) scoreEpisode(q Query, ep *models.Episode) models.ScoreBreakdown {
	var b models.ScoreBreakdown

	for _, qp := range q.Philosophers {
		if !ep.HasPhilosopher(qp) {
			continue
		}
		if strings.Contains(ep.Title, qp) {
			b.PhilosopherExact += s.weights.PhilosopherTitleMatch
		} else {
			b.PhilosopherExact += s.weights.PhilosopherMatch
		}
	}

	for _, qt := range q.Themes {
		if ep.HasTheme(qt) {
			b.ThemeExact += s.weights.ThemeMatch
		}
	}

	b.RelevanceBonus = relevanceBonus[ep.Relevance.Ordinal()]
	b.DifficultyBonus = ep.Difficulty.Ordinal()

	if ep.Casual {
		b.Penalty = s.weights.CasualPenalty
	}

	return b
}
