package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/soretetsu/discovery-go/internal/models"
)

// Embedder is the contract this package needs from the embedding layer:
// an opaque text-to-vector function. First use may be slow; output is
// deterministic for a fixed input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultTagBoost is the multiplier applied per intersecting tag set.
// Boosts compound: a candidate matching both sets gets boost squared.
const DefaultTagBoost = 1.2

// EmbeddingScorer scores candidates by cosine similarity between the query
// text vector and each candidate's stored vector. Candidates without a
// stored embedding score 0 (cosine against the zero vector). For tag-only
// queries it falls back to a strictly monotonic insertion-order recency
// proxy, since there is no text to embed.
type EmbeddingScorer struct {
	embedder Embedder
	tagBoost float64
}

// NewEmbeddingScorer creates an embedding-similarity scorer.
// A tagBoost of 0 means DefaultTagBoost.
func NewEmbeddingScorer(embedder Embedder, tagBoost float64) *EmbeddingScorer {
	if tagBoost == 0 {
		tagBoost = DefaultTagBoost
	}
	return &EmbeddingScorer{embedder: embedder, tagBoost: tagBoost}
}

var _ Scorer = (*EmbeddingScorer)(nil)

// Score ranks candidates by similarity to the query text. A candidate whose
// stored vector has the wrong dimension is skipped with a warning; one bad
// record never fails the batch.
func (s *EmbeddingScorer) Score(ctx context.Context, q Query, candidates []models.Episode) ([]Scored, error) {
	if q.SearchText == "" {
		return s.scoreByRecency(q, candidates), nil
	}

	queryVec, err := s.embedder.Embed(ctx, q.SearchText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	out := make([]Scored, 0, len(candidates))
	for i := range candidates {
		ep := &candidates[i]

		sim := 0.0
		if len(ep.Embedding) > 0 {
			if len(ep.Embedding) != len(queryVec) {
				slog.Warn("skipping episode with malformed embedding",
					"episode", ep.ID, "got_dim", len(ep.Embedding), "want_dim", len(queryVec))
				continue
			}
			sim = Cosine(queryVec, ep.Embedding)
		}

		out = append(out, Scored{
			Episode: candidates[i],
			Score:   sim * s.boost(q, ep),
		})
	}
	return out, nil
}

// scoreByRecency assigns strictly increasing scores by catalog insertion
// order, so later (newer) episodes rank first. No boosts apply here: the
// order must stay strictly monotonic, it is only a recency stand-in when
// there is no text signal to score on.
func (s *EmbeddingScorer) scoreByRecency(_ Query, candidates []models.Episode) []Scored {
	out := make([]Scored, 0, len(candidates))
	for i := range candidates {
		out = append(out, Scored{
			Episode: candidates[i],
			Score:   float64(candidates[i].Position + 1),
		})
	}
	return out
}

func (s *EmbeddingScorer) boost(q Query, ep *models.Episode) float64 {
	boost := 1.0
	if intersectsAny(ep.Philosophers, q.Philosophers) {
		boost *= s.tagBoost
	}
	if intersectsAny(ep.Themes, q.Themes) {
		boost *= s.tagBoost
	}
	return boost
}

// Cosine computes the cosine similarity of two equal-length vectors.
// Similarity against a zero vector is defined as 0.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
