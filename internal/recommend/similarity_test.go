package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/soretetsu/discovery-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector for any text.
type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}

func TestEmbeddingScorerSimilarityOrder(t *testing.T) {
	scorer := NewEmbeddingScorer(&fakeEmbedder{vec: []float32{1, 0}}, 0)

	eps := []models.Episode{
		{ID: "close", Embedding: []float32{0.9, 0.1}},
		{ID: "far", Embedding: []float32{0.1, 0.9}},
	}

	scored, err := scorer.Score(context.Background(), Query{SearchText: "q"}, eps)
	require.NoError(t, err)
	require.Len(t, scored, 2)

	byID := map[string]float64{}
	for _, s := range scored {
		byID[s.Episode.ID] = s.Score
	}
	assert.Greater(t, byID["close"], byID["far"])
}

func TestEmbeddingScorerMissingEmbeddingScoresZero(t *testing.T) {
	scorer := NewEmbeddingScorer(&fakeEmbedder{vec: []float32{1, 0}}, 0)

	eps := []models.Episode{{ID: "bare"}}

	scored, err := scorer.Score(context.Background(), Query{SearchText: "q"}, eps)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, 0.0, scored[0].Score)
}

func TestEmbeddingScorerSkipsMalformedDimension(t *testing.T) {
	scorer := NewEmbeddingScorer(&fakeEmbedder{vec: []float32{1, 0}}, 0)

	eps := []models.Episode{
		{ID: "bad", Embedding: []float32{1, 0, 0}},
		{ID: "good", Embedding: []float32{1, 0}},
	}

	scored, err := scorer.Score(context.Background(), Query{SearchText: "q"}, eps)
	require.NoError(t, err, "one bad record must not fail the batch")
	require.Len(t, scored, 1)
	assert.Equal(t, "good", scored[0].Episode.ID)
}

func TestEmbeddingScorerTagBoostCompounds(t *testing.T) {
	scorer := NewEmbeddingScorer(&fakeEmbedder{vec: []float32{1, 0}}, 1.2)

	q := Query{
		Philosophers: []string{"カント"},
		Themes:       []string{"倫理学"},
		SearchText:   "q",
	}
	eps := []models.Episode{
		{ID: "none", Embedding: []float32{1, 0}},
		{ID: "one", Embedding: []float32{1, 0}, Philosophers: []string{"カント"}},
		{ID: "both", Embedding: []float32{1, 0}, Philosophers: []string{"カント"}, Themes: []string{"倫理学"}},
	}

	scored, err := scorer.Score(context.Background(), q, eps)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	byID := map[string]float64{}
	for _, s := range scored {
		byID[s.Episode.ID] = s.Score
	}
	assert.InDelta(t, 1.0, byID["none"], 1e-9)
	assert.InDelta(t, 1.2, byID["one"], 1e-9)
	assert.InDelta(t, 1.44, byID["both"], 1e-9, "two matching tag sets compound multiplicatively")
}

func TestEmbeddingScorerRecencyProxy(t *testing.T) {
	scorer := NewEmbeddingScorer(&fakeEmbedder{err: errors.New("must not be called")}, 0)

	eps := []models.Episode{
		{ID: "old", Position: 0},
		{ID: "mid", Position: 5},
		{ID: "new", Position: 9},
	}

	scored, err := scorer.Score(context.Background(), Query{Philosophers: []string{"カント"}}, eps)
	require.NoError(t, err, "tag-only query must not touch the embedder")
	require.Len(t, scored, 3)

	byID := map[string]float64{}
	for _, s := range scored {
		byID[s.Episode.ID] = s.Score
	}
	assert.Greater(t, byID["new"], byID["mid"])
	assert.Greater(t, byID["mid"], byID["old"])
}

func TestEmbeddingScorerPropagatesEmbedError(t *testing.T) {
	scorer := NewEmbeddingScorer(&fakeEmbedder{err: errors.New("model offline")}, 0)

	_, err := scorer.Score(context.Background(), Query{SearchText: "q"}, []models.Episode{{ID: "a"}})
	require.Error(t, err)
}
