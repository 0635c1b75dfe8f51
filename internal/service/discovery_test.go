package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soretetsu/discovery-go/internal/config"
	"github.com/soretetsu/discovery-go/internal/db"
	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/models"
	"github.com/soretetsu/discovery-go/internal/recommend"
)

type fakeStore struct {
	episodes []models.Episode
	listErr  error

	searchQuery     string
	searchEmbedding []float32
	searchLimit     int
}

func (s *fakeStore) QueryListEpisodes(_ context.Context) ([]models.Episode, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.episodes, nil
}

func (s *fakeStore) QueryCountEpisodes(_ context.Context) (int, error) {
	return len(s.episodes), nil
}

func (s *fakeStore) QueryPhilosopherCounts(_ context.Context) ([]db.TagCount, error) {
	counts := map[string]int{}
	for _, ep := range s.episodes {
		for _, p := range ep.Philosophers {
			counts[p]++
		}
	}
	out := []db.TagCount{}
	for tag, n := range counts {
		out = append(out, db.TagCount{Tag: tag, Count: n})
	}
	return out, nil
}

func (s *fakeStore) QueryThemeCounts(_ context.Context) ([]db.TagCount, error) {
	return []db.TagCount{}, nil
}

func (s *fakeStore) QuerySearchEpisodes(_ context.Context, query string, embedding []float32, limit int) ([]models.Episode, error) {
	s.searchQuery = query
	s.searchEmbedding = embedding
	s.searchLimit = limit
	if limit > len(s.episodes) {
		limit = len(s.episodes)
	}
	return s.episodes[:limit], nil
}

type fakeTextEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeTextEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Scorer:     config.ScorerTags,
		MinResults: 5,
		TopK:       5,
	}
}

func testCatalog() []models.Episode {
	eps := make([]models.Episode, 0, 8)
	for i := 0; i < 8; i++ {
		ep := models.Episode{
			ID:         string(rune('a' + i)),
			Title:      "Episode",
			URL:        "https://example.com",
			Summary:    "philosophy talk",
			Difficulty: models.DifficultyIntermediate,
			Relevance:  models.RelevanceMedium,
			Position:   i,
		}
		if i < 5 {
			ep.Philosophers = []string{"カント"}
			ep.Themes = []string{"自由・意志"}
		}
		eps = append(eps, ep)
	}
	return eps
}

func readyService(t *testing.T, store *fakeStore, cfg *config.Config, factory func(context.Context) (TextEmbedder, error)) *DiscoveryService {
	t.Helper()
	svc := NewDiscoveryService(store, cfg, metrics.NewCollector(), nil, nil, factory)
	require.NoError(t, svc.Reload(context.Background()))
	return svc
}

func TestDiscoverInvalidQuery(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	_, err := svc.Discover(context.Background(), recommend.Query{})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestDiscoverNoVocabularyMatch(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	_, err := svc.Discover(context.Background(), recommend.Query{
		Philosophers: []string{"not-a-philosopher"},
	})
	assert.ErrorIs(t, err, ErrNoVocabularyMatch)
}

func TestDiscoverUnknownTagsWithTextFallBackToKeyword(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	result, err := svc.Discover(context.Background(), recommend.Query{
		Philosophers: []string{"not-a-philosopher"},
		SearchText:   "philosophy",
	})
	require.NoError(t, err)
	assert.Equal(t, int(recommend.LevelKeyword), result.FallbackLevel)
	assert.NotEmpty(t, result.Results)
}

func TestDiscoverNotReady(t *testing.T) {
	svc := NewDiscoveryService(&fakeStore{episodes: testCatalog()}, testConfig(), nil, nil, nil, nil)

	_, err := svc.Discover(context.Background(), recommend.Query{Philosophers: []string{"カント"}})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestEnsureReadyLoadsInBackground(t *testing.T) {
	svc := NewDiscoveryService(&fakeStore{episodes: testCatalog()}, testConfig(), nil, nil, nil, nil)

	assert.Equal(t, StateInitializing, svc.Ready().State)
	svc.EnsureReady(context.Background())
	svc.EnsureReady(context.Background()) // idempotent

	require.Eventually(t, func() bool {
		return svc.Ready().State == StateReady
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 8, svc.Ready().EpisodeCount)
}

func TestEnsureReadyReportsFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection refused")}
	svc := NewDiscoveryService(store, testConfig(), nil, nil, nil, nil)

	svc.EnsureReady(context.Background())
	require.Eventually(t, func() bool {
		return svc.Ready().State == StateFailed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, svc.Ready().Error, "connection refused")

	_, err := svc.Discover(context.Background(), recommend.Query{Philosophers: []string{"カント"}})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestDiscoverTagScoring(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	result, err := svc.Discover(context.Background(), recommend.Query{
		Philosophers: []string{"カント"},
		Themes:       []string{"自由・意志"},
	})
	require.NoError(t, err)

	// 5 strict matches fill the minimum, so no escalation happens
	assert.Equal(t, int(recommend.LevelStrict), result.FallbackLevel)
	assert.Nil(t, result.Message)
	assert.Len(t, result.Results, 5)
	assert.NotNil(t, result.Results[0].Breakdown)
	assert.Greater(t, result.Results[0].Score, 0.0)
	for _, item := range result.Results {
		assert.NotEmpty(t, item.Title)
	}
}

func TestDiscoverGuaranteedSizeViaUniversal(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	result, err := svc.Discover(context.Background(), recommend.Query{
		SearchText: "no-episode-mentions-this",
	})
	require.NoError(t, err)
	assert.Equal(t, int(recommend.LevelUniversal), result.FallbackLevel)
	require.NotNil(t, result.Message)
	assert.Len(t, result.Results, 5)
}

func TestDiscoverDegradesToTagScoringWhenEmbedderFails(t *testing.T) {
	cfg := testConfig()
	cfg.Scorer = config.ScorerEmbedding
	factory := func(context.Context) (TextEmbedder, error) {
		return nil, errors.New("ollama unreachable")
	}
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, cfg, factory)

	result, err := svc.Discover(context.Background(), recommend.Query{
		Philosophers: []string{"カント"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)
	// Tag scoring reports a breakdown; embedding scoring does not
	assert.NotNil(t, result.Results[0].Breakdown)
}

func TestDiscoverEmbeddingScoring(t *testing.T) {
	cfg := testConfig()
	cfg.Scorer = config.ScorerEmbedding

	catalog := testCatalog()
	for i := range catalog {
		catalog[i].Embedding = []float32{1, 0, 0}
	}
	factory := func(context.Context) (TextEmbedder, error) {
		return &fakeTextEmbedder{vector: []float32{1, 0, 0}}, nil
	}
	svc := readyService(t, &fakeStore{episodes: catalog}, cfg, factory)

	result, err := svc.Discover(context.Background(), recommend.Query{
		Philosophers: []string{"カント"},
		SearchText:   "freedom",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)
	assert.Nil(t, result.Results[0].Breakdown)
	assert.Greater(t, result.Results[0].Score, 0.0)
}

func TestSearchCatalogEmptyText(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	_, err := svc.SearchCatalog(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchCatalogFulltextOnlyWithoutEmbedder(t *testing.T) {
	store := &fakeStore{episodes: testCatalog()}
	svc := readyService(t, store, testConfig(), nil)

	results, err := svc.SearchCatalog(context.Background(), "stoicism", 0)
	require.NoError(t, err)
	assert.Len(t, results, 5) // limit defaults to top_k
	assert.Equal(t, "stoicism", store.searchQuery)
	assert.Nil(t, store.searchEmbedding)
	assert.Equal(t, 5, store.searchLimit)
}

func TestSearchCatalogPassesQueryEmbedding(t *testing.T) {
	store := &fakeStore{episodes: testCatalog()}
	factory := func(context.Context) (TextEmbedder, error) {
		return &fakeTextEmbedder{vector: []float32{0.5, 0.5}}, nil
	}
	svc := readyService(t, store, testConfig(), factory)

	_, err := svc.SearchCatalog(context.Background(), "freedom", 3)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, store.searchEmbedding)
	assert.Equal(t, 3, store.searchLimit)
}

func TestStoreTimingsRecorded(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	_, err := svc.SearchCatalog(context.Background(), "freedom", 3)
	require.NoError(t, err)
	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	// Reload and Stats both hit the store, so the query op has data too
	require.NotNil(t, stats.Runtime.DBQuery)
	assert.GreaterOrEqual(t, stats.Runtime.DBQuery.Count, int64(1))
	require.NotNil(t, stats.Runtime.DBSearch)
	assert.EqualValues(t, 1, stats.Runtime.DBSearch.Count)
}

func TestVocabularies(t *testing.T) {
	svc := readyService(t, &fakeStore{}, testConfig(), nil)

	philosophers, themes := svc.Vocabularies()
	assert.Contains(t, philosophers, "カント")
	assert.Contains(t, themes, "自由・意志")
}

func TestStats(t *testing.T) {
	svc := readyService(t, &fakeStore{episodes: testCatalog()}, testConfig(), nil)

	// Run one query so the runtime snapshot has data
	_, err := svc.Discover(context.Background(), recommend.Query{Philosophers: []string{"カント"}})
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.EpisodeCount)
	require.NotNil(t, stats.Runtime.Discover)
	assert.EqualValues(t, 1, stats.Runtime.Discover.Count)
}
