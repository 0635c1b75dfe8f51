// Package service provides business logic for discovery operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/soretetsu/discovery-go/internal/config"
	"github.com/soretetsu/discovery-go/internal/db"
	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/models"
	"github.com/soretetsu/discovery-go/internal/recommend"
	"github.com/soretetsu/discovery-go/internal/vocab"
)

// Sentinel errors for discovery operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidQuery indicates the query carried no philosophers, no themes
	// and no search text.
	ErrInvalidQuery = errors.New("query has no tags and no search text")

	// ErrNoVocabularyMatch indicates every supplied tag was rejected by the
	// closed vocabulary and no search text remained to fall back on.
	ErrNoVocabularyMatch = errors.New("no query tag matched the vocabulary")

	// ErrNotReady indicates the catalog snapshot has not been loaded yet.
	ErrNotReady = errors.New("catalog not ready")
)

// CatalogStore is the subset of db.Client the discovery service reads from.
type CatalogStore interface {
	QueryListEpisodes(ctx context.Context) ([]models.Episode, error)
	QueryCountEpisodes(ctx context.Context) (int, error)
	QueryPhilosopherCounts(ctx context.Context) ([]db.TagCount, error)
	QueryThemeCounts(ctx context.Context) ([]db.TagCount, error)
	QuerySearchEpisodes(ctx context.Context, query string, embedding []float32, limit int) ([]models.Episode, error)
}

// TextEmbedder produces embedding vectors for query text.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ReadyState reports catalog initialization progress.
type ReadyState string

const (
	StateInitializing ReadyState = "initializing"
	StateReady        ReadyState = "ready"
	StateFailed       ReadyState = "failed"
)

// Status is the non-blocking readiness report.
type Status struct {
	State        ReadyState `json:"state"`
	EpisodeCount int        `json:"episode_count"`
	Error        string     `json:"error,omitempty"`
}

// DiscoveryService answers discovery queries against an in-memory snapshot
// of the episode catalog.
type DiscoveryService struct {
	store   CatalogStore
	cfg     *config.Config
	metrics *metrics.Collector

	philosophers *vocab.Vocabulary
	themes       *vocab.Vocabulary

	// embedderFactory builds the embedder on first use; embedding backends
	// are reachable over the network and must not block startup.
	embedderFactory func(ctx context.Context) (TextEmbedder, error)

	initOnce sync.Once

	mu       sync.RWMutex
	episodes []models.Episode
	state    ReadyState
	initErr  error

	embedMu  sync.Mutex
	embedder TextEmbedder
}

// NewDiscoveryService creates a discovery service. The embedder factory may
// be nil when only tag scoring is configured.
func NewDiscoveryService(
	store CatalogStore,
	cfg *config.Config,
	collector *metrics.Collector,
	philosophers, themes *vocab.Vocabulary,
	embedderFactory func(ctx context.Context) (TextEmbedder, error),
) *DiscoveryService {
	if philosophers == nil {
		philosophers = vocab.DefaultPhilosophers()
	}
	if themes == nil {
		themes = vocab.DefaultThemes()
	}
	return &DiscoveryService{
		store:           store,
		cfg:             cfg,
		metrics:         collector,
		philosophers:    philosophers,
		themes:          themes,
		embedderFactory: embedderFactory,
		state:           StateInitializing,
	}
}

// EnsureReady triggers catalog loading. The first call starts a background
// load; later calls are no-ops. It never blocks on the load itself.
func (s *DiscoveryService) EnsureReady(ctx context.Context) {
	s.initOnce.Do(func() {
		go s.load(context.WithoutCancel(ctx))
	})
}

// Ready reports the current readiness without blocking.
func (s *DiscoveryService) Ready() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{State: s.state, EpisodeCount: len(s.episodes)}
	if s.initErr != nil {
		st.Error = s.initErr.Error()
	}
	return st
}

func (s *DiscoveryService) load(ctx context.Context) {
	start := time.Now()
	episodes, err := s.store.QueryListEpisodes(ctx)
	s.recordTiming(metrics.OpDBQuery, start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateFailed
		s.initErr = err
		slog.Error("catalog load failed", "error", err)
		return
	}

	s.episodes = episodes
	s.state = StateReady
	slog.Info("catalog loaded",
		"episodes", len(episodes),
		"duration_ms", time.Since(start).Milliseconds())
}

// Reload replaces the in-memory snapshot from the store. Call after
// ingestion changes the catalog.
func (s *DiscoveryService) Reload(ctx context.Context) error {
	start := time.Now()
	episodes, err := s.store.QueryListEpisodes(ctx)
	s.recordTiming(metrics.OpDBQuery, start)
	if err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}

	s.mu.Lock()
	s.episodes = episodes
	s.state = StateReady
	s.initErr = nil
	s.mu.Unlock()

	slog.Info("catalog reloaded", "episodes", len(episodes))
	return nil
}

// snapshot returns the currently loaded catalog, or ErrNotReady.
func (s *DiscoveryService) snapshot() ([]models.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != StateReady {
		return nil, fmt.Errorf("%w: state %s", ErrNotReady, s.state)
	}
	return s.episodes, nil
}

// Vocabularies returns the closed tag vocabularies exposed to clients.
func (s *DiscoveryService) Vocabularies() (philosophers, themes []string) {
	return s.philosophers.Values(), s.themes.Values()
}

// Discover runs a discovery query: vocabulary filtering, fallback candidate
// selection, scoring and ranking. The result always carries at most TopK
// items and the fallback level that produced them.
func (s *DiscoveryService) Discover(ctx context.Context, q recommend.Query) (*models.DiscoverResult, error) {
	start := time.Now()
	defer s.recordTiming(metrics.OpDiscover, start)

	if q.IsEmpty() {
		return nil, ErrInvalidQuery
	}

	hadTags := q.HasTags()
	q.Philosophers = s.philosophers.Filter(q.Philosophers)
	q.Themes = s.themes.Filter(q.Themes)

	// Every tag rejected and nothing else to search on.
	if hadTags && !q.HasTags() && q.SearchText == "" {
		return nil, ErrNoVocabularyMatch
	}

	episodes, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	candidates, level := recommend.Select(episodes, q, s.cfg.MinResults)

	scored, err := s.score(ctx, q, candidates)
	if err != nil {
		return nil, err
	}

	ranked := recommend.Rank(scored, s.cfg.TopK)

	items := make([]models.ResultItem, 0, len(ranked))
	for _, sc := range ranked {
		items = append(items, models.ResultItem{
			ID:           sc.Episode.ID,
			Title:        sc.Episode.Title,
			URL:          sc.Episode.URL,
			Summary:      sc.Episode.Summary,
			EpisodeType:  sc.Episode.EpisodeType,
			Difficulty:   sc.Episode.Difficulty,
			Philosophers: sc.Episode.Philosophers,
			Themes:       sc.Episode.Themes,
			Score:        sc.Score,
			Breakdown:    sc.Breakdown,
		})
	}

	return &models.DiscoverResult{
		Results:       items,
		FallbackLevel: int(level),
		Message:       level.Message(),
		TotalFound:    len(scored),
	}, nil
}

// score selects the configured strategy. When the embedding strategy is
// unavailable (backend down, embed failure) it degrades to tag scoring
// rather than failing the request.
func (s *DiscoveryService) score(ctx context.Context, q recommend.Query, candidates []models.Episode) ([]recommend.Scored, error) {
	tagScorer := recommend.NewTagScorer(recommend.DefaultWeights())

	if s.cfg.Scorer != config.ScorerEmbedding {
		return tagScorer.Score(ctx, q, candidates)
	}

	embedder, err := s.ensureEmbedder(ctx)
	if err != nil {
		slog.Warn("embedding backend unavailable, falling back to tag scoring", "error", err)
		return tagScorer.Score(ctx, q, candidates)
	}

	scored, err := recommend.NewEmbeddingScorer(embedder, recommend.DefaultTagBoost).Score(ctx, q, candidates)
	if err != nil {
		slog.Warn("embedding scoring failed, falling back to tag scoring", "error", err)
		return tagScorer.Score(ctx, q, candidates)
	}
	return scored, nil
}

func (s *DiscoveryService) ensureEmbedder(ctx context.Context) (TextEmbedder, error) {
	s.embedMu.Lock()
	defer s.embedMu.Unlock()

	if s.embedder != nil {
		return s.embedder, nil
	}
	if s.embedderFactory == nil {
		return nil, errors.New("no embedder configured")
	}

	embedder, err := s.embedderFactory(ctx)
	if err != nil {
		return nil, err
	}
	s.embedder = embedder
	return embedder, nil
}

// recordTiming records an operation duration when metrics are enabled.
func (s *DiscoveryService) recordTiming(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordTiming(op, time.Since(start))
	}
}

// SearchCatalog runs a store-side hybrid search over the episode table:
// BM25 fulltext fused with vector similarity when the query can be
// embedded. When the embedding backend is unavailable the search degrades
// to fulltext alone. Unlike Discover it needs no catalog snapshot.
func (s *DiscoveryService) SearchCatalog(ctx context.Context, text string, limit int) ([]models.Episode, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidQuery
	}
	if limit <= 0 {
		limit = s.cfg.TopK
	}

	var queryVec []float32
	if embedder, err := s.ensureEmbedder(ctx); err != nil {
		slog.Warn("embedding backend unavailable, fulltext search only", "error", err)
	} else if vec, err := embedder.Embed(ctx, text); err != nil {
		slog.Warn("query embedding failed, fulltext search only", "error", err)
	} else {
		queryVec = vec
	}

	start := time.Now()
	episodes, err := s.store.QuerySearchEpisodes(ctx, text, queryVec, limit)
	s.recordTiming(metrics.OpDBSearch, start)
	if err != nil {
		return nil, fmt.Errorf("search catalog: %w", err)
	}
	return episodes, nil
}

// Stats describes the catalog for operators.
type Stats struct {
	EpisodeCount int              `json:"episode_count"`
	Philosophers []db.TagCount    `json:"philosophers"`
	Themes       []db.TagCount    `json:"themes"`
	Runtime      metrics.Snapshot `json:"runtime"`
}

// Stats returns catalog and runtime statistics.
func (s *DiscoveryService) Stats(ctx context.Context) (*Stats, error) {
	start := time.Now()
	defer s.recordTiming(metrics.OpDBQuery, start)

	count, err := s.store.QueryCountEpisodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("count episodes: %w", err)
	}

	philosophers, err := s.store.QueryPhilosopherCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("philosopher counts: %w", err)
	}

	themes, err := s.store.QueryThemeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("theme counts: %w", err)
	}

	st := &Stats{
		EpisodeCount: count,
		Philosophers: philosophers,
		Themes:       themes,
	}
	if s.metrics != nil {
		st.Runtime = s.metrics.Snapshot()
	}
	return st, nil
}
