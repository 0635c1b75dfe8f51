package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/soretetsu/discovery-go/internal/models"
)

// episodeRecord mirrors the episode table row. The ID comes back as a
// SurrealDB RecordID, everything else maps onto the catalog model.
type episodeRecord struct {
	ID           *surrealmodels.RecordID `json:"id,omitempty"`
	Title        string                  `json:"title"`
	URL          string                  `json:"url"`
	Summary      string                  `json:"summary"`
	Body         string                  `json:"body"`
	EpisodeType  string                  `json:"episode_type"`
	Difficulty   string                  `json:"difficulty"`
	Relevance    string                  `json:"relevance"`
	Philosophers []string                `json:"philosophers"`
	Themes       []string                `json:"themes"`
	Casual       bool                    `json:"casual"`
	Position     int                     `json:"position"`
	Embedding    []float32               `json:"embedding,omitempty"`
}

func (r *episodeRecord) toEpisode() (models.Episode, error) {
	ep := models.Episode{
		Title:        r.Title,
		URL:          r.URL,
		Summary:      r.Summary,
		Body:         r.Body,
		EpisodeType:  r.EpisodeType,
		Difficulty:   models.Difficulty(r.Difficulty),
		Relevance:    models.Relevance(r.Relevance),
		Philosophers: r.Philosophers,
		Themes:       r.Themes,
		Casual:       r.Casual,
		Position:     r.Position,
		Embedding:    r.Embedding,
	}
	if r.ID != nil {
		id, err := models.RecordIDString(*r.ID)
		if err != nil {
			return models.Episode{}, err
		}
		ep.ID = id
	}
	return ep, nil
}

func toEpisodes(records []episodeRecord) ([]models.Episode, error) {
	episodes := make([]models.Episode, 0, len(records))
	for i := range records {
		ep, err := records[i].toEpisode()
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

// TagCount represents a tag value with its episode count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// QueryUpsertEpisode creates or updates an episode by ID.
// The embedding is intentionally not touched here; ingestion writes catalog
// fields and the embedding pipeline fills vectors in separately.
func (c *Client) QueryUpsertEpisode(ctx context.Context, ep *models.Episode) (*models.Episode, error) {
	philosophers := ep.Philosophers
	if philosophers == nil {
		philosophers = []string{}
	}
	themes := ep.Themes
	if themes == nil {
		themes = []string{}
	}

	sql := `
		UPSERT type::record("episode", $id) SET
			title = $title,
			url = $url,
			summary = $summary,
			body = $body,
			episode_type = $episode_type,
			difficulty = $difficulty,
			relevance = $relevance,
			philosophers = $philosophers,
			themes = $themes,
			casual = $casual,
			position = $position,
			updated = time::now(),
			created = IF created THEN created ELSE time::now() END
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, map[string]any{
		"id":           ep.ID,
		"title":        ep.Title,
		"url":          ep.URL,
		"summary":      ep.Summary,
		"body":         ep.Body,
		"episode_type": ep.EpisodeType,
		"difficulty":   string(ep.Difficulty),
		"relevance":    string(ep.Relevance),
		"philosophers": philosophers,
		"themes":       themes,
		"casual":       ep.Casual,
		"position":     ep.Position,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert episode: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert episode: no result returned")
	}

	stored, err := (*results)[0].Result[0].toEpisode()
	if err != nil {
		return nil, fmt.Errorf("upsert episode: %w", err)
	}
	return &stored, nil
}

// QueryGetEpisode retrieves an episode by ID.
// Returns ErrNotFound if it does not exist.
func (c *Client) QueryGetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, `
		SELECT * FROM type::record("episode", $id)
	`, map[string]any{"id": id})

	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get episode %s: %w", id, ErrNotFound)
	}

	ep, err := (*results)[0].Result[0].toEpisode()
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return &ep, nil
}

// QueryListEpisodes returns the full catalog in insertion order.
// The catalog is small enough to load whole; callers keep it as an
// in-memory snapshot.
func (c *Client) QueryListEpisodes(ctx context.Context) ([]models.Episode, error) {
	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, `
		SELECT * FROM episode ORDER BY position ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Episode{}, nil
	}
	return toEpisodes((*results)[0].Result)
}

// QueryCountEpisodes returns the number of episodes in the catalog.
func (c *Client) QueryCountEpisodes(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, `SELECT count() AS count FROM episode GROUP ALL`, nil)
	if err != nil {
		return 0, fmt.Errorf("count episodes: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// QueryMaxPosition returns the highest position in the catalog, or -1 when
// the catalog is empty. New episodes are appended after it.
func (c *Client) QueryMaxPosition(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]struct {
		Max int `json:"max"`
	}](ctx, c.db, `SELECT math::max(position) AS max FROM episode GROUP ALL`, nil)
	if err != nil {
		return 0, fmt.Errorf("max position: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return -1, nil
	}
	return (*results)[0].Result[0].Max, nil
}

// QueryEpisodesMissingEmbedding returns up to limit episodes that have no
// embedding yet, oldest first.
func (c *Client) QueryEpisodesMissingEmbedding(ctx context.Context, limit int) ([]models.Episode, error) {
	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, `
		SELECT * FROM episode WHERE embedding IS NONE ORDER BY position ASC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("episodes missing embedding: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Episode{}, nil
	}
	return toEpisodes((*results)[0].Result)
}

// QueryUpdateEmbedding stores the embedding vector for an episode.
func (c *Client) QueryUpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("episode", $id) SET
			embedding = $embedding,
			updated = time::now()
	`, map[string]any{"id": id, "embedding": embedding})
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return nil
}

// QueryDeleteEpisode deletes an episode by ID.
// Returns the number deleted (0 if not found, idempotent).
func (c *Client) QueryDeleteEpisode(ctx context.Context, id string) (int, error) {
	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, `
		DELETE type::record("episode", $id) RETURN BEFORE
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete episode: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// QueryPhilosopherCounts returns philosopher tags with episode counts,
// most frequent first.
func (c *Client) QueryPhilosopherCounts(ctx context.Context) ([]TagCount, error) {
	return c.queryTagCounts(ctx, "philosophers")
}

// QueryThemeCounts returns theme tags with episode counts, most frequent first.
func (c *Client) QueryThemeCounts(ctx context.Context) ([]TagCount, error) {
	return c.queryTagCounts(ctx, "themes")
}

func (c *Client) queryTagCounts(ctx context.Context, field string) ([]TagCount, error) {
	// Flatten the tag arrays, then group by value
	sql := fmt.Sprintf(`
		SELECT tag, count() AS count FROM (
			SELECT array::flatten(%s) AS tag FROM episode
		) SPLIT tag GROUP BY tag ORDER BY count DESC
	`, field)

	results, err := surrealdb.Query[[]TagCount](ctx, c.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("tag counts for %s: %w", field, err)
	}

	if results == nil || len(*results) == 0 {
		return []TagCount{}, nil
	}
	return (*results)[0].Result, nil
}

// QuerySearchEpisodes performs RRF fusion of BM25 + vector search over the
// catalog. Title and summary carry the fulltext indexes; the embedding side
// uses the HNSW index with ef=40 for recall. When no query embedding is
// supplied the vector arm is skipped and results come from BM25 alone.
func (c *Client) QuerySearchEpisodes(
	ctx context.Context,
	query string,
	embedding []float32,
	limit int,
) ([]models.Episode, error) {
	params := map[string]any{
		"q":     query,
		"limit": limit,
	}

	var sql string
	if len(embedding) == 0 {
		sql = `
			SELECT id, title, url, summary, body, episode_type, difficulty,
					relevance, philosophers, themes, casual, position
			FROM episode
			WHERE title @0@ $q OR summary @1@ $q
			LIMIT $limit
		`
	} else {
		// RRF k=60 (standard constant for rank fusion); vector arm fetches
		// 2x limit for variety before fusion
		sql = fmt.Sprintf(`
			SELECT * FROM search::rrf([
				(SELECT id, title, url, summary, body, episode_type, difficulty,
						relevance, philosophers, themes, casual, position
				 FROM episode
				 WHERE embedding <|%d,40|> $emb),
				(SELECT id, title, url, summary, body, episode_type, difficulty,
						relevance, philosophers, themes, casual, position
				 FROM episode
				 WHERE title @0@ $q OR summary @1@ $q)
			], $limit, 60)
		`, limit*2)
		params["emb"] = embedding
	}

	results, err := surrealdb.Query[[]episodeRecord](ctx, c.db, sql, params)
	if err != nil {
		return nil, fmt.Errorf("search episodes: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Episode{}, nil
	}
	return toEpisodes((*results)[0].Result)
}
