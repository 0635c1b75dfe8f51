package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/soretetsu/discovery-go/internal/metrics"
	"github.com/soretetsu/discovery-go/internal/models"
	"github.com/soretetsu/discovery-go/internal/parser"
)

// embedBatchSize is the number of episode texts sent per embedding call.
const embedBatchSize = 16

// IngestStore is the subset of db.Client ingestion writes through.
type IngestStore interface {
	QueryUpsertEpisode(ctx context.Context, ep *models.Episode) (*models.Episode, error)
	QueryMaxPosition(ctx context.Context) (int, error)
	QueryEpisodesMissingEmbedding(ctx context.Context, limit int) ([]models.Episode, error)
	QueryUpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// BatchEmbedder generates embedding vectors for multiple texts at once.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CatalogSource fetches episodes from the remote workspace.
type CatalogSource interface {
	FetchCatalog(ctx context.Context, databaseID string) ([]models.Episode, error)
	FetchBody(ctx context.Context, pageID string) (string, error)
}

// IngestResult summarizes an ingestion operation.
type IngestResult struct {
	EpisodesImported  int      `json:"episodes_imported"`
	EpisodesSkipped   int      `json:"episodes_skipped"`
	EmbeddingsCreated int      `json:"embeddings_created"`
	Errors            []string `json:"errors"`
}

// IngestService imports episodes into the catalog and backfills embeddings.
type IngestService struct {
	store   IngestStore
	metrics *metrics.Collector
}

// NewIngestService creates an ingest service.
func NewIngestService(store IngestStore, collector *metrics.Collector) *IngestService {
	return &IngestService{store: store, metrics: collector}
}

// ImportCSV reads a catalog CSV export and upserts its episodes. Positions
// are appended after the current catalog maximum so insertion order keeps
// meaning recency.
func (s *IngestService) ImportCSV(ctx context.Context, r io.Reader) (*IngestResult, error) {
	start := time.Now()
	defer s.recordTiming(metrics.OpIngest, start)

	episodes, skipped, err := parser.ParseCatalog(r)
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	base, err := s.store.QueryMaxPosition(ctx)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{EpisodesSkipped: skipped}
	for i := range episodes {
		episodes[i].Position = base + 1 + result.EpisodesImported
		if _, err := s.store.QueryUpsertEpisode(ctx, &episodes[i]); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", episodes[i].Title, err))
			continue
		}
		result.EpisodesImported++
	}

	slog.Info("csv import finished",
		"imported", result.EpisodesImported,
		"skipped", result.EpisodesSkipped,
		"errors", len(result.Errors))
	return result, nil
}

// SyncCatalog fetches the catalog from the workspace API and upserts every
// episode. With withBodies, each page body is fetched and stored too. Job
// progress is reported when mgr and job are non-nil.
func (s *IngestService) SyncCatalog(
	ctx context.Context,
	src CatalogSource,
	databaseID string,
	withBodies bool,
	mgr *JobManager,
	job *Job,
) (*IngestResult, error) {
	start := time.Now()
	defer s.recordTiming(metrics.OpIngest, start)

	episodes, err := src.FetchCatalog(ctx, databaseID)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	result := &IngestResult{}
	for i := range episodes {
		ep := &episodes[i]

		if withBodies {
			body, err := src.FetchBody(ctx, ep.ID)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: body: %v", ep.Title, err))
			} else {
				ep.Body = body
			}
		}

		if _, err := s.store.QueryUpsertEpisode(ctx, ep); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ep.Title, err))
		} else {
			result.EpisodesImported++
		}

		if mgr != nil && job != nil {
			mgr.UpdateProgress(job, i+1, len(episodes))
		}
	}

	slog.Info("catalog sync finished",
		"imported", result.EpisodesImported,
		"errors", len(result.Errors))
	return result, nil
}

// EmbedMissing generates embeddings for episodes that have none, in batches.
// Episodes whose embedding call fails are reported in Errors and left for a
// later run. Job progress is reported when mgr and job are non-nil.
func (s *IngestService) EmbedMissing(
	ctx context.Context,
	embedder BatchEmbedder,
	limit int,
	mgr *JobManager,
	job *Job,
) (*IngestResult, error) {
	if limit <= 0 {
		limit = 1000
	}

	pending, err := s.store.QueryEpisodesMissingEmbedding(ctx, limit)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	for offset := 0; offset < len(pending); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[offset:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].EmbeddingText()
		}

		embedStart := time.Now()
		vectors, err := embedder.EmbedBatch(ctx, texts)
		s.recordTiming(metrics.OpEmbedding, embedStart)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("batch at %d: %v", offset, err))
			continue
		}

		for i := range batch {
			if err := s.store.QueryUpdateEmbedding(ctx, batch[i].ID, vectors[i]); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", batch[i].Title, err))
				continue
			}
			result.EmbeddingsCreated++
		}

		if mgr != nil && job != nil {
			mgr.UpdateProgress(job, end, len(pending))
		}
	}

	slog.Info("embedding backfill finished",
		"embedded", result.EmbeddingsCreated,
		"pending", len(pending),
		"errors", len(result.Errors))
	return result, nil
}

func (s *IngestService) recordTiming(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordTiming(op, time.Since(start))
	}
}
