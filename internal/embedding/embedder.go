// Package embedding converts episode text into vectors for semantic search.
package embedding

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/embeddings"
	embbedrock "github.com/tmc/langchaingo/embeddings/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/soretetsu/discovery-go/internal/config"
)

// Embedder wraps a langchaingo embedder and validates vector dimensions.
type Embedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
}

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(ctx context.Context, cfg *config.Config) (*Embedder, error) {
	var embedder embeddings.Embedder

	switch cfg.EmbedProvider {
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("creating ollama client: %w", err)
		}
		embedder, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("creating ollama embedder: %w", err)
		}

	case config.ProviderOpenAI:
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		embedder, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("creating openai embedder: %w", err)
		}

	case config.ProviderBedrock:
		awscfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awscfg)
		embedder, err = embbedrock.NewBedrock(
			embbedrock.WithClient(client),
			embbedrock.WithModel(cfg.EmbedModel),
		)
		if err != nil {
			return nil, fmt.Errorf("creating bedrock embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}

	return &Embedder{
		embedder:  embedder,
		model:     cfg.EmbedModel,
		dimension: cfg.EmbedDimension,
	}, nil
}

// Model returns the configured model name.
func (e *Embedder) Model() string {
	return e.model
}

// Dimension returns the expected vector dimension.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed generates an embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embedding vectors for multiple texts in one call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("generating embeddings with %s: %w", e.model, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", len(vecs), len(texts))
	}

	for i, vec := range vecs {
		if len(vec) != e.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch at index %d: got %d, want %d", i, len(vec), e.dimension)
		}
	}

	return vecs, nil
}
