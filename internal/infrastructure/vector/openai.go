package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealscout/backend/internal/domain"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig points the embedder at an OpenAI-compatible endpoint
type OpenAIConfig struct {
	Host       string
	Model      string
	Token      string
	Dimensions int
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings API through langchaingo
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	dims     int
	logger   *slog.Logger
}

// NewOpenAIEmbedder builds the langchaingo client. Local servers that need no
// auth get the "none" token.
func NewOpenAIEmbedder(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.Host != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Host))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIEmbedder{
		embedder: emb,
		model:    cfg.Model,
		dims:     cfg.Dimensions,
		logger:   logger.With("component", "openai-embedder"),
	}, nil
}

// Embed generates one embedding for a search query
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to embed query", "err", err)
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrVectorBackendFailure, err)
	}
	if err := e.checkDims(vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch generates embeddings for texts in one request
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts))
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: embed: %v", domain.ErrVectorBackendFailure, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrVectorBackendFailure, len(vecs), len(texts))
	}
	for _, v := range vecs {
		if err := e.checkDims(v); err != nil {
			return nil, err
		}
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) checkDims(v []float32) error {
	if len(v) != e.dims {
		return fmt.Errorf("%w: embedding has %d dimensions, want %d",
			domain.ErrVectorBackendFailure, len(v), e.dims)
	}
	return nil
}

// Dimensions returns the configured vector size
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// ModelName returns the embedding model
func (e *OpenAIEmbedder) ModelName() string { return e.model }
