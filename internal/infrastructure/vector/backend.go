package vector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dealscout/backend/internal/domain"
)

const indexBatchSize = 64

// Backend pairs an embedder with the HNSW index and implements
// domain.VectorSearcher. It returns ids, similarities and metadata only;
// callers hydrate products through a ProductLookup.
type Backend struct {
	embedder Embedder
	index    *Index
	logger   *slog.Logger
}

// NewBackend wires an embedder to an index of matching dimensions
func NewBackend(embedder Embedder, index *Index, logger *slog.Logger) (*Backend, error) {
	if embedder.Dimensions() != index.Dimensions() {
		return nil, fmt.Errorf("embedder produces %d dimensions, index expects %d",
			embedder.Dimensions(), index.Dimensions())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		embedder: embedder,
		index:    index,
		logger:   logger.With("component", "vector"),
	}, nil
}

// Embed returns the embedding of text
func (b *Backend) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := b.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorBackendFailure, err)
	}
	return vec, nil
}

// Query runs a nearest-neighbour search for an already embedded vector
func (b *Backend) Query(vec []float32, topK int, filter Filter) ([]domain.VectorHit, error) {
	hits, err := b.index.Query(vec, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorBackendFailure, err)
	}
	return hits, nil
}

// Search embeds query once and returns the topK nearest products that satisfy
// the translated filters
func (b *Backend) Search(ctx context.Context, query string, filters domain.SearchFilters, topK int) ([]domain.VectorHit, error) {
	if len(domain.Tokens(query)) == 0 {
		return nil, nil
	}
	vec, err := b.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	filter := TranslateFilters(filters)
	hits, err := b.Query(vec, topK, filter)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("vector search", "query", query, "filter", filter.String(), "hits", len(hits))
	return hits, nil
}

// IndexProducts embeds products in batches and adds them to the index.
// It returns the number of products indexed.
func (b *Backend) IndexProducts(ctx context.Context, products []domain.Product) (int, error) {
	indexed := 0
	for start := 0; start < len(products); start += indexBatchSize {
		end := min(start+indexBatchSize, len(products))
		batch := products[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = ProductText(p)
		}
		vecs, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("%w: embed batch: %v", domain.ErrVectorBackendFailure, err)
		}

		for i, p := range batch {
			if err := b.index.Add(p.ID, vecs[i], Metadata(p)); err != nil {
				b.logger.Warn("skipping product", "id", p.ID, "err", err)
				continue
			}
			indexed++
		}
	}
	b.logger.Info("indexed products", "count", indexed, "total", b.index.Len())
	return indexed, nil
}

// Len returns the number of indexed products
func (b *Backend) Len() int { return b.index.Len() }

// ProductText is the text embedded for a product
func ProductText(p domain.Product) string {
	parts := []string{p.Title, p.Brand, p.Category}
	parts = append(parts, p.Features...)
	return strings.Join(parts, " ")
}

// Metadata is the filterable payload stored with a product vector
func Metadata(p domain.Product) map[string]any {
	return map[string]any{
		FieldTitle:    p.Title,
		FieldBrand:    p.Brand,
		FieldCategory: p.Category,
		FieldPrice:    p.Price,
		FieldRating:   p.Rating,
	}
}

var _ domain.VectorSearcher = (*Backend)(nil)
