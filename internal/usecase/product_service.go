package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dealscout/backend/internal/domain"
)

// Similar-products limits
const (
	DefaultSimilarLimit = 10
	MaxSimilarLimit     = 50
)

// CategoryCatalog lists products of a category; the static catalog implements it
type CategoryCatalog interface {
	ByCategory(category string) []domain.ScoredProduct
}

// ProductService serves product detail and similar-product lookups
type ProductService struct {
	lookup       domain.ProductLookup
	vector       domain.VectorSearcher
	catalog      CategoryCatalog
	productCache Cache[domain.Product]
	similarCache Cache[[]domain.ScoredProduct]
	logger       *slog.Logger
}

// NewProductService wires the service. vector may be nil.
func NewProductService(
	lookup domain.ProductLookup,
	vector domain.VectorSearcher,
	catalog CategoryCatalog,
	productCache Cache[domain.Product],
	similarCache Cache[[]domain.ScoredProduct],
	logger *slog.Logger,
) *ProductService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductService{
		lookup:       lookup,
		vector:       vector,
		catalog:      catalog,
		productCache: productCache,
		similarCache: similarCache,
		logger:       logger.With("component", "products"),
	}
}

// GetProduct returns one product by id
func (s *ProductService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}
	if p, ok := s.productCache.Get(id); ok {
		return p.Clone(), nil
	}

	products, err := s.lookup.GetByIDs(ctx, []string{id})
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}

	p := products[0]
	if err := s.productCache.Set(id, p.Clone(), 0); err != nil {
		s.logger.Warn("failed to cache product", "id", id, "err", err)
	}
	return p, nil
}

// SimilarProducts returns products semantically close to id within its
// category, most similar first. Without a working vector tier it serves
// other catalog products of the same category.
func (s *ProductService) SimilarProducts(ctx context.Context, id string, limit int) ([]domain.ScoredProduct, error) {
	limit = clampSimilarLimit(limit)

	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	key := similarCacheKey{ID: p.ID, Limit: limit}
	if cached, ok := s.similarCache.Get(key); ok {
		return domain.CloneScored(cached), nil
	}

	if s.vector != nil {
		similar, err := s.vectorSimilar(ctx, p, limit)
		if err == nil {
			if err := s.similarCache.Set(key, domain.CloneScored(similar), 0); err != nil {
				s.logger.Warn("failed to cache similar products", "id", p.ID, "err", err)
			}
			return similar, nil
		}
		s.logger.Warn("vector similar search failed, using catalog", "id", p.ID, "err", err)
	}
	return s.categoryFallback(p, limit), nil
}

func (s *ProductService) vectorSimilar(ctx context.Context, p domain.Product, limit int) ([]domain.ScoredProduct, error) {
	query := strings.Join(nonEmpty(p.Title, p.Brand, p.Category), " ")
	filters := domain.SearchFilters{Category: p.Category}

	// One extra hit since the product itself usually comes back first.
	hits, err := s.vector.Search(ctx, query, filters, limit+1)
	if err != nil {
		return nil, err
	}
	similar, err := hydrate(ctx, s.lookup, hits, p.ID)
	if err != nil {
		return nil, err
	}
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

func (s *ProductService) categoryFallback(p domain.Product, limit int) []domain.ScoredProduct {
	if s.catalog == nil || p.Category == "" {
		return []domain.ScoredProduct{}
	}
	out := make([]domain.ScoredProduct, 0, limit)
	for _, sp := range s.catalog.ByCategory(p.Category) {
		if sp.ID == p.ID || domain.DedupKey(sp.Product) == domain.DedupKey(p) {
			continue
		}
		out = append(out, sp)
		if len(out) == limit {
			break
		}
	}
	return out
}

func clampSimilarLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultSimilarLimit
	case limit < 1:
		return 1
	case limit > MaxSimilarLimit:
		return MaxSimilarLimit
	}
	return limit
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ChainLookup resolves ids against several lookups in order. Ids found by an
// earlier lookup are not asked of later ones. Results keep request order.
type ChainLookup []domain.ProductLookup

// GetByIDs implements domain.ProductLookup
func (c ChainLookup) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	found := make(map[string]domain.Product, len(ids))
	remaining := ids
	for _, l := range c {
		if len(remaining) == 0 {
			break
		}
		products, err := l.GetByIDs(ctx, remaining)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			found[p.ID] = p
		}
		next := remaining[:0:0]
		for _, id := range remaining {
			if _, ok := found[id]; !ok {
				next = append(next, id)
			}
		}
		remaining = next
	}

	out := make([]domain.Product, 0, len(found))
	seen := make(map[string]bool, len(found))
	for _, id := range ids {
		if p, ok := found[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}
