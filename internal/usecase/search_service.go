package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dealscout/backend/internal/domain"
	"github.com/dealscout/backend/internal/infrastructure/cache"
	"golang.org/x/sync/singleflight"
)

// DefaultMinResults is the merged result count below which the vector tier
// supplements the live sources
const DefaultMinResults = 3

// SearchServiceConfig tunes the tier cascade
type SearchServiceConfig struct {
	MinResults    int
	VectorEnabled bool
	VectorTopK    int
	CacheTTL      time.Duration // 0 uses the cache default
}

// SearchService answers search requests through the cache, live sources,
// vector supplement and static fallback tiers
type SearchService struct {
	aggregator   *Aggregator
	vector       domain.VectorSearcher
	lookup       domain.ProductLookup
	fallback     domain.SourceAdapter
	cache        Cache[*domain.SearchResponse]
	preprocessor *QueryPreprocessor
	group        singleflight.Group
	cfg          SearchServiceConfig
	logger       *slog.Logger
	now          func() time.Time
}

// NewSearchService wires the orchestrator. vector and lookup may be nil when
// the vector tier is disabled. fallback is the static catalog.
func NewSearchService(
	aggregator *Aggregator,
	vector domain.VectorSearcher,
	lookup domain.ProductLookup,
	fallback domain.SourceAdapter,
	responseCache Cache[*domain.SearchResponse],
	cfg SearchServiceConfig,
	logger *slog.Logger,
) *SearchService {
	if cfg.MinResults <= 0 {
		cfg.MinResults = DefaultMinResults
	}
	if cfg.VectorTopK <= 0 {
		cfg.VectorTopK = domain.DefaultPageLimit
	}
	if vector == nil || lookup == nil {
		cfg.VectorEnabled = false
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		aggregator:   aggregator,
		vector:       vector,
		lookup:       lookup,
		fallback:     fallback,
		cache:        responseCache,
		preprocessor: NewQueryPreprocessor(logger),
		cfg:          cfg,
		logger:       logger.With("component", "search"),
		now:          time.Now,
	}
}

// Search validates the request and returns one page of ranked products.
// Identical concurrent misses share one computation.
func (s *SearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	if request == nil {
		return nil, fmt.Errorf("%w: empty request", domain.ErrInvalidRequest)
	}
	req := *request
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := cacheKeyFor(&req)
	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("cache hit", "query", req.Query)
		return s.stamp(cached, &req), nil
	}

	flightKey, err := cache.Key(key)
	if err != nil {
		return nil, fmt.Errorf("build cache key: %w", err)
	}
	v, err, shared := s.group.Do(flightKey, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), &req, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("shared in-flight search", "query", req.Query)
	}
	return s.stamp(v.(*domain.SearchResponse), &req), nil
}

// compute runs the live tiers, falling back to the static catalog on any error
func (s *SearchService) compute(ctx context.Context, req *domain.SearchRequest, key searchCacheKey) (*domain.SearchResponse, error) {
	sourceQuery := s.preprocessor.Clean(req.Query)

	ranked, err := s.aggregate(ctx, req, sourceQuery)
	if err != nil {
		s.logger.Warn("live tiers failed, serving static fallback", "query", req.Query, "err", err)
		return s.mockFallback(ctx, req, sourceQuery)
	}

	resp := s.respond(req, ranked, false)
	if err := s.cache.Set(key, resp, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("failed to cache search response", "err", err)
	}
	return resp, nil
}

// aggregate covers the Aggregating and VectorSupplement states
func (s *SearchService) aggregate(ctx context.Context, req *domain.SearchRequest, sourceQuery string) ([]domain.ScoredProduct, error) {
	merged, err := s.aggregator.Collect(ctx, sourceQuery, req.Constraints())
	if err != nil {
		return nil, err
	}

	ranked := rankProducts(merged, req)
	if len(ranked) >= s.cfg.MinResults || !s.cfg.VectorEnabled {
		return ranked, nil
	}

	s.logger.Debug("sparse results, supplementing from vector index",
		"query", req.Query, "count", len(ranked), "min", s.cfg.MinResults)
	extra, err := s.vectorSupplement(ctx, req, sourceQuery)
	if err != nil {
		return nil, err
	}
	return rankProducts(append(merged, extra...), req), nil
}

// vectorSupplement resolves vector hits to products tagged with their
// similarity as confidence
func (s *SearchService) vectorSupplement(ctx context.Context, req *domain.SearchRequest, query string) ([]domain.ScoredProduct, error) {
	hits, err := s.vector.Search(ctx, query, req.Filters, s.cfg.VectorTopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorBackendFailure, err)
	}
	return hydrate(ctx, s.lookup, hits, "")
}

// mockFallback serves the static catalog alone. The response is degraded and
// never cached.
func (s *SearchService) mockFallback(ctx context.Context, req *domain.SearchRequest, sourceQuery string) (*domain.SearchResponse, error) {
	products, err := s.fallback.Search(ctx, sourceQuery, req.Constraints())
	if err != nil {
		return nil, fmt.Errorf("static fallback: %w", err)
	}
	return s.respond(req, rankProducts(products, req), true), nil
}

func (s *SearchService) respond(req *domain.SearchRequest, ranked []domain.ScoredProduct, degraded bool) *domain.SearchResponse {
	page, pagination := Paginate(ranked, req.Page, req.Limit)
	return &domain.SearchResponse{
		Success:    true,
		Query:      req.Query,
		Products:   domain.CloneScored(page),
		Pagination: pagination,
		Degraded:   degraded,
		Timestamp:  s.now(),
	}
}

// stamp copies a stored response, echoing the caller's query and refreshing
// the timestamp
func (s *SearchService) stamp(resp *domain.SearchResponse, req *domain.SearchRequest) *domain.SearchResponse {
	out := resp.Clone()
	out.Query = req.Query
	out.Timestamp = s.now()
	return out
}

// cacheKeyFor folds case on the text fields; filters match case-insensitively
// so differently cased requests share one entry
func cacheKeyFor(req *domain.SearchRequest) searchCacheKey {
	return searchCacheKey{
		Query:     strings.ToLower(req.Query),
		Category:  strings.ToLower(req.Filters.Category),
		Brand:     strings.ToLower(req.Filters.Brand),
		MinPrice:  req.Filters.MinPrice,
		MaxPrice:  req.Filters.MaxPrice,
		MinRating: req.Filters.MinRating,
		SortBy:    string(req.SortBy),
		Page:      req.Page,
		Limit:     req.Limit,
	}
}

// hydrate resolves hits through lookup in hit order, skipping exclude and
// ids the lookup does not know
func hydrate(ctx context.Context, lookup domain.ProductLookup, hits []domain.VectorHit, exclude string) ([]domain.ScoredProduct, error) {
	ids := make([]string, 0, len(hits))
	similarity := make(map[string]float64, len(hits))
	for _, h := range hits {
		if h.ID == exclude {
			continue
		}
		if _, dup := similarity[h.ID]; dup {
			continue
		}
		ids = append(ids, h.ID)
		similarity[h.ID] = h.Score
	}
	if len(ids) == 0 {
		return nil, nil
	}

	products, err := lookup.GetByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, domain.ErrStoreFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: resolve vector hits: %v", domain.ErrStoreFailure, err)
	}

	out := make([]domain.ScoredProduct, 0, len(products))
	for _, p := range products {
		out = append(out, domain.ScoredProduct{
			Product:    p.Clone(),
			Confidence: domain.Clamp(similarity[p.ID], 0, 1),
			DealScore:  domain.DealScore(p, p.Signals()),
		})
	}
	return out, nil
}
