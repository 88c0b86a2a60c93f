package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dealscout/backend/internal/domain"
	"github.com/dealscout/backend/internal/infrastructure/cache"
	"github.com/dealscout/backend/internal/infrastructure/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	service *SearchService
	cache   *cache.MemoryCache[*domain.SearchResponse]
	vector  *fakeVector
	lookup  *fakeLookup
}

func newSearchFixture(t *testing.T, vectorEnabled bool, vector *fakeVector, lookup *fakeLookup, sources ...domain.SourceAdapter) *searchFixture {
	t.Helper()
	static, err := catalog.NewDefault()
	require.NoError(t, err)

	agg := newTestAggregator(t, 200*time.Millisecond, sources...)
	c := cache.NewMemoryCache[*domain.SearchResponse](cache.Config{Name: "search", MaxSize: 100, TTL: time.Minute})

	if vector == nil {
		vector = &fakeVector{}
	}
	if lookup == nil {
		lookup = newFakeLookup()
	}
	svc := NewSearchService(agg, vector, lookup, static, c, SearchServiceConfig{
		VectorEnabled: vectorEnabled,
		VectorTopK:    10,
	}, nil)
	return &searchFixture{service: svc, cache: c, vector: vector, lookup: lookup}
}

func laptops() []domain.ScoredProduct {
	return []domain.ScoredProduct{
		scoredFrom(product("retailerA-1", "Dell XPS 13 Laptop", "Dell", "Laptops", 999.99), 0.9),
		scoredFrom(product("retailerA-2", "HP Pavilion Laptop", "HP", "Laptops", 649.99), 0.9),
		scoredFrom(product("retailerA-3", "ASUS ROG Gaming Laptop", "ASUS", "Laptops", 1499.99), 0.9),
		scoredFrom(product("retailerA-4", "Acer Aspire Laptop", "Acer", "Laptops", 399.99), 0.9),
	}
}

func TestSearchService_Validation(t *testing.T) {
	f := newSearchFixture(t, false, nil, nil, &fakeSource{name: "a"})

	_, err := f.service.Search(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.service.Search(context.Background(), &domain.SearchRequest{Query: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.service.Search(context.Background(), &domain.SearchRequest{Query: "tv", SortBy: "cheapest"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSearchService_NonFiniteFiltersRejected(t *testing.T) {
	src := &fakeSource{name: "a"}
	f := newSearchFixture(t, false, nil, nil, src)

	_, err := f.service.Search(context.Background(), &domain.SearchRequest{
		Query:   "laptop",
		Filters: domain.SearchFilters{MinPrice: domain.Float64(math.NaN())},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, int32(0), src.calls.Load())
	assert.Zero(t, f.cache.Stats().Size)
}

func TestSearchService_CacheKeyFoldsCase(t *testing.T) {
	src := &fakeSource{name: "retailer_a", products: laptops()}
	f := newSearchFixture(t, false, nil, nil, src)

	first, err := f.service.Search(context.Background(), &domain.SearchRequest{
		Query:   "laptop",
		Filters: domain.SearchFilters{Brand: "dell"},
	})
	require.NoError(t, err)

	second, err := f.service.Search(context.Background(), &domain.SearchRequest{
		Query:   "Laptop",
		Filters: domain.SearchFilters{Brand: "DELL"},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, f.cache.Stats().Size)
	assert.Equal(t, ids(first.Products), ids(second.Products))
	assert.Equal(t, "Laptop", second.Query)
}

func TestSearchService_RanksAndPaginates(t *testing.T) {
	src := &fakeSource{name: "retailer_a", products: laptops()}
	f := newSearchFixture(t, false, nil, nil, src)

	resp, err := f.service.Search(context.Background(), &domain.SearchRequest{
		Query:  "laptop",
		SortBy: domain.SortPriceLow,
		Limit:  3,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.False(t, resp.Degraded)
	assert.Equal(t, []string{"retailerA-4", "retailerA-2", "retailerA-1"}, ids(resp.Products))
	assert.Equal(t, domain.Pagination{Page: 1, Limit: 3, Total: 4, TotalPages: 2, HasNext: true}, resp.Pagination)

	resp, err = f.service.Search(context.Background(), &domain.SearchRequest{
		Query:  "laptop",
		SortBy: domain.SortPriceLow,
		Limit:  3,
		Page:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"retailerA-3"}, ids(resp.Products))
	assert.True(t, resp.Pagination.HasPrev)
	assert.False(t, resp.Pagination.HasNext)
}

func TestSearchService_CacheIdempotence(t *testing.T) {
	src := &fakeSource{name: "retailer_a", products: laptops()}
	f := newSearchFixture(t, false, nil, nil, src)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return clock }

	req := &domain.SearchRequest{Query: "laptop"}
	first, err := f.service.Search(context.Background(), req)
	require.NoError(t, err)

	clock = clock.Add(time.Second)
	second, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "  laptop "})
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, second.Timestamp.After(first.Timestamp))

	second.Timestamp = first.Timestamp
	assert.Equal(t, first, second)

	// Callers get copies; mutating one must not leak into the cache.
	second.Products[0].Title = "mutated"
	third, err := f.service.Search(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", third.Products[0].Title)
}

func TestSearchService_VectorSupplement(t *testing.T) {
	src := &fakeSource{
		name:     "retailer_a",
		products: []domain.ScoredProduct{scoredFrom(product("retailerA-1", "Dell XPS 13 Laptop", "Dell", "Laptops", 999.99), 0.9)},
	}
	vector := &fakeVector{hits: []domain.VectorHit{
		{ID: "static-1002", Score: 0.82},
		{ID: "unknown", Score: 0.8},
		{ID: "static-1005", Score: 0.75},
	}}
	lookup := newFakeLookup(
		product("static-1002", "Lenovo Slim Laptop", "Lenovo", "Laptops", 749.99),
		product("static-1005", "HP 15 Laptop", "HP", "Laptops", 479.99),
	)
	f := newSearchFixture(t, true, vector, lookup, src)

	resp, err := f.service.Search(context.Background(), &domain.SearchRequest{
		Query:   "laptop",
		Filters: domain.SearchFilters{Category: "laptops"},
		SortBy:  domain.SortNewest,
	})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Equal(t, []string{"retailerA-1", "static-1002", "static-1005"}, ids(resp.Products))
	assert.InDelta(t, 0.82, resp.Products[1].Confidence, 1e-9)
	assert.Equal(t, int32(1), vector.calls.Load())
	assert.Equal(t, "laptops", vector.last.Category)
}

func TestSearchService_NoSupplementWhenEnough(t *testing.T) {
	src := &fakeSource{name: "retailer_a", products: laptops()}
	vector := &fakeVector{}
	f := newSearchFixture(t, true, vector, nil, src)

	_, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.Zero(t, vector.calls.Load())
}

func TestSearchService_VectorDisabledSkipsSupplement(t *testing.T) {
	src := &fakeSource{name: "retailer_a"}
	vector := &fakeVector{err: errors.New("should not be called")}
	f := newSearchFixture(t, false, vector, nil, src)

	resp, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Empty(t, resp.Products)
	assert.Zero(t, vector.calls.Load())
}

func TestSearchService_MockFallback(t *testing.T) {
	a := &fakeSource{name: "retailer_a", err: errors.New("timeout")}
	b := &fakeSource{name: "retailer_b", panics: true}
	vector := &fakeVector{err: errors.New("vector down")}
	f := newSearchFixture(t, true, vector, nil, a, b)

	resp, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Products)
	for _, p := range resp.Products {
		assert.True(t, strings.HasPrefix(p.ID, "static-"), p.ID)
		assert.Equal(t, catalog.StaticConfidence, p.Confidence)
	}

	// Degraded responses are never cached.
	assert.Equal(t, 0, f.cache.Stats().Size)
	_, err = f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), a.calls.Load())
}

func TestSearchService_VectorFailureFallsBack(t *testing.T) {
	src := &fakeSource{name: "retailer_a"}
	vector := &fakeVector{err: errors.New("embedding service unreachable")}
	f := newSearchFixture(t, true, vector, nil, src)

	resp, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "headphones"})
	require.NoError(t, err)
	assert.True(t, resp.Degraded)
	require.NotEmpty(t, resp.Products)
	for _, p := range resp.Products {
		assert.Equal(t, "Headphones", p.Category)
	}
}

func TestSearchService_PriceFilterHoldsAcrossTiers(t *testing.T) {
	filters := domain.SearchFilters{MinPrice: domain.Float64(500), MaxPrice: domain.Float64(1000)}
	assertInRange := func(t *testing.T, resp *domain.SearchResponse) {
		t.Helper()
		require.NotEmpty(t, resp.Products)
		for _, p := range resp.Products {
			assert.GreaterOrEqual(t, p.Price, 500.0, p.ID)
			assert.LessOrEqual(t, p.Price, 1000.0, p.ID)
		}
	}

	t.Run("live sources and vector supplement", func(t *testing.T) {
		src := &fakeSource{name: "retailer_a", products: laptops()}
		vector := &fakeVector{hits: []domain.VectorHit{{ID: "v-cheap", Score: 0.9}, {ID: "v-ok", Score: 0.8}}}
		lookup := newFakeLookup(
			product("v-cheap", "Cheap Laptop", "Z", "Laptops", 199.99),
			product("v-ok", "Fine Laptop", "Z", "Laptops", 799.99),
		)
		f := newSearchFixture(t, true, vector, lookup, src)

		resp, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop", Filters: filters})
		require.NoError(t, err)
		assert.False(t, resp.Degraded)
		assert.Equal(t, int32(1), vector.calls.Load())
		assertInRange(t, resp)
		assert.Contains(t, ids(resp.Products), "v-ok")
		assert.NotContains(t, ids(resp.Products), "v-cheap")
	})

	t.Run("static fallback", func(t *testing.T) {
		src := &fakeSource{name: "retailer_a", err: errors.New("down")}
		f := newSearchFixture(t, false, nil, nil, src)

		resp, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop", Filters: filters})
		require.NoError(t, err)
		assert.True(t, resp.Degraded)
		assertInRange(t, resp)
	})
}

func TestSearchService_CollapsesConcurrentMisses(t *testing.T) {
	src := &fakeSource{name: "retailer_a", products: laptops(), delay: 50 * time.Millisecond}
	f := newSearchFixture(t, false, nil, nil, src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.service.Search(context.Background(), &domain.SearchRequest{Query: "laptop"})
			assert.NoError(t, err)
			assert.Len(t, resp.Products, 4)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestSearchService_CallerCancellationDoesNotAbortSharedWork(t *testing.T) {
	src := &fakeSource{name: "retailer_a", products: laptops(), delay: 20 * time.Millisecond}
	f := newSearchFixture(t, false, nil, nil, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp, err := f.service.Search(ctx, &domain.SearchRequest{Query: "laptop"})
	require.NoError(t, err)
	assert.False(t, resp.Degraded)
	assert.Len(t, resp.Products, 4)
}

func TestHydrate_ScoresSaleSignals(t *testing.T) {
	sale := product("static-1002", "Lenovo Slim Laptop", "Lenovo", "Laptops", 749.99)
	sale.ListPrice = 999.99
	sale.OnSale = true

	got, err := hydrate(context.Background(), newFakeLookup(sale), []domain.VectorHit{{ID: sale.ID, Score: 0.9}}, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, domain.DealScore(sale, sale.Signals()), got[0].DealScore, 1e-9)
	assert.Greater(t, got[0].DealScore, domain.DealScore(sale, domain.DealSignals{}))
}
