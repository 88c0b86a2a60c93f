package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dealscout/backend/internal/domain"
)

// fakeSource is a scripted SourceAdapter
type fakeSource struct {
	name     string
	products []domain.ScoredProduct
	err      error
	panics   bool
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, query string, cons domain.SearchConstraints) ([]domain.ScoredProduct, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.panics {
		panic("adapter exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return domain.CloneScored(f.products), nil
}

// fakeVector returns fixed hits
type fakeVector struct {
	hits  []domain.VectorHit
	err   error
	calls atomic.Int32
	last  domain.SearchFilters
}

func (f *fakeVector) Search(ctx context.Context, query string, filters domain.SearchFilters, topK int) ([]domain.VectorHit, error) {
	f.calls.Add(1)
	f.last = filters
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}

// fakeLookup resolves ids from a map
type fakeLookup struct {
	products map[string]domain.Product
	err      error
	calls    atomic.Int32
}

func newFakeLookup(products ...domain.Product) *fakeLookup {
	l := &fakeLookup{products: make(map[string]domain.Product)}
	for _, p := range products {
		l.products[p.ID] = p
	}
	return l
}

func (f *fakeLookup) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func product(id, title, brand, category string, price float64) domain.Product {
	return domain.Product{
		ID:           id,
		Title:        title,
		Brand:        brand,
		Category:     category,
		Price:        price,
		Rating:       4.2,
		Availability: domain.AvailabilityInStock,
	}
}

func scoredFrom(p domain.Product, confidence float64) domain.ScoredProduct {
	return domain.ScoredProduct{Product: p, Confidence: confidence, DealScore: domain.DealScore(p, p.Signals())}
}
