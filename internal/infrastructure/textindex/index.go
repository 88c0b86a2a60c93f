package textindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/dealscout/backend/internal/domain"
)

// SourceName is the configuration name of the local index adapter
const SourceName = "local_index"

// LocalConfidence sits between live retailer data and the static catalog
const LocalConfidence = 0.8

const defaultResultSize = 50

var errClosed = errors.New("text index is closed")

type document struct {
	Title       string `json:"title"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Features    string `json:"features"`
}

// Index is an in-memory full-text index over stored products, searched
// through bleve match queries. It serves as the local_index source.
type Index struct {
	mu       sync.RWMutex
	index    bleve.Index
	products map[string]domain.ScoredProduct
	size     int
	closed   bool
	logger   *slog.Logger
}

// New creates an empty in-memory index
func New(logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create text index: %w", err)
	}
	return &Index{
		index:    idx,
		products: make(map[string]domain.ScoredProduct),
		size:     defaultResultSize,
		logger:   logger.With("component", "textindex"),
	}, nil
}

// Name returns the source name
func (x *Index) Name() string {
	return SourceName
}

// Index adds or replaces products in the index
func (x *Index) Index(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return errClosed
	}

	batch := x.index.NewBatch()
	for _, p := range products {
		if p.ID == "" {
			continue
		}
		doc := document{
			Title:       p.Title,
			Brand:       p.Brand,
			Category:    p.Category,
			Description: p.Description,
			Features:    strings.Join(p.Features, " "),
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return fmt.Errorf("index product %s: %w", p.ID, err)
		}
	}
	if err := x.index.Batch(batch); err != nil {
		return fmt.Errorf("apply index batch: %w", err)
	}

	for _, p := range products {
		if p.ID == "" {
			continue
		}
		p = p.Clone()
		x.products[p.ID] = domain.ScoredProduct{
			Product:    p,
			Confidence: LocalConfidence,
			DealScore:  domain.DealScore(p, p.Signals()),
		}
	}
	x.logger.Debug("indexed products", "count", len(products), "total", len(x.products))
	return nil
}

// Search runs a match query over every indexed field and returns hits in
// score order, filtered by the constraints.
func (x *Index) Search(ctx context.Context, query string, cons domain.SearchConstraints) ([]domain.ScoredProduct, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, errClosed
	}
	if len(x.products) == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), x.size, 0, false)
	result, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: local index search: %v", domain.ErrSourceFailure, err)
	}

	out := make([]domain.ScoredProduct, 0, len(result.Hits))
	for _, hit := range result.Hits {
		sp, ok := x.products[hit.ID]
		if !ok || !cons.Matches(sp.Product) {
			continue
		}
		out = append(out, sp)
	}
	return domain.CloneScored(out), nil
}

// Count returns the number of indexed products
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.products)
}

// Close releases the underlying index
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	return x.index.Close()
}
