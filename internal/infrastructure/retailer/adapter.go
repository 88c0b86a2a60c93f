package retailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dealscout/backend/internal/domain"
)

// RetailerConfidence is the baseline reliability of first-party retailer APIs
const RetailerConfidence = 0.9

// Format decodes one retailer's search response into scored products
type Format interface {
	Decode(body []byte) ([]domain.ScoredProduct, error)
}

// Adapter exposes a retailer API as a domain.SourceAdapter
type Adapter struct {
	name   string
	client *Client
	format Format
	logger *slog.Logger
}

// NewAdapter creates a source adapter for a retailer API
func NewAdapter(name string, client *Client, format Format, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		name:   name,
		client: client,
		format: format,
		logger: logger.With("component", "retailer-adapter", "source", name),
	}
}

// Name returns the source name used in configuration and logs
func (a *Adapter) Name() string {
	return a.name
}

// Search queries the retailer and decodes its response
func (a *Adapter) Search(ctx context.Context, query string, cons domain.SearchConstraints) ([]domain.ScoredProduct, error) {
	body, err := a.client.SearchProducts(ctx, query, cons)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	products, err := a.format.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrSourceFailure, a.name, err)
	}

	a.logger.Debug("search complete", "query", query, "count", len(products))
	return products, nil
}
