package domain

import "context"

// SourceAdapter is one independent product data provider.
// Implementations must bound their own latency and return errors rather than panic.
type SourceAdapter interface {
	Name() string
	Search(ctx context.Context, query string, constraints SearchConstraints) ([]ScoredProduct, error)
}

// VectorSearcher supplies semantically similar candidates for a query
type VectorSearcher interface {
	Search(ctx context.Context, query string, filters SearchFilters, topK int) ([]VectorHit, error)
}

// ProductLookup resolves product ids to full records. Unknown ids are skipped.
type ProductLookup interface {
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// ProductRepository is the persistent product store
type ProductRepository interface {
	ProductLookup
	Upsert(ctx context.Context, products []Product) error
	All(ctx context.Context) ([]Product, error)
	Count(ctx context.Context) (int, error)
}
