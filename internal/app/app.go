// Package app wires configuration into the running service: caches, product
// store, keyword and vector indexes, source adapters and the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dealscout/backend/config"
	httpDelivery "github.com/dealscout/backend/internal/delivery/http"
	"github.com/dealscout/backend/internal/domain"
	"github.com/dealscout/backend/internal/infrastructure/cache"
	"github.com/dealscout/backend/internal/infrastructure/catalog"
	"github.com/dealscout/backend/internal/infrastructure/retailer"
	"github.com/dealscout/backend/internal/infrastructure/store"
	"github.com/dealscout/backend/internal/infrastructure/textindex"
	"github.com/dealscout/backend/internal/infrastructure/vector"
	"github.com/dealscout/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

// App owns every long-lived component. Close releases them.
type App struct {
	Config   *config.Config
	Search   *usecase.SearchService
	Products *usecase.ProductService
	Router   *gin.Engine

	static     *catalog.Static
	store      *store.SQLStore
	textIndex  *textindex.Index
	vector     *vector.Backend
	aggregator *usecase.Aggregator

	searchCache  *cache.MemoryCache[*domain.SearchResponse]
	productCache *cache.MemoryCache[domain.Product]
	similarCache *cache.MemoryCache[[]domain.ScoredProduct]

	stopJanitors context.CancelFunc
	logger       *slog.Logger
}

// IndexStats reports the size of each product index after a rebuild
type IndexStats struct {
	Stored  int `json:"stored"`
	Keyword int `json:"keyword"`
	Vectors int `json:"vectors"`
}

// New builds the application. The store is seeded from the static catalog
// when it is empty and store.seed is set, then both indexes are built from it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config: cfg,
		logger: logger.With("component", "app"),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.static, err = loadCatalog(cfg.Sources.StaticCatalog); err != nil {
		return nil, err
	}

	a.store, err = store.Open(ctx, store.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN}, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Seed {
		count, err := a.store.Count(ctx)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			if _, err := a.Seed(ctx); err != nil {
				return nil, err
			}
		}
	}

	if a.textIndex, err = textindex.New(logger); err != nil {
		return nil, err
	}
	if cfg.Vector.Enabled {
		if a.vector, err = newVectorBackend(cfg.Vector, logger); err != nil {
			return nil, err
		}
	}
	if _, err = a.Reindex(ctx); err != nil {
		return nil, err
	}

	sources, err := a.sources(cfg)
	if err != nil {
		return nil, err
	}
	a.aggregator, err = usecase.NewAggregator(sources, usecase.AggregatorConfig{
		Timeout:  cfg.Sources.Timeout,
		PoolSize: cfg.Sources.PoolSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	a.newCaches(cfg.Cache)

	lookup := usecase.ChainLookup{a.store, a.static}
	var searcher domain.VectorSearcher
	if a.vector != nil {
		searcher = a.vector
	}

	a.Search = usecase.NewSearchService(a.aggregator, searcher, lookup, a.static, a.searchCache,
		usecase.SearchServiceConfig{
			MinResults:    cfg.Vector.MinResults,
			VectorEnabled: cfg.Vector.Enabled,
			VectorTopK:    cfg.Vector.TopK,
			CacheTTL:      cfg.Cache.Search.TTL,
		}, logger)
	a.Products = usecase.NewProductService(lookup, searcher, a.static, a.productCache, a.similarCache, logger)

	handler := httpDelivery.NewHandler(a.Search, a.Products, a.CacheStats, logger)
	a.Router = httpDelivery.SetupRouter(cfg, handler, logger)

	a.logger.Info("application ready",
		"sources", a.aggregator.SourceNames(),
		"vector_enabled", a.vector != nil,
		"store_driver", cfg.Store.Driver,
	)
	return a, nil
}

// Seed upserts the static catalog into the product store
func (a *App) Seed(ctx context.Context) (int, error) {
	products := a.static.Products()
	if err := a.store.Upsert(ctx, products); err != nil {
		return 0, fmt.Errorf("failed to seed product store: %w", err)
	}
	a.logger.Info("seeded product store", "products", len(products))
	return len(products), nil
}

// Reindex rebuilds the keyword and vector indexes from the product store
func (a *App) Reindex(ctx context.Context) (IndexStats, error) {
	products, err := a.store.All(ctx)
	if err != nil {
		return IndexStats{}, err
	}
	if err := a.textIndex.Index(ctx, products); err != nil {
		return IndexStats{}, err
	}
	stats := IndexStats{Stored: len(products), Keyword: a.textIndex.Count()}

	if a.vector != nil {
		if _, err := a.vector.IndexProducts(ctx, products); err != nil {
			return IndexStats{}, err
		}
		stats.Vectors = a.vector.Len()
	}

	a.logger.Info("indexes rebuilt",
		"stored", stats.Stored,
		"keyword", stats.Keyword,
		"vectors", stats.Vectors,
	)
	return stats, nil
}

// StartJanitors sweeps expired cache entries in the background until ctx is
// done or the app is closed
func (a *App) StartJanitors(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.stopJanitors = cancel
	interval := a.Config.Cache.CleanupInterval
	go a.searchCache.RunJanitor(ctx, interval)
	go a.productCache.RunJanitor(ctx, interval)
	go a.similarCache.RunJanitor(ctx, interval)
}

// CacheStats reports the three response caches
func (a *App) CacheStats() []cache.Stats {
	return []cache.Stats{
		a.searchCache.Stats(),
		a.productCache.Stats(),
		a.similarCache.Stats(),
	}
}

// Close stops background work and releases the pool, indexes and store
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.stopJanitors != nil {
		a.stopJanitors()
	}
	if a.aggregator != nil {
		a.aggregator.Release()
	}
	var errs []error
	if a.textIndex != nil {
		errs = append(errs, a.textIndex.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func (a *App) newCaches(cfg config.CacheConfig) {
	a.searchCache = cache.NewMemoryCache[*domain.SearchResponse](cache.Config{
		Name:            "search",
		MaxSize:         cfg.Search.MaxSize,
		TTL:             cfg.Search.TTL,
		CleanupInterval: cfg.CleanupInterval,
	})
	a.productCache = cache.NewMemoryCache[domain.Product](cache.Config{
		Name:            "product",
		MaxSize:         cfg.Product.MaxSize,
		TTL:             cfg.Product.TTL,
		CleanupInterval: cfg.CleanupInterval,
	})
	a.similarCache = cache.NewMemoryCache[[]domain.ScoredProduct](cache.Config{
		Name:            "similar",
		MaxSize:         cfg.Similar.MaxSize,
		TTL:             cfg.Similar.TTL,
		CleanupInterval: cfg.CleanupInterval,
	})
}

// sources builds the enabled adapters in configuration order
func (a *App) sources(cfg *config.Config) ([]domain.SourceAdapter, error) {
	debug := cfg.Server.Environment == "development"
	sources := make([]domain.SourceAdapter, 0, len(cfg.Sources.Enabled))
	for _, name := range cfg.Sources.Enabled {
		switch name {
		case config.SourceRetailerA:
			client := newRetailerClient(name, cfg.Sources.RetailerA, cfg.Sources, a.logger)
			client.SetDebug(debug)
			sources = append(sources, retailer.NewAdapter(name, client, retailer.RetailerAFormat{Retailer: "Retailer A"}, a.logger))
		case config.SourceRetailerB:
			client := newRetailerClient(name, cfg.Sources.RetailerB, cfg.Sources, a.logger)
			client.SetDebug(debug)
			sources = append(sources, retailer.NewAdapter(name, client, retailer.RetailerBFormat{Retailer: "Retailer B"}, a.logger))
		case config.SourceLocalIndex:
			sources = append(sources, a.textIndex)
		case config.SourceStaticCatalog:
			sources = append(sources, a.static)
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return sources, nil
}

func newRetailerClient(name string, rc config.RetailerConfig, sc config.SourcesConfig, logger *slog.Logger) *retailer.Client {
	return retailer.NewClient(retailer.ClientConfig{
		Name:          name,
		BaseURL:       rc.BaseURL,
		APIKey:        rc.APIKey,
		Timeout:       sc.Timeout,
		RatePerSecond: rc.RatePerSecond,
		Burst:         rc.Burst,
	}, logger)
}

func loadCatalog(path string) (*catalog.Static, error) {
	if path == "" {
		return catalog.NewDefault()
	}
	return catalog.LoadFile(path)
}

func newVectorBackend(cfg config.VectorConfig, logger *slog.Logger) (*vector.Backend, error) {
	var embedder vector.Embedder
	switch cfg.Embedder.Provider {
	case "openai":
		openai, err := vector.NewOpenAIEmbedder(vector.OpenAIConfig{
			Host:       cfg.Embedder.Host,
			Model:      cfg.Embedder.Model,
			Token:      cfg.Embedder.APIKey,
			Dimensions: cfg.Embedder.Dimensions,
		}, logger)
		if err != nil {
			return nil, err
		}
		embedder = openai
	default:
		embedder = vector.NewHashEmbedder(cfg.Embedder.Dimensions)
	}

	index, err := vector.NewIndex(vector.IndexConfig{Dimensions: embedder.Dimensions()})
	if err != nil {
		return nil, err
	}
	return vector.NewBackend(vector.NewCachedEmbedder(embedder, cfg.Embedder.CacheSize), index, logger)
}
