package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dealscout/backend/internal/domain"
	"github.com/panjf2000/ants/v2"
)

// AggregatorConfig bounds the source fan-out
type AggregatorConfig struct {
	Timeout  time.Duration // per-adapter deadline
	PoolSize int
}

// Aggregator fans a query out to every enabled source on a shared worker pool
// and merges what comes back in configuration order
type Aggregator struct {
	sources []domain.SourceAdapter
	pool    *ants.Pool
	timeout time.Duration
	logger  *slog.Logger
}

type sourceResult struct {
	products []domain.ScoredProduct
	err      error
}

// NewAggregator creates the worker pool. Call Release when done.
func NewAggregator(sources []domain.SourceAdapter, cfg AggregatorConfig, logger *slog.Logger) (*Aggregator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 8
	}
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create source pool: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sources: sources,
		pool:    pool,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "aggregator"),
	}, nil
}

// Release stops the worker pool
func (a *Aggregator) Release() {
	a.pool.Release()
}

// SourceNames lists the enabled sources in merge order
func (a *Aggregator) SourceNames() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Collect queries all sources concurrently and waits for every one to settle.
// A failing, panicking or slow source contributes nothing. The error is
// ErrAllSourcesFailed only when no source succeeded.
func (a *Aggregator) Collect(ctx context.Context, query string, cons domain.SearchConstraints) ([]domain.ScoredProduct, error) {
	if len(a.sources) == 0 {
		return nil, fmt.Errorf("%w: no sources enabled", domain.ErrAllSourcesFailed)
	}

	results := make([]sourceResult, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = a.query(ctx, src, query, cons)
		}
		if err := a.pool.Submit(task); err != nil {
			wg.Done()
			results[i] = sourceResult{err: fmt.Errorf("submit: %w", err)}
		}
	}
	wg.Wait()

	var merged []domain.ScoredProduct
	succeeded := 0
	for i, r := range results {
		name := a.sources[i].Name()
		if r.err != nil {
			a.logger.Warn("source failed", "source", name, "err", r.err)
			continue
		}
		succeeded++
		a.logger.Debug("source returned", "source", name, "count", len(r.products))
		merged = append(merged, r.products...)
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %d sources", domain.ErrAllSourcesFailed, len(a.sources))
	}
	return merged, nil
}

// query runs one adapter under its own deadline and converts panics to
// errors. An adapter that ignores ctx is abandoned when the deadline passes.
func (a *Aggregator) query(ctx context.Context, src domain.SourceAdapter, query string, cons domain.SearchConstraints) sourceResult {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan sourceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sourceResult{err: fmt.Errorf("%w: %s panicked: %v", domain.ErrSourceFailure, src.Name(), r)}
			}
		}()
		products, err := src.Search(ctx, query, cons)
		done <- sourceResult{products: products, err: err}
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		return sourceResult{err: fmt.Errorf("%w: %s: %v", domain.ErrSourceFailure, src.Name(), ctx.Err())}
	}
}
