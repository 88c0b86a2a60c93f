package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dealscout/backend/config"
	"github.com/dealscout/backend/internal/app"
	"github.com/dealscout/backend/internal/domain"
	"github.com/dealscout/backend/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the dealscout CLI
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dealscout",
		Short: "Product deal search across retailers",
		Long: `DealScout aggregates product listings from retailer APIs, a local
keyword index and a static catalog, supplemented by semantic search.

Configuration is read from config.yaml and DEALSCOUT_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	return cmd
}

type searchOptions struct {
	page      int
	limit     int
	sort      string
	category  string
	brand     string
	minPrice  float64
	maxPrice  float64
	minRating float64
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search for products and print the response as JSON",
		Example: `  dealscout search "gaming laptop" --max-price 1500
  dealscout search headphones --brand sony --sort price_low --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &domain.SearchRequest{
				Query:  strings.Join(args, " "),
				Page:   opts.page,
				Limit:  opts.limit,
				SortBy: domain.SortOption(opts.sort),
				Filters: domain.SearchFilters{
					Category: opts.category,
					Brand:    opts.brand,
				},
			}
			flags := cmd.Flags()
			if flags.Changed("min-price") {
				req.Filters.MinPrice = domain.Float64(opts.minPrice)
			}
			if flags.Changed("max-price") {
				req.Filters.MaxPrice = domain.Float64(opts.maxPrice)
			}
			if flags.Changed("min-rating") {
				req.Filters.MinRating = domain.Float64(opts.minRating)
			}
			return runSearch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), req)
		},
	}

	cmd.Flags().IntVar(&opts.page, "page", 1, "Result page (1-based)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", domain.DefaultPageLimit, "Results per page")
	cmd.Flags().StringVarP(&opts.sort, "sort", "s", string(domain.SortRelevance), "Sort order: relevance, price_low, price_high, rating, newest")
	cmd.Flags().StringVar(&opts.category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&opts.brand, "brand", "", "Filter by brand")
	cmd.Flags().Float64Var(&opts.minPrice, "min-price", 0, "Minimum price")
	cmd.Flags().Float64Var(&opts.maxPrice, "max-price", 0, "Maximum price")
	cmd.Flags().Float64Var(&opts.minRating, "min-rating", 0, "Minimum rating (0-5)")
	return cmd
}

func runSearch(ctx context.Context, stdout, stderr io.Writer, req *domain.SearchRequest) error {
	a, err := openApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Search.Search(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Seed the product store from the static catalog and rebuild the indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runIndex(ctx context.Context, stdout, stderr io.Writer) error {
	a, err := openApp(ctx, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	seeded, err := a.Seed(ctx)
	if err != nil {
		return err
	}
	stats, err := a.Reindex(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Seeded %d catalog products\n", seeded)
	fmt.Fprintf(stdout, "Store: %d products\n", stats.Stored)
	fmt.Fprintf(stdout, "Keyword index: %d documents\n", stats.Keyword)
	fmt.Fprintf(stdout, "Vector index: %d vectors\n", stats.Vectors)
	return nil
}

// openApp builds the application with logs on stderr so stdout stays parseable
func openApp(ctx context.Context, stderr io.Writer) (*app.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	return app.New(ctx, cfg, logger)
}
