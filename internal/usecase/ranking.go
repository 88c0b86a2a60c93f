package usecase

import (
	"cmp"
	"slices"
	"strings"

	"github.com/dealscout/backend/internal/domain"
)

// Relevance weights
const (
	exactTitleWeight     = 100.0
	substringTitleWeight = 50.0
	brandMatchWeight     = 30.0
	descriptionWeight    = 20.0
	featureMatchWeight   = 10.0
	titleTokenWeight     = 5.0
	confidenceWeight     = 10.0
	dealScoreWeight      = 0.5
	ratingWeight         = 10.0
	inStockBonus         = 5.0
)

// FilterProducts keeps the products that satisfy every filter
func FilterProducts(products []domain.ScoredProduct, filters domain.SearchFilters) []domain.ScoredProduct {
	out := make([]domain.ScoredProduct, 0, len(products))
	for _, p := range products {
		if filters.Matches(p.Product) {
			out = append(out, p)
		}
	}
	return out
}

// Deduplicate collapses products sharing a dedup key. The survivor is the one
// with higher confidence, then higher deal score, and it takes the position of
// the key's first occurrence.
func Deduplicate(products []domain.ScoredProduct) []domain.ScoredProduct {
	out := make([]domain.ScoredProduct, 0, len(products))
	pos := make(map[string]int, len(products))
	for _, p := range products {
		key := domain.DedupKey(p.Product)
		i, seen := pos[key]
		if !seen {
			pos[key] = len(out)
			out = append(out, p)
			continue
		}
		if better(p, out[i]) {
			out[i] = p
		}
	}
	return out
}

func better(a, b domain.ScoredProduct) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.DealScore > b.DealScore
}

// RelevanceScore weighs how well p answers query. Title, brand, description
// and feature checks compare normalized text.
func RelevanceScore(p domain.ScoredProduct, query string) float64 {
	q := domain.NormalizeText(query)
	title := domain.NormalizeText(p.Title)

	var score float64
	if q != "" {
		switch {
		case title == q:
			score += exactTitleWeight
		case strings.Contains(title, q):
			score += substringTitleWeight
		}
		if brand := domain.NormalizeText(p.Brand); brand != "" && strings.Contains(" "+q+" ", " "+brand+" ") {
			score += brandMatchWeight
		}
		if strings.Contains(domain.NormalizeText(p.Description), q) {
			score += descriptionWeight
		}
		for _, f := range p.Features {
			if strings.Contains(domain.NormalizeText(f), q) {
				score += featureMatchWeight
				break
			}
		}
		titleWords := make(map[string]bool)
		for _, w := range domain.Tokens(p.Title) {
			titleWords[w] = true
		}
		for _, tok := range domain.Tokens(query) {
			if titleWords[tok] {
				score += titleTokenWeight
			}
		}
	}

	score += p.Confidence * confidenceWeight
	score += p.DealScore * dealScoreWeight
	score += p.Rating * ratingWeight
	if p.Availability == domain.AvailabilityInStock {
		score += inStockBonus
	}
	return score
}

// SortProducts orders products in place for sortBy. Every mode is stable and
// newest keeps insertion order.
func SortProducts(products []domain.ScoredProduct, sortBy domain.SortOption, query string) {
	switch sortBy {
	case domain.SortPriceLow:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(a.Price, b.Price)
		})
	case domain.SortPriceHigh:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(b.Price, a.Price)
		})
	case domain.SortRating:
		slices.SortStableFunc(products, func(a, b domain.ScoredProduct) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	case domain.SortNewest:
	default:
		type scored struct {
			product domain.ScoredProduct
			score   float64
		}
		tmp := make([]scored, len(products))
		for i, p := range products {
			tmp[i] = scored{product: p, score: RelevanceScore(p, query)}
		}
		slices.SortStableFunc(tmp, func(a, b scored) int {
			return cmp.Compare(b.score, a.score)
		})
		for i := range tmp {
			products[i] = tmp[i].product
		}
	}
}

// Paginate slices out one page of products
func Paginate(products []domain.ScoredProduct, page, limit int) ([]domain.ScoredProduct, domain.Pagination) {
	pg := domain.NewPagination(page, limit, len(products))
	offset := (pg.Page - 1) * pg.Limit
	if offset >= len(products) {
		return []domain.ScoredProduct{}, pg
	}
	end := min(offset+pg.Limit, len(products))
	return products[offset:end], pg
}

// rankProducts runs filter, dedup and sort over a merged candidate set
func rankProducts(products []domain.ScoredProduct, req *domain.SearchRequest) []domain.ScoredProduct {
	ranked := Deduplicate(FilterProducts(products, req.Filters))
	SortProducts(ranked, req.SortBy, req.Query)
	return ranked
}
