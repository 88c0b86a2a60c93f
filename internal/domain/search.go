package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// SortOption selects the ordering of search results
type SortOption string

const (
	SortRelevance SortOption = "relevance"
	SortPriceLow  SortOption = "price_low"
	SortPriceHigh SortOption = "price_high"
	SortRating    SortOption = "rating"
	SortNewest    SortOption = "newest"
)

// IsValid reports whether s is a supported sort option
func (s SortOption) IsValid() bool {
	switch s {
	case SortRelevance, SortPriceLow, SortPriceHigh, SortRating, SortNewest:
		return true
	}
	return false
}

// Pagination bounds
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxQueryLength   = 500
)

// SearchFilters are optional result constraints. Numeric bounds are pointers
// so that zero is a usable value.
type SearchFilters struct {
	Category  string   `json:"category,omitempty"`
	Brand     string   `json:"brand,omitempty"`
	MinPrice  *float64 `json:"minPrice,omitempty"`
	MaxPrice  *float64 `json:"maxPrice,omitempty"`
	MinRating *float64 `json:"minRating,omitempty"`
}

// SearchRequest represents a product search request
type SearchRequest struct {
	Query   string        `json:"query" binding:"required"`
	Filters SearchFilters `json:"filters"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	SortBy  SortOption    `json:"sortBy"`
}

// Normalize applies server-side defaults and clamps in place.
// limit: 0 -> DefaultPageLimit, otherwise clamped to [1, MaxPageLimit].
func (r *SearchRequest) Normalize() {
	r.Query = strings.Join(strings.Fields(r.Query), " ")
	r.Filters.Category = strings.TrimSpace(r.Filters.Category)
	r.Filters.Brand = strings.TrimSpace(r.Filters.Brand)

	if r.Page < 1 {
		r.Page = 1
	}
	switch {
	case r.Limit == 0:
		r.Limit = DefaultPageLimit
	case r.Limit < 1:
		r.Limit = 1
	case r.Limit > MaxPageLimit:
		r.Limit = MaxPageLimit
	}
	if r.SortBy == "" {
		r.SortBy = SortRelevance
	}
}

// Validate checks a normalized request. Errors wrap ErrInvalidRequest.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if len(r.Query) > MaxQueryLength {
		return fmt.Errorf("%w: query exceeds %d characters", ErrInvalidRequest, MaxQueryLength)
	}
	if !r.SortBy.IsValid() {
		return fmt.Errorf("%w: unsupported sortBy %q", ErrInvalidRequest, r.SortBy)
	}

	f := r.Filters
	if !finite(f.MinPrice) || !finite(f.MaxPrice) || !finite(f.MinRating) {
		return fmt.Errorf("%w: filter bounds must be finite numbers", ErrInvalidRequest)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return fmt.Errorf("%w: minPrice must be non-negative", ErrInvalidRequest)
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return fmt.Errorf("%w: maxPrice must be non-negative", ErrInvalidRequest)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("%w: minPrice is greater than maxPrice", ErrInvalidRequest)
	}
	if f.MinRating != nil && (*f.MinRating < 0 || *f.MinRating > 5) {
		return fmt.Errorf("%w: minRating must be between 0 and 5", ErrInvalidRequest)
	}
	return nil
}

func finite(v *float64) bool {
	return v == nil || !(math.IsNaN(*v) || math.IsInf(*v, 0))
}

// Constraints returns the subset of filters forwarded to source adapters
func (r *SearchRequest) Constraints() SearchConstraints {
	return SearchConstraints{
		Category: r.Filters.Category,
		Brand:    r.Filters.Brand,
		MinPrice: r.Filters.MinPrice,
		MaxPrice: r.Filters.MaxPrice,
	}
}

// SearchConstraints are the hints a SourceAdapter may push down to its backend
type SearchConstraints struct {
	Category string
	Brand    string
	MinPrice *float64
	MaxPrice *float64
}

// Pagination describes where a page sits in the full result set
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPagination computes page metadata for total results
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// SearchResponse is the result of a search request.
// Degraded is set when results came from the static fallback catalog.
type SearchResponse struct {
	Success    bool            `json:"success"`
	Query      string          `json:"query,omitempty"`
	Products   []ScoredProduct `json:"products"`
	Pagination Pagination      `json:"pagination"`
	Degraded   bool            `json:"degraded"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Clone deep-copies the response
func (r *SearchResponse) Clone() *SearchResponse {
	out := *r
	out.Products = CloneScored(r.Products)
	return &out
}

// VectorHit is a nearest-neighbour match returned by the vector backend
type VectorHit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Float64 returns a pointer to v, for optional filter bounds
func Float64(v float64) *float64 {
	return &v
}

// Matches reports whether p satisfies every set filter. Category and brand are
// case-insensitive substring matches; price bounds are inclusive.
func (f SearchFilters) Matches(p Product) bool {
	if !containsFold(p.Category, f.Category) || !containsFold(p.Brand, f.Brand) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.MinRating != nil && p.Rating < *f.MinRating {
		return false
	}
	return true
}

// Matches applies the pushed-down constraints the same way SearchFilters does
func (c SearchConstraints) Matches(p Product) bool {
	return SearchFilters{
		Category: c.Category,
		Brand:    c.Brand,
		MinPrice: c.MinPrice,
		MaxPrice: c.MaxPrice,
	}.Matches(p)
}

func containsFold(value, want string) bool {
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(want))
}
