package usecase

import "time"

// Cache is the slice of the cache layer the services depend on
type Cache[V any] interface {
	Get(key any) (V, bool)
	Set(key any, value V, ttl time.Duration) error
}

// searchCacheKey identifies a normalized search request
type searchCacheKey struct {
	Query     string   `json:"q"`
	Category  string   `json:"category"`
	Brand     string   `json:"brand"`
	MinPrice  *float64 `json:"minPrice"`
	MaxPrice  *float64 `json:"maxPrice"`
	MinRating *float64 `json:"minRating"`
	SortBy    string   `json:"sortBy"`
	Page      int      `json:"page"`
	Limit     int      `json:"limit"`
}

type similarCacheKey struct {
	ID    string `json:"id"`
	Limit int    `json:"limit"`
}
