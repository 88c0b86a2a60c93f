package domain

import "time"

// Availability describes the stock state reported by a source
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityLimited    Availability = "limited"
	AvailabilityPreorder   Availability = "preorder"
)

// IsValid reports whether a is one of the known availability states
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityInStock, AvailabilityOutOfStock, AvailabilityLimited, AvailabilityPreorder:
		return true
	}
	return false
}

// Product is a catalog record as produced by a single source.
// IDs are namespaced by source, e.g. "retailerA-6453201".
type Product struct {
	ID           string       `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Description  string       `json:"description,omitempty" yaml:"description"`
	Price        float64      `json:"price" yaml:"price"`
	Currency     string       `json:"currency" yaml:"currency"`
	ListPrice    float64      `json:"listPrice,omitempty" yaml:"list_price"` // pre-discount price when known
	OnSale       bool         `json:"onSale,omitempty" yaml:"on_sale"`
	Brand        string       `json:"brand,omitempty" yaml:"brand"`
	Category     string       `json:"category,omitempty" yaml:"category"`
	Rating       float64      `json:"rating" yaml:"rating"`           // 0-5
	ReviewCount  int          `json:"reviewCount" yaml:"review_count"`
	Availability Availability `json:"availability" yaml:"availability"`
	Retailer     string       `json:"retailer" yaml:"retailer"`
	URL          string       `json:"url,omitempty" yaml:"url"`
	ImageURL     string       `json:"imageUrl,omitempty" yaml:"image_url"`
	Features     []string     `json:"features,omitempty" yaml:"features"`
	CreatedAt    time.Time    `json:"createdAt,omitempty" yaml:"created_at"`
}

// ScoredProduct is a Product plus the engine-computed ranking signals.
// It only lives for the duration of a request (and in the response caches).
type ScoredProduct struct {
	Product
	Confidence float64 `json:"confidence"` // 0-1 source reliability
	DealScore  float64 `json:"dealScore"`  // 0-100 value heuristic
}

// Clone returns a deep copy so cached values never share slices with callers
func (p Product) Clone() Product {
	if p.Features != nil {
		p.Features = append([]string(nil), p.Features...)
	}
	return p
}

// CloneScored deep-copies a slice of scored products
func CloneScored(in []ScoredProduct) []ScoredProduct {
	if in == nil {
		return nil
	}
	out := make([]ScoredProduct, len(in))
	for i, sp := range in {
		out[i] = ScoredProduct{
			Product:    sp.Product.Clone(),
			Confidence: sp.Confidence,
			DealScore:  sp.DealScore,
		}
	}
	return out
}
