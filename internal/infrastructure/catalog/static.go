package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dealscout/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// SourceName is the configuration name of the static catalog adapter
const SourceName = "static_catalog"

// StaticConfidence is lower than live sources: prices here may be stale
const StaticConfidence = 0.6

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []catalogEntry `yaml:"products"`
}

type catalogEntry struct {
	domain.Product `yaml:",inline"`
}

// Static is an in-memory product catalog. It never fails, which makes it the
// last tier of the search fallback chain, and it doubles as a ProductLookup.
type Static struct {
	products []domain.ScoredProduct
	index    map[string]int
}

// NewDefault loads the catalog embedded in the binary
func NewDefault() (*Static, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile loads a catalog from a YAML file
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a YAML catalog
func Load(r io.Reader) (*Static, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return newStatic(file.Products)
}

// newStatic builds a catalog from entries, validating ids and availability
func newStatic(entries []catalogEntry) (*Static, error) {
	s := &Static{
		products: make([]domain.ScoredProduct, 0, len(entries)),
		index:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		p := e.Product
		if p.ID == "" || p.Title == "" {
			return nil, fmt.Errorf("catalog entry missing id or title: %+v", p)
		}
		if _, dup := s.index[p.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", p.ID)
		}
		if p.Availability == "" {
			p.Availability = domain.AvailabilityInStock
		}
		if !p.Availability.IsValid() {
			return nil, fmt.Errorf("catalog entry %q: unknown availability %q", p.ID, p.Availability)
		}
		if p.Currency == "" {
			p.Currency = "USD"
		}

		s.index[p.ID] = len(s.products)
		s.products = append(s.products, domain.ScoredProduct{
			Product:    p,
			Confidence: StaticConfidence,
			DealScore:  domain.DealScore(p, p.Signals()),
		})
	}
	return s, nil
}

// FromProducts wraps already-built products, e.g. for tests
func FromProducts(products []domain.Product) (*Static, error) {
	entries := make([]catalogEntry, len(products))
	for i, p := range products {
		entries[i] = catalogEntry{Product: p}
	}
	return newStatic(entries)
}

// Name returns the source name
func (s *Static) Name() string {
	return SourceName
}

// Search returns catalog products matching every query token. When no product
// matches all tokens it relaxes to any-token matches.
func (s *Static) Search(ctx context.Context, query string, cons domain.SearchConstraints) ([]domain.ScoredProduct, error) {
	tokens := domain.Tokens(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var all, partial []domain.ScoredProduct
	for _, sp := range s.products {
		if !cons.Matches(sp.Product) {
			continue
		}
		matched := countMatches(searchText(sp.Product), tokens)
		switch {
		case matched == len(tokens):
			all = append(all, sp)
		case matched > 0:
			partial = append(partial, sp)
		}
	}

	if len(all) > 0 {
		return domain.CloneScored(all), nil
	}
	return domain.CloneScored(partial), nil
}

// GetByIDs resolves ids in request order, skipping unknown ids
func (s *Static) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			out = append(out, s.products[i].Product.Clone())
		}
	}
	return out, nil
}

// ByCategory returns catalog products whose category contains category
func (s *Static) ByCategory(category string) []domain.ScoredProduct {
	var out []domain.ScoredProduct
	filter := domain.SearchFilters{Category: category}
	for _, sp := range s.products {
		if filter.Matches(sp.Product) {
			out = append(out, sp)
		}
	}
	return domain.CloneScored(out)
}

// Products returns a copy of every catalog product
func (s *Static) Products() []domain.Product {
	out := make([]domain.Product, len(s.products))
	for i, sp := range s.products {
		out[i] = sp.Product.Clone()
	}
	return out
}

// Len returns the number of catalog products
func (s *Static) Len() int {
	return len(s.products)
}

func searchText(p domain.Product) string {
	parts := []string{p.Title, p.Brand, p.Category, p.Description}
	parts = append(parts, p.Features...)
	return " " + domain.NormalizeText(strings.Join(parts, " ")) + " "
}

// countMatches counts tokens present in text. A token also matches its plural
// form so "laptop" finds "Laptops".
func countMatches(text string, tokens []string) int {
	n := 0
	for _, tok := range tokens {
		if strings.Contains(text, " "+tok+" ") || strings.Contains(text, " "+tok+"s ") {
			n++
		}
	}
	return n
}
