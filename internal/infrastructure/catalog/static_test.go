package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dealscout/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefault(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	assert.Greater(t, s.Len(), 20)
	assert.Equal(t, SourceName, s.Name())
	for _, p := range s.Products() {
		assert.True(t, strings.HasPrefix(p.ID, "static-"), p.ID)
		assert.True(t, p.Availability.IsValid(), p.ID)
		assert.Greater(t, p.Price, 0.0, p.ID)
	}
}

func TestStatic_SearchLaptop(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "laptop", domain.SearchConstraints{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.Equal(t, "Laptops", r.Category, r.Title)
		assert.Equal(t, StaticConfidence, r.Confidence)
		assert.GreaterOrEqual(t, r.DealScore, 0.0)
		assert.LessOrEqual(t, r.DealScore, 100.0)
	}
}

func TestStatic_SearchAppliesConstraints(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "laptop", domain.SearchConstraints{
		MinPrice: domain.Float64(500),
		MaxPrice: domain.Float64(1000),
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Price, 500.0)
		assert.LessOrEqual(t, r.Price, 1000.0)
	}
}

func TestStatic_SearchRelaxesToAnyToken(t *testing.T) {
	s, err := FromProducts([]domain.Product{
		{ID: "a", Title: "Wireless Mouse", Price: 20},
		{ID: "b", Title: "Mechanical Keyboard", Price: 80},
	})
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "wireless keyboard", domain.SearchConstraints{})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.Search(context.Background(), "mechanical keyboard", domain.SearchConstraints{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestStatic_SearchEmptyQuery(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	results, err := s.Search(context.Background(), "  ?! ", domain.SearchConstraints{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStatic_SearchReturnsCopies(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	first, _ := s.Search(context.Background(), "laptop", domain.SearchConstraints{})
	first[0].Title = "mutated"
	first[0].Features = append(first[0].Features[:0], "mutated")

	second, _ := s.Search(context.Background(), "laptop", domain.SearchConstraints{})
	assert.NotEqual(t, "mutated", second[0].Title)
	assert.NotContains(t, second[0].Features, "mutated")
}

func TestStatic_GetByIDs(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	products, err := s.GetByIDs(context.Background(), []string{"static-2001", "missing", "static-1002"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "static-2001", products[0].ID)
	assert.Equal(t, "static-1002", products[1].ID)
}

func TestStatic_ByCategory(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	tvs := s.ByCategory("tv")
	require.NotEmpty(t, tvs)
	for _, p := range tvs {
		assert.Equal(t, "TVs", p.Category)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "products:\n  - title: X\n    price: 1\n"},
		{"duplicate id", "products:\n  - id: a\n    title: X\n  - id: a\n    title: Y\n"},
		{"bad availability", "products:\n  - id: a\n    title: X\n    availability: sometimes\n"},
		{"not yaml", "products: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := "products:\n  - id: custom-1\n    title: Custom Gadget\n    price: 10\n    list_price: 20\n    on_sale: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	p := s.Products()[0]
	assert.Equal(t, domain.AvailabilityInStock, p.Availability)
	assert.Equal(t, "USD", p.Currency)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
