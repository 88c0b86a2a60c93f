package retailer

import (
	"testing"
	"time"

	"github.com/dealscout/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetailerAFormat_Decode(t *testing.T) {
	body := []byte(`{
		"total": 3,
		"products": [
			{
				"sku": 6453201,
				"name": " Dell XPS 13 Laptop ",
				"shortDescription": "13.4-inch FHD+",
				"regularPrice": 1199.99,
				"salePrice": 999.99,
				"onSale": true,
				"manufacturer": "Dell",
				"categoryPath": [{"name": "Computers"}, {"name": "Laptops"}],
				"customerReviewAverage": 4.6,
				"customerReviewCount": 1320,
				"orderable": "Available",
				"url": "https://retailer-a.example/6453201",
				"image": "https://img.example/6453201.jpg",
				"features": [{"feature": "16GB RAM"}, {"feature": ""}],
				"startDate": "2025-03-14"
			},
			{"sku": 0, "name": "missing sku", "salePrice": 10},
			{"sku": 7, "name": "free item", "salePrice": 0, "regularPrice": 0}
		]
	}`)

	products, err := RetailerAFormat{Retailer: "Retailer A"}.Decode(body)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "retailerA-6453201", p.ID)
	assert.Equal(t, "Dell XPS 13 Laptop", p.Title)
	assert.Equal(t, 999.99, p.Price)
	assert.Equal(t, "Laptops", p.Category)
	assert.Equal(t, "Dell", p.Brand)
	assert.Equal(t, domain.AvailabilityInStock, p.Availability)
	assert.Equal(t, []string{"16GB RAM"}, p.Features)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), p.CreatedAt)
	assert.Equal(t, "Retailer A", p.Retailer)
	assert.Equal(t, RetailerConfidence, p.Confidence)
	assert.Greater(t, p.DealScore, 80.0)
	assert.LessOrEqual(t, p.DealScore, 100.0)
}

func TestRetailerAFormat_Availability(t *testing.T) {
	tests := []struct {
		orderable string
		online    bool
		want      domain.Availability
	}{
		{"Available", false, domain.AvailabilityInStock},
		{"PreOrder", false, domain.AvailabilityPreorder},
		{"SoldOut", true, domain.AvailabilityOutOfStock},
		{"", true, domain.AvailabilityInStock},
		{"", false, domain.AvailabilityOutOfStock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, retailerAAvailability(tt.orderable, tt.online), "orderable=%q online=%v", tt.orderable, tt.online)
	}
}

func TestRetailerAFormat_DecodeError(t *testing.T) {
	_, err := RetailerAFormat{}.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestRetailerBFormat_Decode(t *testing.T) {
	body := []byte(`{
		"totalResults": 2,
		"items": [
			{
				"itemId": 44012,
				"name": "HP 15.6\" Laptop",
				"salePrice": 429.00,
				"msrp": 529.00,
				"brandName": "HP",
				"categoryPath": "Electronics/Computers/Laptops/",
				"customerRating": "4.1",
				"numReviews": 87,
				"stock": "Limited Supply",
				"productUrl": "https://retailer-b.example/ip/44012",
				"rollback": true
			},
			{"itemId": 9, "name": "", "salePrice": 5}
		]
	}`)

	products, err := RetailerBFormat{Retailer: "Retailer B"}.Decode(body)
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "retailerB-44012", p.ID)
	assert.Equal(t, "Laptops", p.Category)
	assert.InDelta(t, 4.1, p.Rating, 0.0001)
	assert.Equal(t, domain.AvailabilityLimited, p.Availability)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, 529.00, p.ListPrice)
	assert.True(t, p.OnSale)
	// baseline 50 + sale 15 + discount ~2.8 + rating 5
	assert.InDelta(t, 72.83, p.DealScore, 0.01)
}

func TestRetailerBAvailability(t *testing.T) {
	assert.Equal(t, domain.AvailabilityInStock, retailerBAvailability("Available"))
	assert.Equal(t, domain.AvailabilityPreorder, retailerBAvailability("Pre-order"))
	assert.Equal(t, domain.AvailabilityOutOfStock, retailerBAvailability("Not available"))
}

func TestLastPathSegment(t *testing.T) {
	assert.Equal(t, "Laptops", lastPathSegment("Electronics/Computers/Laptops"))
	assert.Equal(t, "TVs", lastPathSegment("Electronics/TVs/"))
	assert.Equal(t, "", lastPathSegment(""))
}
