package retailer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dealscout/backend/internal/domain"
)

// ID prefixes namespace product ids by source
const (
	RetailerAPrefix = "retailerA-"
	RetailerBPrefix = "retailerB-"
	defaultCurrency = "USD"
)

// RetailerAFormat decodes the SKU-oriented catalog API used by retailer A
type RetailerAFormat struct {
	Retailer string
}

type retailerAResponse struct {
	Products []retailerAProduct `json:"products"`
	Total    int                `json:"total"`
}

type retailerAProduct struct {
	SKU                   int64   `json:"sku"`
	Name                  string  `json:"name"`
	ShortDescription      string  `json:"shortDescription"`
	RegularPrice          float64 `json:"regularPrice"`
	SalePrice             float64 `json:"salePrice"`
	OnSale                bool    `json:"onSale"`
	Manufacturer          string  `json:"manufacturer"`
	CategoryPath          []struct {
		Name string `json:"name"`
	} `json:"categoryPath"`
	CustomerReviewAverage float64 `json:"customerReviewAverage"`
	CustomerReviewCount   int     `json:"customerReviewCount"`
	OnlineAvailability    bool    `json:"onlineAvailability"`
	Orderable             string  `json:"orderable"`
	URL                   string  `json:"url"`
	Image                 string  `json:"image"`
	Features              []struct {
		Feature string `json:"feature"`
	} `json:"features"`
	StartDate string `json:"startDate"`
}

// Decode converts a retailer A response, skipping malformed items
func (f RetailerAFormat) Decode(body []byte) ([]domain.ScoredProduct, error) {
	var resp retailerAResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	products := make([]domain.ScoredProduct, 0, len(resp.Products))
	for _, item := range resp.Products {
		price := item.SalePrice
		if price <= 0 {
			price = item.RegularPrice
		}
		if item.SKU == 0 || strings.TrimSpace(item.Name) == "" || price <= 0 {
			continue
		}

		product := domain.Product{
			ID:           RetailerAPrefix + strconv.FormatInt(item.SKU, 10),
			Title:        strings.TrimSpace(item.Name),
			Description:  item.ShortDescription,
			Price:        price,
			Currency:     defaultCurrency,
			ListPrice:    item.RegularPrice,
			OnSale:       item.OnSale,
			Brand:        item.Manufacturer,
			Rating:       domain.Clamp(item.CustomerReviewAverage, 0, 5),
			ReviewCount:  item.CustomerReviewCount,
			Availability: retailerAAvailability(item.Orderable, item.OnlineAvailability),
			Retailer:     f.Retailer,
			URL:          item.URL,
			ImageURL:     item.Image,
		}
		if n := len(item.CategoryPath); n > 0 {
			product.Category = item.CategoryPath[n-1].Name
		}
		for _, feat := range item.Features {
			if feat.Feature != "" {
				product.Features = append(product.Features, feat.Feature)
			}
		}
		if t, err := time.Parse("2006-01-02", item.StartDate); err == nil {
			product.CreatedAt = t
		}

		products = append(products, domain.ScoredProduct{
			Product:    product,
			Confidence: RetailerConfidence,
			DealScore:  domain.DealScore(product, product.Signals()),
		})
	}
	return products, nil
}

func retailerAAvailability(orderable string, online bool) domain.Availability {
	switch strings.ToLower(orderable) {
	case "available":
		return domain.AvailabilityInStock
	case "preorder", "comingsoon":
		return domain.AvailabilityPreorder
	case "limited":
		return domain.AvailabilityLimited
	case "soldout":
		return domain.AvailabilityOutOfStock
	}
	if online {
		return domain.AvailabilityInStock
	}
	return domain.AvailabilityOutOfStock
}

// RetailerBFormat decodes the item-oriented marketplace API used by retailer B
type RetailerBFormat struct {
	Retailer string
}

type retailerBResponse struct {
	Items        []retailerBItem `json:"items"`
	TotalResults int             `json:"totalResults"`
}

type retailerBItem struct {
	ItemID           int64   `json:"itemId"`
	Name             string  `json:"name"`
	ShortDescription string  `json:"shortDescription"`
	SalePrice        float64 `json:"salePrice"`
	MSRP             float64 `json:"msrp"`
	BrandName        string  `json:"brandName"`
	CategoryPath     string  `json:"categoryPath"`
	CustomerRating   string  `json:"customerRating"`
	NumReviews       int     `json:"numReviews"`
	Stock            string  `json:"stock"`
	ProductURL       string  `json:"productUrl"`
	LargeImage       string  `json:"largeImage"`
	Rollback         bool    `json:"rollback"`
	Clearance        bool    `json:"clearance"`
	SpecialBuy       bool    `json:"specialBuy"`
}

// Decode converts a retailer B response, skipping malformed items
func (f RetailerBFormat) Decode(body []byte) ([]domain.ScoredProduct, error) {
	var resp retailerBResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	products := make([]domain.ScoredProduct, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ItemID == 0 || strings.TrimSpace(item.Name) == "" || item.SalePrice <= 0 {
			continue
		}

		rating, _ := strconv.ParseFloat(item.CustomerRating, 64)
		product := domain.Product{
			ID:           RetailerBPrefix + strconv.FormatInt(item.ItemID, 10),
			Title:        strings.TrimSpace(item.Name),
			Description:  item.ShortDescription,
			Price:        item.SalePrice,
			Currency:     defaultCurrency,
			ListPrice:    item.MSRP,
			OnSale:       item.Rollback || item.Clearance || item.SpecialBuy,
			Brand:        item.BrandName,
			Category:     lastPathSegment(item.CategoryPath),
			Rating:       domain.Clamp(rating, 0, 5),
			ReviewCount:  item.NumReviews,
			Availability: retailerBAvailability(item.Stock),
			Retailer:     f.Retailer,
			URL:          item.ProductURL,
			ImageURL:     item.LargeImage,
		}

		products = append(products, domain.ScoredProduct{
			Product:    product,
			Confidence: RetailerConfidence,
			DealScore:  domain.DealScore(product, product.Signals()),
		})
	}
	return products, nil
}

func retailerBAvailability(stock string) domain.Availability {
	switch strings.ToLower(strings.TrimSpace(stock)) {
	case "available":
		return domain.AvailabilityInStock
	case "limited supply", "limited":
		return domain.AvailabilityLimited
	case "pre-order", "preorder":
		return domain.AvailabilityPreorder
	default:
		return domain.AvailabilityOutOfStock
	}
}

func lastPathSegment(path string) string {
	parts := strings.Split(path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(parts[i]); s != "" {
			return s
		}
	}
	return ""
}
