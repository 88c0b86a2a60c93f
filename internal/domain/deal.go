package domain

// DealSignals carries the source-specific hints used by DealScore
type DealSignals struct {
	OnSale          bool
	DiscountPercent float64 // 0-100, derived from list vs sale price when known
}

// Signals derives the deal hints a product carries
func (p Product) Signals() DealSignals {
	return DealSignals{
		OnSale:          p.OnSale,
		DiscountPercent: DiscountPercent(p.ListPrice, p.Price),
	}
}

// Deal score components
const (
	dealBaseline        = 50.0
	dealSaleBonus       = 15.0
	dealMaxDiscount     = 15.0
	dealTopRatedBonus   = 10.0 // rating >= 4.5
	dealWellRatedBonus  = 5.0  // rating >= 4.0
	dealPopularBonus    = 10.0 // >= 1000 reviews
	dealReviewedBonus   = 5.0  // >= 100 reviews
	dealInStockBonus    = 5.0
	dealOutOfStockMalus = 10.0
	dealPreorderMalus   = 5.0
)

// DealScore computes the 0-100 value heuristic for a product
func DealScore(p Product, s DealSignals) float64 {
	score := dealBaseline

	if s.OnSale {
		score += dealSaleBonus
	}
	if s.DiscountPercent > 0 {
		score += dealMaxDiscount * min(s.DiscountPercent, 100) / 100
	}

	switch {
	case p.Rating >= 4.5:
		score += dealTopRatedBonus
	case p.Rating >= 4.0:
		score += dealWellRatedBonus
	}

	switch {
	case p.ReviewCount >= 1000:
		score += dealPopularBonus
	case p.ReviewCount >= 100:
		score += dealReviewedBonus
	}

	switch p.Availability {
	case AvailabilityInStock:
		score += dealInStockBonus
	case AvailabilityOutOfStock:
		score -= dealOutOfStockMalus
	case AvailabilityPreorder:
		score -= dealPreorderMalus
	}

	return Clamp(score, 0, 100)
}

// DiscountPercent returns how far sale is below list, in percent
func DiscountPercent(list, sale float64) float64 {
	if list <= 0 || sale <= 0 || sale >= list {
		return 0
	}
	return (list - sale) / list * 100
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
