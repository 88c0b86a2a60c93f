package vector

import (
	"fmt"
	"strings"

	"github.com/dealscout/backend/internal/domain"
)

// Op is a predicate operator understood by the index
type Op string

const (
	OpRange    Op = "range"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

// Metadata field names stored alongside each vector
const (
	FieldTitle    = "title"
	FieldBrand    = "brand"
	FieldCategory = "category"
	FieldPrice    = "price"
	FieldRating   = "rating"
)

// Predicate is one condition on a metadata field. Range uses Value as the
// lower and Upper as the upper inclusive bound.
type Predicate struct {
	Field string
	Op    Op
	Value any
	Upper any
}

// Filter is a conjunction of predicates. The empty filter matches everything.
type Filter []Predicate

// TranslateFilters maps search filters onto index predicates: price bounds
// become one range (or a one-sided gte/lte), minRating a gte, category and
// brand case-insensitive contains.
func TranslateFilters(f domain.SearchFilters) Filter {
	var out Filter
	switch {
	case f.MinPrice != nil && f.MaxPrice != nil:
		out = append(out, Predicate{Field: FieldPrice, Op: OpRange, Value: *f.MinPrice, Upper: *f.MaxPrice})
	case f.MinPrice != nil:
		out = append(out, Predicate{Field: FieldPrice, Op: OpGte, Value: *f.MinPrice})
	case f.MaxPrice != nil:
		out = append(out, Predicate{Field: FieldPrice, Op: OpLte, Value: *f.MaxPrice})
	}
	if f.MinRating != nil {
		out = append(out, Predicate{Field: FieldRating, Op: OpGte, Value: *f.MinRating})
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		out = append(out, Predicate{Field: FieldCategory, Op: OpContains, Value: c})
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		out = append(out, Predicate{Field: FieldBrand, Op: OpContains, Value: b})
	}
	return out
}

// Matches reports whether every predicate holds for meta. A missing field
// fails the predicate.
func (f Filter) Matches(meta map[string]any) bool {
	for _, p := range f {
		if !p.matches(meta[p.Field]) {
			return false
		}
	}
	return true
}

func (p Predicate) matches(v any) bool {
	switch p.Op {
	case OpContains:
		s, ok := v.(string)
		want, _ := p.Value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(want))
	case OpGte, OpLte, OpRange:
		x, ok := toFloat(v)
		if !ok {
			return false
		}
		lo, _ := toFloat(p.Value)
		switch p.Op {
		case OpGte:
			return x >= lo
		case OpLte:
			return x <= lo
		}
		hi, _ := toFloat(p.Upper)
		return x >= lo && x <= hi
	}
	return false
}

// String renders the filter in a readable form for logs
func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, p := range f {
		if p.Op == OpRange {
			parts[i] = fmt.Sprintf("%s range [%v, %v]", p.Field, p.Value, p.Upper)
			continue
		}
		parts[i] = fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
	}
	return strings.Join(parts, " AND ")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
