package usecase

import (
	"log/slog"
	"regexp"
	"strings"
)

// QueryPreprocessor strips shopping noise from a query before it is sent to
// the sources, e.g. "best cheap gaming laptop deals" becomes "gaming laptop".
// Ranking still uses the query as the user typed it.
type QueryPreprocessor struct {
	logger *slog.Logger
}

var (
	// Matches price phrases like "under $500", "below 200", "for $99.99"
	pricePhrasePattern = regexp.MustCompile(`\b(under|below|less than|for|around|about)\s*\$?\d+(\.\d+)?\b`)

	// Matches bare currency amounts like "$300"
	currencyPattern = regexp.MustCompile(`\$\d+(\.\d+)?`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// queryNoiseWords are words that describe intent rather than the product
var queryNoiseWords = map[string]bool{
	// Deal hunting
	"best":       true,
	"cheap":      true,
	"cheapest":   true,
	"affordable": true,
	"budget":     true,
	"deal":       true,
	"deals":      true,
	"discount":   true,
	"discounted": true,
	"sale":       true,
	"offer":      true,
	"offers":     true,
	"bargain":    true,
	"price":      true,
	"prices":     true,

	// Shopping verbs and fillers
	"buy":    true,
	"shop":   true,
	"online": true,
	"near":   true,
	"me":     true,
	"top":    true,
	"rated":  true,
	"good":   true,
	"a":      true,
	"an":     true,
	"the":    true,
}

// NewQueryPreprocessor creates a preprocessor; logger may be nil
func NewQueryPreprocessor(logger *slog.Logger) *QueryPreprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryPreprocessor{logger: logger.With("component", "preprocess")}
}

// Clean removes price phrases and noise words. If nothing meaningful is left
// the trimmed original is returned so sources still get a query.
func (p *QueryPreprocessor) Clean(query string) string {
	original := strings.TrimSpace(query)
	if original == "" {
		return ""
	}

	cleaned := strings.ToLower(original)
	cleaned = pricePhrasePattern.ReplaceAllString(cleaned, " ")
	cleaned = currencyPattern.ReplaceAllString(cleaned, " ")

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		w := strings.Trim(word, ",.!?;:'\"")
		if w == "" || queryNoiseWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	cleaned = multiSpacePattern.ReplaceAllString(strings.Join(kept, " "), " ")

	if cleaned == "" {
		cleaned = original
	}
	if cleaned != original {
		p.logger.Debug("preprocessed query", "input", original, "output", cleaned)
	}
	return cleaned
}
