package fuzzy

import (
	fuzzywuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/iho/gorecon/internal/domain"
)

// Text metric weights. Edit-distance ratio reacts to typos, the token
// ratios to word reordering and truncation.
const (
	editWeight      = 0.4
	tokenSetWeight  = 0.3
	tokenSortWeight = 0.3
)

// Confidence blend weights. Text carries the most signal; amount and
// date closeness pull near-misses over or under the thresholds.
const (
	textWeight   = 0.5
	amountWeight = 0.3
	dateWeight   = 0.2
)

// TextSimilarity scores two normalized descriptions in [0,1] as the
// weighted blend of edit-distance ratio, token-set ratio, and token-sort
// ratio.
func TextSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}

	if a == "" || b == "" {
		return 0.0
	}

	edit := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	tokenSet := float64(fuzzywuzzy.TokenSetRatio(a, b)) / 100
	tokenSort := float64(fuzzywuzzy.TokenSortRatio(a, b)) / 100

	return editWeight*edit + tokenSetWeight*tokenSet + tokenSortWeight*tokenSort
}

// Score is the composite confidence for a candidate pair: text similarity
// blended with amount closeness and date closeness, all in [0,1]. It is a
// pure function of its inputs; dateWindowDays bounds how far apart two
// dates can be before date closeness reaches zero.
func Score(a, b *domain.Record, dateWindowDays int) float64 {
	text := TextSimilarity(a.Description, b.Description)

	return textWeight*text + amountWeight*amountCloseness(a, b) + dateWeight*dateCloseness(a, b, dateWindowDays)
}

func amountCloseness(a, b *domain.Record) float64 {
	larger := decimalMax(a.Amount.Abs(), b.Amount.Abs())
	if larger.IsZero() {
		return 1.0
	}

	diff, _ := a.Amount.Sub(b.Amount).Abs().Div(larger).Float64()
	if diff > 1 {
		return 0.0
	}

	return 1 - diff
}

func decimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}

	return b
}

func dateCloseness(a, b *domain.Record, windowDays int) float64 {
	if windowDays <= 0 {
		windowDays = 1
	}

	days := domain.DayDelta(a, b)
	if days >= windowDays {
		return 0.0
	}

	return 1 - float64(days)/float64(windowDays)
}
