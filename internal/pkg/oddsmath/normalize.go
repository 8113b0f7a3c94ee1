// Package oddsmath turns displayed decimal prices into calibrated probabilities.
package oddsmath

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
)

var (
	// ErrInvalidMarketShape is returned when the labels and prices of a market cannot be
	// grouped for the requested mode (odd length in paired mode, mismatched or empty lists).
	ErrInvalidMarketShape = errors.New("invalid market shape")
	// ErrInvalidPrice is returned for prices that are not decimal odds above 1.0.
	ErrInvalidPrice = errors.New("invalid price")
)

// Outcome is one label with its calibrated probability.
type Outcome struct {
	Label       string
	Probability float64
}

// Normalize removes the margin from a market.
//
// Joint mode divides every implied probability (1/price) by the sum across the whole market.
// Paired mode treats each consecutive pair as the two sides of one line and normalises
// the pairs independently.
//
// The result keeps input order. A label repeated later in the list replaces the earlier one.
func Normalize(labels []string, prices []float64, mode enums.ProbMode) ([]Outcome, error) {
	if len(labels) == 0 || len(labels) != len(prices) {
		return nil, fmt.Errorf("%w: %d labels, %d prices", ErrInvalidMarketShape, len(labels), len(prices))
	}

	implied := make([]float64, len(prices))
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 1.0 {
			return nil, fmt.Errorf("%w: %v for %q", ErrInvalidPrice, p, labels[i])
		}
		implied[i] = 1.0 / p
	}

	probs := make([]float64, len(implied))
	switch mode {
	case enums.ProbModeJoint:
		sum := 0.0
		for _, v := range implied {
			sum += v
		}
		for i, v := range implied {
			probs[i] = v / sum
		}
	case enums.ProbModePaired:
		if len(implied)%2 != 0 {
			return nil, fmt.Errorf("%w: paired mode needs an even number of prices, got %d", ErrInvalidMarketShape, len(implied))
		}
		for i := 0; i < len(implied); i += 2 {
			sum := implied[i] + implied[i+1]
			probs[i] = implied[i] / sum
			probs[i+1] = implied[i+1] / sum
		}
	default:
		return nil, fmt.Errorf("unknown probability mode %q", mode)
	}

	out := make([]Outcome, 0, len(labels))
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		if j, ok := index[label]; ok {
			out[j].Probability = probs[i]
			continue
		}
		index[label] = len(out)
		out = append(out, Outcome{Label: label, Probability: probs[i]})
	}
	return out, nil
}

// ResolveMode picks the normalisation mode for one market. Money lines and correct-score
// markets are true multi-way markets and always use joint mode; anything else follows the
// sport's default.
func ResolveMode(title string, sportDefault enums.ProbMode) enums.ProbMode {
	if strings.Contains(title, "Money Line") || strings.Contains(title, "Correct Score") {
		return enums.ProbModeJoint
	}
	return sportDefault
}

// PriceFromProbability converts a calibrated probability back to a decimal price
// rounded to three places, the unit prices are stored in.
func PriceFromProbability(p float64) (float64, error) {
	if p <= 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: probability %v", ErrInvalidPrice, p)
	}
	return decimal.NewFromFloat(1 / p).Round(3).InexactFloat64(), nil
}
