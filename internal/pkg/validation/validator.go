package validation

import (
	"fmt"
	"math"
	"net/url"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// Validator implements data validation
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateFixture validates a schedule row before upsert.
func (v *Validator) ValidateFixture(f models.Fixture) error {
	if f.Name == "" {
		return fmt.Errorf("fixture name cannot be empty")
	}
	if err := v.ValidateURL(f.URL); err != nil {
		return fmt.Errorf("fixture %q: %w", f.Name, err)
	}
	if f.KickoffAt.IsZero() {
		return fmt.Errorf("fixture %q has no kickoff time", f.Name)
	}
	return nil
}

// ValidateQuote validates a calibrated price before it is appended.
func (v *Validator) ValidateQuote(q models.Quote) error {
	if q.MarketType == "" {
		return fmt.Errorf("market type cannot be empty")
	}
	if q.Label == "" {
		return fmt.Errorf("outcome label cannot be empty")
	}
	if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) || q.Price < 1.0 {
		return fmt.Errorf("price must be >= 1.0, got %v", q.Price)
	}
	return nil
}

// ValidateURL accepts absolute http(s) URLs only.
func (v *Validator) ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
