package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)
	spaces       = regexp.MustCompile(`\s+`)
)

// Sanitizer cleans text scraped from rendered pages before it is keyed or stored.
type Sanitizer struct{}

// NewSanitizer creates a new sanitizer
func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// SanitizeFixture normalises a scraped schedule row in place.
func (s *Sanitizer) SanitizeFixture(f *models.Fixture) {
	if f == nil {
		return
	}
	f.Name = s.sanitizeString(f.Name, 500)
	f.URL = strings.TrimSpace(f.URL)
}

// SanitizeLabel cleans an outcome or market label. Inner spacing is collapsed so
// "Over  2.5" and "Over 2.5" land in the same history.
func (s *Sanitizer) SanitizeLabel(label string) string {
	return s.sanitizeString(label, 200)
}

// ParsePrice reads a decimal price as rendered on a market button.
// Non-breaking spaces and a decimal comma are tolerated.
func (s *Sanitizer) ParsePrice(text string) (float64, error) {
	v := strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", ""))
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return 0, fmt.Errorf("empty price")
	}
	price, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	return price, nil
}

func (s *Sanitizer) sanitizeString(str string, limit int) string {
	sanitized := controlChars.ReplaceAllString(str, " ")
	sanitized = strings.TrimSpace(spaces.ReplaceAllString(sanitized, " "))
	if len(sanitized) > limit {
		sanitized = sanitized[:limit]
	}
	return sanitized
}
