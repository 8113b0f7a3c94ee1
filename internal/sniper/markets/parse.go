package markets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
	"github.com/Vodeneev/linesniper/internal/pkg/models"
	"github.com/Vodeneev/linesniper/internal/pkg/oddsmath"
	"github.com/Vodeneev/linesniper/internal/pkg/validation"
)

const (
	showAllSelector   = `button[class^="showAllButton"]`
	groupSelector     = `[class*="marketGroup-"]`
	titleTextSelector = `[class^="titleText-"]`
	titleSelector     = `[class^="title-"]`
	toggleSelector    = `button[class^="toggleMarkets"]`
	buttonSelector    = `button.market-btn`
	labelSelector     = `[class*="label-"]`
	priceSelector     = `[class*="price-"]`
	pageSelector      = "body"
)

var (
	sanitizer = validation.NewSanitizer()
	validator = validation.NewValidator()
)

// GroupResult is the outcome of parsing one tracked market group.
// Err is set when the group was dropped; Quotes is then empty.
type GroupResult struct {
	Title  string
	Mode   enums.ProbMode
	Quotes []models.Quote
	Err    error
}

// ParseMarkets extracts calibrated quotes from a rendered event page. Only groups tracked by
// cfg are returned, in page order. A group that cannot be normalised is reported with Err and
// does not affect its siblings.
func ParseMarkets(html string, cfg models.SportConfig) ([]GroupResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse event page: %w", err)
	}

	var results []GroupResult
	seen := make(map[string]bool)
	doc.Find(groupSelector).Each(func(_ int, group *goquery.Selection) {
		title := groupTitle(group)
		if title == "" || seen[title] || !cfg.Tracks(title) {
			return
		}
		seen[title] = true
		results = append(results, parseGroup(group, title, cfg.DefaultMode))
	})
	return results, nil
}

func groupTitle(group *goquery.Selection) string {
	title := sanitizer.SanitizeLabel(group.Find(titleTextSelector).First().Text())
	if title == "" {
		title = sanitizer.SanitizeLabel(group.Find(titleSelector).First().Text())
	}
	return title
}

func parseGroup(group *goquery.Selection, title string, defaultMode enums.ProbMode) GroupResult {
	res := GroupResult{Title: title, Mode: oddsmath.ResolveMode(title, defaultMode)}

	var labels []string
	var prices []float64
	var parseErr error
	group.Find(buttonSelector).EachWithBreak(func(_ int, btn *goquery.Selection) bool {
		price, err := sanitizer.ParsePrice(btn.Find(priceSelector).First().Text())
		if err != nil {
			parseErr = fmt.Errorf("%w: %v", oddsmath.ErrInvalidPrice, err)
			return false
		}
		labels = append(labels, sanitizer.SanitizeLabel(btn.Find(labelSelector).First().Text()))
		prices = append(prices, price)
		return true
	})
	if parseErr != nil {
		res.Err = fmt.Errorf("market %q: %w", title, parseErr)
		return res
	}

	outcomes, err := oddsmath.Normalize(Disambiguate(title, labels), prices, res.Mode)
	if err != nil {
		res.Err = fmt.Errorf("market %q: %w", title, err)
		return res
	}

	quotes := make([]models.Quote, 0, len(outcomes))
	for _, o := range outcomes {
		price, err := oddsmath.PriceFromProbability(o.Probability)
		if err != nil {
			res.Err = fmt.Errorf("market %q outcome %q: %w", title, o.Label, err)
			return res
		}
		q := models.Quote{MarketType: title, Label: o.Label, Price: price}
		if err := validator.ValidateQuote(q); err != nil {
			res.Err = fmt.Errorf("market %q: %w", title, errors.Join(oddsmath.ErrInvalidPrice, err))
			return res
		}
		quotes = append(quotes, q)
	}
	res.Quotes = quotes
	return res
}
