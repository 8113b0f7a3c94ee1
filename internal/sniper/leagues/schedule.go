package leagues

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
	"github.com/Vodeneev/linesniper/internal/pkg/validation"
)

const (
	containerSelector = "div.contentBlock.square"
	rowSelector       = `[class*="dateBar"], a[href]`
	clockSelector     = `[class*="matchupDate"]`
	teamSelector      = `[class*="ellipsis"][class*="gameInfoLabel"]`
)

var (
	sanitizer = validation.NewSanitizer()
	validator = validation.NewValidator()
)

// ParseSchedule reads the fixtures of a league page in document order. Each fixture takes
// its date from the closest preceding date bar. Links are resolved against base.
//
// Rows that cannot be dated or validated are skipped and reported in the second return
// value; the remaining fixtures are still returned.
func ParseSchedule(html string, base *url.URL, now time.Time, loc *time.Location) ([]models.Fixture, []error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, []error{fmt.Errorf("parse league page: %w", err)}
	}

	var (
		fixtures    []models.Fixture
		errs        []error
		currentDate string
		seen        = make(map[string]bool)
	)
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		if !row.Is("a") {
			currentDate = strings.TrimSpace(row.Text())
			return
		}

		clock := strings.TrimSpace(row.Find(clockSelector).First().Text())
		if clock == "" {
			return
		}

		var sides []string
		row.Find(teamSelector).Each(func(_ int, team *goquery.Selection) {
			sides = append(sides, team.Text())
		})

		href, _ := row.Attr("href")
		f := models.Fixture{Name: models.EventName(sides...), URL: resolve(base, href)}

		kickoff, err := ParseKickoff(currentDate, clock, now, loc)
		if err != nil {
			errs = append(errs, err)
			return
		}
		f.KickoffAt = kickoff

		sanitizer.SanitizeFixture(&f)
		if err := validator.ValidateFixture(f); err != nil {
			errs = append(errs, err)
			return
		}
		if seen[f.URL] {
			return
		}
		seen[f.URL] = true
		fixtures = append(fixtures, f)
	})
	return fixtures, errs
}

func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
