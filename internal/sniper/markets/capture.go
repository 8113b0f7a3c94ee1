// Package markets reads the tracked market groups of an event page and turns them into
// calibrated prices.
package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// Page is the part of a browser session the extractor drives. *session.Session implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	Evaluate(ctx context.Context, script string) error
	OuterHTML(ctx context.Context, selector string) (string, error)
}

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Capture loads the event page, expands the tracked groups and returns their quotes.
// A missing page element fails the whole capture; a malformed group is logged and skipped.
func (x *Extractor) Capture(ctx context.Context, page Page, event models.Event, cfg models.SportConfig) ([]models.Quote, error) {
	if err := page.Navigate(ctx, event.URL); err != nil {
		return nil, err
	}
	if err := page.Click(ctx, showAllSelector); err != nil {
		return nil, fmt.Errorf("show all markets: %w", err)
	}
	if err := page.WaitVisible(ctx, groupSelector); err != nil {
		return nil, fmt.Errorf("market groups: %w", err)
	}

	script, err := expandScript(cfg.Markets())
	if err != nil {
		return nil, err
	}
	if err := page.Evaluate(ctx, script); err != nil {
		return nil, fmt.Errorf("expand markets: %w", err)
	}

	html, err := page.OuterHTML(ctx, pageSelector)
	if err != nil {
		return nil, fmt.Errorf("read event page: %w", err)
	}

	groups, err := ParseMarkets(html, cfg)
	if err != nil {
		return nil, err
	}

	var quotes []models.Quote
	for _, g := range groups {
		if g.Err != nil {
			x.logger.Warn("Dropping market group", "event", event.Name, "market", g.Title, "error", g.Err)
			continue
		}
		quotes = append(quotes, g.Quotes...)
	}

	x.logger.Debug("Captured markets", "event", event.Name, "groups", len(groups), "quotes", len(quotes))
	return quotes, nil
}

// expandScript clicks the "more markets" toggle of every tracked group in one round trip.
func expandScript(tracked []string) (string, error) {
	titles, err := json.Marshal(tracked)
	if err != nil {
		return "", fmt.Errorf("encode tracked markets: %w", err)
	}
	return fmt.Sprintf(`(() => {
	const tracked = new Set(%s);
	let expanded = 0;
	document.querySelectorAll(%q).forEach((group) => {
		const title = group.querySelector(%q) || group.querySelector(%q);
		if (!title || !tracked.has(title.textContent.trim())) return;
		const toggle = group.querySelector(%q);
		if (toggle) { toggle.click(); expanded++; }
	});
	return expanded;
})()`, titles, groupSelector, titleTextSelector, titleSelector, toggleSelector), nil
}
