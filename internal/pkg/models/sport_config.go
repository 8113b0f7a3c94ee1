package models

import (
	"sort"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
)

// SportConfig lists the market types tracked for one sport and its default normalisation mode.
// It is built once at start-up and never mutated.
type SportConfig struct {
	Sport       enums.Sport
	DefaultMode enums.ProbMode
	markets     map[string]struct{}
}

// NewSportConfig builds an immutable sport configuration.
func NewSportConfig(sport enums.Sport, mode enums.ProbMode, markets []string) SportConfig {
	set := make(map[string]struct{}, len(markets))
	for _, m := range markets {
		set[m] = struct{}{}
	}
	return SportConfig{Sport: sport, DefaultMode: mode, markets: set}
}

// Tracks reports whether a market group with this title should be captured.
func (c SportConfig) Tracks(title string) bool {
	_, ok := c.markets[title]
	return ok
}

// Markets returns the tracked market titles in sorted order.
func (c SportConfig) Markets() []string {
	out := make([]string, 0, len(c.markets))
	for m := range c.markets {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// SportSet resolves a league's sport tag to its configuration.
type SportSet map[enums.Sport]SportConfig

// Lookup returns the configuration for sport, if tracked.
func (s SportSet) Lookup(sport enums.Sport) (SportConfig, bool) {
	cfg, ok := s[sport]
	return cfg, ok
}
