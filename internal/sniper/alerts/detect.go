// Package alerts reports significant line movement on freshly captured prices.
package alerts

import (
	"math"
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// Rules decide what counts as a movement worth reporting.
type Rules struct {
	MinProbShift float64       // absolute implied probability change, 0.005 = half a point
	Horizon      time.Duration // only events kicking off within this window
}

// Movement is one outcome whose price moved on the latest capture.
type Movement struct {
	MarketType string
	Outcome    string
	Previous   float64
	Current    float64
	Shift      float64 // implied probability change, positive when the price shortened
	Watch      bool
}

// Detect compares the last two prices of a record. Watch-flagged outcomes report any change;
// others report a shift above the threshold for events kicking off within the horizon.
func Detect(r models.OddsRecord, kickoff, now time.Time, rules Rules) (Movement, bool) {
	cur, ok := r.Current()
	if !ok {
		return Movement{}, false
	}
	prev, ok := r.Previous()
	if !ok || prev == cur {
		return Movement{}, false
	}

	m := Movement{
		MarketType: r.MarketType,
		Outcome:    r.OutcomeLabel,
		Previous:   prev,
		Current:    cur,
		Shift:      r.ProbShift(),
		Watch:      r.Watch,
	}
	if r.Watch {
		return m, true
	}
	if kickoff.After(now.Add(rules.Horizon)) {
		return Movement{}, false
	}
	return m, math.Abs(m.Shift) > rules.MinProbShift
}

// DetectCapture returns the movements of every record in a capture.
func DetectCapture(c models.Capture, now time.Time, rules Rules) []Movement {
	var out []Movement
	for _, r := range c.Records {
		if m, ok := Detect(r, c.Event.KickoffAt, now, rules); ok {
			out = append(out, m)
		}
	}
	return out
}
