package scheduler

import (
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

type tier struct {
	within   time.Duration
	interval time.Duration
}

// Refresh tiers by time left to kickoff. Events already in play fall in the first tier.
var tiers = []tier{
	{within: 2 * time.Hour, interval: 2 * time.Minute},
	{within: 4 * time.Hour, interval: 5 * time.Minute},
	{within: 8 * time.Hour, interval: 3 * time.Hour},
	{within: 24 * time.Hour, interval: 8 * time.Hour},
}

const farInterval = 72 * time.Hour

// RefreshInterval returns how often an event this far from kickoff is re-captured.
func RefreshInterval(untilKickoff time.Duration) time.Duration {
	for _, t := range tiers {
		if untilKickoff <= t.within {
			return t.interval
		}
	}
	return farInterval
}

// IsDue reports whether the event's prices are older than its tier allows.
func IsDue(e models.Event, now time.Time) bool {
	if e.LastRefreshedAt == nil {
		return true
	}
	return e.LastRefreshedAt.Before(now.Add(-RefreshInterval(e.UntilKickoff(now))))
}

// Priority is the distance from kickoff in either direction; smaller is more urgent.
func Priority(e models.Event, now time.Time) time.Duration {
	d := e.UntilKickoff(now)
	if d < 0 {
		return -d
	}
	return d
}
