package models

import (
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
)

// League is a competition page whose schedule is re-synced at most once per sync window.
type League struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	URL          string      `json:"url"`
	Sport        enums.Sport `json:"sport"`
	LastSyncedAt *time.Time  `json:"last_synced_at,omitempty"`
}

// IsStale reports whether the league is due for a schedule re-sync.
// A league that was never synced is always stale.
func (l League) IsStale(now time.Time, window time.Duration) bool {
	if l.LastSyncedAt == nil {
		return true
	}
	return l.LastSyncedAt.Before(now.Add(-window))
}

// Event is one fixture tracked for odds capture.
type Event struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	URL             string      `json:"url"`
	KickoffAt       time.Time   `json:"kickoff_at"`
	LeagueID        int64       `json:"league_id"`
	Sport           enums.Sport `json:"sport"`
	LastRefreshedAt *time.Time  `json:"last_refreshed_at,omitempty"`
}

// UntilKickoff returns the signed time left before the event starts (negative once in play).
func (e Event) UntilKickoff(now time.Time) time.Duration {
	return e.KickoffAt.Sub(now)
}

// Fixture is a schedule row scraped from a league page, before it is upserted as an Event.
type Fixture struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	KickoffAt time.Time `json:"kickoff_at"`
}
