package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
	"github.com/Vodeneev/linesniper/internal/pkg/models"
)

// ErrNotFound is returned when an update matches no row.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface used by the sniper and the admin CLI.
// Components depend on narrower interfaces declared where they are consumed.
type Store interface {
	// AddLeague registers a league page, or renames it if the URL is already known.
	AddLeague(ctx context.Context, name, url string, sport enums.Sport) (models.League, error)
	ListLeagues(ctx context.Context) ([]models.League, error)
	// MarkLeagueSynced advances the league's sync timestamp. Only called after a successful upsert.
	MarkLeagueSynced(ctx context.Context, leagueID int64, at time.Time) error

	// UpsertEvents inserts fixtures keyed by (name, league). Existing events get url and kickoff updated.
	UpsertEvents(ctx context.Context, leagueID int64, fixtures []models.Fixture) (int, error)
	ListActiveEvents(ctx context.Context) ([]models.Event, error)
	MarkEventRefreshed(ctx context.Context, eventID int64, at time.Time) error
	// DeleteStartedEvents removes events whose kickoff is before now, with their odds.
	DeleteStartedEvents(ctx context.Context, now time.Time) (int64, error)

	// AppendQuotes appends one price per quote to the matching histories and returns the updated records.
	AppendQuotes(ctx context.Context, eventID int64, quotes []models.Quote) ([]models.OddsRecord, error)
	SetWatch(ctx context.Context, eventID int64, marketType, outcome string, watch bool) error
	ListMovers(ctx context.Context, now time.Time, horizon time.Duration, minShift float64) ([]models.Mover, error)

	Close() error
}
