// Package leagues keeps each league's fixture list fresh by re-reading its schedule page
// once per sync window.
package leagues

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/linesniper/internal/pkg/models"
	"github.com/Vodeneev/linesniper/internal/pkg/session"
)

// Store is the persistence the coordinator needs.
type Store interface {
	ListLeagues(ctx context.Context) ([]models.League, error)
	UpsertEvents(ctx context.Context, leagueID int64, fixtures []models.Fixture) (int, error)
	MarkLeagueSynced(ctx context.Context, leagueID int64, at time.Time) error
}

// Report counts what one SyncStale call did.
type Report struct {
	Stale    int `json:"stale"`
	Synced   int `json:"synced"`
	Offline  int `json:"offline"`
	Failed   int `json:"failed"`
	Fixtures int `json:"fixtures"`
}

type outcome int

const (
	synced outcome = iota
	offline
	failed
)

type Coordinator struct {
	pool      *session.Pool
	store     Store
	syncAfter time.Duration
	loc       *time.Location
	logger    *slog.Logger
}

func NewCoordinator(pool *session.Pool, store Store, syncAfter time.Duration, loc *time.Location, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		pool:      pool,
		store:     store,
		syncAfter: syncAfter,
		loc:       loc,
		logger:    logger,
	}
}

// SyncStale re-syncs every league not synced within the window, at most pool-capacity at a
// time. A failing league never stops the others; only listing leagues can fail the call.
func (c *Coordinator) SyncStale(ctx context.Context, now time.Time) (Report, error) {
	leagues, err := c.store.ListLeagues(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list leagues: %w", err)
	}

	var (
		mu     sync.Mutex
		report Report
		g      errgroup.Group
	)
	g.SetLimit(c.pool.Capacity())

	for _, l := range leagues {
		if !l.IsStale(now, c.syncAfter) {
			continue
		}
		report.Stale++
		l := l
		g.Go(func() error {
			res, n := c.syncLeague(ctx, l, now)
			mu.Lock()
			defer mu.Unlock()
			switch res {
			case synced:
				report.Synced++
				report.Fixtures += n
			case offline:
				report.Offline++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if report.Stale > 0 {
		c.logger.Info("League sync finished",
			"stale", report.Stale, "synced", report.Synced, "offline", report.Offline,
			"failed", report.Failed, "fixtures", report.Fixtures)
	}
	return report, nil
}

func (c *Coordinator) syncLeague(ctx context.Context, l models.League, now time.Time) (outcome, int) {
	log := c.logger.With("league_id", l.ID, "league", l.Name)

	var html string
	err := c.pool.WithSession(ctx, func(s *session.Session) error {
		if err := s.Navigate(ctx, l.URL); err != nil {
			return err
		}
		var err error
		html, err = s.OuterHTML(ctx, containerSelector)
		return err
	})
	if errors.Is(err, session.ErrRemoteUnavailable) {
		log.Warn("League offline", "error", err)
		return offline, 0
	}
	if err != nil {
		log.Error("League sync failed", "error", err)
		return failed, 0
	}

	base, _ := url.Parse(l.URL)
	fixtures, parseErrs := ParseSchedule(html, base, now, c.loc)
	for _, perr := range parseErrs {
		log.Warn("Skipping fixture", "error", perr)
	}
	fixtures = dedupeByKey(fixtures, l.ID)
	if len(fixtures) == 0 {
		log.Warn("League offline: empty schedule")
		return offline, 0
	}

	n, err := c.store.UpsertEvents(ctx, l.ID, fixtures)
	if err != nil {
		log.Error("Failed to store fixtures", "error", err)
		return failed, 0
	}
	if err := c.store.MarkLeagueSynced(ctx, l.ID, now); err != nil {
		log.Error("Failed to mark league synced", "error", err)
		return failed, n
	}

	log.Info("League synced", "fixtures", n)
	return synced, n
}

// dedupeByKey keeps the last fixture for each (name, league) key, in first-seen order.
func dedupeByKey(fixtures []models.Fixture, leagueID int64) []models.Fixture {
	index := make(map[string]int, len(fixtures))
	out := fixtures[:0:0]
	for _, f := range fixtures {
		key := models.EventKey(f.Name, leagueID)
		if i, ok := index[key]; ok {
			out[i] = f
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}
	return out
}
