package leagues

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
	"github.com/Vodeneev/linesniper/internal/pkg/models"
	"github.com/Vodeneev/linesniper/internal/pkg/session"
)

// pageDriver serves canned league pages keyed by URL. Unknown URLs behave like a page
// whose schedule container never renders.
type pageDriver struct {
	pages map[string]string
	mu    sync.Mutex
	url   string
}

func (d *pageDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
	return nil
}
func (d *pageDriver) WaitVisible(context.Context, string) error { return nil }
func (d *pageDriver) Click(context.Context, string) error       { return nil }
func (d *pageDriver) Evaluate(context.Context, string) error    { return nil }
func (d *pageDriver) OuterHTML(_ context.Context, selector string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	html, ok := d.pages[d.url]
	if !ok {
		return "", &session.ElementNotFoundError{Selector: selector, Err: context.DeadlineExceeded}
	}
	return html, nil
}
func (d *pageDriver) Close() error { return nil }

type fakeStore struct {
	mu         sync.Mutex
	leagues    []models.League
	upserted   map[int64][]models.Fixture
	synced     map[int64]time.Time
	failUpsert map[int64]bool
}

func (s *fakeStore) ListLeagues(context.Context) ([]models.League, error) {
	return s.leagues, nil
}

func (s *fakeStore) UpsertEvents(_ context.Context, leagueID int64, fixtures []models.Fixture) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert[leagueID] {
		return 0, errors.New("connection reset")
	}
	s.upserted[leagueID] = append(s.upserted[leagueID], fixtures...)
	return len(fixtures), nil
}

func (s *fakeStore) MarkLeagueSynced(_ context.Context, leagueID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[leagueID] = at
	return nil
}

func newPool(t *testing.T, size int, pages map[string]string) *session.Pool {
	t.Helper()
	factory := func(context.Context, int) (session.Driver, error) {
		return &pageDriver{pages: pages}, nil
	}
	p, err := session.NewPool(context.Background(), size, factory, session.WithLogger(discard()))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown() })
	return p
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncStale(t *testing.T) {
	now := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	old := now.Add(-25 * time.Hour)

	pages := map[string]string{
		"https://site/l/1": leaguePage(`<div class="dateBar-a">TODAY</div>`,
			fixtureLink("/e/1", "18:30", "Team A", "Team B")),
		"https://site/l/4": leaguePage(`<div class="dateBar-a">TODAY</div>`),
		"https://site/l/5": leaguePage(`<div class="dateBar-a">TODAY</div>`,
			fixtureLink("/e/5", "19:00", "Team E", "Team F")),
		"https://site/l/6": leaguePage(`<div class="dateBar-a">SOMEDAY</div>`,
			fixtureLink("/e/6", "19:00", "Team G", "Team H")),
	}
	store := &fakeStore{
		leagues: []models.League{
			{ID: 1, Name: "never synced", URL: "https://site/l/1", Sport: enums.Soccer},
			{ID: 2, Name: "fresh", URL: "https://site/l/2", Sport: enums.Soccer, LastSyncedAt: &recent},
			{ID: 3, Name: "offline", URL: "https://site/l/3", Sport: enums.Soccer, LastSyncedAt: &old},
			{ID: 4, Name: "empty", URL: "https://site/l/4", Sport: enums.Soccer, LastSyncedAt: &old},
			{ID: 5, Name: "store down", URL: "https://site/l/5", Sport: enums.Soccer, LastSyncedAt: &old},
			{ID: 6, Name: "unparseable", URL: "https://site/l/6", Sport: enums.Soccer},
		},
		upserted:   map[int64][]models.Fixture{},
		synced:     map[int64]time.Time{},
		failUpsert: map[int64]bool{5: true},
	}

	c := NewCoordinator(newPool(t, 2, pages), store, 24*time.Hour, time.UTC, discard())
	report, err := c.SyncStale(context.Background(), now)
	if err != nil {
		t.Fatalf("SyncStale() error = %v", err)
	}

	want := Report{Stale: 5, Synced: 1, Offline: 3, Failed: 1, Fixtures: 1}
	if report != want {
		t.Errorf("SyncStale() report = %+v, want %+v", report, want)
	}

	if at, ok := store.synced[1]; !ok || !at.Equal(now) {
		t.Errorf("league 1 synced at %v, want %v", at, now)
	}
	for _, id := range []int64{2, 3, 4, 5, 6} {
		if _, ok := store.synced[id]; ok {
			t.Errorf("league %d timestamp advanced", id)
		}
	}

	got := store.upserted[1]
	if len(got) != 1 || got[0].Name != "Team A vs Team B" || got[0].URL != "https://site/e/1" {
		t.Errorf("upserted fixtures = %+v", got)
	}
	if want := time.Date(2025, 5, 6, 18, 30, 0, 0, time.UTC); !got[0].KickoffAt.Equal(want) {
		t.Errorf("KickoffAt = %v, want %v", got[0].KickoffAt, want)
	}
}

func TestDedupeByKey(t *testing.T) {
	in := []models.Fixture{
		{Name: "A vs B", URL: "u1"},
		{Name: "C vs D", URL: "u2"},
		{Name: "a  vs b", URL: "u3"},
	}
	out := dedupeByKey(in, 1)
	if len(out) != 2 {
		t.Fatalf("dedupeByKey() len = %d, want 2", len(out))
	}
	if out[0].URL != "u3" || out[1].URL != "u2" {
		t.Errorf("dedupeByKey() = %+v", out)
	}
}
