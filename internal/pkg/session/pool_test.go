package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDriver struct {
	id     int
	closed atomic.Int32
}

func (d *fakeDriver) Navigate(context.Context, string) error            { return nil }
func (d *fakeDriver) WaitVisible(context.Context, string) error         { return nil }
func (d *fakeDriver) Click(context.Context, string) error               { return nil }
func (d *fakeDriver) Evaluate(context.Context, string) error            { return nil }
func (d *fakeDriver) OuterHTML(context.Context, string) (string, error) { return "", nil }
func (d *fakeDriver) Close() error {
	d.closed.Add(1)
	return nil
}

type fakeFactory struct {
	mu      sync.Mutex
	drivers []*fakeDriver
	failAt  int
}

func (f *fakeFactory) open(_ context.Context, id int) (Driver, error) {
	if f.failAt > 0 && id == f.failAt {
		return nil, errors.New("chrome not found")
	}
	d := &fakeDriver{id: id}
	f.mu.Lock()
	f.drivers = append(f.drivers, d)
	f.mu.Unlock()
	return d, nil
}

func (f *fakeFactory) closedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.drivers {
		n += int(d.closed.Load())
	}
	return n
}

func newTestPool(t *testing.T, size int) (*Pool, *fakeFactory) {
	t.Helper()
	f := &fakeFactory{}
	p, err := NewPool(context.Background(), size, f.open, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	return p, f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewPool(t *testing.T) {
	t.Run("opens all sessions", func(t *testing.T) {
		p, f := newTestPool(t, 3)
		if got := p.Capacity(); got != 3 {
			t.Errorf("Capacity() = %d, want 3", got)
		}
		if len(f.drivers) != 3 {
			t.Errorf("opened %d drivers, want 3", len(f.drivers))
		}
		st := p.Stats()
		if st.Available != 3 || st.Acquired != 0 || st.Closed {
			t.Errorf("Stats() = %+v", st)
		}
	})

	t.Run("failure closes opened sessions", func(t *testing.T) {
		f := &fakeFactory{failAt: 2}
		if _, err := NewPool(context.Background(), 3, f.open); err == nil {
			t.Fatal("expected error")
		}
		if got := f.closedCount(); got != 2 {
			t.Errorf("closed %d drivers, want 2", got)
		}
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		f := &fakeFactory{}
		if _, err := NewPool(context.Background(), 0, f.open); err == nil {
			t.Error("expected error for size 0")
		}
	})
}

func TestPoolConservation(t *testing.T) {
	const capacity = 3
	p, _ := newTestPool(t, capacity)

	var holders, maxHolders atomic.Int32
	var violations atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 12; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				err := p.WithSession(context.Background(), func(*Session) error {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					st := p.Stats()
					if st.Acquired+st.Available != st.Capacity {
						violations.Add(1)
					}
					time.Sleep(100 * time.Microsecond)
					holders.Add(-1)
					return nil
				})
				if err != nil {
					t.Errorf("WithSession() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if v := violations.Load(); v != 0 {
		t.Errorf("acquired+available != capacity observed %d times", v)
	}
	if m := maxHolders.Load(); m > capacity {
		t.Errorf("max concurrent holders = %d, want <= %d", m, capacity)
	}
	if st := p.Stats(); st.Available != capacity || st.Acquired != 0 || st.Waiting != 0 {
		t.Errorf("final Stats() = %+v", st)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	p, _ := newTestPool(t, 1)
	s, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	got := make(chan *Session, 1)
	go func() {
		s2, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("blocked Acquire() error = %v", err)
		}
		got <- s2
	}()

	waitFor(t, func() bool { return p.Stats().Waiting == 1 })
	select {
	case <-got:
		t.Fatal("Acquire returned while pool was exhausted")
	case <-time.After(20 * time.Millisecond):
	}

	p.Release(s)
	select {
	case s2 := <-got:
		if s2 != s {
			t.Errorf("waiter got session %d, want %d", s2.ID(), s.ID())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by Release")
	}
	if st := p.Stats(); st.Acquired != 1 || st.Available != 0 {
		t.Errorf("Stats() after hand-off = %+v", st)
	}
}

func TestAcquireFIFO(t *testing.T) {
	p, _ := newTestPool(t, 1)
	s, _ := p.Acquire(context.Background())

	first := make(chan *Session, 1)
	second := make(chan *Session, 1)
	go func() {
		s, _ := p.Acquire(context.Background())
		first <- s
	}()
	waitFor(t, func() bool { return p.Stats().Waiting == 1 })
	go func() {
		s, _ := p.Acquire(context.Background())
		second <- s
	}()
	waitFor(t, func() bool { return p.Stats().Waiting == 2 })

	p.Release(s)
	var s1 *Session
	select {
	case s1 = <-first:
	case <-second:
		t.Fatal("second waiter served before first")
	case <-time.After(2 * time.Second):
		t.Fatal("no waiter served")
	}
	if w := p.Stats().Waiting; w != 1 {
		t.Errorf("Waiting = %d, want 1", w)
	}

	p.Release(s1)
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second waiter not served")
	}
}

func TestAcquireContextCancel(t *testing.T) {
	p, _ := newTestPool(t, 1)
	s, _ := p.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want deadline exceeded", err)
	}
	if w := p.Stats().Waiting; w != 0 {
		t.Errorf("Waiting = %d after cancel, want 0", w)
	}

	p.Release(s)
	if st := p.Stats(); st.Available != 1 || st.Acquired != 0 {
		t.Errorf("Stats() = %+v, capacity leaked", st)
	}
}

func TestShutdown(t *testing.T) {
	p, f := newTestPool(t, 2)
	held, _ := p.Acquire(context.Background())

	if err := p.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Shutdown error = %v, want ErrPoolClosed", err)
	}
	if got := f.closedCount(); got != 1 {
		t.Errorf("closed %d drivers after Shutdown, want 1 (idle only)", got)
	}

	p.Release(held)
	if got := f.closedCount(); got != 2 {
		t.Errorf("closed %d drivers after releasing in-use session, want 2", got)
	}
	if err := p.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if st := p.Stats(); !st.Closed || st.Acquired != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestShutdownWakesWaiters(t *testing.T) {
	p, _ := newTestPool(t, 1)
	s, _ := p.Acquire(context.Background())

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := p.Acquire(context.Background())
			errs <- err
		}()
	}
	waitFor(t, func() bool { return p.Stats().Waiting == 2 })

	_ = p.Shutdown()
	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrPoolClosed) {
				t.Errorf("waiter error = %v, want ErrPoolClosed", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter not woken by Shutdown")
		}
	}
	p.Release(s)
}

func TestWithSessionReleases(t *testing.T) {
	p, _ := newTestPool(t, 1)

	wantErr := errors.New("capture failed")
	if err := p.WithSession(context.Background(), func(*Session) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("WithSession() error = %v, want %v", err, wantErr)
	}
	if a := p.Stats().Available; a != 1 {
		t.Errorf("Available after error = %d, want 1", a)
	}

	func() {
		defer func() { _ = recover() }()
		_ = p.WithSession(context.Background(), func(*Session) error { panic("boom") })
	}()
	if a := p.Stats().Available; a != 1 {
		t.Errorf("Available after panic = %d, want 1", a)
	}
}

func TestReleaseNotHeldIsIgnored(t *testing.T) {
	p, _ := newTestPool(t, 1)
	s, _ := p.Acquire(context.Background())
	p.Release(s)
	p.Release(s)
	p.Release(nil)
	if st := p.Stats(); st.Available != 1 || st.Acquired != 0 {
		t.Errorf("Stats() after double release = %+v", st)
	}
}

func TestElementNotFoundErrorIsRemoteUnavailable(t *testing.T) {
	err := error(&ElementNotFoundError{Selector: "div.contentBlock.square", Err: context.DeadlineExceeded})
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Error("errors.Is(err, ErrRemoteUnavailable) = false")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is(err, context.DeadlineExceeded) = false")
	}
	var enf *ElementNotFoundError
	if !errors.As(err, &enf) || enf.Selector != "div.contentBlock.square" {
		t.Errorf("errors.As() = %v", enf)
	}
}

func TestNewNavigationLimiter(t *testing.T) {
	if l := NewNavigationLimiter(0); l != nil {
		t.Error("NewNavigationLimiter(0) should be nil")
	}
	l := NewNavigationLimiter(120)
	if l == nil {
		t.Fatal("NewNavigationLimiter(120) = nil")
	}
	if l.Limit() != 2 {
		t.Errorf("NewNavigationLimiter(120) limit = %v, want 2/s", l.Limit())
	}
}
