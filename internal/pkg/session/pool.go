// Package session owns the fixed set of browser sessions shared by every scraping task.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"
)

// Factory opens the driver for session id.
type Factory func(ctx context.Context, id int) (Driver, error)

// Stats is a consistent snapshot of the pool. While the pool is open
// Acquired+Available == Capacity.
type Stats struct {
	Capacity  int  `json:"capacity"`
	Acquired  int  `json:"acquired"`
	Available int  `json:"available"`
	Waiting   int  `json:"waiting"`
	Closed    bool `json:"closed"`
}

// Pool is a fixed-capacity set of sessions with blocking acquire and FIFO hand-off to waiters.
type Pool struct {
	mu       sync.Mutex
	capacity int
	free     []*Session
	inUse    int
	waiters  []chan *Session
	closed   bool
	logger   *slog.Logger
}

// Option configures a Pool.
type Option func(*poolOptions)

type poolOptions struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// WithLimiter shares a navigation limiter across all sessions of the pool.
func WithLimiter(l *rate.Limiter) Option {
	return func(o *poolOptions) { o.limiter = l }
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *poolOptions) { o.logger = l }
}

// NewPool opens size sessions up front. If any session fails to open, the ones already
// opened are closed and the error is returned.
func NewPool(ctx context.Context, size int, factory Factory, opts ...Option) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}
	o := poolOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool{
		capacity: size,
		free:     make([]*Session, 0, size),
		logger:   o.logger,
	}
	for i := 0; i < size; i++ {
		d, err := factory(ctx, i)
		if err != nil {
			for _, s := range p.free {
				_ = s.driver.Close()
			}
			return nil, fmt.Errorf("open session %d: %w", i, err)
		}
		p.free = append(p.free, &Session{id: i, driver: d, limiter: o.limiter})
	}

	p.logger.Info("Session pool ready", "capacity", size)
	return p, nil
}

// Capacity is the fixed number of sessions; it is also the worker count used by callers.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Acquire blocks until a session is free and returns exclusive use of it.
// It fails with ErrPoolClosed once Shutdown has begun, or with ctx.Err() if ctx ends first.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		p.inUse++
		s.held = true
		p.mu.Unlock()
		return s, nil
	}
	ch := make(chan *Session, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case s, ok := <-ch:
		if !ok {
			return nil, ErrPoolClosed
		}
		return s, nil
	case <-ctx.Done():
		p.mu.Lock()
		removed := p.removeWaiter(ch)
		p.mu.Unlock()
		if !removed {
			// Release or Shutdown got to us first.
			if s, ok := <-ch; ok {
				p.Release(s)
			}
		}
		return nil, ctx.Err()
	}
}

// Release returns a session. The oldest waiter, if any, receives it directly.
// After Shutdown the session is terminated instead.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	if !s.held {
		p.mu.Unlock()
		p.logger.Warn("Release of a session that is not held", "session", s.id)
		return
	}
	if p.closed {
		s.held = false
		p.inUse--
		p.mu.Unlock()
		if err := s.driver.Close(); err != nil {
			p.logger.Warn("Failed to close session", "session", s.id, "error", err)
		}
		return
	}
	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		ch <- s
		p.mu.Unlock()
		return
	}
	s.held = false
	p.inUse--
	p.free = append(p.free, s)
	p.mu.Unlock()
}

// WithSession runs fn with an acquired session and releases it on every exit path.
func (p *Pool) WithSession(ctx context.Context, fn func(*Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(s)
	return fn(s)
}

// Shutdown stops servicing Acquire, wakes pending acquirers with ErrPoolClosed and closes
// idle sessions. Sessions still in use are closed when released. Safe to call twice.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.free
	p.free = nil
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
	inUse := p.inUse
	p.mu.Unlock()

	var errs []error
	for _, s := range idle {
		if err := s.driver.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %d: %w", s.id, err))
		}
	}
	p.logger.Info("Session pool shut down", "closed_idle", len(idle), "still_in_use", inUse)
	return errors.Join(errs...)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Capacity:  p.capacity,
		Acquired:  p.inUse,
		Available: len(p.free),
		Waiting:   len(p.waiters),
		Closed:    p.closed,
	}
}

func (p *Pool) removeWaiter(ch chan *Session) bool {
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}
