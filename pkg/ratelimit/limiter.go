package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a request may be sent now and records it if so
	Allow() bool
	// Wait blocks until a request is allowed or ctx is done
	Wait(ctx context.Context) error
	// Delay returns how long a request would have to wait right now
	Delay() time.Duration
	// Reset resets the limiter state
	Reset()
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitLoop polls l until it allows a request, sleeping for its reported delay
func waitLoop(ctx context.Context, l Limiter) error {
	for !l.Allow() {
		d := l.Delay()
		if d <= 0 {
			// Small sleep to prevent busy waiting
			d = 10 * time.Millisecond
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// SlidingWindow allows at most maxRequests within any window of windowSize
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	return waitLoop(ctx, sw)
}

// Delay returns the time until the oldest request leaves the window
func (sw *SlidingWindow) Delay() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)
	if len(sw.requests) < sw.maxRequests {
		return 0
	}
	return sw.requests[0].Add(sw.windowSize).Sub(now)
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// Paced spaces requests at least interval apart, allowing short bursts
type Paced struct {
	interval time.Duration
	burst    int
	limiter  *rate.Limiter
}

// NewPaced creates a limiter that admits one request per interval with the
// given burst. A non-positive interval disables pacing.
func NewPaced(interval time.Duration, burst int) *Paced {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Paced{
		interval: interval,
		burst:    burst,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Allow checks if a request can proceed
func (p *Paced) Allow() bool {
	return p.limiter.Allow()
}

// Wait blocks until the next request slot
func (p *Paced) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Delay returns the time until the next request slot
func (p *Paced) Delay() time.Duration {
	r := p.limiter.Reserve()
	defer r.Cancel()
	return r.Delay()
}

// Reset restores a full burst
func (p *Paced) Reset() {
	limit := p.limiter.Limit()
	p.limiter = rate.NewLimiter(limit, p.burst)
}

// ServerWindow follows the quota reported by the server. Until the first
// Update it allows every request.
type ServerWindow struct {
	remaining int
	resetAt   time.Time
	known     bool
	mu        sync.Mutex
}

// NewServerWindow creates a limiter driven by server-reported quota
func NewServerWindow() *ServerWindow {
	return &ServerWindow{}
}

// Update records the remaining calls and reset time from the latest response
func (s *ServerWindow) Update(remaining int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remaining = remaining
	s.resetAt = resetAt
	s.known = true
}

// Exhaust marks the window as empty until resetAt, e.g. after a 429 response
func (s *ServerWindow) Exhaust(resetAt time.Time) {
	s.Update(0, resetAt)
}

// Allow checks if a request can proceed
func (s *ServerWindow) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known || !time.Now().Before(s.resetAt) {
		s.known = false
		return true
	}
	if s.remaining > 0 {
		s.remaining--
		return true
	}
	return false
}

// Wait blocks until the server window reopens
func (s *ServerWindow) Wait(ctx context.Context) error {
	return waitLoop(ctx, s)
}

// Delay returns the time until the server window reopens, or 0 if calls remain
func (s *ServerWindow) Delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known || s.remaining > 0 {
		return 0
	}
	if d := time.Until(s.resetAt); d > 0 {
		return d
	}
	return 0
}

// Reset forgets the reported quota
func (s *ServerWindow) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.known = false
	s.remaining = 0
	s.resetAt = time.Time{}
}

// Chain combines limiters; a request proceeds only when every member allows it
type Chain struct {
	limiters []Limiter
}

// NewChain creates a chain of limiters, skipping nil entries
func NewChain(limiters ...Limiter) *Chain {
	c := &Chain{}
	for _, l := range limiters {
		if l != nil {
			c.limiters = append(c.limiters, l)
		}
	}
	return c
}

// Allow reports whether all members allow a request. Members are consulted
// only while a delay-free path exists, so a refusal does not consume quota
// from the others.
func (c *Chain) Allow() bool {
	if c.Delay() > 0 {
		return false
	}
	for _, l := range c.limiters {
		if !l.Allow() {
			return false
		}
	}
	return true
}

// Wait blocks until every member allows a request at the same moment. No
// member records the request while another is still closed, so a slot is
// never taken before a server reset and then aged out by the time the request
// is sent.
func (c *Chain) Wait(ctx context.Context) error {
	return waitLoop(ctx, c)
}

// Delay returns the longest delay among members
func (c *Chain) Delay() time.Duration {
	var longest time.Duration
	for _, l := range c.limiters {
		if d := l.Delay(); d > longest {
			longest = d
		}
	}
	return longest
}

// Reset resets every member
func (c *Chain) Reset() {
	for _, l := range c.limiters {
		l.Reset()
	}
}
