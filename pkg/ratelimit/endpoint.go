package ratelimit

import (
	"context"
	"time"
)

// Endpoint bundles the limiters guarding one API endpoint: our own sliding
// window, a minimum spacing, and the server-reported window.
type Endpoint struct {
	Name   string
	Window time.Duration

	local  *SlidingWindow
	paced  *Paced
	server *ServerWindow
	chain  *Chain
}

// NewEndpoint creates the limiter set for an endpoint allowing requests per
// window, spaced at least minInterval apart.
func NewEndpoint(name string, requests int, window, minInterval time.Duration) *Endpoint {
	e := &Endpoint{
		Name:   name,
		Window: window,
		paced:  NewPaced(minInterval, 1),
		server: NewServerWindow(),
	}
	var limiters []Limiter
	if requests > 0 && window > 0 {
		e.local = NewSlidingWindow(requests, window)
		limiters = append(limiters, e.local)
	}
	limiters = append(limiters, e.paced, e.server)
	e.chain = NewChain(limiters...)
	return e
}

// Wait blocks until a request to the endpoint may be sent
func (e *Endpoint) Wait(ctx context.Context) error {
	return e.chain.Wait(ctx)
}

// Delay reports how long the next Wait would block
func (e *Endpoint) Delay() time.Duration {
	return e.chain.Delay()
}

// Observe records the quota reported by the last response
func (e *Endpoint) Observe(remaining int, resetAt time.Time) {
	if resetAt.IsZero() {
		return
	}
	e.server.Update(remaining, resetAt)
}

// Exhausted marks the server window closed until resetAt. A zero resetAt
// closes it for one full window.
func (e *Endpoint) Exhausted(resetAt time.Time) {
	if resetAt.IsZero() {
		resetAt = time.Now().Add(e.Window)
	}
	e.server.Exhaust(resetAt)
}

// Reset clears all limiter state
func (e *Endpoint) Reset() {
	e.chain.Reset()
}
