// Package ratelimit paces requests against the social API's quota windows.
//
// The follower endpoint allows a small fixed number of calls per window
// (15 per 15 minutes by default), so every request passes through a chain
// of limiters before it is sent:
//
//   - SlidingWindow tracks our own requests inside a moving window
//   - Paced enforces a minimum spacing between consecutive calls
//   - ServerWindow follows the quota the server reports in its
//     x-rate-limit-* headers, which also accounts for calls made by other
//     clients sharing the same token
//
// All limiters implement Limiter. Wait blocks until a request may be sent or
// the context is cancelled; Delay reports how long the next Wait would block,
// which callers use to log long pauses before they happen.
//
//	limiter := ratelimit.NewChain(
//	    ratelimit.NewSlidingWindow(15, 15*time.Minute),
//	    ratelimit.NewPaced(time.Second, 1),
//	    server,
//	)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
