// Package twitter provides a client for the account search and follower ID
// endpoints of the Twitter v1.1 REST API.
//
// This package includes:
//   - A bearer-token HTTP client with typed errors from pkg/errors
//   - Models for accounts, follower ID pages and rate limit headers
//   - Helper functions for constructing endpoint URLs
//
// Every call returns the RateInfo parsed from the x-rate-limit-* response
// headers so callers can pace the next request against the server's window.
// The client itself never sleeps or retries.
//
// Example usage:
//
//	client := twitter.NewClient(cfg.API, log)
//
//	accounts, rate, err := client.SearchUsers(ctx, "#openscience", 1, 20)
//	if err != nil {
//	    if errors.IsRateLimit(err) {
//	        reset, _ := errors.ResetTime(err)
//	        // wait until reset
//	    }
//	}
//
//	cursor := twitter.StartCursor
//	for cursor != twitter.EndCursor {
//	    page, _, err := client.FollowerIDs(ctx, accounts[0].ID, cursor)
//	    if err != nil {
//	        break
//	    }
//	    cursor = page.NextCursor
//	}
package twitter
