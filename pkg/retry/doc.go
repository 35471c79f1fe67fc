// Package retry provides exponential backoff and retry logic for transient
// failures of social API calls.
//
// A Config decides three things for every failed attempt:
//   - whether the error is a quota pause (WaitIf) that sleeps without using
//     up an attempt
//   - whether the error is retryable at all (RetryIf)
//   - how long to back off before the next attempt (Backoff or BackoffFor)
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		_, _, err := client.FollowerIDs(ctx, id, cursor)
//		return err
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		RetryIf:     retry.DefaultRetryIf,
//		WaitIf:      retry.RateLimitWait(15 * time.Minute),
//		Context:     ctx,
//		Logger:      log,
//	})
//
// FromConfig assembles the policy used for API endpoints: ByErrorType backs
// off longer after server errors than after network errors, and auth,
// forbidden and not found errors are never retried.
package retry
