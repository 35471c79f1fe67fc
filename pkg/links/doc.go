// Package links collects follower edges between accounts.
//
// For every account, in input order, the collector pages through the
// account's follower IDs and records an edge follower -> account for each
// follower that is itself in the account set (or for every follower when
// external followers are kept). Requests are strictly sequential and each one
// waits on the follower endpoint's limiters first.
//
// Failures are classified per account:
//   - rate limit (429): pause until the reported reset and retry the same
//     page; this never counts as a failed attempt
//   - transient (network, 5xx): retry with exponential backoff, then mark the
//     account failed and move on
//   - permanent (401 protected, 403, 404): mark the account skipped
//
// Progress is checkpointed after every page, so an interrupted run resumes
// at the same account and cursor.
package links
