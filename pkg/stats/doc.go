// Package stats computes descriptive statistics over annotated accounts and
// the follower graph: frequency tables, cross-tabulations, numeric summaries
// of the account counters and degree summaries of the graph.
package stats
