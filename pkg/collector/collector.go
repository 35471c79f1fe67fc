// Package collector searches for accounts by keyword, merges the results of
// all keyword variants by account ID and drops false positives whose text
// fields do not mention any filter term.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"followgraph/pkg/config"
	"followgraph/pkg/logger"
	"followgraph/pkg/ratelimit"
	"followgraph/pkg/retry"
	"followgraph/pkg/twitter"
)

// Searcher is the account search API
type Searcher interface {
	SearchUsers(ctx context.Context, query string, page, count int) ([]twitter.Account, *twitter.RateInfo, error)
}

// Options controls a search run
type Options struct {
	Keywords    []string
	FilterTerms []string
	MatchFields []string
	Pages       int
	PerPage     int
}

// OptionsFromConfig derives search options from the configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Keywords:    cfg.Search.Keywords,
		FilterTerms: cfg.EffectiveFilterTerms(),
		MatchFields: cfg.Search.MatchFields,
		Pages:       cfg.Search.Pages,
		PerPage:     cfg.Search.PerPage,
	}
}

// Collected is an account together with the queries that returned it
type Collected struct {
	twitter.Account
	MatchedQueries []string `json:"matched_queries"`
}

// QueryStats summarizes the pages fetched for one keyword
type QueryStats struct {
	Query    string `json:"query"`
	Pages    int    `json:"pages"`
	Returned int    `json:"returned"`
	New      int    `json:"new"`
}

// Result is the outcome of a search run
type Result struct {
	Accounts    []Collected  `json:"accounts"`
	Rejected    []Collected  `json:"rejected"`
	Queries     []QueryStats `json:"queries"`
	CollectedAt time.Time    `json:"collected_at"`
}

// Collector runs keyword searches
type Collector struct {
	client   Searcher
	endpoint *ratelimit.Endpoint
	retrier  *retry.Retrier
	opts     Options
	logger   logger.Logger
}

// New creates a collector. endpoint and retrier may be nil, in which case
// requests are neither paced nor retried.
func New(client Searcher, opts Options, endpoint *ratelimit.Endpoint, retrier *retry.Retrier, log logger.Logger) *Collector {
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.PerPage <= 0 {
		opts.PerPage = twitter.MaxSearchCount
	}
	if len(opts.MatchFields) == 0 {
		opts.MatchFields = []string{"screen_name", "name", "description"}
	}
	if endpoint == nil {
		endpoint = ratelimit.NewEndpoint("search", 0, 0, 0)
	}
	if retrier == nil {
		retrier = retry.NewRetrier(&retry.Config{MaxAttempts: 1})
	}

	return &Collector{
		client:   client,
		endpoint: endpoint,
		retrier:  retrier,
		opts:     opts,
		logger:   logger.OrDefault(log).WithField("component", "collector"),
	}
}

// Run searches every keyword and returns the deduplicated, filtered accounts.
// On error the accounts collected so far are returned with it.
func (c *Collector) Run(ctx context.Context) (*Result, error) {
	if len(c.opts.Keywords) == 0 {
		return nil, fmt.Errorf("no keywords configured")
	}

	logger.LogComponentStart(c.logger, "collector", map[string]interface{}{
		"keywords": strings.Join(c.opts.Keywords, ","),
		"pages":    c.opts.Pages,
		"per_page": c.opts.PerPage,
	})

	set := newAccountSet()
	result := &Result{CollectedAt: time.Now().UTC()}

	var runErr error
	for _, kw := range c.opts.Keywords {
		stats, err := c.searchKeyword(ctx, kw, set)
		result.Queries = append(result.Queries, stats)
		if err != nil {
			runErr = err
			break
		}
	}

	result.Accounts, result.Rejected = Filter(set.list(), c.opts.FilterTerms, c.opts.MatchFields)

	c.logger.InfoWithFields("search finished", map[string]interface{}{
		"unique":   set.len(),
		"kept":     len(result.Accounts),
		"rejected": len(result.Rejected),
	})

	return result, runErr
}

func (c *Collector) searchKeyword(ctx context.Context, query string, set *accountSet) (QueryStats, error) {
	stats := QueryStats{Query: query}
	retrier := c.retrier.WithContext(ctx).WithOnWait(func(err error, d time.Duration) {
		c.endpoint.Exhausted(time.Now().Add(d))
		logger.LogRateLimit(c.logger, c.endpoint.Name, d)
	})

	for page := 1; page <= c.opts.Pages; page++ {
		if d := c.endpoint.Delay(); d > time.Second {
			logger.LogRateLimit(c.logger, c.endpoint.Name, d)
		}

		var accounts []twitter.Account
		err := retrier.Do(func() error {
			if err := c.endpoint.Wait(ctx); err != nil {
				return err
			}
			var rate *twitter.RateInfo
			var err error
			accounts, rate, err = c.client.SearchUsers(ctx, query, page, c.opts.PerPage)
			if rate != nil {
				c.endpoint.Observe(rate.Remaining, rate.Reset)
			}
			return err
		})
		if err != nil {
			return stats, fmt.Errorf("search %q: %w", query, err)
		}

		stats.Pages++
		stats.Returned += len(accounts)
		if len(accounts) == 0 {
			break
		}

		added := set.add(accounts, query)
		stats.New += added

		c.logger.DebugWithFields("search page", map[string]interface{}{
			"query":    query,
			"page":     page,
			"returned": len(accounts),
			"new":      added,
		})

		// The endpoint repeats its last page once results run out
		if added == 0 {
			break
		}
	}

	c.logger.InfoWithFields("keyword searched", map[string]interface{}{
		"query":    query,
		"pages":    stats.Pages,
		"returned": stats.Returned,
		"new":      stats.New,
	})
	return stats, nil
}

// accountSet deduplicates accounts by ID in first-seen order
type accountSet struct {
	index map[string]int
	items []Collected
}

func newAccountSet() *accountSet {
	return &accountSet{index: make(map[string]int)}
}

// add merges accounts returned by query and reports how many were new
func (s *accountSet) add(accounts []twitter.Account, query string) int {
	added := 0
	for _, a := range accounts {
		if a.ID == "" {
			continue
		}
		if i, ok := s.index[a.ID]; ok {
			if !contains(s.items[i].MatchedQueries, query) {
				s.items[i].MatchedQueries = append(s.items[i].MatchedQueries, query)
			}
			continue
		}
		s.index[a.ID] = len(s.items)
		s.items = append(s.items, Collected{Account: a, MatchedQueries: []string{query}})
		added++
	}
	return added
}

func (s *accountSet) list() []Collected { return s.items }
func (s *accountSet) len() int          { return len(s.items) }

// Matches reports whether any term occurs, case-insensitively, in any of the
// named fields of a. With no terms every account matches.
func Matches(a *twitter.Account, terms, fields []string) bool {
	if len(terms) == 0 {
		return true
	}
	for _, f := range fields {
		value := strings.ToLower(a.Field(f))
		if value == "" {
			continue
		}
		for _, term := range terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" && strings.Contains(value, term) {
				return true
			}
		}
	}
	return false
}

// Filter splits accounts into those matching a term and the rejected rest,
// preserving order.
func Filter(accounts []Collected, terms, fields []string) (kept, rejected []Collected) {
	kept = make([]Collected, 0, len(accounts))
	for _, a := range accounts {
		if Matches(&a.Account, terms, fields) {
			kept = append(kept, a)
		} else {
			rejected = append(rejected, a)
		}
	}
	return kept, rejected
}

// AccountList returns the plain accounts of a result
func (r *Result) AccountList() []twitter.Account {
	out := make([]twitter.Account, len(r.Accounts))
	for i, a := range r.Accounts {
		out[i] = a.Account
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
