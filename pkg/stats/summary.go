package stats

import (
	"errors"
	"fmt"
	"sort"

	mstats "github.com/montanaflynn/stats"

	"followgraph/pkg/annotation"
	"followgraph/pkg/twitter"
)

// Metrics are the account counters summarized by default
var Metrics = []string{"followers_count", "friends_count", "statuses_count"}

// ErrUnknownMetric is returned for a metric name Metric does not know
var ErrUnknownMetric = errors.New("unknown metric")

// Summary describes a numeric sample. StdDev is the sample standard
// deviation and is 0 for fewer than two values.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes a Summary. An empty sample yields the zero Summary.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, nil
	}
	data := mstats.Float64Data(values)

	var s Summary
	var err error
	s.N = data.Len()
	if s.Mean, err = data.Mean(); err != nil {
		return Summary{}, fmt.Errorf("mean: %w", err)
	}
	if s.Median, err = data.Median(); err != nil {
		return Summary{}, fmt.Errorf("median: %w", err)
	}
	if s.Min, err = data.Min(); err != nil {
		return Summary{}, fmt.Errorf("min: %w", err)
	}
	if s.Max, err = data.Max(); err != nil {
		return Summary{}, fmt.Errorf("max: %w", err)
	}
	if s.N > 1 {
		if s.StdDev, err = data.StandardDeviationSample(); err != nil {
			return Summary{}, fmt.Errorf("standard deviation: %w", err)
		}
	}
	return s, nil
}

// Metric returns the named counter of an account
func Metric(a *twitter.Account, name string) (float64, error) {
	switch name {
	case "followers_count":
		return float64(a.FollowersCount), nil
	case "friends_count":
		return float64(a.FriendsCount), nil
	case "statuses_count":
		return float64(a.StatusesCount), nil
	case "listed_count":
		return float64(a.ListedCount), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// SummarizeMetric summarizes one counter over all accounts
func SummarizeMetric(accounts []annotation.Annotated, metric string) (Summary, error) {
	values := make([]float64, 0, len(accounts))
	for i := range accounts {
		v, err := Metric(&accounts[i].Account, metric)
		if err != nil {
			return Summary{}, err
		}
		values = append(values, v)
	}
	return Summarize(values)
}

// GroupSummary is a Summary for the accounts sharing one category value
type GroupSummary struct {
	Value string `json:"value"`
	Summary
}

// SummarizeBy summarizes metric separately for every value of category,
// ordered by value.
func SummarizeBy(accounts []annotation.Annotated, metric, category string) ([]GroupSummary, error) {
	groups := make(map[string][]float64)
	for i := range accounts {
		v, err := Metric(&accounts[i].Account, metric)
		if err != nil {
			return nil, err
		}
		key := accounts[i].Code(category)
		groups[key] = append(groups[key], v)
	}

	values := make([]string, 0, len(groups))
	for k := range groups {
		values = append(values, k)
	}
	sort.Strings(values)

	out := make([]GroupSummary, 0, len(values))
	for _, v := range values {
		s, err := Summarize(groups[v])
		if err != nil {
			return nil, fmt.Errorf("%s=%s: %w", category, v, err)
		}
		out = append(out, GroupSummary{Value: v, Summary: s})
	}
	return out, nil
}
