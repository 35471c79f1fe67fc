package twitter

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CreatedAtLayout is the timestamp layout used by the v1.1 API
const CreatedAtLayout = time.RubyDate

// Account represents a user account as returned by the search endpoint
type Account struct {
	ID             string `json:"id_str"`
	ScreenName     string `json:"screen_name"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	URL            string `json:"url,omitempty"`
	FollowersCount int    `json:"followers_count"`
	FriendsCount   int    `json:"friends_count"`
	StatusesCount  int    `json:"statuses_count"`
	ListedCount    int    `json:"listed_count"`
	CreatedAt      string `json:"created_at"`
	Verified       bool   `json:"verified"`
	Protected      bool   `json:"protected"`
	Lang           string `json:"lang,omitempty"`
}

// Created parses CreatedAt
func (a *Account) Created() (time.Time, error) {
	return time.Parse(CreatedAtLayout, a.CreatedAt)
}

// Field returns the value of a text field by its JSON name. Unknown names
// return "".
func (a *Account) Field(name string) string {
	switch strings.ToLower(name) {
	case "screen_name":
		return a.ScreenName
	case "name":
		return a.Name
	case "description":
		return a.Description
	case "location":
		return a.Location
	case "url":
		return a.URL
	case "lang":
		return a.Lang
	default:
		return ""
	}
}

// IDPage is one page of follower IDs
type IDPage struct {
	IDs            []string `json:"ids"`
	NextCursor     string   `json:"next_cursor_str"`
	PreviousCursor string   `json:"previous_cursor_str"`
}

// Last reports whether no page follows this one
func (p *IDPage) Last() bool {
	return p.NextCursor == "" || p.NextCursor == EndCursor
}

// RateInfo is the quota state reported in the x-rate-limit-* headers
type RateInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// ParseRateInfo reads the rate limit headers. It returns nil when the
// response carries none.
func ParseRateInfo(h http.Header) *RateInfo {
	remaining := h.Get("x-rate-limit-remaining")
	reset := h.Get("x-rate-limit-reset")
	if remaining == "" && reset == "" {
		return nil
	}

	info := &RateInfo{}
	if v, err := strconv.Atoi(h.Get("x-rate-limit-limit")); err == nil {
		info.Limit = v
	}
	if v, err := strconv.Atoi(remaining); err == nil {
		info.Remaining = v
	}
	if v, err := strconv.ParseInt(reset, 10, 64); err == nil {
		info.Reset = time.Unix(v, 0)
	}
	return info
}

// RateLimitStatus is the response of the rate limit status endpoint
type RateLimitStatus struct {
	Resources map[string]map[string]RateLimitEntry `json:"resources"`
}

// RateLimitEntry is the quota of one endpoint
type RateLimitEntry struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// apiErrorResponse covers both error body shapes the API returns
type apiErrorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Error string `json:"error"`
}

func (r *apiErrorResponse) message() string {
	if r.Error != "" {
		return r.Error
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Message != "" {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
