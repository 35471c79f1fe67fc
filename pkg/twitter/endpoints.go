package twitter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the API host
	DefaultBaseURL = "https://api.twitter.com"

	// SearchUsersEndpoint searches accounts by keyword
	SearchUsersEndpoint = "/1.1/users/search.json"

	// FollowerIDsEndpoint lists follower IDs of one account
	FollowerIDsEndpoint = "/1.1/followers/ids.json"

	// RateLimitStatusEndpoint reports the quota of the current token
	RateLimitStatusEndpoint = "/1.1/application/rate_limit_status.json"

	// MaxSearchCount is the largest page the search endpoint returns
	MaxSearchCount = 20

	// MaxSearchResults is the number of results the search endpoint can page through
	MaxSearchResults = 1000

	// FollowerIDsCount is the page size requested from the follower endpoint
	FollowerIDsCount = 5000

	// StartCursor requests the first page of a cursored collection
	StartCursor = "-1"

	// EndCursor marks the last page of a cursored collection
	EndCursor = "0"
)

// SearchUsersURL constructs the URL for one page of account search results.
// Pages are 1-based; count is clamped to [1, MaxSearchCount].
func SearchUsersURL(baseURL, query string, page, count int) string {
	if page < 1 {
		page = 1
	}
	if count <= 0 || count > MaxSearchCount {
		count = MaxSearchCount
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("count", strconv.Itoa(count))

	return fmt.Sprintf("%s%s?%s", trimBase(baseURL), SearchUsersEndpoint, params.Encode())
}

// FollowerIDsURL constructs the URL for one page of follower IDs
func FollowerIDsURL(baseURL, userID, cursor string) string {
	if cursor == "" {
		cursor = StartCursor
	}

	params := url.Values{}
	params.Set("user_id", userID)
	params.Set("cursor", cursor)
	params.Set("count", strconv.Itoa(FollowerIDsCount))
	params.Set("stringify_ids", "true")

	return fmt.Sprintf("%s%s?%s", trimBase(baseURL), FollowerIDsEndpoint, params.Encode())
}

// RateLimitStatusURL constructs the URL for the quota status of resource families
func RateLimitStatusURL(baseURL string, resources ...string) string {
	u := trimBase(baseURL) + RateLimitStatusEndpoint
	if len(resources) == 0 {
		return u
	}
	params := url.Values{}
	params.Set("resources", strings.Join(resources, ","))
	return u + "?" + params.Encode()
}

// ProfileURL returns the public profile link for a screen name
func ProfileURL(screenName string) string {
	if screenName == "" {
		return ""
	}
	return "https://twitter.com/" + screenName
}

func trimBase(baseURL string) string {
	if baseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}
