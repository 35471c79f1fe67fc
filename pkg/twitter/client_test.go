package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followgraph/pkg/config"
	"followgraph/pkg/errors"
	"followgraph/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewTestLogger()
	client := NewClient(config.APIConfig{
		BaseURL:     server.URL,
		BearerToken: "test-token",
		UserAgent:   "followgraph-test",
		Timeout:     5 * time.Second,
	}, log)
	return client, log
}

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()
	client := NewClient(config.APIConfig{BearerToken: "abc"}, log)

	assert.NotNil(t, client.httpClient)
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "Bearer abc", client.headers["Authorization"])
	assert.Equal(t, log, client.logger)
}

func TestSearchUsers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SearchUsersEndpoint, r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "followgraph-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "#openscience", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("count"))

		w.Header().Set("x-rate-limit-limit", "900")
		w.Header().Set("x-rate-limit-remaining", "899")
		w.Header().Set("x-rate-limit-reset", "1700000000")
		w.Write([]byte(`[
			{"id_str":"1","screen_name":"alice","name":"Alice","description":"open science",
			 "followers_count":10,"created_at":"Wed Oct 10 20:19:24 +0000 2018","verified":true},
			{"id_str":"2","screen_name":"bob","name":"Bob","description":""}
		]`))
	})

	accounts, rate, err := client.SearchUsers(context.Background(), "#openscience", 2, 20)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "1", accounts[0].ID)
	assert.Equal(t, "alice", accounts[0].ScreenName)
	assert.Equal(t, 10, accounts[0].FollowersCount)
	assert.True(t, accounts[0].Verified)

	created, err := accounts[0].Created()
	require.NoError(t, err)
	assert.Equal(t, 2018, created.Year())

	require.NotNil(t, rate)
	assert.Equal(t, 900, rate.Limit)
	assert.Equal(t, 899, rate.Remaining)
	assert.Equal(t, int64(1700000000), rate.Reset.Unix())
}

func TestFollowerIDsPaging(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, FollowerIDsEndpoint, r.URL.Path)
		assert.Equal(t, "42", q.Get("user_id"))
		assert.Equal(t, "5000", q.Get("count"))
		assert.Equal(t, "true", q.Get("stringify_ids"))

		switch q.Get("cursor") {
		case "-1":
			w.Write([]byte(`{"ids":["1","2"],"next_cursor_str":"777","previous_cursor_str":"0"}`))
		case "777":
			w.Write([]byte(`{"ids":["3"],"next_cursor_str":"0","previous_cursor_str":"-777"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	var all []string
	cursor := StartCursor
	for {
		page, _, err := client.FollowerIDs(context.Background(), "42", cursor)
		require.NoError(t, err)
		all = append(all, page.IDs...)
		if page.Last() {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"1", "2", "3"}, all)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType errors.ErrorType
		wantMsg  string
	}{
		{"protected account", http.StatusUnauthorized, `{"request":"/1.1/followers/ids.json","error":"Not authorized."}`, errors.ErrorTypeAuth, "Not authorized."},
		{"suspended", http.StatusForbidden, `{"errors":[{"code":63,"message":"User has been suspended."}]}`, errors.ErrorTypeForbidden, "User has been suspended."},
		{"deleted", http.StatusNotFound, `{"errors":[{"code":34,"message":"Sorry, that page does not exist."}]}`, errors.ErrorTypeNotFound, "does not exist"},
		{"rate limited", http.StatusTooManyRequests, `{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`, errors.ErrorTypeRateLimit, "Rate limit exceeded"},
		{"server error", http.StatusServiceUnavailable, ``, errors.ErrorTypeServerError, "Service Unavailable"},
		{"bad request", http.StatusBadRequest, `not json`, errors.ErrorTypeUnknown, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, _, err := client.FollowerIDs(context.Background(), "1", StartCursor)
			require.Error(t, err)

			var apiErr *errors.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
			assert.Contains(t, apiErr.Message, tt.wantMsg)
			assert.NotEmpty(t, log.GetMessages())
		})
	}
}

func TestRateLimitCarriesReset(t *testing.T) {
	reset := time.Now().Add(7 * time.Minute).Truncate(time.Second)
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-rate-limit-limit", "15")
		w.Header().Set("x-rate-limit-remaining", "0")
		w.Header().Set("x-rate-limit-reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, rate, err := client.FollowerIDs(context.Background(), "1", StartCursor)
	require.Error(t, err)
	assert.True(t, errors.IsRateLimit(err))

	got, ok := errors.ResetTime(err)
	require.True(t, ok)
	assert.Equal(t, reset.Unix(), got.Unix())

	require.NotNil(t, rate)
	assert.Equal(t, 0, rate.Remaining)
	assert.True(t, log.HasMessage("rate limit exceeded"))
}

func TestParsingError(t *testing.T) {
	client, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{invalid json`))
	})

	_, _, err := client.SearchUsers(context.Background(), "x", 1, 20)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeParsing, errors.TypeOf(err))
	assert.True(t, log.HasMessage("failed to parse JSON response"))
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(config.APIConfig{BaseURL: url, Timeout: time.Second}, logger.NewTestLogger())
	_, _, err := client.FollowerIDs(context.Background(), "1", StartCursor)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
}

func TestCancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.SearchUsers(ctx, "x", 1, 20)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, errors.ErrorTypeUnknown, errors.TypeOf(err), "cancellation is not an API error")
}

func TestRateLimitStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, RateLimitStatusEndpoint, r.URL.Path)
		assert.Equal(t, "followers,users", r.URL.Query().Get("resources"))
		w.Write([]byte(`{"resources":{"followers":{"/followers/ids":{"limit":15,"remaining":14,"reset":1700000000}}}}`))
	})

	status, err := client.RateLimitStatus(context.Background(), "followers", "users")
	require.NoError(t, err)
	entry := status.Resources["followers"]["/followers/ids"]
	assert.Equal(t, 15, entry.Limit)
	assert.Equal(t, 14, entry.Remaining)
}
