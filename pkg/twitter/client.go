package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"followgraph/pkg/config"
	errs "followgraph/pkg/errors"
	"followgraph/pkg/logger"
)

// Client represents a Twitter v1.1 API client
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a new API client from the api configuration section
func NewClient(cfg config.APIConfig, log logger.Logger) *Client {
	// Use default logger if none provided
	if log == nil {
		log = logger.GetLogger()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	headers := map[string]string{
		"Accept": "application/json",
	}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	if cfg.BearerToken != "" {
		headers["Authorization"] = "Bearer " + cfg.BearerToken
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: headers,
		baseURL: baseURL,
		logger:  log,
	}
}

// BaseURL returns the API host the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		// Cancellation is the caller's decision, not a network fault
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// GetJSON performs a GET request and decodes the JSON response into target.
// The returned RateInfo is nil when the response carries no quota headers.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) (*RateInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rate := ParseRateInfo(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return rate, errs.New(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body: %v", err)
	}

	if err := c.checkResponseStatus(resp, body, rate); err != nil {
		return rate, err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return rate, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}

	return rate, nil
}

// checkResponseStatus maps non-2xx responses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response, body []byte, rate *RateInfo) error {
	if resp.StatusCode < 300 {
		return nil
	}

	var apiResp apiErrorResponse
	message := ""
	if json.Unmarshal(body, &apiResp) == nil {
		message = apiResp.message()
	}

	apiErr := errs.FromStatusCode(resp.StatusCode, message)
	if apiErr == nil {
		apiErr = errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
		"error":  apiErr.Message,
	}

	switch apiErr.Type {
	case errs.ErrorTypeRateLimit:
		if rate != nil && !rate.Reset.IsZero() {
			apiErr.ResetAt = rate.Reset
			fields["reset"] = rate.Reset.Format(time.RFC3339)
		}
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case errs.ErrorTypeAuth:
		c.logger.WarnWithFields("not authorized", fields)
	case errs.ErrorTypeForbidden, errs.ErrorTypeNotFound:
		c.logger.WarnWithFields("resource unavailable", fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}

	return apiErr
}

// SearchUsers fetches one page of accounts matching query
func (c *Client) SearchUsers(ctx context.Context, query string, page, count int) ([]Account, *RateInfo, error) {
	url := SearchUsersURL(c.baseURL, query, page, count)

	c.logger.DebugWithFields("searching accounts", map[string]interface{}{
		"query": query,
		"page":  page,
		"count": count,
	})

	var accounts []Account
	rate, err := c.GetJSON(ctx, url, &accounts)
	if err != nil {
		return nil, rate, fmt.Errorf("search %q page %d: %w", query, page, err)
	}

	return accounts, rate, nil
}

// FollowerIDs fetches one page of follower IDs for userID. Pass StartCursor
// for the first page; the returned page's NextCursor is EndCursor on the last.
func (c *Client) FollowerIDs(ctx context.Context, userID, cursor string) (*IDPage, *RateInfo, error) {
	url := FollowerIDsURL(c.baseURL, userID, cursor)

	c.logger.DebugWithFields("fetching follower IDs", map[string]interface{}{
		"user_id": userID,
		"cursor":  cursor,
	})

	var page IDPage
	rate, err := c.GetJSON(ctx, url, &page)
	if err != nil {
		return nil, rate, fmt.Errorf("followers of %s at cursor %s: %w", userID, cursor, err)
	}

	return &page, rate, nil
}

// RateLimitStatus fetches the quota of the given resource families. It also
// serves as a cheap credential check.
func (c *Client) RateLimitStatus(ctx context.Context, resources ...string) (*RateLimitStatus, error) {
	var status RateLimitStatus
	if _, err := c.GetJSON(ctx, RateLimitStatusURL(c.baseURL, resources...), &status); err != nil {
		return nil, fmt.Errorf("rate limit status: %w", err)
	}
	return &status, nil
}
