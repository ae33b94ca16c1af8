// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package strava implements the HTTP client for the Strava v3 REST API and
// its OAuth token endpoint.
//
// Request configuration:
//   - Authentication: Authorization: Bearer <token> on all API requests
//   - Status validation: 401 and 404 map to sentinel errors, everything else
//     non-2xx to UpstreamError
//   - Rate limiting: a token bucket spreads calls under Strava's
//     100-requests-per-15-minutes application quota
//   - Timeouts: every call is bounded by the configured request timeout
package strava

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
)

// Client talks to the Strava REST API. All methods take the bearer token
// explicitly; token lifecycle is the token provider's concern.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Strava API client from configuration.
func NewClient(cfg *config.StravaConfig) *Client {
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = 15 * time.Minute
	}
	requests := cfg.RateLimitRequests
	if requests <= 0 {
		requests = 100
	}

	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		// Allow short bursts but keep the sustained rate under the quota.
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(requests)), 10),
	}
}

// requestConfig holds configuration for building API requests.
type requestConfig struct {
	endpoint string // metric label, e.g. "athlete"
	path     string
	query    url.Values
}

// doRequest executes a Strava API GET and returns the raw response body.
// The body is returned verbatim; only the status code is interpreted here.
func (c *Client) doRequest(ctx context.Context, token string, cfg requestConfig) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &UpstreamError{Err: err}
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, cfg.path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if len(cfg.query) > 0 {
		req.URL.RawQuery = cfg.query.Encode()
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordStravaRequest(cfg.endpoint, "error", time.Since(start))
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	metrics.RecordStravaRequest(cfg.endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	return json.RawMessage(body), nil
}

// Athlete fetches the authenticated athlete's profile.
func (c *Client) Athlete(ctx context.Context, token string) (json.RawMessage, error) {
	return c.doRequest(ctx, token, requestConfig{
		endpoint: "athlete",
		path:     "/athlete",
	})
}

// Activities fetches one page of the athlete's activity list. before and
// after are unix seconds; 0 omits the bound.
func (c *Client) Activities(ctx context.Context, token string, page, perPage int, before, after int64) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	if before > 0 {
		query.Set("before", strconv.FormatInt(before, 10))
	}
	if after > 0 {
		query.Set("after", strconv.FormatInt(after, 10))
	}

	return c.doRequest(ctx, token, requestConfig{
		endpoint: "activities",
		path:     "/athlete/activities",
		query:    query,
	})
}

// Activity fetches the detailed representation of one activity.
func (c *Client) Activity(ctx context.Context, token string, activityID int64) (json.RawMessage, error) {
	return c.doRequest(ctx, token, requestConfig{
		endpoint: "activity_detail",
		path:     fmt.Sprintf("/activities/%d", activityID),
	})
}
