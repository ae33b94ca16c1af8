// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
)

// ErrTokenRefreshFailed indicates the OAuth token endpoint rejected a refresh
// or exchange request, or the request itself failed.
var ErrTokenRefreshFailed = errors.New("strava: token refresh failed")

// TokenResponse is the OAuth token endpoint response. Strava returns the
// expiry both as an absolute unix timestamp and a relative expires_in; the
// absolute form is authoritative. The authorization-code exchange additionally
// embeds the athlete's summary profile.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresAt    int64           `json:"expires_at"`
	ExpiresIn    int64           `json:"expires_in"`
	Athlete      json.RawMessage `json:"athlete,omitempty"`
}

// Expiry returns the access token expiry as a time.Time, falling back to
// expires_in relative to now when expires_at is absent.
func (t *TokenResponse) Expiry(now time.Time) time.Time {
	if t.ExpiresAt > 0 {
		return time.Unix(t.ExpiresAt, 0)
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// OAuthClient talks to the Strava OAuth token endpoint.
type OAuthClient struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewOAuthClient creates a token endpoint client from configuration.
func NewOAuthClient(cfg *config.StravaConfig) *OAuthClient {
	return &OAuthClient{
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Exchange swaps an authorization code for a credential pair.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	return c.postToken(ctx, form)
}

// Refresh obtains a new access token from a refresh token. Strava does not
// always rotate the refresh token; callers must fall back to the previous one
// when the response omits it.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.postToken(ctx, form)
}

func (c *OAuthClient) postToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTokenRefreshFailed, resp.StatusCode)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTokenRefreshFailed, err)
	}

	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: response missing access token", ErrTokenRefreshFailed)
	}

	return &tr, nil
}
