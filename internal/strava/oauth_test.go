// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
)

func testOAuthConfig(tokenURL string) *config.StravaConfig {
	return &config.StravaConfig{
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		TokenURL:       tokenURL,
		RequestTimeout: 5 * time.Second,
	}
}

func TestOAuthClient_Exchange(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{
			"access_token": "access-1",
			"refresh_token": "refresh-1",
			"expires_at": 1787000000,
			"athlete": {"id": 1001}
		}`))
	}))
	defer server.Close()

	client := NewOAuthClient(testOAuthConfig(server.URL))
	tr, err := client.Exchange(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	want := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "auth-code",
		"client_id":     "client-id",
		"client_secret": "client-secret",
	}
	for key, value := range want {
		if gotForm.Get(key) != value {
			t.Errorf("form %s = %q, want %q", key, gotForm.Get(key), value)
		}
	}

	if tr.AccessToken != "access-1" || tr.RefreshToken != "refresh-1" {
		t.Errorf("tokens = %q / %q", tr.AccessToken, tr.RefreshToken)
	}
	if len(tr.Athlete) == 0 {
		t.Error("embedded athlete summary missing")
	}
}

func TestOAuthClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "refresh-old" {
			t.Errorf("refresh_token = %q", got)
		}
		w.Write([]byte(`{"access_token": "access-2", "expires_in": 21600}`))
	}))
	defer server.Close()

	client := NewOAuthClient(testOAuthConfig(server.URL))
	tr, err := client.Refresh(context.Background(), "refresh-old")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if tr.AccessToken != "access-2" {
		t.Errorf("access token = %q", tr.AccessToken)
	}
}

func TestOAuthClient_ErrorStatusWrapsRefreshFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewOAuthClient(testOAuthConfig(server.URL))
	if _, err := client.Refresh(context.Background(), "bad"); !errors.Is(err, ErrTokenRefreshFailed) {
		t.Errorf("error = %v, want ErrTokenRefreshFailed", err)
	}
}

func TestOAuthClient_MissingAccessTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"refresh_token": "only-refresh"}`))
	}))
	defer server.Close()

	client := NewOAuthClient(testOAuthConfig(server.URL))
	if _, err := client.Refresh(context.Background(), "tok"); !errors.Is(err, ErrTokenRefreshFailed) {
		t.Errorf("error = %v, want ErrTokenRefreshFailed", err)
	}
}

func TestTokenResponse_Expiry(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	absolute := &TokenResponse{ExpiresAt: 1787000000, ExpiresIn: 21600}
	if got := absolute.Expiry(now); !got.Equal(time.Unix(1787000000, 0)) {
		t.Errorf("Expiry() = %v, want absolute expires_at", got)
	}

	relative := &TokenResponse{ExpiresIn: 21600}
	if got := relative.Expiry(now); !got.Equal(now.Add(6 * time.Hour)) {
		t.Errorf("Expiry() = %v, want now+6h", got)
	}
}
