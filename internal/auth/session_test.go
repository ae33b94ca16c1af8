// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
)

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		SessionSecret: "test-secret-that-is-long-enough-32ch",
		SessionMaxAge: time.Hour,
		CookieName:    "fo_session",
	}
}

func TestSessionManager_TokenRoundTrip(t *testing.T) {
	m, err := NewSessionManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	token, err := m.GenerateToken(1001)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	athleteID, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if athleteID != 1001 {
		t.Errorf("athleteID = %d, want 1001", athleteID)
	}
}

func TestSessionManager_RejectsExpiredToken(t *testing.T) {
	m, err := NewSessionManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}

	past := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return past }
	token, err := m.GenerateToken(1001)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	m.now = time.Now
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestSessionManager_RejectsWrongSecret(t *testing.T) {
	m1, _ := NewSessionManager(testSecurityConfig())

	cfg2 := testSecurityConfig()
	cfg2.SessionSecret = "a-completely-different-secret-32char"
	m2, _ := NewSessionManager(cfg2)

	token, err := m1.GenerateToken(1001)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if _, err := m2.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
}

func TestSessionManager_RejectsGarbage(t *testing.T) {
	m, _ := NewSessionManager(testSecurityConfig())

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := m.ValidateToken(token); err == nil {
			t.Errorf("ValidateToken(%q) accepted", token)
		}
	}
}

func TestNewSessionManager_RequiresSecret(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.SessionSecret = ""
	if _, err := NewSessionManager(cfg); err == nil {
		t.Error("expected error for empty session secret")
	}
}

func TestMiddleware_ValidCookiePassesAthleteID(t *testing.T) {
	m, _ := NewSessionManager(testSecurityConfig())

	var gotAthleteID int64
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAthleteID = logging.AthleteIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	if err := m.SetCookie(rec, 1001); err != nil {
		t.Fatalf("SetCookie() error = %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/api/v1/athlete", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if gotAthleteID != 1001 {
		t.Errorf("context athleteID = %d, want 1001", gotAthleteID)
	}
}

func TestMiddleware_MissingCookie401(t *testing.T) {
	m, _ := NewSessionManager(testSecurityConfig())

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without session")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/athlete", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.CookieSecure = true
	m, _ := NewSessionManager(cfg)

	rec := httptest.NewRecorder()
	if err := m.SetCookie(rec, 1001); err != nil {
		t.Fatalf("SetCookie() error = %v", err)
	}

	cookie := rec.Result().Cookies()[0]
	if !cookie.HttpOnly {
		t.Error("cookie not HttpOnly")
	}
	if !cookie.Secure {
		t.Error("cookie not Secure despite config")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}

	clear := httptest.NewRecorder()
	m.ClearCookie(clear)
	cleared := clear.Result().Cookies()[0]
	if cleared.MaxAge >= 0 {
		t.Errorf("cleared cookie MaxAge = %d, want negative", cleared.MaxAge)
	}
}
