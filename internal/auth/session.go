// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
)

// ErrNoSession indicates the request carries no valid session cookie.
var ErrNoSession = errors.New("auth: no valid session")

// SessionClaims are the JWT claims of a session cookie. The registered
// subject holds the Strava athlete ID.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionManager creates and validates JWT session cookies using HMAC-SHA256.
type SessionManager struct {
	secret     []byte
	maxAge     time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewSessionManager creates a session manager from security configuration.
func NewSessionManager(cfg *config.SecurityConfig) (*SessionManager, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session_secret is required")
	}

	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = "fo_session"
	}

	return &SessionManager{
		secret:     []byte(cfg.SessionSecret),
		maxAge:     maxAge,
		cookieName: cookieName,
		secure:     cfg.CookieSecure,
		now:        time.Now,
	}, nil
}

// GenerateToken creates a signed session token for an athlete.
func (m *SessionManager) GenerateToken(athleteID int64) (string, error) {
	now := m.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(athleteID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// ValidateToken verifies a session token and returns the athlete ID. Only
// HMAC-signed tokens are accepted; an RS256 or unsigned token is rejected
// before signature checking.
func (m *SessionManager) ValidateToken(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return 0, ErrNoSession
	}

	athleteID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || athleteID <= 0 {
		return 0, ErrNoSession
	}

	return athleteID, nil
}

// AthleteFromRequest extracts and validates the session cookie.
func (m *SessionManager) AthleteFromRequest(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return 0, ErrNoSession
	}
	return m.ValidateToken(cookie.Value)
}

// SetCookie issues the session cookie for an athlete.
func (m *SessionManager) SetCookie(w http.ResponseWriter, athleteID int64) error {
	token, err := m.GenerateToken(athleteID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
