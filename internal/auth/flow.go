// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
)

const (
	stateCookieName = "fo_oauth_state"
	stateTTL        = 10 * time.Minute
)

// TokenStore persists the credential obtained from a code exchange.
// Implemented by tokens.Provider.
type TokenStore interface {
	Store(ctx context.Context, athleteID int64, tr *strava.TokenResponse) error
}

// ProfileStore seeds the profile cache from the athlete summary embedded in
// the exchange response. Implemented by database.DB.
type ProfileStore interface {
	UpsertAthlete(ctx context.Context, row *models.AthleteRow) error
}

// FlowHandler serves the OAuth login, callback and logout endpoints.
type FlowHandler struct {
	sessions *SessionManager
	exchange *strava.OAuthClient
	tokens   TokenStore
	profiles ProfileStore

	authorizeURL string
	clientID     string
	scopes       string
	redirectURI  string
	secure       bool
}

// NewFlowHandler creates the OAuth flow handler. The callback redirect URI is
// derived from the server base URL; Strava requires it to match the
// application's registered callback domain.
func NewFlowHandler(cfg *config.Config, sessions *SessionManager, exchange *strava.OAuthClient, tokens TokenStore, profiles ProfileStore) *FlowHandler {
	return &FlowHandler{
		sessions:     sessions,
		exchange:     exchange,
		tokens:       tokens,
		profiles:     profiles,
		authorizeURL: cfg.Strava.AuthorizeURL,
		clientID:     cfg.Strava.ClientID,
		scopes:       cfg.Strava.Scopes,
		redirectURI:  strings.TrimRight(cfg.Server.BaseURL, "/") + "/auth/callback",
		secure:       cfg.Security.CookieSecure,
	}
}

// Login redirects the browser to Strava's authorize endpoint with a fresh
// state nonce. The nonce is mirrored in a short-lived HTTP-only cookie so the
// callback can verify the response belongs to this browser.
func (h *FlowHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := newStateNonce()
	if err != nil {
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	query := url.Values{}
	query.Set("client_id", h.clientID)
	query.Set("redirect_uri", h.redirectURI)
	query.Set("response_type", "code")
	query.Set("approval_prompt", "auto")
	query.Set("scope", h.scopes)
	query.Set("state", state)

	http.Redirect(w, r, h.authorizeURL+"?"+query.Encode(), http.StatusFound)
}

// Callback completes the OAuth flow: it checks the state nonce, exchanges the
// code for tokens, persists the credential, seeds the profile cache from the
// athlete summary Strava embeds in the exchange response, and issues the
// session cookie.
func (h *FlowHandler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The nonce is single-use. Queue the clearing Set-Cookie now, before any
	// exit path writes the response headers.
	h.clearStateCookie(w)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		// The athlete declined on Strava's consent screen.
		logging.Ctx(ctx).Info().Str("oauth_error", errParam).Msg("OAuth authorization denied")
		http.Redirect(w, r, "/?error=access_denied", http.StatusFound)
		return
	}

	if !h.validState(r) {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	tr, err := h.exchange.Exchange(ctx, code)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("OAuth code exchange failed")
		http.Error(w, "authorization failed", http.StatusBadGateway)
		return
	}

	athleteID, err := athleteIDFromSummary(tr.Athlete)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("OAuth exchange response missing athlete id")
		http.Error(w, "authorization failed", http.StatusBadGateway)
		return
	}

	if err := h.tokens.Store(ctx, athleteID, tr); err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("athlete_id", athleteID).Msg("Failed to persist credential")
		http.Error(w, "authorization failed", http.StatusInternalServerError)
		return
	}

	// The embedded summary is a usable first profile row; the first
	// /api/v1/athlete hit within the cooldown serves it without an
	// upstream call.
	if err := h.profiles.UpsertAthlete(ctx, &models.AthleteRow{
		AthleteID:  athleteID,
		Payload:    tr.Athlete,
		LastSynced: time.Now(),
	}); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("athlete_id", athleteID).Msg("Failed to seed profile cache")
	}

	if err := h.sessions.SetCookie(w, athleteID); err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	logging.Ctx(ctx).Info().Int64("athlete_id", athleteID).Msg("Athlete logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout clears the session cookie.
func (h *FlowHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "success",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

func (h *FlowHandler) validState(r *http.Request) bool {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	state := r.URL.Query().Get("state")
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) == 1
}

func (h *FlowHandler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newStateNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// athleteIDFromSummary pulls the athlete id out of the summary profile
// embedded in the authorization-code exchange response.
func athleteIDFromSummary(payload json.RawMessage) (int64, error) {
	var summary struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &summary); err != nil {
		return 0, err
	}
	if summary.ID <= 0 {
		return 0, errors.New("athlete id absent from exchange response")
	}
	return summary.ID, nil
}
