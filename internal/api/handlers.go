// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	syncsvc "github.com/fitnessoverlays/fitnessoverlays/internal/sync"
	"github.com/fitnessoverlays/fitnessoverlays/internal/validation"
)

// SyncService is the resource accessor surface the handlers need. Implemented
// by sync.Service.
type SyncService interface {
	Profile(ctx context.Context, athleteID int64) (*syncsvc.Result, error)
	Activities(ctx context.Context, athleteID int64, params syncsvc.ListParams) (*syncsvc.Result, error)
	Activity(ctx context.Context, athleteID, activityID int64) (*syncsvc.Result, error)
	SyncProfile(ctx context.Context, athleteID int64) (*syncsvc.SyncStatus, error)
}

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the session-gated data endpoints.
type Handler struct {
	svc      SyncService
	db       Pinger
	cooldown config.SyncConfig
}

// NewHandler creates the API handler.
func NewHandler(svc SyncService, db Pinger, cooldown config.SyncConfig) *Handler {
	return &Handler{svc: svc, db: db, cooldown: cooldown}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "up"
	status := "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		dbStatus = "down"
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, "", successResponse(map[string]string{
		"status":   status,
		"database": dbStatus,
	}, false))
}

// Athlete handles GET /api/v1/athlete: the cached-or-fresh profile payload.
func (h *Handler) Athlete(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := sessionAthlete(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Profile(r.Context(), athleteID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, maxAge(h.cooldown.ProfileCooldown),
		successResponse(result.Payload, result.Cached))
}

// activitiesRequest carries the validated list query parameters.
type activitiesRequest struct {
	Page    int   `validate:"min=1"`
	PerPage int   `validate:"min=1,max=100"`
	Before  int64 `validate:"min=0"`
	After   int64 `validate:"min=0"`
}

// Activities handles GET /api/v1/activities with page, per_page, before and
// after query parameters.
func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := sessionAthlete(w, r)
	if !ok {
		return
	}

	req, apiErr := parseActivitiesRequest(r)
	if apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	result, err := h.svc.Activities(r.Context(), athleteID, syncsvc.ListParams{
		Page:    req.Page,
		PerPage: req.PerPage,
		Before:  req.Before,
		After:   req.After,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	cooldown := syncsvc.ListCooldown(h.cooldown, req.Before, time.Now())
	respondJSON(w, http.StatusOK, maxAge(cooldown),
		successResponse(result.Payload, result.Cached))
}

func parseActivitiesRequest(r *http.Request) (*activitiesRequest, *validation.APIError) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return nil, &validation.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	perPage, err := queryInt(r, "per_page", 30)
	if err != nil {
		return nil, &validation.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	before, err := queryUnix(r, "before")
	if err != nil {
		return nil, &validation.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}
	after, err := queryUnix(r, "after")
	if err != nil {
		return nil, &validation.APIError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	req := &activitiesRequest{Page: page, PerPage: perPage, Before: before, After: after}
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, verr.ToAPIError()
	}
	return req, nil
}

// Activity handles GET /api/v1/activities/{id}: the detailed representation.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := sessionAthlete(w, r)
	if !ok {
		return
	}

	activityID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || activityID <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"id must be a positive integer", nil)
		return
	}

	result, err := h.svc.Activity(r.Context(), athleteID, activityID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, maxAge(h.cooldown.ActivityCooldown),
		successResponse(result.Payload, result.Cached))
}

// meResponse is the session summary returned by GET /api/v1/me.
type meResponse struct {
	AthleteID             int64  `json:"athlete_id"`
	MeasurementPreference string `json:"measurement_preference,omitempty"`
	DatePreference        string `json:"date_preference,omitempty"`
}

// Me handles GET /api/v1/me: the session athlete ID plus display preferences
// pulled from the cached profile. Preference fields are best-effort; a profile
// fetch failure still returns the athlete ID.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := sessionAthlete(w, r)
	if !ok {
		return
	}

	resp := meResponse{AthleteID: athleteID}

	if result, err := h.svc.Profile(r.Context(), athleteID); err == nil {
		var prefs struct {
			MeasurementPreference string `json:"measurement_preference"`
			DatePreference        string `json:"date_preference"`
		}
		if err := json.Unmarshal(result.Payload, &prefs); err == nil {
			resp.MeasurementPreference = prefs.MeasurementPreference
			resp.DatePreference = prefs.DatePreference
		}
	} else {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Profile lookup failed for /me")
	}

	respondJSON(w, http.StatusOK, maxAge(h.cooldown.ProfileCooldown),
		successResponse(resp, true))
}

// Sync handles POST /api/v1/sync: a manual profile re-sync gated by the
// profile cooldown.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	athleteID, ok := sessionAthlete(w, r)
	if !ok {
		return
	}

	status, err := h.svc.SyncProfile(r.Context(), athleteID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, "", successResponse(status, false))
}

// sessionAthlete reads the athlete ID the session middleware put on the
// context. A missing ID means the route was wired without the middleware;
// respond 401 rather than guessing.
func sessionAthlete(w http.ResponseWriter, r *http.Request) (int64, bool) {
	athleteID := logging.AthleteIDFromContext(r.Context())
	if athleteID <= 0 {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED",
			"Authentication required", nil)
		return 0, false
	}
	return athleteID, true
}
