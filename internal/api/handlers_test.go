// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
	syncsvc "github.com/fitnessoverlays/fitnessoverlays/internal/sync"
	"github.com/fitnessoverlays/fitnessoverlays/internal/tokens"
)

// fakeSyncService returns canned results per accessor.
type fakeSyncService struct {
	result     *syncsvc.Result
	syncStatus *syncsvc.SyncStatus
	err        error

	gotAthleteID  int64
	gotActivityID int64
	gotParams     syncsvc.ListParams
}

func (f *fakeSyncService) Profile(ctx context.Context, athleteID int64) (*syncsvc.Result, error) {
	f.gotAthleteID = athleteID
	return f.result, f.err
}

func (f *fakeSyncService) Activities(ctx context.Context, athleteID int64, params syncsvc.ListParams) (*syncsvc.Result, error) {
	f.gotAthleteID = athleteID
	f.gotParams = params
	return f.result, f.err
}

func (f *fakeSyncService) Activity(ctx context.Context, athleteID, activityID int64) (*syncsvc.Result, error) {
	f.gotAthleteID = athleteID
	f.gotActivityID = activityID
	return f.result, f.err
}

func (f *fakeSyncService) SyncProfile(ctx context.Context, athleteID int64) (*syncsvc.SyncStatus, error) {
	f.gotAthleteID = athleteID
	return f.syncStatus, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func testHandler(svc *fakeSyncService) *Handler {
	return NewHandler(svc, &fakePinger{}, config.SyncConfig{
		ProfileCooldown:    time.Minute,
		ActivityCooldown:   3 * time.Minute,
		HistoricalCooldown: 24 * time.Hour,
	})
}

// serve mounts the handler on a chi router with the athlete ID preset on the
// context, standing in for the session middleware.
func serve(h *Handler, athleteID int64, method, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	if athleteID > 0 {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := logging.ContextWithAthleteID(req.Context(), athleteID)
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	r.Get("/api/v1/health", h.Health)
	r.Get("/api/v1/me", h.Me)
	r.Get("/api/v1/athlete", h.Athlete)
	r.Get("/api/v1/activities", h.Activities)
	r.Get("/api/v1/activities/{id}", h.Activity)
	r.Post("/api/v1/sync", h.Sync)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, w.Body.String())
	}
	return &resp
}

func TestAthlete_Success(t *testing.T) {
	svc := &fakeSyncService{result: &syncsvc.Result{
		Payload: json.RawMessage(`{"id": 1001}`),
		Cached:  true,
	}}

	w := serve(testHandler(svc), 1001, http.MethodGet, "/api/v1/athlete")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if svc.gotAthleteID != 1001 {
		t.Errorf("athleteID passed = %d, want 1001", svc.gotAthleteID)
	}
	if got := w.Header().Get("Cache-Control"); got != "private, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("no ETag header")
	}

	resp := decodeResponse(t, w)
	if resp.Status != "success" || !resp.Metadata.Cached {
		t.Errorf("response = %+v", resp)
	}
}

func TestAthlete_NoSession401(t *testing.T) {
	svc := &fakeSyncService{}
	w := serve(testHandler(svc), 0, http.MethodGet, "/api/v1/athlete")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestActivities_ParamDefaultsAndValidation(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantParams syncsvc.ListParams
	}{
		{
			name:       "defaults applied",
			target:     "/api/v1/activities",
			wantStatus: http.StatusOK,
			wantParams: syncsvc.ListParams{Page: 1, PerPage: 30},
		},
		{
			name:       "explicit params forwarded",
			target:     "/api/v1/activities?page=3&per_page=50&before=1700000000&after=1690000000",
			wantStatus: http.StatusOK,
			wantParams: syncsvc.ListParams{Page: 3, PerPage: 50, Before: 1700000000, After: 1690000000},
		},
		{
			name:       "page zero rejected",
			target:     "/api/v1/activities?page=0",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "per_page above cap rejected",
			target:     "/api/v1/activities?per_page=101",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "non-numeric page rejected",
			target:     "/api/v1/activities?page=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative before rejected",
			target:     "/api/v1/activities?before=-5",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSyncService{result: &syncsvc.Result{Payload: json.RawMessage(`[]`)}}
			w := serve(testHandler(svc), 1001, http.MethodGet, tt.target)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && svc.gotParams != tt.wantParams {
				t.Errorf("params = %+v, want %+v", svc.gotParams, tt.wantParams)
			}
			if tt.wantStatus == http.StatusBadRequest {
				resp := decodeResponse(t, w)
				if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
					t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
				}
			}
		})
	}
}

func TestActivities_HistoricalWindowCacheControl(t *testing.T) {
	svc := &fakeSyncService{result: &syncsvc.Result{Payload: json.RawMessage(`[]`)}}
	before := time.Now().AddDate(0, 0, -30).Unix()

	w := serve(testHandler(svc), 1001, http.MethodGet,
		fmt.Sprintf("/api/v1/activities?before=%d", before))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "private, max-age=86400" {
		t.Errorf("Cache-Control = %q, want the historical window", got)
	}
}

func TestActivity_Success(t *testing.T) {
	svc := &fakeSyncService{result: &syncsvc.Result{
		Payload: json.RawMessage(`{"id": 4242, "resource_state": 3}`),
	}}

	w := serve(testHandler(svc), 1001, http.MethodGet, "/api/v1/activities/4242")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if svc.gotActivityID != 4242 {
		t.Errorf("activityID = %d, want 4242", svc.gotActivityID)
	}
	if got := w.Header().Get("Cache-Control"); got != "private, max-age=180" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestActivity_BadIDRejected(t *testing.T) {
	for _, id := range []string{"abc", "-1", "0"} {
		svc := &fakeSyncService{}
		w := serve(testHandler(svc), 1001, http.MethodGet, "/api/v1/activities/"+id)
		if w.Code != http.StatusBadRequest {
			t.Errorf("id %q status = %d, want 400", id, w.Code)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"no credential", tokens.ErrNoCredential, http.StatusUnauthorized, "NO_CREDENTIAL"},
		{"revoked token", strava.ErrUnauthorized, http.StatusUnauthorized, "TOKEN_REVOKED"},
		{"ownership mismatch", syncsvc.ErrOwnershipMismatch, http.StatusForbidden, "OWNERSHIP_MISMATCH"},
		{"not found", strava.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"refresh failed", strava.ErrTokenRefreshFailed, http.StatusUnauthorized, "TOKEN_REFRESH_FAILED"},
		{"invalid payload", syncsvc.ErrInvalidPayload, http.StatusBadGateway, "UPSTREAM_INVALID"},
		{"upstream 500", &strava.UpstreamError{Status: 500}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"breaker open", gobreaker.ErrOpenState, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSyncService{err: tt.err}
			w := serve(testHandler(svc), 1001, http.MethodGet, "/api/v1/athlete")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			resp := decodeResponse(t, w)
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestSync_ReportsStatus(t *testing.T) {
	svc := &fakeSyncService{syncStatus: &syncsvc.SyncStatus{Synced: false, CooldownSeconds: 42}}

	w := serve(testHandler(svc), 1001, http.MethodPost, "/api/v1/sync")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeResponse(t, w)
	data, _ := json.Marshal(resp.Data)
	var status syncsvc.SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Synced || status.CooldownSeconds != 42 {
		t.Errorf("status = %+v", status)
	}
}

func TestMe_IncludesPreferences(t *testing.T) {
	svc := &fakeSyncService{result: &syncsvc.Result{
		Payload: json.RawMessage(`{"id": 1001, "measurement_preference": "meters", "date_preference": "%d/%m/%Y"}`),
		Cached:  true,
	}}

	w := serve(testHandler(svc), 1001, http.MethodGet, "/api/v1/me")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeResponse(t, w)
	data, _ := json.Marshal(resp.Data)
	var me struct {
		AthleteID             int64  `json:"athlete_id"`
		MeasurementPreference string `json:"measurement_preference"`
	}
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.AthleteID != 1001 || me.MeasurementPreference != "meters" {
		t.Errorf("me = %+v", me)
	}
}

func TestMe_ProfileFailureStillReturnsID(t *testing.T) {
	svc := &fakeSyncService{err: strava.ErrTokenRefreshFailed}

	w := serve(testHandler(svc), 1001, http.MethodGet, "/api/v1/me")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite profile failure", w.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Run("database up", func(t *testing.T) {
		h := NewHandler(&fakeSyncService{}, &fakePinger{}, config.SyncConfig{})
		w := serve(h, 0, http.MethodGet, "/api/v1/health")
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("database down", func(t *testing.T) {
		h := NewHandler(&fakeSyncService{}, &fakePinger{err: errors.New("closed")}, config.SyncConfig{})
		w := serve(h, 0, http.MethodGet, "/api/v1/health")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", w.Code)
		}
	})
}

func TestGenerateETag(t *testing.T) {
	a := generateETag([]byte(`{"id":1}`))
	b := generateETag([]byte(`{"id":1}`))
	c := generateETag([]byte(`{"id":2}`))

	if a != b {
		t.Error("same input produced different ETags")
	}
	if a == c {
		t.Error("different input produced the same ETag")
	}
	if generateETag(nil) == "" {
		t.Error("empty input produced empty ETag")
	}
}
