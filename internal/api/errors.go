// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package api

import (
	"context"
	"errors"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
	syncsvc "github.com/fitnessoverlays/fitnessoverlays/internal/sync"
	"github.com/fitnessoverlays/fitnessoverlays/internal/tokens"
)

// respondServiceError maps sync-service errors onto the HTTP error taxonomy.
//
//	no credential / revoked token /
//	unrecoverable refresh failure  → 401 (re-authenticate with Strava)
//	ownership mismatch             → 403
//	activity unknown upstream      → 404
//	malformed upstream payload,
//	open breaker, upstream 5xx     → 502
//	anything else                  → 500
//
// A refresh failure only reaches here when no stale cache could absorb it;
// the stored credential is unusable and the athlete must log in again.
func respondServiceError(w http.ResponseWriter, err error) {
	var upstream *strava.UpstreamError

	switch {
	case errors.Is(err, tokens.ErrNoCredential):
		respondError(w, http.StatusUnauthorized, "NO_CREDENTIAL",
			"No Strava credential on file, please log in again", err)

	case errors.Is(err, strava.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "TOKEN_REVOKED",
			"Strava rejected the stored credential, please log in again", err)

	case errors.Is(err, syncsvc.ErrOwnershipMismatch):
		respondError(w, http.StatusForbidden, "OWNERSHIP_MISMATCH",
			"Resource does not belong to the authenticated athlete", err)

	case errors.Is(err, strava.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND",
			"Resource not found on Strava", err)

	case errors.Is(err, strava.ErrTokenRefreshFailed):
		respondError(w, http.StatusUnauthorized, "TOKEN_REFRESH_FAILED",
			"Could not refresh the Strava access token, please log in again", err)

	case errors.Is(err, syncsvc.ErrInvalidPayload):
		respondError(w, http.StatusBadGateway, "UPSTREAM_INVALID",
			"Strava returned an unusable payload", err)

	case errors.As(err, &upstream):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR",
			"Strava request failed", err)

	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusBadGateway, "UPSTREAM_TIMEOUT",
			"Strava request timed out", err)

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE",
			"Strava is temporarily unavailable", err)

	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", err)
	}
}
