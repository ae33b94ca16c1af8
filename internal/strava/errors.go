// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package strava

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized indicates Strava rejected the access token (HTTP 401).
	// The fetch orchestrator reacts by forcing one token refresh and retry.
	ErrUnauthorized = errors.New("strava: unauthorized")

	// ErrNotFound indicates the requested resource does not exist upstream
	// (HTTP 404). Never retried.
	ErrNotFound = errors.New("strava: not found")
)

// UpstreamError is any other upstream failure: an unexpected status code, a
// network error, or a timeout. Status is 0 when no HTTP response was received.
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("strava: upstream status %d", e.Status)
	}
	return fmt.Sprintf("strava: upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// statusError maps an unexpected HTTP status to the error taxonomy.
func statusError(status int) error {
	switch status {
	case 401:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	default:
		return &UpstreamError{Status: status}
	}
}
