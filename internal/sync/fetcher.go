// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package sync

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
)

// fetchTimeout bounds a single upstream fetch including a forced token
// refresh and one retry.
const fetchTimeout = 10 * time.Second

// TokenSource supplies access tokens for an athlete. Implemented by
// tokens.Provider.
type TokenSource interface {
	AccessToken(ctx context.Context, athleteID int64) (string, error)
	ForceRefresh(ctx context.Context, athleteID int64) (string, error)
}

// fetchFunc performs one upstream call with the given bearer token.
type fetchFunc func(ctx context.Context, token string) (json.RawMessage, error)

// fetch resolves a token, runs the call, and on a 401 forces exactly one
// token refresh and retries once. A second 401 propagates unchanged; the
// credential is genuinely revoked at that point and further retries only
// burn upstream quota.
func fetch(ctx context.Context, source TokenSource, athleteID int64, call fetchFunc) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	token, err := source.AccessToken(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	payload, err := call(ctx, token)
	if !errors.Is(err, strava.ErrUnauthorized) {
		return payload, err
	}

	logging.Ctx(ctx).Warn().
		Int64("athlete_id", athleteID).
		Msg("Upstream rejected access token, forcing refresh")

	token, err = source.ForceRefresh(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	return call(ctx, token)
}
