// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package api implements the HTTP surface: the Chi router, the session-gated
// data endpoints backed by the sync service, the OAuth routes, health and
// Prometheus metrics.
//
// Every data response is wrapped in models.APIResponse. Cache-Control on data
// endpoints mirrors the sync cooldown of the resource, so well-behaved clients
// stop asking before the server would refetch anyway.
package api
