// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package sync is the activity-data synchronization core. It decides whether
// cached Strava rows are fresh and complete enough to serve, fetches from the
// Strava API with an at-most-once token-refresh retry when they are not,
// validates that every payload served actually belongs to the requesting
// athlete, and keeps the cache store updated.
//
// The package composes four pieces:
//
//   - the policy engine (policy.go): pure cache freshness/completeness
//     decisions given a clock
//   - the ownership guard (ownership.go): owner-marker validation on cached
//     and freshly-fetched payloads
//   - the fetch orchestrator (fetcher.go): token acquisition plus the
//     401-refresh-retry state machine
//   - the resource accessors (service.go): one composition per resource type
//     (profile, activity list page, activity detail)
//
// Concurrent requests for the same key may both decide to refetch; the
// store's atomic upsert-by-key makes that safe, merely wasteful.
package sync
