// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package sync

import (
	"time"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
)

// Reason explains why a refetch is required.
type Reason int

const (
	// ReasonNone means the cached row satisfies the request.
	ReasonNone Reason = iota

	// ReasonMissing means no cached row exists for the key.
	ReasonMissing

	// ReasonStale means the row's last sync is older than the cooldown.
	ReasonStale

	// ReasonIncomplete means the row is fresh but its resource state is
	// below what the caller requires.
	ReasonIncomplete
)

// String returns the metric label for the reason.
func (r Reason) String() string {
	switch r {
	case ReasonMissing:
		return "missing"
	case ReasonStale:
		return "stale"
	case ReasonIncomplete:
		return "incomplete"
	default:
		return "none"
	}
}

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Refetch bool
	Reason  Reason
}

// CachedRow is the minimal view of a cached row the policy engine needs.
type CachedRow struct {
	LastSynced time.Time

	// State is zero for resources with a single shape (profile, list page).
	State models.ResourceState
}

// Decide evaluates whether a cached row can be served or must be refetched.
// required is zero when the resource has no completeness levels. The function
// is pure: all time handling goes through the now parameter.
//
// Incompleteness takes priority over freshness: a fresh row that lacks the
// required representation still triggers a refetch.
func Decide(row *CachedRow, required models.ResourceState, cooldown time.Duration, now time.Time) Decision {
	if row == nil {
		return Decision{Refetch: true, Reason: ReasonMissing}
	}

	if required > 0 && row.State < required {
		return Decision{Refetch: true, Reason: ReasonIncomplete}
	}

	if now.Sub(row.LastSynced) >= cooldown {
		return Decision{Refetch: true, Reason: ReasonStale}
	}

	return Decision{Refetch: false, Reason: ReasonNone}
}

// ListCooldown selects the cooldown for an activity list window. Windows
// whose upper bound ended more than the historical cooldown ago get the long
// window: finished activities do not change, so there is nothing to refetch.
// before is unix seconds; 0 means no upper bound and the window extends to
// the present.
func ListCooldown(cfg config.SyncConfig, before int64, now time.Time) time.Duration {
	if before > 0 && now.Sub(time.Unix(before, 0)) > cfg.HistoricalCooldown {
		return cfg.HistoricalCooldown
	}
	return cfg.ActivityCooldown
}
