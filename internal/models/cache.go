// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// ResourceState mirrors Strava's resource_state field: every payload carries
// an integer indicating how complete the representation is. A row cached from
// a list sync is only summary-level; the activity detail page needs the full
// representation.
type ResourceState int

const (
	// StateMeta is a bare reference (id only). Never cached on its own.
	StateMeta ResourceState = 1

	// StateSummary is the abbreviated representation returned by list endpoints.
	StateSummary ResourceState = 2

	// StateDetailed is the full representation returned by detail endpoints.
	StateDetailed ResourceState = 3
)

// String returns the storage representation of the resource state.
func (s ResourceState) String() string {
	switch s {
	case StateMeta:
		return "meta"
	case StateSummary:
		return "summary"
	case StateDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// ParseResourceState converts a storage string back to a ResourceState.
// Unknown values parse as StateMeta so they always compare below summary.
func ParseResourceState(s string) ResourceState {
	switch s {
	case "summary":
		return StateSummary
	case "detailed":
		return StateDetailed
	case "meta":
		return StateMeta
	default:
		return StateMeta
	}
}

// AthleteRow is the cached athlete profile for one athlete. The payload is the
// verbatim Strava response; only the embedded id is ever inspected.
type AthleteRow struct {
	AthleteID  int64           `json:"athlete_id"`
	Payload    json.RawMessage `json:"payload"`
	LastSynced time.Time       `json:"last_synced"`
}

// ActivityPageRow is one cached page of the activity list. Pages are cached
// independently per (athlete, page, per_page, before, after) so different
// pagination and time-window combinations never collide. Before and After are
// unix seconds; zero means the bound was not supplied.
type ActivityPageRow struct {
	AthleteID  int64           `json:"athlete_id"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Before     int64           `json:"before"`
	After      int64           `json:"after"`
	Payload    json.RawMessage `json:"payload"`
	LastSynced time.Time       `json:"last_synced"`
}

// ActivityRow is one cached activity. State records whether the payload is the
// summary representation (written incidentally by a list sync) or the detailed
// one (written by a detail fetch).
type ActivityRow struct {
	ActivityID int64           `json:"activity_id"`
	AthleteID  int64           `json:"athlete_id"`
	State      ResourceState   `json:"resource_state"`
	Payload    json.RawMessage `json:"payload"`
	LastSynced time.Time       `json:"last_synced"`
}
