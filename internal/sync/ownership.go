// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package sync

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
)

var (
	// ErrOwnershipMismatch indicates a payload's embedded owner does not
	// match the session athlete. Surfaced as HTTP 403, never folded into a
	// 404: a mismatch is a potential cross-account data leak and must stay
	// distinguishable from simple absence in audit logs.
	ErrOwnershipMismatch = errors.New("sync: payload owner does not match session athlete")

	// ErrInvalidPayload indicates an upstream payload without the id or
	// owner fields the cache keys depend on.
	ErrInvalidPayload = errors.New("sync: payload missing id or owner marker")
)

// Upstream payloads are otherwise opaque; only the fields below are ever
// inspected. The owner marker sits at a different JSON path per resource
// type: the profile id is the athlete id itself, activities embed an athlete
// object.

type profileMarker struct {
	ID int64 `json:"id"`
}

type activityMarker struct {
	ID      int64 `json:"id"`
	Athlete struct {
		ID int64 `json:"id"`
	} `json:"athlete"`
	ResourceState int `json:"resource_state"`
}

// verifyProfileOwner checks that a profile payload belongs to the athlete.
// Run on every fetched payload before persisting and on every cached payload
// before serving.
func verifyProfileOwner(payload json.RawMessage, athleteID int64) error {
	var m profileMarker
	if err := json.Unmarshal(payload, &m); err != nil || m.ID <= 0 {
		return ErrInvalidPayload
	}
	if m.ID != athleteID {
		metrics.OwnershipRejectionsTotal.WithLabelValues("profile").Inc()
		return fmt.Errorf("%w: profile id %d", ErrOwnershipMismatch, m.ID)
	}
	return nil
}

// parseActivityMarker extracts the id, owner and resource state from an
// activity payload.
func parseActivityMarker(payload json.RawMessage) (*activityMarker, error) {
	var m activityMarker
	if err := json.Unmarshal(payload, &m); err != nil || m.ID <= 0 {
		return nil, ErrInvalidPayload
	}
	return &m, nil
}

// verifyActivityOwner checks that an activity payload belongs to the athlete
// and returns its resource state.
func verifyActivityOwner(payload json.RawMessage, athleteID int64) (models.ResourceState, error) {
	m, err := parseActivityMarker(payload)
	if err != nil {
		return 0, err
	}
	if m.Athlete.ID != athleteID {
		metrics.OwnershipRejectionsTotal.WithLabelValues("activity_detail").Inc()
		return 0, fmt.Errorf("%w: activity %d owned by %d", ErrOwnershipMismatch, m.ID, m.Athlete.ID)
	}
	return models.ResourceState(m.ResourceState), nil
}

// verifyListOwner checks every entry of an activity list payload. A single
// foreign entry rejects the whole page: a list response mixing athletes means
// the upstream credential refers to a different account.
func verifyListOwner(payload json.RawMessage, athleteID int64) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, ErrInvalidPayload
	}

	for _, entry := range entries {
		m, err := parseActivityMarker(entry)
		if err != nil {
			return nil, err
		}
		if m.Athlete.ID != athleteID {
			metrics.OwnershipRejectionsTotal.WithLabelValues("activity_list").Inc()
			return nil, fmt.Errorf("%w: activity %d owned by %d", ErrOwnershipMismatch, m.ID, m.Athlete.ID)
		}
	}

	return entries, nil
}
