// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package sync

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
)

func TestVerifyProfileOwner(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		athleteID int64
		wantErr   error
	}{
		{
			name:      "matching owner",
			payload:   `{"id": 1001, "firstname": "Ada"}`,
			athleteID: 1001,
		},
		{
			name:      "foreign profile rejected",
			payload:   `{"id": 2002}`,
			athleteID: 1001,
			wantErr:   ErrOwnershipMismatch,
		},
		{
			name:      "missing id rejected",
			payload:   `{"firstname": "Ada"}`,
			athleteID: 1001,
			wantErr:   ErrInvalidPayload,
		},
		{
			name:      "malformed json rejected",
			payload:   `not json`,
			athleteID: 1001,
			wantErr:   ErrInvalidPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyProfileOwner(json.RawMessage(tt.payload), tt.athleteID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("verifyProfileOwner() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyActivityOwner(t *testing.T) {
	payload := json.RawMessage(`{"id": 555, "resource_state": 3, "athlete": {"id": 1001}}`)

	state, err := verifyActivityOwner(payload, 1001)
	if err != nil {
		t.Fatalf("verifyActivityOwner() error = %v", err)
	}
	if state != models.StateDetailed {
		t.Errorf("state = %v, want %v", state, models.StateDetailed)
	}

	if _, err := verifyActivityOwner(payload, 9999); !errors.Is(err, ErrOwnershipMismatch) {
		t.Errorf("foreign activity error = %v, want ErrOwnershipMismatch", err)
	}

	if _, err := verifyActivityOwner(json.RawMessage(`{"athlete": {"id": 1001}}`), 1001); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("missing id error = %v, want ErrInvalidPayload", err)
	}
}

func TestVerifyListOwner(t *testing.T) {
	t.Run("all entries owned", func(t *testing.T) {
		payload := json.RawMessage(`[
			{"id": 1, "resource_state": 2, "athlete": {"id": 1001}},
			{"id": 2, "resource_state": 2, "athlete": {"id": 1001}}
		]`)

		entries, err := verifyListOwner(payload, 1001)
		if err != nil {
			t.Fatalf("verifyListOwner() error = %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("entries = %d, want 2", len(entries))
		}
	})

	t.Run("single foreign entry rejects the page", func(t *testing.T) {
		payload := json.RawMessage(`[
			{"id": 1, "resource_state": 2, "athlete": {"id": 1001}},
			{"id": 2, "resource_state": 2, "athlete": {"id": 2002}}
		]`)

		if _, err := verifyListOwner(payload, 1001); !errors.Is(err, ErrOwnershipMismatch) {
			t.Errorf("error = %v, want ErrOwnershipMismatch", err)
		}
	})

	t.Run("empty list is valid", func(t *testing.T) {
		entries, err := verifyListOwner(json.RawMessage(`[]`), 1001)
		if err != nil {
			t.Fatalf("verifyListOwner() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("entries = %d, want 0", len(entries))
		}
	})

	t.Run("object instead of array rejected", func(t *testing.T) {
		if _, err := verifyListOwner(json.RawMessage(`{"id": 1}`), 1001); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("error = %v, want ErrInvalidPayload", err)
		}
	})
}
