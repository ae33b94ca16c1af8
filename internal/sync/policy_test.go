// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package sync

import (
	"testing"
	"time"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
)

func TestDecide(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cooldown := 3 * time.Minute

	tests := []struct {
		name     string
		row      *CachedRow
		required models.ResourceState
		want     Decision
	}{
		{
			name: "missing row",
			row:  nil,
			want: Decision{Refetch: true, Reason: ReasonMissing},
		},
		{
			name: "fresh row served",
			row:  &CachedRow{LastSynced: now.Add(-time.Minute)},
			want: Decision{Refetch: false, Reason: ReasonNone},
		},
		{
			name: "stale row refetched",
			row:  &CachedRow{LastSynced: now.Add(-10 * time.Minute)},
			want: Decision{Refetch: true, Reason: ReasonStale},
		},
		{
			name: "exactly at cooldown boundary counts as stale",
			row:  &CachedRow{LastSynced: now.Add(-cooldown)},
			want: Decision{Refetch: true, Reason: ReasonStale},
		},
		{
			name:     "fresh summary row insufficient for detail",
			row:      &CachedRow{LastSynced: now.Add(-time.Minute), State: models.StateSummary},
			required: models.StateDetailed,
			want:     Decision{Refetch: true, Reason: ReasonIncomplete},
		},
		{
			name:     "stale summary row reports incomplete not stale",
			row:      &CachedRow{LastSynced: now.Add(-time.Hour), State: models.StateSummary},
			required: models.StateDetailed,
			want:     Decision{Refetch: true, Reason: ReasonIncomplete},
		},
		{
			name:     "fresh detailed row served for detail",
			row:      &CachedRow{LastSynced: now.Add(-time.Minute), State: models.StateDetailed},
			required: models.StateDetailed,
			want:     Decision{Refetch: false, Reason: ReasonNone},
		},
		{
			name:     "detailed row satisfies summary requirement",
			row:      &CachedRow{LastSynced: now.Add(-time.Minute), State: models.StateDetailed},
			required: models.StateSummary,
			want:     Decision{Refetch: false, Reason: ReasonNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.row, tt.required, cooldown, now)
			if got != tt.want {
				t.Errorf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListCooldown(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cfg := config.SyncConfig{
		ProfileCooldown:    time.Minute,
		ActivityCooldown:   3 * time.Minute,
		HistoricalCooldown: 24 * time.Hour,
	}

	tests := []struct {
		name   string
		before int64
		want   time.Duration
	}{
		{
			name:   "no upper bound uses activity cooldown",
			before: 0,
			want:   cfg.ActivityCooldown,
		},
		{
			name:   "bound thirty days back uses historical cooldown",
			before: now.AddDate(0, 0, -30).Unix(),
			want:   cfg.HistoricalCooldown,
		},
		{
			name:   "bound yesterday stays on activity cooldown",
			before: now.Add(-23 * time.Hour).Unix(),
			want:   cfg.ActivityCooldown,
		},
		{
			name:   "bound exactly at the historical threshold stays short",
			before: now.Add(-24 * time.Hour).Unix(),
			want:   cfg.ActivityCooldown,
		},
		{
			name:   "bound just past the historical threshold goes long",
			before: now.Add(-24*time.Hour - time.Second).Unix(),
			want:   cfg.HistoricalCooldown,
		},
		{
			name:   "future bound stays on activity cooldown",
			before: now.Add(time.Hour).Unix(),
			want:   cfg.ActivityCooldown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ListCooldown(cfg, tt.before, now)
			if got != tt.want {
				t.Errorf("ListCooldown(before=%d) = %v, want %v", tt.before, got, tt.want)
			}
		})
	}
}
