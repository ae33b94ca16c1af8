// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/config"
	"github.com/fitnessoverlays/fitnessoverlays/internal/database"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
)

// Store is the cache persistence surface the service needs. Implemented by
// database.DB.
type Store interface {
	GetAthlete(ctx context.Context, athleteID int64) (*models.AthleteRow, error)
	UpsertAthlete(ctx context.Context, row *models.AthleteRow) error
	GetActivityPage(ctx context.Context, athleteID int64, page, perPage int, before, after int64) (*models.ActivityPageRow, error)
	UpsertActivityPage(ctx context.Context, row *models.ActivityPageRow) error
	GetActivity(ctx context.Context, activityID int64) (*models.ActivityRow, error)
	UpsertActivity(ctx context.Context, row *models.ActivityRow) error
}

// UpstreamClient is the Strava API surface the service needs. Implemented by
// strava.Client and strava.BreakerClient.
type UpstreamClient interface {
	Athlete(ctx context.Context, token string) (json.RawMessage, error)
	Activities(ctx context.Context, token string, page, perPage int, before, after int64) (json.RawMessage, error)
	Activity(ctx context.Context, token string, activityID int64) (json.RawMessage, error)
}

// Service implements the cache-first resource accessors. Each accessor reads
// the cache, decides via the sync policy whether a refetch is due, verifies
// ownership of everything it serves or persists, and degrades to a stale row
// when a token refresh fails.
type Service struct {
	store    Store
	tokens   TokenSource
	upstream UpstreamClient
	cooldown config.SyncConfig
	now      func() time.Time
}

// NewService creates the sync service.
func NewService(store Store, tokens TokenSource, upstream UpstreamClient, cooldown config.SyncConfig) *Service {
	return &Service{
		store:    store,
		tokens:   tokens,
		upstream: upstream,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Result is an accessor's payload plus whether it came from the cache.
type Result struct {
	Payload json.RawMessage
	Cached  bool
}

// Profile returns the athlete's profile, refetching when the cached row is
// missing or older than the profile cooldown.
func (s *Service) Profile(ctx context.Context, athleteID int64) (*Result, error) {
	now := s.now()

	row, err := s.store.GetAthlete(ctx, athleteID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	var cached *CachedRow
	if row != nil {
		cached = &CachedRow{LastSynced: row.LastSynced}
	}

	decision := Decide(cached, 0, s.cooldown.ProfileCooldown, now)
	if !decision.Refetch {
		metrics.CacheHitsTotal.WithLabelValues("profile").Inc()
		if err := verifyProfileOwner(row.Payload, athleteID); err != nil {
			return nil, err
		}
		return &Result{Payload: row.Payload, Cached: true}, nil
	}

	metrics.CacheMissesTotal.WithLabelValues("profile", decision.Reason.String()).Inc()

	payload, err := fetch(ctx, s.tokens, athleteID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.Athlete(ctx, token)
	})
	if err != nil {
		if stale := s.staleResult("profile", row != nil, err); stale {
			return &Result{Payload: row.Payload, Cached: true}, nil
		}
		return nil, err
	}

	if err := verifyProfileOwner(payload, athleteID); err != nil {
		return nil, err
	}

	if err := s.store.UpsertAthlete(ctx, &models.AthleteRow{
		AthleteID:  athleteID,
		Payload:    payload,
		LastSynced: now,
	}); err != nil {
		return nil, err
	}

	return &Result{Payload: payload, Cached: false}, nil
}

// ListParams identifies one page of the activity list. Before and After are
// unix seconds; 0 leaves the bound unset.
type ListParams struct {
	Page    int
	PerPage int
	Before  int64
	After   int64
}

// Activities returns one page of the athlete's activity list. Pages whose
// before bound lies far enough in the past are immutable in practice and get
// the long historical cooldown. Freshly fetched pages are written through to
// the per-activity cache as summary rows.
func (s *Service) Activities(ctx context.Context, athleteID int64, params ListParams) (*Result, error) {
	now := s.now()
	cooldown := ListCooldown(s.cooldown, params.Before, now)

	row, err := s.store.GetActivityPage(ctx, athleteID, params.Page, params.PerPage, params.Before, params.After)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	var cached *CachedRow
	if row != nil {
		cached = &CachedRow{LastSynced: row.LastSynced}
	}

	decision := Decide(cached, 0, cooldown, now)
	if !decision.Refetch {
		metrics.CacheHitsTotal.WithLabelValues("activity_list").Inc()
		if _, err := verifyListOwner(row.Payload, athleteID); err != nil {
			return nil, err
		}
		return &Result{Payload: row.Payload, Cached: true}, nil
	}

	metrics.CacheMissesTotal.WithLabelValues("activity_list", decision.Reason.String()).Inc()

	payload, err := fetch(ctx, s.tokens, athleteID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.Activities(ctx, token, params.Page, params.PerPage, params.Before, params.After)
	})
	if err != nil {
		if stale := s.staleResult("activity_list", row != nil, err); stale {
			return &Result{Payload: row.Payload, Cached: true}, nil
		}
		return nil, err
	}

	entries, err := verifyListOwner(payload, athleteID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpsertActivityPage(ctx, &models.ActivityPageRow{
		AthleteID:  athleteID,
		Page:       params.Page,
		PerPage:    params.PerPage,
		Before:     params.Before,
		After:      params.After,
		Payload:    payload,
		LastSynced: now,
	}); err != nil {
		return nil, err
	}

	s.writeThroughEntries(ctx, athleteID, entries, now)

	return &Result{Payload: payload, Cached: false}, nil
}

// writeThroughEntries seeds the per-activity cache with the summary rows of a
// freshly fetched list page. A never-upgraded summary row still forces a
// detail fetch, so failures here only cost a future upstream call.
func (s *Service) writeThroughEntries(ctx context.Context, athleteID int64, entries []json.RawMessage, now time.Time) {
	for _, entry := range entries {
		m, err := parseActivityMarker(entry)
		if err != nil {
			continue
		}

		// Never downgrade a detailed row back to summary.
		existing, err := s.store.GetActivity(ctx, m.ID)
		if err == nil && existing.State >= models.StateDetailed {
			continue
		}

		if err := s.store.UpsertActivity(ctx, &models.ActivityRow{
			ActivityID: m.ID,
			AthleteID:  athleteID,
			State:      models.StateSummary,
			Payload:    entry,
			LastSynced: now,
		}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Int64("activity_id", m.ID).
				Msg("Failed to write through list entry")
		}
	}
}

// Activity returns the detailed representation of one activity. Summary rows
// seeded from list pages count as incomplete and trigger a detail fetch. A
// cached row owned by a different athlete is treated as absent so the fetch
// path, where Strava itself 404s foreign activities, decides the outcome.
func (s *Service) Activity(ctx context.Context, athleteID, activityID int64) (*Result, error) {
	now := s.now()

	row, err := s.store.GetActivity(ctx, activityID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if row != nil && row.AthleteID != athleteID {
		row = nil
	}

	var cached *CachedRow
	if row != nil {
		cached = &CachedRow{LastSynced: row.LastSynced, State: row.State}
	}

	decision := Decide(cached, models.StateDetailed, s.cooldown.ActivityCooldown, now)
	if !decision.Refetch {
		metrics.CacheHitsTotal.WithLabelValues("activity_detail").Inc()
		if _, err := verifyActivityOwner(row.Payload, athleteID); err != nil {
			return nil, err
		}
		return &Result{Payload: row.Payload, Cached: true}, nil
	}

	metrics.CacheMissesTotal.WithLabelValues("activity_detail", decision.Reason.String()).Inc()

	payload, err := fetch(ctx, s.tokens, athleteID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.Activity(ctx, token, activityID)
	})
	if err != nil {
		// Stale-serve only applies to rows already detailed; a stale
		// summary row is not the representation the caller asked for.
		if row != nil && row.State >= models.StateDetailed && s.staleResult("activity_detail", true, err) {
			return &Result{Payload: row.Payload, Cached: true}, nil
		}
		return nil, err
	}

	state, err := verifyActivityOwner(payload, athleteID)
	if err != nil {
		return nil, err
	}
	if state < models.StateDetailed {
		return nil, fmt.Errorf("%w: activity %d returned as %s", ErrInvalidPayload, activityID, state)
	}

	if err := s.store.UpsertActivity(ctx, &models.ActivityRow{
		ActivityID: activityID,
		AthleteID:  athleteID,
		State:      state,
		Payload:    payload,
		LastSynced: now,
	}); err != nil {
		return nil, err
	}

	return &Result{Payload: payload, Cached: false}, nil
}

// SyncStatus reports the outcome of a manual profile sync request.
type SyncStatus struct {
	Synced          bool  `json:"synced"`
	CooldownSeconds int64 `json:"cooldown_seconds"`
}

// SyncProfile forces a profile refetch unless one happened within the profile
// cooldown. When the cooldown blocks the sync, the remaining seconds are
// reported so clients can back off instead of polling.
func (s *Service) SyncProfile(ctx context.Context, athleteID int64) (*SyncStatus, error) {
	now := s.now()

	row, err := s.store.GetAthlete(ctx, athleteID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if row != nil {
		elapsed := now.Sub(row.LastSynced)
		if elapsed < s.cooldown.ProfileCooldown {
			remaining := s.cooldown.ProfileCooldown - elapsed
			return &SyncStatus{
				Synced:          false,
				CooldownSeconds: int64(remaining.Round(time.Second).Seconds()),
			}, nil
		}
	}

	payload, err := fetch(ctx, s.tokens, athleteID, func(ctx context.Context, token string) (json.RawMessage, error) {
		return s.upstream.Athlete(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	if err := verifyProfileOwner(payload, athleteID); err != nil {
		return nil, err
	}

	if err := s.store.UpsertAthlete(ctx, &models.AthleteRow{
		AthleteID:  athleteID,
		Payload:    payload,
		LastSynced: now,
	}); err != nil {
		return nil, err
	}

	return &SyncStatus{Synced: true}, nil
}

// staleResult decides whether a fetch error permits serving the cached row.
// Only a failed token refresh degrades to stale data; upstream 4xx/5xx and
// transport errors propagate so callers see the real failure.
func (s *Service) staleResult(resource string, haveRow bool, err error) bool {
	if !haveRow || !errors.Is(err, strava.ErrTokenRefreshFailed) {
		return false
	}

	metrics.CacheStaleServesTotal.WithLabelValues(resource).Inc()
	return true
}
