// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package models

import "time"

// ProviderStrava is the only OAuth provider this service talks to.
const ProviderStrava = "strava"

// Credential is the stored OAuth credential pair for one (athlete, provider).
// At most one active credential exists per pair; refreshes update the row in
// place. Tokens may be stored encrypted at rest depending on configuration.
type Credential struct {
	AthleteID    int64     `json:"athlete_id"`
	Provider     string    `json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ExpiresWithin reports whether the access token expires within the given
// margin of now. Used by the token provider to refresh ahead of expiry.
func (c *Credential) ExpiresWithin(margin time.Duration, now time.Time) bool {
	return !c.ExpiresAt.After(now.Add(margin))
}
