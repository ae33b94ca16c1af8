// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

// Package tokens manages stored Strava OAuth credentials: lookup, transparent
// refresh ahead of expiry, and optional encryption at rest.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitnessoverlays/fitnessoverlays/internal/database"
	"github.com/fitnessoverlays/fitnessoverlays/internal/logging"
	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
	"github.com/fitnessoverlays/fitnessoverlays/internal/strava"
)

// ErrNoCredential indicates no stored credential exists for the athlete.
// The caller must treat this as "not authenticated upstream".
var ErrNoCredential = errors.New("tokens: no stored credential")

// refreshMargin is how close to expiry a token may get before it is refreshed
// proactively. Refreshing ahead of time avoids a guaranteed 401 round trip.
const refreshMargin = 60 * time.Second

// CredentialStore is the persistence surface the provider needs.
// *database.DB satisfies it.
type CredentialStore interface {
	GetCredential(ctx context.Context, athleteID int64, provider string) (*models.Credential, error)
	UpsertCredential(ctx context.Context, cred *models.Credential) error
}

// Refresher exchanges a refresh token for a new credential pair.
// *strava.OAuthClient satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*strava.TokenResponse, error)
}

// Provider returns currently-valid Strava access tokens for athletes,
// refreshing transparently when a token is expired or near expiry.
type Provider struct {
	store     CredentialStore
	refresher Refresher
	enc       *Encryptor

	// now is injectable for tests.
	now func() time.Time
}

// NewProvider creates a token provider. enc may be nil (encryption disabled).
func NewProvider(store CredentialStore, refresher Refresher, enc *Encryptor) *Provider {
	return &Provider{
		store:     store,
		refresher: refresher,
		enc:       enc,
		now:       time.Now,
	}
}

// AccessToken returns a currently-valid access token for the athlete. If the
// stored token expires within the safety margin it is refreshed and persisted
// first. Returns ErrNoCredential when the athlete has no stored credential,
// or a strava.ErrTokenRefreshFailed-wrapped error when refresh was needed but
// failed.
func (p *Provider) AccessToken(ctx context.Context, athleteID int64) (string, error) {
	cred, err := p.load(ctx, athleteID)
	if err != nil {
		return "", err
	}

	if !cred.ExpiresWithin(refreshMargin, p.now()) {
		return cred.AccessToken, nil
	}

	return p.refresh(ctx, cred)
}

// ForceRefresh refreshes the credential unconditionally, bypassing the expiry
// margin. Used after the upstream explicitly rejected a token: the server
// knows better than the stored expiry.
func (p *Provider) ForceRefresh(ctx context.Context, athleteID int64) (string, error) {
	cred, err := p.load(ctx, athleteID)
	if err != nil {
		return "", err
	}

	metrics.TokenRefreshesTotal.WithLabelValues("forced").Inc()
	return p.refresh(ctx, cred)
}

// Store persists a freshly-obtained credential pair, e.g. from the OAuth
// authorization code exchange.
func (p *Provider) Store(ctx context.Context, athleteID int64, tr *strava.TokenResponse) error {
	access, err := p.enc.Encrypt(tr.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := p.enc.Encrypt(tr.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	now := p.now()
	return p.store.UpsertCredential(ctx, &models.Credential{
		AthleteID:    athleteID,
		Provider:     models.ProviderStrava,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    tr.Expiry(now),
		UpdatedAt:    now,
	})
}

// load fetches and decrypts the athlete's credential.
func (p *Provider) load(ctx context.Context, athleteID int64) (*models.Credential, error) {
	cred, err := p.store.GetCredential(ctx, athleteID, models.ProviderStrava)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}

	if cred.AccessToken, err = p.enc.Decrypt(cred.AccessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if cred.RefreshToken != "" {
		if cred.RefreshToken, err = p.enc.Decrypt(cred.RefreshToken); err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}

	return cred, nil
}

// refresh exchanges the refresh token for a new pair and persists it.
// Exactly one persistence write happens on success, none on failure.
func (p *Provider) refresh(ctx context.Context, cred *models.Credential) (string, error) {
	if cred.RefreshToken == "" {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("%w: no refresh token stored", strava.ErrTokenRefreshFailed)
	}

	tr, err := p.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		logging.Ctx(ctx).Warn().Err(err).Int64("athlete_id", cred.AthleteID).Msg("Token refresh failed")
		return "", err
	}

	// Strava does not always rotate the refresh token; keep the old one
	// when the response omits it.
	refreshToken := tr.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}

	access, err := p.enc.Encrypt(tr.AccessToken)
	if err != nil {
		return "", fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := p.enc.Encrypt(refreshToken)
	if err != nil {
		return "", fmt.Errorf("encrypt refresh token: %w", err)
	}

	now := p.now()
	if err := p.store.UpsertCredential(ctx, &models.Credential{
		AthleteID:    cred.AthleteID,
		Provider:     cred.Provider,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    tr.Expiry(now),
		UpdatedAt:    now,
	}); err != nil {
		return "", fmt.Errorf("persist refreshed credential: %w", err)
	}

	metrics.TokenRefreshesTotal.WithLabelValues("success").Inc()
	return tr.AccessToken, nil
}
