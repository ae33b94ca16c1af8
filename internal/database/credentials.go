// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
)

// ErrNotFound is returned when no row exists for the requested key.
var ErrNotFound = errors.New("database: row not found")

// GetCredential returns the stored credential for (athleteID, provider),
// or ErrNotFound.
func (db *DB) GetCredential(ctx context.Context, athleteID int64, provider string) (*models.Credential, error) {
	defer metrics.ObserveDBQuery("select", "credentials")()

	row := db.conn.QueryRowContext(ctx,
		`SELECT athlete_id, provider, access_token, refresh_token, expires_at, updated_at
		 FROM credentials WHERE athlete_id = ? AND provider = ?`,
		athleteID, provider)

	var cred models.Credential
	var refreshToken sql.NullString
	err := row.Scan(&cred.AthleteID, &cred.Provider, &cred.AccessToken,
		&refreshToken, &cred.ExpiresAt, &cred.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "credentials").Inc()
		return nil, fmt.Errorf("select credential: %w", err)
	}

	cred.RefreshToken = refreshToken.String
	return &cred, nil
}

// UpsertCredential writes the credential pair, replacing any existing row for
// the same (athlete, provider). The upsert is a single atomic statement.
func (db *DB) UpsertCredential(ctx context.Context, cred *models.Credential) error {
	defer metrics.ObserveDBQuery("upsert", "credentials")()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO credentials (athlete_id, provider, access_token, refresh_token, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (athlete_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`,
		cred.AthleteID, cred.Provider, cred.AccessToken, cred.RefreshToken,
		cred.ExpiresAt, cred.UpdatedAt)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "credentials").Inc()
		return fmt.Errorf("upsert credential: %w", err)
	}

	return nil
}
