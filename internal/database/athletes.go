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

	"github.com/goccy/go-json"

	"github.com/fitnessoverlays/fitnessoverlays/internal/metrics"
	"github.com/fitnessoverlays/fitnessoverlays/internal/models"
)

// GetAthlete returns the cached profile row for one athlete, or ErrNotFound.
func (db *DB) GetAthlete(ctx context.Context, athleteID int64) (*models.AthleteRow, error) {
	defer metrics.ObserveDBQuery("select", "athletes")()

	row := db.conn.QueryRowContext(ctx,
		`SELECT athlete_id, payload, last_synced FROM athletes WHERE athlete_id = ?`,
		athleteID)

	var ar models.AthleteRow
	var payload string
	err := row.Scan(&ar.AthleteID, &payload, &ar.LastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "athletes").Inc()
		return nil, fmt.Errorf("select athlete: %w", err)
	}

	ar.Payload = json.RawMessage(payload)
	return &ar, nil
}

// UpsertAthlete writes the profile row for one athlete, replacing any
// existing payload and bumping last_synced.
func (db *DB) UpsertAthlete(ctx context.Context, row *models.AthleteRow) error {
	defer metrics.ObserveDBQuery("upsert", "athletes")()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO athletes (athlete_id, payload, last_synced)
		 VALUES (?, ?, ?)
		 ON CONFLICT (athlete_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			last_synced = EXCLUDED.last_synced`,
		row.AthleteID, string(row.Payload), row.LastSynced)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "athletes").Inc()
		return fmt.Errorf("upsert athlete: %w", err)
	}

	return nil
}
