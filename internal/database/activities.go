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

// GetActivityPage returns the cached list page for the exact
// (athlete, page, perPage, before, after) key, or ErrNotFound.
func (db *DB) GetActivityPage(ctx context.Context, athleteID int64, page, perPage int, before, after int64) (*models.ActivityPageRow, error) {
	defer metrics.ObserveDBQuery("select", "activity_pages")()

	row := db.conn.QueryRowContext(ctx,
		`SELECT athlete_id, page, per_page, before_ts, after_ts, payload, last_synced
		 FROM activity_pages
		 WHERE athlete_id = ? AND page = ? AND per_page = ? AND before_ts = ? AND after_ts = ?`,
		athleteID, page, perPage, before, after)

	var pr models.ActivityPageRow
	var payload string
	err := row.Scan(&pr.AthleteID, &pr.Page, &pr.PerPage, &pr.Before, &pr.After,
		&payload, &pr.LastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "activity_pages").Inc()
		return nil, fmt.Errorf("select activity page: %w", err)
	}

	pr.Payload = json.RawMessage(payload)
	return &pr, nil
}

// UpsertActivityPage writes one list page, replacing any existing row for the
// same key.
func (db *DB) UpsertActivityPage(ctx context.Context, row *models.ActivityPageRow) error {
	defer metrics.ObserveDBQuery("upsert", "activity_pages")()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activity_pages (athlete_id, page, per_page, before_ts, after_ts, payload, last_synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (athlete_id, page, per_page, before_ts, after_ts) DO UPDATE SET
			payload = EXCLUDED.payload,
			last_synced = EXCLUDED.last_synced`,
		row.AthleteID, row.Page, row.PerPage, row.Before, row.After,
		string(row.Payload), row.LastSynced)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "activity_pages").Inc()
		return fmt.Errorf("upsert activity page: %w", err)
	}

	return nil
}

// GetActivity returns the cached activity row by id, or ErrNotFound. Callers
// must still verify the row's athlete matches the requesting session.
func (db *DB) GetActivity(ctx context.Context, activityID int64) (*models.ActivityRow, error) {
	defer metrics.ObserveDBQuery("select", "activities")()

	row := db.conn.QueryRowContext(ctx,
		`SELECT activity_id, athlete_id, resource_state, payload, last_synced
		 FROM activities WHERE activity_id = ?`,
		activityID)

	var ar models.ActivityRow
	var state, payload string
	err := row.Scan(&ar.ActivityID, &ar.AthleteID, &state, &payload, &ar.LastSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("select", "activities").Inc()
		return nil, fmt.Errorf("select activity: %w", err)
	}

	ar.State = models.ParseResourceState(state)
	ar.Payload = json.RawMessage(payload)
	return &ar, nil
}

// UpsertActivity writes one activity row, replacing any existing payload and
// resource state for the same id.
func (db *DB) UpsertActivity(ctx context.Context, row *models.ActivityRow) error {
	defer metrics.ObserveDBQuery("upsert", "activities")()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activities (activity_id, athlete_id, resource_state, payload, last_synced)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (activity_id) DO UPDATE SET
			athlete_id = EXCLUDED.athlete_id,
			resource_state = EXCLUDED.resource_state,
			payload = EXCLUDED.payload,
			last_synced = EXCLUDED.last_synced`,
		row.ActivityID, row.AthleteID, row.State.String(), string(row.Payload), row.LastSynced)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("upsert", "activities").Inc()
		return fmt.Errorf("upsert activity: %w", err)
	}

	return nil
}
