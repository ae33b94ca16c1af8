// FitnessOverlays - Strava Activity Overlay Generator
// Copyright 2026 FitnessOverlays Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fitnessoverlays/fitnessoverlays

package database

import (
	"context"
	"fmt"
)

// initSchema creates all tables if they do not exist. All columns are defined
// in the initial CREATE TABLE statements; there is no migration machinery.
func (db *DB) initSchema(ctx context.Context) error {
	queries := []string{
		// One active credential per (athlete, provider). Tokens may be
		// AES-GCM ciphertext depending on configuration.
		`CREATE TABLE IF NOT EXISTS credentials (
			athlete_id BIGINT NOT NULL,
			provider VARCHAR NOT NULL,
			access_token VARCHAR NOT NULL,
			refresh_token VARCHAR,
			expires_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (athlete_id, provider)
		)`,

		// Cached athlete profile, verbatim Strava payload.
		`CREATE TABLE IF NOT EXISTS athletes (
			athlete_id BIGINT PRIMARY KEY,
			payload VARCHAR NOT NULL,
			last_synced TIMESTAMP NOT NULL
		)`,

		// Cached activity list pages. before_ts/after_ts are unix seconds,
		// 0 when the bound was not supplied, so the composite key stays
		// non-null.
		`CREATE TABLE IF NOT EXISTS activity_pages (
			athlete_id BIGINT NOT NULL,
			page INTEGER NOT NULL,
			per_page INTEGER NOT NULL,
			before_ts BIGINT NOT NULL,
			after_ts BIGINT NOT NULL,
			payload VARCHAR NOT NULL,
			last_synced TIMESTAMP NOT NULL,
			PRIMARY KEY (athlete_id, page, per_page, before_ts, after_ts)
		)`,

		// Cached individual activities with their resource state.
		`CREATE TABLE IF NOT EXISTS activities (
			activity_id BIGINT PRIMARY KEY,
			athlete_id BIGINT NOT NULL,
			resource_state VARCHAR NOT NULL,
			payload VARCHAR NOT NULL,
			last_synced TIMESTAMP NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}

	return nil
}
