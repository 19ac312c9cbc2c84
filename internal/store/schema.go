// Package store persists input series and computed evaluations in Postgres,
// with an in-memory variant for runs without a database.
package store

import (
	"context"
	"fmt"

	"github.com/silverpulse/heat/pkg/database"
)

// Schema is the DDL applied by Migrate. Statements are idempotent.
const Schema = `
CREATE SCHEMA IF NOT EXISTS heat;

CREATE TABLE IF NOT EXISTS heat.series_points (
	series     TEXT             NOT NULL,
	obs_date   DATE             NOT NULL,
	value      DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
	PRIMARY KEY (series, obs_date)
);

CREATE TABLE IF NOT EXISTS heat.cot_reports (
	report_date   DATE             PRIMARY KEY,
	retail_net    DOUBLE PRECISION NOT NULL,
	open_interest DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS heat.evaluations (
	id          UUID        PRIMARY KEY,
	as_of       DATE        NOT NULL,
	heat        SMALLINT    NOT NULL CHECK (heat BETWEEN 5 AND 25),
	change      SMALLINT    NOT NULL DEFAULT 0,
	config_hash TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_evaluations_as_of ON heat.evaluations (as_of DESC, created_at DESC);

CREATE TABLE IF NOT EXISTS heat.signal_results (
	evaluation_id UUID             NOT NULL REFERENCES heat.evaluations (id) ON DELETE CASCADE,
	signal        TEXT             NOT NULL,
	score         SMALLINT         NOT NULL,
	z_value       DOUBLE PRECISION,
	z_status      TEXT             NOT NULL,
	raw           DOUBLE PRECISION NOT NULL,
	latest        DOUBLE PRECISION NOT NULL,
	obs_date      DATE             NOT NULL,
	window_size   INT              NOT NULL,
	PRIMARY KEY (evaluation_id, signal)
);
`

// Migrate applies Schema
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.Pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
