// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS logicsim_sets (
    id         TEXT PRIMARY KEY,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS logicsim_definitions (
    set_id   TEXT NOT NULL REFERENCES logicsim_sets(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name     TEXT NOT NULL,
    body     JSONB NOT NULL,
    PRIMARY KEY (set_id, name)
);

CREATE INDEX IF NOT EXISTS idx_logicsim_definitions_set ON logicsim_definitions(set_id, position);
`

// CreateSchema creates the logicsim tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the logicsim tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS logicsim_definitions, logicsim_sets CASCADE;`)
	return err
}
