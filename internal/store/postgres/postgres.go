// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package postgres stores composite definitions in PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/db47h/logicsim"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// PGStore is a definition store backed by a pgx connection pool.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pool. The store owns the pool
// and closes it in Close.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// Close closes the connection pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// Load returns the definitions of a set in saved order, nil if the set does
// not exist.
func (s *PGStore) Load(ctx context.Context, set string) ([]*logicsim.Definition, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM logicsim_sets WHERE id = $1)`, set).Scan(&exists); err != nil {
		return nil, fmt.Errorf("store: load %s: %w", set, err)
	}
	if !exists {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT name, body FROM logicsim_definitions WHERE set_id = $1 ORDER BY position`, set)
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", set, err)
	}
	defer rows.Close()

	defs := []*logicsim.Definition{}
	for rows.Next() {
		var (
			name string
			body []byte
		)
		if err = rows.Scan(&name, &body); err != nil {
			return nil, fmt.Errorf("store: scan definition: %w", err)
		}
		d, err := logicsim.DecodeDefinition(body)
		if err != nil {
			return nil, err
		}
		if d.Name != name {
			return nil, errors.Wrapf(logicsim.ErrCorruptDefinitions, "row %q holds definition %q", name, d.Name)
		}
		defs = append(defs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: load %s: %w", set, err)
	}
	return defs, nil
}

// Save replaces the definitions of a set in one transaction.
func (s *PGStore) Save(ctx context.Context, set string, defs []*logicsim.Definition) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `
		INSERT INTO logicsim_sets (id) VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()`, set); err != nil {
		return fmt.Errorf("store: upsert set: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM logicsim_definitions WHERE set_id = $1`, set); err != nil {
		return fmt.Errorf("store: delete definitions: %w", err)
	}
	for i, d := range defs {
		body, err := logicsim.MarshalDefinition(d)
		if err != nil {
			return fmt.Errorf("store: encode %q: %w", d.Name, err)
		}
		if _, err = tx.Exec(ctx,
			`INSERT INTO logicsim_definitions (set_id, position, name, body) VALUES ($1, $2, $3, $4)`,
			set, i, d.Name, body,
		); err != nil {
			return fmt.Errorf("store: insert %q: %w", d.Name, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Delete removes a set. Its definitions are removed by cascade.
func (s *PGStore) Delete(ctx context.Context, set string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM logicsim_sets WHERE id = $1`, set); err != nil {
		return fmt.Errorf("store: delete %s: %w", set, err)
	}
	return nil
}

// Sets lists the saved sets.
func (s *PGStore) Sets(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM logicsim_sets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: list sets: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan set: %w", err)
		}
		names = append(names, id)
	}
	return names, rows.Err()
}
