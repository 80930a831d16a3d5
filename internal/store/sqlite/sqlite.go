// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sqlite stores composite definitions in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/db47h/logicsim"
	_ "github.com/mattn/go-sqlite3" // driver
	"github.com/pkg/errors"
)

// Store is a definition store backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open")
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite: open")
	}
	// a single connection serializes writers and keeps ":memory:" databases
	// alive across calls.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err = s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite: init schema")
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS definition_sets (
			id TEXT PRIMARY KEY,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS definitions (
			set_id TEXT NOT NULL REFERENCES definition_sets(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (set_id, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_definitions_set ON definitions(set_id, position);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the definitions of a set in saved order, nil if the set does
// not exist.
func (s *Store) Load(ctx context.Context, set string) ([]*logicsim.Definition, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM definition_sets WHERE id = ?`, set).Scan(&n); err != nil {
		return nil, errors.Wrap(err, "sqlite: load")
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, body FROM definitions WHERE set_id = ? ORDER BY position`, set)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: load")
	}
	defer rows.Close()

	defs := []*logicsim.Definition{}
	for rows.Next() {
		var name, body string
		if err = rows.Scan(&name, &body); err != nil {
			return nil, errors.Wrap(err, "sqlite: load")
		}
		d, err := logicsim.DecodeDefinition([]byte(body))
		if err != nil {
			return nil, err
		}
		if d.Name != name {
			return nil, errors.Wrapf(logicsim.ErrCorruptDefinitions, "row %q holds definition %q", name, d.Name)
		}
		defs = append(defs, d)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite: load")
	}
	return defs, nil
}

// Save replaces the definitions of a set in a single transaction.
func (s *Store) Save(ctx context.Context, set string, defs []*logicsim.Definition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO definition_sets (id) VALUES (?)
		ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`, set); err != nil {
		return errors.Wrap(err, "sqlite: upsert set")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM definitions WHERE set_id = ?`, set); err != nil {
		return errors.Wrap(err, "sqlite: delete definitions")
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO definitions (set_id, position, name, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "sqlite: prepare")
	}
	defer stmt.Close()
	for i, d := range defs {
		body, err := logicsim.MarshalDefinition(d)
		if err != nil {
			return errors.Wrapf(err, "sqlite: encode %q", d.Name)
		}
		if _, err = stmt.ExecContext(ctx, set, i, d.Name, string(body)); err != nil {
			return errors.Wrapf(err, "sqlite: insert %q", d.Name)
		}
	}
	return tx.Commit()
}

// Delete removes a set and its definitions.
func (s *Store) Delete(ctx context.Context, set string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()
	if _, err = tx.ExecContext(ctx, `DELETE FROM definitions WHERE set_id = ?`, set); err != nil {
		return errors.Wrap(err, "sqlite: delete definitions")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM definition_sets WHERE id = ?`, set); err != nil {
		return errors.Wrap(err, "sqlite: delete set")
	}
	return tx.Commit()
}

// Sets lists the saved sets.
func (s *Store) Sets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM definition_sets ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: list sets")
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "sqlite: list sets")
		}
		names = append(names, id)
	}
	return names, rows.Err()
}

// Exec runs a raw statement. It exists for maintenance and tests.
func (s *Store) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
