// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package store persists composite definitions.
//
// Definitions are saved as named sets: an ordered list of definitions replaced
// as a whole on every save. Loading a set that fails to decode or validate
// yields an error wrapping logicsim.ErrCorruptDefinitions; callers are
// expected to discard the set wholesale.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/internal/store/postgres"
	"github.com/db47h/logicsim/internal/store/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Store is the contract of definition storage backends.
type Store interface {
	// Load returns the definitions of a set, nil if the set does not exist.
	Load(ctx context.Context, set string) ([]*logicsim.Definition, error)
	// Save replaces the definitions of a set.
	Save(ctx context.Context, set string, defs []*logicsim.Definition) error
	// Delete removes a set. Deleting a missing set is not an error.
	Delete(ctx context.Context, set string) error
	// Sets lists set names in lexical order.
	Sets(ctx context.Context) ([]string, error)
	Close() error
}

// Open opens a store backend. driver is one of "memory", "sqlite" or
// "postgres"; dsn is the database file for sqlite and the connection URL for
// postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		s, err := sqlite.Open(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "store: connect")
		}
		s := postgres.New(pool)
		if err = s.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "store: create schema")
		}
		return s, nil
	}
	return nil, errors.Errorf("store: unknown driver %q", driver)
}

// Memory is a volatile Store. Sets are kept in their encoded form, so that
// Load goes through the same decoding and validation as the database backends.
type Memory struct {
	mu   sync.Mutex
	sets map[string][]byte
}

// NewMemory returns a new empty memory store.
func NewMemory() *Memory {
	return &Memory{sets: make(map[string][]byte)}
}

// Load implements Store.
func (m *Memory) Load(_ context.Context, set string) ([]*logicsim.Definition, error) {
	m.mu.Lock()
	data, ok := m.sets[set]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return logicsim.UnmarshalDefinitions(data)
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, set string, defs []*logicsim.Definition) error {
	data, err := logicsim.MarshalDefinitions(defs)
	if err != nil {
		return errors.Wrap(err, "store: encode")
	}
	m.Put(set, data)
	return nil
}

// Put stores raw encoded data for a set.
func (m *Memory) Put(set string, data []byte) {
	m.mu.Lock()
	m.sets[set] = data
	m.mu.Unlock()
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, set string) error {
	m.mu.Lock()
	delete(m.sets, set)
	m.mu.Unlock()
	return nil
}

// Sets implements Store.
func (m *Memory) Sets(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.sets))
	for k := range m.sets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
