// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package storetest provides a conformance test suite for definition stores.
package storetest

import (
	"context"
	"testing"

	"github.com/db47h/logicsim"
	"github.com/db47h/logicsim/logiclib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is the part of a definition store exercised by Run.
type Store interface {
	Load(ctx context.Context, set string) ([]*logicsim.Definition, error)
	Save(ctx context.Context, set string, defs []*logicsim.Definition) error
	Delete(ctx context.Context, set string) error
	Sets(ctx context.Context) ([]string, error)
}

// Run runs the conformance tests against an empty store s.
func Run(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		defs, err := s.Load(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, defs)
	})

	t.Run("roundtrip", func(t *testing.T) {
		lib := logiclib.All()
		require.NoError(t, s.Save(ctx, "lib", lib))
		defs, err := s.Load(ctx, "lib")
		require.NoError(t, err)
		require.Len(t, defs, len(lib))
		for i, d := range defs {
			assert.Equal(t, lib[i].Name, d.Name)
			want, err := logicsim.MarshalDefinition(lib[i])
			require.NoError(t, err)
			got, err := logicsim.MarshalDefinition(d)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		}

		// loaded definitions are usable
		c := logicsim.New()
		require.NoError(t, c.LoadDefinitions(defs))
		_, err = c.Instantiate("FullAdder", logicsim.Point{})
		assert.NoError(t, err)
	})

	t.Run("replace", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "lib", []*logicsim.Definition{logiclib.Mux()}))
		defs, err := s.Load(ctx, "lib")
		require.NoError(t, err)
		require.Len(t, defs, 1)
		assert.Equal(t, "MUX", defs[0].Name)

		require.NoError(t, s.Save(ctx, "empty", nil))
		defs, err = s.Load(ctx, "empty")
		require.NoError(t, err)
		assert.NotNil(t, defs)
		assert.Empty(t, defs)
	})

	t.Run("sets", func(t *testing.T) {
		names, err := s.Sets(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"empty", "lib"}, names)

		require.NoError(t, s.Delete(ctx, "lib"))
		require.NoError(t, s.Delete(ctx, "lib"))
		defs, err := s.Load(ctx, "lib")
		require.NoError(t, err)
		assert.Nil(t, defs)
		names, err = s.Sets(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"empty"}, names)
	})
}
