// Package storetest checks that a store.Store backend behaves like the
// in-memory reference store.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/store"
)

// Dowel returns a small component usable as test data.
func Dowel(panel string, corner int) *component.Dowel {
	return &component.Dowel{
		ID:     component.DowelID(panel, corner),
		Panel:  panel,
		Corner: corner,
		Plane:  geom.WorldXY.WithOrigin(r3.Vec{X: float64(corner), Y: 1, Z: -0.05}),
		Radius: 0.005,
		Height: 0.0725,
		Beams:  [2]string{component.BeamID(panel, 0, corner), component.BeamID(panel, 0, corner+1)},
	}
}

// Joint returns a joint record between two panels.
func Joint(a, b string) *component.Joint {
	if b < a {
		a, b = b, a
	}
	return &component.Joint{ID: component.JointID(a, b), A: a, B: b, EdgeA: 1, EdgeB: 3}
}

// Run exercises s. The store must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("roundtrip", func(t *testing.T) {
		d := Dowel("north", 1)
		require.NoError(t, store.Save(ctx, s, d, "run-1"))

		rec, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, component.KindDowel, rec.Kind)
		assert.Equal(t, "north", rec.Panel)
		assert.Equal(t, "run-1", rec.RunID)

		got, err := store.Load[*component.Dowel](ctx, s, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Beams, got.Beams)
		assert.InDelta(t, d.Radius, got.Radius, 1e-12)
		assert.True(t, geom.Near(d.Plane.Origin, got.Plane.Origin, 1e-12))

		_, err = store.Load[*component.Joint](ctx, s, d.ID)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	})

	t.Run("replace", func(t *testing.T) {
		d := Dowel("north", 2)
		require.NoError(t, store.Save(ctx, s, d, "run-1"))
		d.Height = 1
		require.NoError(t, store.Save(ctx, s, d, "run-2"))

		got, err := store.Load[*component.Dowel](ctx, s, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Height)
		rec, err := s.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "run-2", rec.RunID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Get(ctx, "nope_P")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
	})

	t.Run("list", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, s, Dowel("east", 0), "run-2"))
		require.NoError(t, store.Save(ctx, s, Joint("north", "east"), "run-2"))

		all, err := s.List(ctx, store.Filter{})
		require.NoError(t, err)
		ids := make([]string, len(all))
		for i, r := range all {
			ids[i] = r.ID
		}
		assert.Equal(t, []string{"east x north", "east_DA", "north_DB", "north_DC"}, ids)

		dowels, err := s.List(ctx, store.Filter{Kind: component.KindDowel, Panel: "north"})
		require.NoError(t, err)
		assert.Len(t, dowels, 2)

		run2, err := s.List(ctx, store.Filter{RunID: "run-2"})
		require.NoError(t, err)
		assert.Len(t, run2, 3)

		joints, err := s.List(ctx, store.Filter{Kind: component.KindJoint})
		require.NoError(t, err)
		require.Len(t, joints, 1)
		assert.Equal(t, "east", joints[0].Panel)

		none, err := s.List(ctx, store.Filter{Kind: component.KindBeam})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		id := component.JointID("north", "east")
		require.NoError(t, s.Delete(ctx, id))
		_, err := s.Get(ctx, id)
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
		require.NoError(t, s.Delete(ctx, id))

		all, err := s.List(ctx, store.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}
