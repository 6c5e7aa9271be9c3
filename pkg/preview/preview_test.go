package preview

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/layer"
	"github.com/chazu/cassette/pkg/store"
	"github.com/chazu/cassette/pkg/topology"
)

// square stores a unit square panel, its layers and beams.
func square(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()
	s := config.DefaultGeometry()
	topo, err := topology.Build([]topology.PanelSpec{
		{Name: "sq", Points: [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}},
	})
	require.NoError(t, err)
	p, ok := topo.Panel("sq")
	require.True(t, ok)

	layers, err := layer.BuildCassette(p.Name, p.Outline, p.Normal(), p.Dihedral, s)
	require.NoError(t, err)
	for _, l := range layers {
		outlines, err := l.CreateBeams()
		require.NoError(t, err)
		for _, o := range outlines {
			b, err := component.NewBeam(p.Name, o, s.BeamThickness)
			require.NoError(t, err)
			require.NoError(t, store.Save(ctx, st, b, "run"))
		}
	}
	require.NoError(t, store.Save(ctx, st, component.NewPanel(p, layers), "run"))
}

func white(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r == 0xffff && g == 0xffff && b == 0xffff
}

func TestRender(t *testing.T) {
	st := store.NewMemory()
	square(t, st)
	p, beams, err := Load(context.Background(), st, "sq")
	require.NoError(t, err)
	assert.Len(t, beams, 12)

	img, err := Render(p, beams, Options{Width: 200, Height: 200, Margin: 10})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), img.Bounds())

	// The middle of the panel is open; the beams run along the edges.
	assert.True(t, white(img, 100, 100))
	assert.False(t, white(img, 100, 186), "bottom beam")
	assert.False(t, white(img, 14, 100), "left beam")
	// Outline corner.
	assert.False(t, white(img, 10, 190))
	assert.True(t, white(img, 3, 3))
}

func TestRenderLevels(t *testing.T) {
	st := store.NewMemory()
	square(t, st)
	p, beams, err := Load(context.Background(), st, "sq")
	require.NoError(t, err)

	img, err := Render(p, beams, Options{Width: 200, Height: 200, Margin: 10, Levels: []int{0}})
	require.NoError(t, err)
	assert.False(t, white(img, 100, 186))
}

func TestWritePNG(t *testing.T) {
	st := store.NewMemory()
	square(t, st)
	p, beams, err := Load(context.Background(), st, "sq")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p, beams, Options{Width: 64, Height: 48, Margin: 4}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(&component.Panel{Name: "empty"}, nil, DefaultOptions())
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	st := store.NewMemory()
	square(t, st)
	p, _, err := Load(context.Background(), st, "sq")
	require.NoError(t, err)
	_, err = Render(p, nil, Options{Width: 10, Height: 10, Margin: 5})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, _, err = Load(context.Background(), st, "missing")
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}
