// Package preview draws a plan view of one panel: its outline, the top
// outline of every layer and the beam footprints, projected into the
// panel plane.
package preview

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/fogleman/gg"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/store"
)

// Options controls the image size and content.
type Options struct {
	Width, Height int
	Margin        float64
	// Levels limits the drawn beams to these levels; empty draws all.
	Levels []int
}

// DefaultOptions returns a 1024x1024 image with a 32px margin.
func DefaultOptions() Options {
	return Options{Width: 1024, Height: 1024, Margin: 32}
}

func (o Options) wantsLevel(l int) bool {
	if len(o.Levels) == 0 {
		return true
	}
	for _, want := range o.Levels {
		if want == l {
			return true
		}
	}
	return false
}

// levelColors are the beam fill colors per level.
var levelColors = [][3]float64{
	{0.65, 0.79, 0.34},
	{0.42, 0.60, 0.31},
	{0.22, 0.40, 0.25},
}

// projection maps panel-plane coordinates to pixels.
type projection struct {
	plane  geom.Plane
	minX   float64
	minY   float64
	scale  float64
	height float64
	margin float64
}

func newProjection(p *component.Panel, o Options) (projection, error) {
	if p.Outline.IsZero() {
		return projection{}, errors.New(errors.ErrCodeInvalidInput, "panel %s has no outline", p.Name)
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range p.Outline.Corners() {
		l := p.Plane.ToLocal(c)
		minX, maxX = math.Min(minX, l.X), math.Max(maxX, l.X)
		minY, maxY = math.Min(minY, l.Y), math.Max(maxY, l.Y)
	}
	w := float64(o.Width) - 2*o.Margin
	h := float64(o.Height) - 2*o.Margin
	if w <= 0 || h <= 0 {
		return projection{}, errors.New(errors.ErrCodeInvalidInput, "image %dx%d leaves no room inside margin %g", o.Width, o.Height, o.Margin)
	}
	scale := math.Min(w/(maxX-minX), h/(maxY-minY))
	return projection{
		plane:  p.Plane,
		minX:   minX,
		minY:   minY,
		scale:  scale,
		height: float64(o.Height),
		margin: o.Margin,
	}, nil
}

func (pr projection) point(pt geom.Polygon, i int) (float64, float64) {
	l := pr.plane.ToLocal(pt.Corner(i))
	return pr.margin + (l.X-pr.minX)*pr.scale, pr.height - pr.margin - (l.Y-pr.minY)*pr.scale
}

func (pr projection) path(dc *gg.Context, p geom.Polygon) {
	dc.NewSubPath()
	for i := 0; i < p.Len(); i++ {
		x, y := pr.point(p, i)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}

// Render draws the panel and its beams.
func Render(p *component.Panel, beams []*component.Beam, o Options) (image.Image, error) {
	dc, err := draw(p, beams, o)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG renders the panel to w as PNG.
func WritePNG(w io.Writer, p *component.Panel, beams []*component.Beam, o Options) error {
	dc, err := draw(p, beams, o)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("preview: encode png: %w", err)
	}
	return nil
}

func draw(p *component.Panel, beams []*component.Beam, o Options) (*gg.Context, error) {
	pr, err := newProjection(p, o)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(o.Width, o.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for _, b := range beams {
		if !o.wantsLevel(b.Level) {
			continue
		}
		outline := b.Top
		if b.Detail != nil && !b.Detail.DetailedTop.IsZero() {
			outline = b.Detail.DetailedTop
		}
		c := levelColors[b.Level%len(levelColors)]
		pr.path(dc, outline)
		dc.SetRGBA(c[0], c[1], c[2], 0.6)
		dc.FillPreserve()
		dc.SetRGB(0.2, 0.2, 0.2)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	dc.SetDash(6, 4)
	for _, l := range p.Layers {
		if l.Level == 0 || l.Top.IsZero() {
			continue
		}
		pr.path(dc, l.Top)
		dc.SetRGB(0.5, 0.5, 0.5)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
	dc.SetDash()

	pr.path(dc, p.Outline)
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(2)
	dc.Stroke()
	return dc, nil
}

// Load reads a stored panel and its beams.
func Load(ctx context.Context, st store.Store, panel string) (*component.Panel, []*component.Beam, error) {
	p, err := store.Load[*component.Panel](ctx, st, panel)
	if err != nil {
		return nil, nil, err
	}
	recs, err := st.List(ctx, store.Filter{Kind: component.KindBeam, Panel: panel})
	if err != nil {
		return nil, nil, err
	}
	beams := make([]*component.Beam, 0, len(recs))
	for _, r := range recs {
		b, err := component.As[*component.Beam](r)
		if err != nil {
			return nil, nil, err
		}
		beams = append(beams, b)
	}
	return p, beams, nil
}
