// Package sawtooth generates the finger-joint profiles that let two
// abutting beams or plates interlock.
//
// A straight guide edge is divided into an odd number of teeth centered on
// the guide. Every odd division point is pushed alternately inward and
// outward by the tooth depth. The mating edge reuses the same tooth count
// with the directions swapped, so both profiles share every division point
// and nest without gaps.
package sawtooth

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

// spanTolerance is the slack allowed when checking that a tooth span fits
// on the outline segment it replaces.
const spanTolerance = 1e-6

// Params describes one sawtooth application.
type Params struct {
	Depth  float64
	Width  float64
	Safety float64
	// ToothCount reuses the count computed for the mating edge; zero
	// computes it from the guide length.
	ToothCount int
	// Flip swaps inward and outward teeth.
	Flip bool
}

// ToothCount returns the odd number of teeth that fit on a guide of the
// given length, leaving at least safety free at both ends. The result is
// below 1 when the guide is too short or the inputs are not finite.
func ToothCount(length, width, safety float64) int {
	half := width / 2
	n := math.Floor((length - 2*safety) / (2 * half))
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return 0
	}
	return int(n)*2 + 1
}

// Divide splits the centered tooth span of guide into count*2 equal steps
// and returns the count*2+1 division points.
func Divide(guide geom.Line, width float64, count int) []r3.Vec {
	length := guide.Length()
	total := float64(count) * width / 2
	start := (length - total) / 2
	span := geom.Line{From: guide.PointAtLength(start), To: guide.PointAtLength(length - start)}

	steps := count * 2
	pts := make([]r3.Vec, steps+1)
	for i := range pts {
		pts[i] = span.PointAt(float64(i) / float64(steps))
	}
	return pts
}

// Offsets returns the signed transverse offset of every division point:
// zero on even indices, alternating +depth and -depth on odd ones, starting
// with +depth unless flip is set.
func Offsets(count int, depth float64, flip bool) []float64 {
	out := make([]float64, count*2+1)
	sign := 1.0
	if flip {
		sign = -1
	}
	for i := 1; i < len(out); i += 2 {
		out[i] = sign * depth
		sign = -sign
	}
	return out
}

// Transverse returns the unit direction teeth are pushed along: the guide
// direction rotated a quarter turn about normal.
func Transverse(guide geom.Line, normal r3.Vec) r3.Vec {
	return geom.Rotate(r3.Unit(guide.Direction()), math.Pi/2, normal)
}

// Profile returns the zig-zag points for guide.
func Profile(guide geom.Line, normal r3.Vec, width, depth float64, count int, flip bool) []r3.Vec {
	pts := Divide(guide, width, count)
	dir := Transverse(guide, normal)
	for i, o := range Offsets(count, depth, flip) {
		if o != 0 {
			pts[i] = r3.Add(pts[i], r3.Scale(o, dir))
		}
	}
	return pts
}

// resolveCount validates or computes the tooth count for a guide.
func resolveCount(guide geom.Line, p Params) (int, error) {
	if !(p.Width > 0) || math.IsInf(p.Width, 0) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "tooth width %g must be positive", p.Width)
	}
	if l := guide.Length(); math.IsNaN(l) || math.IsInf(l, 0) {
		return 0, errors.New(errors.ErrCodeInvalidInput, "guide length %g is not finite", l)
	}
	count := p.ToothCount
	if count == 0 {
		count = ToothCount(guide.Length(), p.Width, p.Safety)
	}
	if count < 1 {
		return 0, errors.New(errors.ErrCodeInvalidInput,
			"guide of length %.6f leaves no room for teeth of width %g with safety %g", guide.Length(), p.Width, p.Safety)
	}
	if count%2 == 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "tooth count %d is not odd", count)
	}
	return count, nil
}

// Detail is a zig-zag that replaces one straight outline edge. The first
// and last points lie on the edge; the filleted part runs between them.
type Detail struct {
	Edge   int      `json:"edge"`
	Points []r3.Vec `json:"points"`
}

// Result is the outcome of AddSawtooths.
type Result struct {
	Top          geom.Polygon
	Bottom       geom.Polygon
	TopDetail    Detail
	BottomDetail Detail
	ToothCount   int
	Offsets      []float64
	// GuidesFlipped reports that the guides ran against the outline and
	// were reversed.
	GuidesFlipped bool
}

// AddSawtooths inserts tooth profiles into the first segment of a top and
// bottom outline pair. Guides that run against the top outline's first
// segment are reversed first so that tooth phase is the same on both sides
// of a joint.
func AddSawtooths(top, bottom geom.Polygon, normal r3.Vec, topGuide, bottomGuide geom.Line, p Params) (Result, error) {
	if top.IsZero() || bottom.IsZero() {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "sawtooth needs both outlines")
	}
	if !(p.Depth > 0) || !(p.Width > 0) {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "sawtooth depth and width must be positive")
	}

	flipped := false
	if geom.ParallelSign(topGuide.Direction(), top.Edge(0).Direction(), geom.AngleTolerance) != 1 {
		topGuide = topGuide.Flip()
		bottomGuide = bottomGuide.Flip()
		flipped = true
	}

	count, err := resolveCount(topGuide, p)
	if err != nil {
		return Result{}, err
	}

	topPts := Profile(topGuide, normal, p.Width, p.Depth, count, p.Flip)
	bottomPts := Profile(bottomGuide, normal, p.Width, p.Depth, count, p.Flip)

	if err := checkSpan(top.Edge(0), topPts, "top"); err != nil {
		return Result{}, err
	}
	if err := checkSpan(bottom.Edge(0), bottomPts, "bottom"); err != nil {
		return Result{}, err
	}

	return Result{
		Top:           top.InsertAfter(0, topPts),
		Bottom:        bottom.InsertAfter(0, bottomPts),
		TopDetail:     Detail{Edge: 0, Points: topPts},
		BottomDetail:  Detail{Edge: 0, Points: bottomPts},
		ToothCount:    count,
		Offsets:       Offsets(count, p.Depth, p.Flip),
		GuidesFlipped: flipped,
	}, nil
}

// checkSpan verifies that the first and last division points lie within
// the outline segment they are inserted into.
func checkSpan(seg geom.Line, pts []r3.Vec, which string) error {
	for _, pt := range []r3.Vec{pts[0], pts[len(pts)-1]} {
		t := seg.ClosestParameter(pt)
		foot := seg.PointAt(t)
		if t < -spanTolerance || t > 1+spanTolerance || r3.Norm(r3.Sub(pt, foot)) > spanTolerance {
			return errors.New(errors.ErrCodeInvalidInput,
				"%s tooth span does not fit on the outline segment", which)
		}
	}
	return nil
}

// DetailEdge builds the zig-zag for one straight edge of an outline, as
// used for plates. A zero count in p computes it from the edge length.
func DetailEdge(edge geom.Line, index int, normal r3.Vec, p Params) (Detail, int, error) {
	count, err := resolveCount(edge, p)
	if err != nil {
		return Detail{}, 0, err
	}
	pts := Profile(edge, normal, p.Width, p.Depth, count, p.Flip)
	return Detail{Edge: index, Points: pts}, count, nil
}
