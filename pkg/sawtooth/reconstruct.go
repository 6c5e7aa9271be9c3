package sawtooth

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
)

// Pieces splits base into open polylines, one straight piece per plain
// edge and three pieces per detailed edge: the lead-in, the zig-zag and
// the lead-out. Only the zig-zag piece is filleted, with radius.
func Pieces(k kernel.Kernel, frame geom.Plane, base geom.Polygon, details []Detail, radius float64) ([][]r3.Vec, error) {
	byEdge := make(map[int]Detail, len(details))
	for _, d := range details {
		if d.Edge < 0 || d.Edge >= base.Len() {
			return nil, errors.New(errors.ErrCodeInvalidInput, "detail on edge %d of a %d-edge outline", d.Edge, base.Len())
		}
		if len(d.Points) < 2 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "detail on edge %s has %d points", geom.EdgeKey(d.Edge), len(d.Points))
		}
		if _, dup := byEdge[d.Edge]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %s is detailed twice", geom.EdgeKey(d.Edge))
		}
		byEdge[d.Edge] = d
	}

	var pieces [][]r3.Vec
	for i := 0; i < base.Len(); i++ {
		edge := base.Edge(i)
		d, ok := byEdge[i]
		if !ok {
			pieces = append(pieces, []r3.Vec{edge.From, edge.To})
			continue
		}
		first, last := d.Points[0], d.Points[len(d.Points)-1]
		zigzag, err := k.FilletCorners(d.Points, frame, radius)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeKernelOperation, err, "fillet edge %s", geom.EdgeKey(i))
		}
		if !geom.Near(edge.From, first, kernel.JoinTolerance) {
			pieces = append(pieces, []r3.Vec{edge.From, first})
		}
		pieces = append(pieces, zigzag)
		if !geom.Near(last, edge.To, kernel.JoinTolerance) {
			pieces = append(pieces, []r3.Vec{last, edge.To})
		}
	}
	return pieces, nil
}

// Curve rebuilds base as one closed curve with every detailed edge
// replaced by its filleted zig-zag.
func Curve(k kernel.Kernel, frame geom.Plane, base geom.Polygon, details []Detail, radius float64) (geom.Polygon, error) {
	pieces, err := Pieces(k, frame, base, details, radius)
	if err != nil {
		return geom.Polygon{}, err
	}
	curve, err := k.JoinCurves(pieces)
	if err != nil {
		return geom.Polygon{}, errors.Wrap(errors.ErrCodeKernelOperation, err, "join detailed outline")
	}
	return curve, nil
}

// Reconstruct builds the detailed solid between top and bottom. Every
// failure is returned; a partially detailed solid would not mate with its
// neighbor.
func Reconstruct(k kernel.Kernel, frame geom.Plane, top, bottom geom.Polygon, topDetails, bottomDetails []Detail, radius float64) (kernel.Solid, error) {
	topCurve, err := Curve(k, frame, top, topDetails, radius)
	if err != nil {
		return nil, err
	}
	bottomCurve, err := Curve(k, frame, bottom, bottomDetails, radius)
	if err != nil {
		return nil, err
	}
	solid, err := k.Loft(topCurve, bottomCurve, frame)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKernelOperation, err, "loft detailed outlines")
	}
	return solid, nil
}

// SortDetails orders details by edge index.
func SortDetails(details []Detail) {
	sort.Slice(details, func(i, j int) bool { return details[i].Edge < details[j].Edge })
}
