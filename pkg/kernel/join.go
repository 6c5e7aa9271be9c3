package kernel

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
)

// JoinTolerance is the largest gap bridged when chaining curve pieces.
const JoinTolerance = 1e-7

// JoinPolylines chains pieces end to end into one closed polygon. Pieces
// may be used in either direction. Consecutive duplicate points are
// collapsed. It fails unless every piece ends up in a single closed chain.
func JoinPolylines(pieces [][]r3.Vec, tol float64) (geom.Polygon, error) {
	var remaining [][]r3.Vec
	for _, p := range pieces {
		if len(p) >= 2 {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		return geom.Polygon{}, errors.New(errors.ErrCodeKernelOperation, "join: no curve pieces")
	}

	chain := appendPoints(nil, remaining[0], tol)
	remaining = remaining[1:]

	for len(remaining) > 0 {
		end := chain[len(chain)-1]
		found := -1
		for i, p := range remaining {
			switch {
			case geom.Near(p[0], end, tol):
				chain = appendPoints(chain, p, tol)
				found = i
			case geom.Near(p[len(p)-1], end, tol):
				chain = appendPoints(chain, reversed(p), tol)
				found = i
			}
			if found >= 0 {
				break
			}
		}
		if found < 0 {
			return geom.Polygon{}, errors.New(errors.ErrCodeKernelOperation,
				"join: %d of %d pieces do not connect", len(remaining), len(pieces))
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}

	if !geom.Near(chain[0], chain[len(chain)-1], tol) {
		return geom.Polygon{}, errors.New(errors.ErrCodeKernelOperation, "join: joined curve is not closed")
	}
	poly, err := geom.NewPolygon(chain[:len(chain)-1])
	if err != nil {
		return geom.Polygon{}, errors.Wrap(errors.ErrCodeKernelOperation, err, "join")
	}
	return poly, nil
}

func appendPoints(chain, pts []r3.Vec, tol float64) []r3.Vec {
	for _, pt := range pts {
		if len(chain) > 0 && geom.Near(chain[len(chain)-1], pt, tol) {
			continue
		}
		chain = append(chain, pt)
	}
	return chain
}

func reversed(pts []r3.Vec) []r3.Vec {
	out := make([]r3.Vec, len(pts))
	for i, pt := range pts {
		out[len(pts)-1-i] = pt
	}
	return out
}
