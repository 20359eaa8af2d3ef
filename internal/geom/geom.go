// Package geom provides planar polygon primitives: containment, union and
// difference over sets of simple polygons. All coordinates are planar doubles.
package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geos"
)

// ErrMalformedGeometry is returned for self-intersecting or otherwise
// unusable input, and for geometry engine failures.
var ErrMalformedGeometry = errors.New("malformed geometry")

// One context for the whole process. go-geos serialises calls per context,
// and geometries from different contexts cannot be combined.
var ctx = geos.NewContext()

// Point is a planar coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Ring is a closed sequence of points. The closing point may be omitted.
type Ring []Point

// Polygon is a list of rings: the first is the exterior, the rest are holes.
type Polygon []Ring

// Rect returns the axis-aligned rectangle polygon spanning the two corners.
func Rect(minX, minY, maxX, maxY float64) Polygon {
	return Polygon{{
		{X: minX, Y: minY},
		{X: maxX, Y: minY},
		{X: maxX, Y: maxY},
		{X: minX, Y: maxY},
	}}
}

// coords converts a ring to closed GEOS coordinates. Returns nil when the
// ring has fewer than three distinct points.
func (r Ring) coords() ([][]float64, error) {
	out := make([][]float64, 0, len(r)+1)
	for _, p := range r {
		if !p.Finite() {
			return nil, fmt.Errorf("%w: non-finite coordinate", ErrMalformedGeometry)
		}
		if n := len(out); n > 0 && out[n-1][0] == p.X && out[n-1][1] == p.Y {
			continue
		}
		out = append(out, []float64{p.X, p.Y})
	}
	if n := len(out); n > 1 && out[0][0] == out[n-1][0] && out[0][1] == out[n-1][1] {
		out = out[:n-1]
	}
	if len(out) < 3 {
		return nil, nil
	}
	return append(out, out[0]), nil
}

// toGeom builds a GEOS polygon. A nil geometry with a nil error means the
// polygon is degenerate and should be treated as empty.
func (p Polygon) toGeom() (g *geos.Geom, err error) {
	if len(p) == 0 {
		return nil, nil
	}
	shell, err := p[0].coords()
	if err != nil || shell == nil {
		return nil, err
	}
	rings := [][][]float64{shell}
	for _, hole := range p[1:] {
		c, err := hole.coords()
		if err != nil {
			return nil, err
		}
		if c != nil {
			rings = append(rings, c)
		}
	}

	err = guard(func() {
		g = ctx.NewPolygon(rings)
	})
	if err != nil {
		return nil, err
	}
	if g.Area() == 0 {
		return nil, nil
	}
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedGeometry, g.IsValidReason())
	}
	return g, nil
}

// guard runs fn and converts a GEOS panic into ErrMalformedGeometry.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedGeometry, r)
		}
	}()
	fn()
	return nil
}
