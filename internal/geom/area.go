package geom

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geos"
)

// Area is an immutable set of simple polygons. The zero value is empty.
// Areas are safe to share between goroutines.
type Area struct {
	g *geos.Geom
}

// Empty returns the empty area.
func Empty() Area {
	return Area{}
}

// NewArea builds an area from polygons. Overlapping or adjacent polygons are
// merged. Zero-area polygons are dropped; an invalid polygon fails the
// whole call with ErrMalformedGeometry.
func NewArea(polys ...Polygon) (Area, error) {
	parts := make([]Area, 0, len(polys))
	for i, p := range polys {
		a, err := PolygonArea(p)
		if err != nil {
			return Area{}, fmt.Errorf("polygon %d: %w", i, err)
		}
		parts = append(parts, a)
	}
	return UnionAll(parts...)
}

// PolygonArea builds an area from a single polygon without merging.
func PolygonArea(p Polygon) (Area, error) {
	g, err := p.toGeom()
	if err != nil {
		return Area{}, err
	}
	return wrap(g), nil
}

// MustArea is NewArea for literals known to be valid. It panics on error.
func MustArea(polys ...Polygon) Area {
	a, err := NewArea(polys...)
	if err != nil {
		panic(err)
	}
	return a
}

// wrap normalises an engine result: nil, empty and zero-area geometries
// become the empty Area.
func wrap(g *geos.Geom) Area {
	if g == nil || g.IsEmpty() || g.Area() == 0 {
		return Area{}
	}
	return Area{g: g}
}

// IsEmpty reports whether the area covers no surface.
func (a Area) IsEmpty() bool {
	return a.g == nil
}

// Size returns the planar surface of the area.
func (a Area) Size() float64 {
	if a.g == nil {
		return 0
	}
	return a.g.Area()
}

// NumPolygons returns how many disjoint polygons make up the area.
func (a Area) NumPolygons() int {
	if a.g == nil {
		return 0
	}
	switch a.g.TypeID() {
	case geos.TypeIDPolygon:
		return 1
	default:
		return a.g.NumGeometries()
	}
}

// Equal reports whether a and b cover the same surface. The symmetric
// difference may be at most tolerance relative to the larger area.
func (a Area) Equal(b Area, tolerance float64) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.Size() <= tolerance && b.Size() <= tolerance
	}
	var diff float64
	err := guard(func() {
		diff = a.g.SymDifference(b.g).Area()
	})
	if err != nil {
		return false
	}
	return diff <= tolerance*math.Max(1, math.Max(a.Size(), b.Size()))
}

// Bounds returns the bounding rectangle. ok is false for the empty area.
func (a Area) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if a.g == nil {
		return 0, 0, 0, 0, false
	}
	b := a.g.Bounds()
	return b.MinX, b.MinY, b.MaxX, b.MaxY, true
}

// WKB encodes the area as well-known binary. The empty area encodes to nil.
func (a Area) WKB() []byte {
	if a.g == nil {
		return nil
	}
	return a.g.ToWKB()
}

// WKT encodes the area as well-known text.
func (a Area) WKT() string {
	if a.g == nil {
		return "MULTIPOLYGON EMPTY"
	}
	return a.g.ToWKT()
}

// GeoJSON encodes the area as a GeoJSON geometry object.
func (a Area) GeoJSON() string {
	if a.g == nil {
		return `{"type":"MultiPolygon","coordinates":[]}`
	}
	return a.g.ToGeoJSON(-1)
}

// String implements fmt.Stringer.
func (a Area) String() string {
	return fmt.Sprintf("Area(polygons=%d, size=%g)", a.NumPolygons(), a.Size())
}

// FromWKB decodes an area written by WKB. Empty input decodes to the empty area.
func FromWKB(b []byte) (Area, error) {
	if len(b) == 0 {
		return Area{}, nil
	}
	g, err := ctx.NewGeomFromWKB(b)
	if err != nil {
		return Area{}, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	return polygonal(g)
}

// FromWKT decodes well-known text.
func FromWKT(s string) (Area, error) {
	g, err := ctx.NewGeomFromWKT(s)
	if err != nil {
		return Area{}, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	return polygonal(g)
}

// FromGeoJSON decodes a GeoJSON geometry. Collections are flattened and only
// their polygonal members are kept.
func FromGeoJSON(s string) (Area, error) {
	g, err := ctx.NewGeomFromGeoJSON(s)
	if err != nil {
		return Area{}, fmt.Errorf("%w: %v", ErrMalformedGeometry, err)
	}
	return polygonal(g)
}

// polygonal keeps the polygonal members of g, merged.
func polygonal(g *geos.Geom) (Area, error) {
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		if !g.IsValid() {
			return Area{}, fmt.Errorf("%w: %s", ErrMalformedGeometry, g.IsValidReason())
		}
		return wrap(g), nil
	case geos.TypeIDGeometryCollection:
		parts := make([]Area, 0, g.NumGeometries())
		for i := 0; i < g.NumGeometries(); i++ {
			a, err := polygonal(g.Geometry(i).Clone())
			if err != nil {
				return Area{}, fmt.Errorf("member %d: %w", i, err)
			}
			parts = append(parts, a)
		}
		return UnionAll(parts...)
	default:
		return Area{}, fmt.Errorf("%w: unexpected %s", ErrMalformedGeometry, g.Type())
	}
}
