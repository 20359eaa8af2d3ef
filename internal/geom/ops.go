package geom

import (
	"github.com/twpayne/go-geos"
)

// ContainsPoint reports whether p lies within area. Boundary points count
// as contained.
func ContainsPoint(area Area, p Point) bool {
	if area.IsEmpty() || !p.Finite() {
		return false
	}
	var ok bool
	err := guard(func() {
		ok = area.g.Covers(ctx.NewPoint([]float64{p.X, p.Y}))
	})
	return err == nil && ok
}

// ContainsArea reports whether every point of candidate lies within area.
// The empty candidate is contained in anything.
func ContainsArea(area, candidate Area) bool {
	if candidate.IsEmpty() {
		return true
	}
	if area.IsEmpty() {
		return false
	}
	var ok bool
	err := guard(func() {
		ok = area.g.Covers(candidate.g)
	})
	return err == nil && ok
}

// Union returns the merged surface of a and b.
func Union(a, b Area) (Area, error) {
	switch {
	case a.IsEmpty():
		return b, nil
	case b.IsEmpty():
		return a, nil
	}
	var out *geos.Geom
	err := guard(func() {
		out = a.g.Union(b.g)
	})
	if err != nil {
		return Area{}, err
	}
	return wrap(out), nil
}

// UnionAll merges any number of areas in one pass.
func UnionAll(areas ...Area) (Area, error) {
	parts := make([]*geos.Geom, 0, len(areas))
	for _, a := range areas {
		if !a.IsEmpty() {
			parts = append(parts, a.g.Clone())
		}
	}
	switch len(parts) {
	case 0:
		return Area{}, nil
	case 1:
		return wrap(parts[0]), nil
	}
	var out *geos.Geom
	err := guard(func() {
		out = ctx.NewCollection(geos.TypeIDGeometryCollection, parts).UnaryUnion()
	})
	if err != nil {
		return Area{}, err
	}
	return wrap(out), nil
}

// Difference returns a with b removed. The result may be split into several
// disjoint polygons.
func Difference(a, b Area) (Area, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return a, nil
	}
	var out *geos.Geom
	err := guard(func() {
		out = a.g.Difference(b.g)
	})
	if err != nil {
		return Area{}, err
	}
	return wrap(out), nil
}

// Intersection returns the surface shared by a and b.
func Intersection(a, b Area) (Area, error) {
	if a.IsEmpty() || b.IsEmpty() {
		return Area{}, nil
	}
	var out *geos.Geom
	err := guard(func() {
		out = a.g.Intersection(b.g)
	})
	if err != nil {
		return Area{}, err
	}
	return wrap(out), nil
}
