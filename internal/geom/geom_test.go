package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAreaMergesAdjacentPolygons(t *testing.T) {
	a, err := NewArea(Rect(0, 0, 5, 10), Rect(5, 0, 10, 10))
	require.NoError(t, err)

	assert.InDelta(t, 100, a.Size(), 1e-9)
	assert.Equal(t, 1, a.NumPolygons())
}

func TestNewAreaDropsDegeneratePolygons(t *testing.T) {
	// Collinear points enclose no surface.
	line := Polygon{{{X: 0, Y: 0}, {X: 5, Y: 5}, {X: 10, Y: 10}}}
	twoPoints := Polygon{{{X: 0, Y: 0}, {X: 1, Y: 1}}}

	a, err := NewArea(line, twoPoints)
	require.NoError(t, err)
	assert.True(t, a.IsEmpty())

	b, err := NewArea(line, Rect(0, 0, 1, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1, b.Size(), 1e-12)
}

func TestNewAreaRejectsSelfIntersection(t *testing.T) {
	// Lobes of unequal size so the signed areas do not cancel out.
	bowtie := Polygon{{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 4}}}

	_, err := NewArea(bowtie)
	require.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestNewAreaRejectsNonFinite(t *testing.T) {
	_, err := NewArea(Rect(0, 0, math.Inf(1), 1))
	require.ErrorIs(t, err, ErrMalformedGeometry)
}

func TestContainsPointBoundaryInclusive(t *testing.T) {
	a := MustArea(Rect(0, 0, 10, 10))

	assert.True(t, ContainsPoint(a, Pt(5, 5)))
	assert.True(t, ContainsPoint(a, Pt(0, 5)), "edge")
	assert.True(t, ContainsPoint(a, Pt(10, 10)), "corner")
	assert.False(t, ContainsPoint(a, Pt(10.0001, 5)))
	assert.False(t, ContainsPoint(Empty(), Pt(0, 0)))
}

func TestContainsPointRespectsHoles(t *testing.T) {
	donut := Polygon{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		{{X: 4, Y: 4}, {X: 6, Y: 4}, {X: 6, Y: 6}, {X: 4, Y: 6}},
	}
	a := MustArea(donut)

	assert.InDelta(t, 96, a.Size(), 1e-9)
	assert.False(t, ContainsPoint(a, Pt(5, 5)))
	assert.True(t, ContainsPoint(a, Pt(1, 1)))
}

func TestContainsArea(t *testing.T) {
	outer := MustArea(Rect(0, 0, 10, 10))

	assert.True(t, ContainsArea(outer, MustArea(Rect(0, 0, 10, 5))), "shared edges")
	assert.True(t, ContainsArea(outer, outer))
	assert.False(t, ContainsArea(outer, MustArea(Rect(5, 5, 15, 15))))
	assert.True(t, ContainsArea(outer, Empty()))
	assert.False(t, ContainsArea(Empty(), outer))
}

func TestDifferenceSplitsArea(t *testing.T) {
	a := MustArea(Rect(0, 0, 10, 10))
	band := MustArea(Rect(4, 0, 6, 10))

	out, err := Difference(a, band)
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumPolygons())
	assert.InDelta(t, 80, out.Size(), 1e-9)
}

func TestDifferenceToNothing(t *testing.T) {
	a := MustArea(Rect(0, 0, 10, 10))

	out, err := Difference(a, a)
	require.NoError(t, err)
	assert.True(t, out.IsEmpty())
}

func TestUnionAndUnionAll(t *testing.T) {
	a := MustArea(Rect(0, 0, 2, 2))
	b := MustArea(Rect(1, 1, 3, 3))
	c := MustArea(Rect(10, 10, 11, 11))

	u, err := Union(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 7, u.Size(), 1e-9)

	all, err := UnionAll(a, b, c, Empty())
	require.NoError(t, err)
	assert.InDelta(t, 8, all.Size(), 1e-9)
	assert.Equal(t, 2, all.NumPolygons())

	none, err := UnionAll()
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())
}

func TestIntersection(t *testing.T) {
	a := MustArea(Rect(0, 0, 2, 2))

	overlap, err := Intersection(a, MustArea(Rect(1, 1, 3, 3)))
	require.NoError(t, err)
	assert.InDelta(t, 1, overlap.Size(), 1e-9)

	touching, err := Intersection(a, MustArea(Rect(2, 0, 4, 2)))
	require.NoError(t, err)
	assert.True(t, touching.IsEmpty(), "shared edge has no surface")
}

func TestEqualTolerance(t *testing.T) {
	a := MustArea(Rect(0, 0, 10, 10))
	halves := MustArea(Rect(0, 0, 10, 5), Rect(0, 5, 10, 10))

	assert.True(t, a.Equal(halves, 1e-9))
	assert.False(t, a.Equal(MustArea(Rect(0, 0, 10, 9)), 1e-9))
	assert.True(t, Empty().Equal(Empty(), 1e-9))
	assert.False(t, Empty().Equal(a, 1e-9))
}

func TestWKBRoundTrip(t *testing.T) {
	a := MustArea(Rect(0, 0, 1.1, 3.3), Rect(5, 5, 6.000000001, 7))

	back, err := FromWKB(a.WKB())
	require.NoError(t, err)
	assert.True(t, a.Equal(back, 0))

	empty, err := FromWKB(Empty().WKB())
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestFromGeoJSONFlattensCollections(t *testing.T) {
	src := `{"type":"GeometryCollection","geometries":[
		{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,1],[0,0]]]]},
		{"type":"MultiPolygon","coordinates":[[[[2,0],[3,0],[3,1],[2,1],[2,0]]]]}
	]}`

	a, err := FromGeoJSON(src)
	require.NoError(t, err)
	assert.InDelta(t, 2, a.Size(), 1e-12)
	assert.Equal(t, 2, a.NumPolygons())

	_, err = FromGeoJSON(`{"type":"Point","coordinates":[0,0]}`)
	require.ErrorIs(t, err, ErrMalformedGeometry)
}
