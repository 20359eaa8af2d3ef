package world

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polity/internal/geom"
	"github.com/talgya/polity/internal/territory"
)

const tol = 1e-9

// seaWorld has a 10x10 sea in the corner of the plane.
func seaWorld(t *testing.T) *World {
	t.Helper()
	w := New(nil)
	w.SetWater(geom.MustArea(geom.Rect(0, 0, 10, 10)))
	return w
}

func TestOnLand(t *testing.T) {
	w := seaWorld(t)

	assert.False(t, w.OnLand(geom.Pt(5, 5)))
	assert.True(t, w.InWater(geom.Pt(5, 5)))
	assert.True(t, w.OnLand(geom.Pt(15, 5)))
	assert.False(t, w.InWater(geom.Pt(15, 5)))

	// The coastline is water.
	assert.False(t, w.OnLand(geom.Pt(10, 5)))
	assert.True(t, w.InWater(geom.Pt(10, 10)))

	dry := New(nil)
	assert.True(t, dry.OnLand(geom.Pt(5, 5)))
}

func TestOnLandNonFinite(t *testing.T) {
	w := seaWorld(t)
	nowhere := []geom.Point{
		geom.Pt(math.NaN(), 5),
		geom.Pt(15, math.NaN()),
		geom.Pt(math.Inf(1), math.Inf(1)),
		geom.Pt(math.Inf(-1), 5),
	}
	for _, p := range nowhere {
		assert.False(t, w.OnLand(p), "point %v", p)
		assert.False(t, w.InWater(p), "point %v", p)
	}

	got, err := w.OnLandBulk(context.Background(), append(nowhere, geom.Pt(15, 5)))
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, false, false, true}, got)
}

func TestOnLandBulk(t *testing.T) {
	w := seaWorld(t)
	w.BulkWorkers = 3

	var pts []geom.Point
	for x := -2.0; x <= 22; x += 1.5 {
		for y := -2.0; y <= 12; y += 1.5 {
			pts = append(pts, geom.Pt(x, y))
		}
	}
	got, err := w.OnLandBulk(context.Background(), pts)
	require.NoError(t, err)
	require.Len(t, got, len(pts))
	for i, p := range pts {
		assert.Equal(t, w.OnLand(p), got[i], "point %v", p)
	}

	empty, err := w.OnLandBulk(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.OnLandBulk(ctx, pts)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCoversAndLandPortion(t *testing.T) {
	w := seaWorld(t)

	ok, err := w.Covers(geom.MustArea(geom.Rect(12, 2, 14, 4)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.Covers(geom.MustArea(geom.Rect(8, 2, 12, 4)))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = w.Covers(geom.Empty())
	require.NoError(t, err)
	assert.False(t, ok)

	land, err := w.LandPortion(geom.MustArea(geom.Rect(0, 0, 20, 10)))
	require.NoError(t, err)
	assert.True(t, geom.MustArea(geom.Rect(10, 0, 20, 10)).Equal(land, tol))
}

func TestEstablishTerritory(t *testing.T) {
	w := seaWorld(t)
	a := w.FoundGovernment("Avalon")
	b := w.FoundGovernment("Brigantia")

	d, err := w.EstablishTerritory(a, "Shore", []geom.Polygon{geom.Rect(5, 0, 20, 10)})
	require.NoError(t, err)
	assert.InDelta(t, 100, d.Area().Size(), tol)
	owner, _ := d.Owner()
	assert.Equal(t, a.ID(), owner)
	_, held := a.Territory(d.ID())
	assert.True(t, held)

	_, err = w.EstablishTerritory(b, "Grab", []geom.Polygon{geom.Rect(15, 0, 25, 10)})
	require.ErrorIs(t, err, ErrOverlap)

	// Overlap is checked against whole subtrees, not just residuals.
	_, err = d.CreateSubdivision("East", []geom.Polygon{geom.Rect(15, 0, 20, 10)})
	require.NoError(t, err)
	_, err = w.EstablishTerritory(b, "Grab", []geom.Polygon{geom.Rect(18, 0, 25, 10)})
	require.ErrorIs(t, err, ErrOverlap)

	// Sharing a border is allowed.
	_, err = w.EstablishTerritory(b, "Neighbour", []geom.Polygon{geom.Rect(20, 0, 30, 10)})
	require.NoError(t, err)

	_, err = w.EstablishTerritory(b, "Reef", []geom.Polygon{geom.Rect(1, 1, 9, 9)})
	require.ErrorIs(t, err, ErrNoLand)

	_, err = w.EstablishTerritory(b, "Nothing", nil)
	require.ErrorIs(t, err, geom.ErrMalformedGeometry)

	stranger := territory.NewGovernment(w.Divisions, "Stranger")
	_, err = w.EstablishTerritory(stranger, "Elsewhere", []geom.Polygon{geom.Rect(40, 0, 50, 10)})
	require.ErrorIs(t, err, territory.ErrNotFound)

	assert.Equal(t, Stats{Governments: 2, Divisions: 3, WaterArea: 100}, w.Stats())
}

func TestWorldTransfers(t *testing.T) {
	w := seaWorld(t)
	a := w.FoundGovernment("Avalon")
	b := w.FoundGovernment("Brigantia")
	d, err := w.EstablishTerritory(a, "Shore", []geom.Polygon{geom.Rect(10, 0, 20, 10)})
	require.NoError(t, err)
	_, err = d.CreateSubdivision("North", []geom.Polygon{geom.Rect(10, 5, 20, 10)})
	require.NoError(t, err)

	require.NoError(t, w.Integrate(b.ID(), a.ID(), d.ID()))
	require.ErrorIs(t, w.Integrate(b.ID(), a.ID(), d.ID()), territory.ErrNotFound)
	assert.Len(t, d.Subdivisions(), 1)

	annexed, err := w.Annex(a.ID(), b.ID(), d.ID())
	require.NoError(t, err)
	assert.Equal(t, "Shore Territory", annexed.Name())
	assert.Empty(t, annexed.Subdivisions())
	assert.InDelta(t, 100, annexed.Area().Size(), tol)

	_, err = w.Annex(territory.GovernmentID{}, a.ID(), d.ID())
	require.ErrorIs(t, err, territory.ErrNotFound)
	require.ErrorIs(t, w.Integrate(a.ID(), a.ID(), d.ID()), territory.ErrSelfTransfer)
}

func TestAddGovernment(t *testing.T) {
	w := New(nil)
	g := territory.NewGovernment(w.Divisions, "Avalon")
	require.NoError(t, w.AddGovernment(g))
	require.ErrorIs(t, w.AddGovernment(g), ErrDuplicateGovernment)

	got, ok := w.Government(g.ID())
	require.True(t, ok)
	assert.Same(t, g, got)

	w.FoundGovernment("Brigantia")
	govs := w.Governments()
	require.Len(t, govs, 2)
	assert.Negative(t, compareIDs(govs[0].ID(), govs[1].ID()))
}

func compareIDs(a, b territory.GovernmentID) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return 0
}

func TestLoadWater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "water.geojson")
	doc := `{"type":"GeometryCollection","geometries":[
		{"type":"MultiPolygon","coordinates":[[[[0,0],[10,0],[10,10],[0,10],[0,0]]]]},
		{"type":"Polygon","coordinates":[[[10,0],[20,0],[20,5],[10,5],[10,0]]]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	water, err := LoadWater(path)
	require.NoError(t, err)
	assert.InDelta(t, 150, water.Size(), tol)
	assert.Equal(t, 1, water.NumPolygons())

	_, err = LoadWater(filepath.Join(dir, "missing.geojson"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.geojson")
	require.NoError(t, os.WriteFile(bad, []byte(`{"type":"Point","coordinates":[1,2]}`), 0o644))
	_, err = LoadWater(bad)
	require.ErrorIs(t, err, geom.ErrMalformedGeometry)
}
