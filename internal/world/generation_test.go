package world

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polity/internal/geom"
)

func hexArea(size float64) float64 {
	return 3 * math.Sqrt(3) / 2 * size * size
}

// island builds a map whose outer ring is ocean and everything inside is land.
func island(radius int) *Map {
	m := NewMap(radius, 2)
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := HexCoord{Q: q, R: r}
			if !m.InBounds(c) {
				continue
			}
			terrain := TerrainLowland
			if Distance(c, HexCoord{}) == radius {
				terrain = TerrainOcean
			}
			m.Set(&Hex{Coord: c, Terrain: terrain, Elevation: 0.5})
		}
	}
	markCoastalHexes(m)
	return m
}

func TestHexPolygonsTile(t *testing.T) {
	a, err := geom.NewArea(HexCoord{}.Polygon(1), HexCoord{Q: 1}.Polygon(1), HexCoord{R: 1}.Polygon(1))
	require.NoError(t, err)
	assert.Equal(t, 1, a.NumPolygons())
	assert.InDelta(t, 3*hexArea(1), a.Size(), 1e-9)

	c := HexCoord{Q: 2, R: -1}
	assert.True(t, geom.ContainsPoint(geom.MustArea(c.Polygon(3)), c.Center(3)))
}

func TestDistanceAndNeighbors(t *testing.T) {
	origin := HexCoord{}
	for _, n := range origin.Neighbors() {
		assert.Equal(t, 1, Distance(origin, n))
	}
	assert.Equal(t, 3, Distance(HexCoord{Q: 1, R: 2}, HexCoord{Q: -2, R: 2}))
	assert.Equal(t, -1, HexCoord{Q: 2, R: -1}.S())
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	m1 := Generate(cfg)
	m2 := Generate(cfg)

	// A grid of radius R holds 3R(R+1)+1 hexes.
	assert.Equal(t, 91, m1.HexCount())
	for coord, h := range m1.Hexes {
		assert.True(t, m1.InBounds(coord))
		other := m2.Get(coord)
		require.NotNil(t, other)
		assert.Equal(t, h.Terrain, other.Terrain)
		assert.InDelta(t, h.Elevation, other.Elevation, 0)
	}
	total := 0
	for _, n := range TerrainCounts(m1) {
		total += n
	}
	assert.Equal(t, 91, total)
}

func TestCoastTouchesOceanOrEdge(t *testing.T) {
	m := Generate(SmallTestConfig())
	for coord, h := range m.Hexes {
		if h.Terrain != TerrainCoast {
			continue
		}
		touches := false
		for _, n := range coord.Neighbors() {
			if nh := m.Get(n); nh == nil || nh.IsWater() {
				touches = true
			}
		}
		assert.True(t, touches, "coast hex %v", coord)
	}
}

func TestWaterMaskMatchesHexes(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.HexSize = 4
	m, water, err := GenerateWater(cfg)
	require.NoError(t, err)

	w := New(nil)
	w.SetWater(water)
	for coord, h := range m.Hexes {
		assert.Equal(t, !h.IsWater(), w.OnLand(coord.Center(cfg.HexSize)), "hex %v (%s)", coord, TerrainName(h.Terrain))
	}

	extent, err := m.Extent()
	require.NoError(t, err)
	assert.InDelta(t, float64(m.HexCount())*hexArea(cfg.HexSize), extent.Size(), 1e-6)
	assert.Equal(t, 1, extent.NumPolygons())

	oceans := TerrainCounts(m)[TerrainOcean]
	assert.InDelta(t, float64(oceans)*hexArea(cfg.HexSize), water.Size(), 1e-6)
}

func TestIslandTerrain(t *testing.T) {
	m := island(3)
	counts := TerrainCounts(m)
	assert.Equal(t, 18, counts[TerrainOcean])
	assert.Equal(t, 12, counts[TerrainCoast])
	assert.Equal(t, 7, counts[TerrainLowland])
	assert.Equal(t, "Coast", TerrainName(TerrainCoast))
	assert.Equal(t, "Unknown", TerrainName(Terrain(99)))
}
