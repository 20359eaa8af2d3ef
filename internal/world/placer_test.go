package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polity/internal/geom"
)

func TestPlaceCapitals(t *testing.T) {
	m := island(4)
	capitals := PlaceCapitals(m, 3, 3, 7)
	require.NotEmpty(t, capitals)
	assert.LessOrEqual(t, len(capitals), 3)

	names := map[string]bool{}
	for i, c := range capitals {
		assert.False(t, m.Get(c.Coord).IsWater())
		assert.NotEmpty(t, c.Name)
		assert.False(t, names[c.Name], "duplicate name %s", c.Name)
		names[c.Name] = true
		for _, other := range capitals[:i] {
			assert.GreaterOrEqual(t, Distance(c.Coord, other.Coord), 3)
			assert.GreaterOrEqual(t, other.Score, c.Score)
		}
	}

	again := PlaceCapitals(m, 3, 3, 7)
	assert.Equal(t, capitals, again)
}

func TestPartitionCoversLandOnce(t *testing.T) {
	m := island(4)
	capitals := PlaceCapitals(m, 2, 3, 1)
	require.Len(t, capitals, 2)

	shares := Partition(m, capitals, 100)
	seen := map[HexCoord]bool{}
	for _, share := range shares {
		for _, c := range share {
			assert.False(t, seen[c])
			assert.False(t, m.Get(c).IsWater())
			seen[c] = true
		}
	}
	land := m.HexCount() - TerrainCounts(m)[TerrainOcean]
	assert.Len(t, seen, land)

	// Nothing is reachable with a negative reach.
	for _, share := range Partition(m, capitals, -1) {
		assert.Empty(t, share)
	}
}

func TestSeedGovernments(t *testing.T) {
	m := island(4)
	water, err := m.WaterArea()
	require.NoError(t, err)
	w := New(nil)
	w.SetWater(water)

	capitals := PlaceCapitals(m, 3, 3, 11)
	govs, err := SeedGovernments(w, m, capitals, 100)
	require.NoError(t, err)
	require.Len(t, govs, len(capitals))
	assert.Len(t, w.Governments(), len(capitals))

	var held []geom.Area
	total := 0.0
	for i, g := range govs {
		terr := g.Territories()
		require.Len(t, terr, 1)
		assert.Equal(t, capitals[i].Name, terr[0].Name())
		assert.True(t, w.OnLand(capitals[i].Coord.Center(m.HexSize)))
		held = append(held, terr[0].Area())
		total += terr[0].Area().Size()
	}

	land := m.HexCount() - TerrainCounts(m)[TerrainOcean]
	assert.InDelta(t, float64(land)*hexArea(m.HexSize), total, 1e-6)

	all, err := geom.UnionAll(held...)
	require.NoError(t, err)
	assert.InDelta(t, total, all.Size(), 1e-6, "territories do not overlap")
}
