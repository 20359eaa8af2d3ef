// Capital placement: finds suitable hexes for the seat of each seeded
// government and splits the land between them.
package world

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/talgya/polity/internal/geom"
	"github.com/talgya/polity/internal/territory"
)

// CapitalSeed is a chosen seat for a seeded government.
type CapitalSeed struct {
	Coord HexCoord
	Score float64 // Desirability score
	Name  string
}

// PlaceCapitals picks up to n land hexes ranked by desirability, at least
// minDist apart. The result is sorted by score, best first.
func PlaceCapitals(m *Map, n, minDist int, seed int64) []CapitalSeed {
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored
	for coord, hex := range m.Hexes {
		if s := capitalScore(m, coord, hex); s > 0 {
			candidates = append(candidates, scored{coord, s})
		}
	}

	// Map iteration order is random; ties break on coordinate so a seed
	// always gives the same capitals.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.coord.Q != b.coord.Q {
			return a.coord.Q < b.coord.Q
		}
		return a.coord.R < b.coord.R
	})

	var seeds []CapitalSeed
	for _, c := range candidates {
		if len(seeds) >= n {
			break
		}
		if tooClose(c.coord, seeds, minDist) {
			continue
		}
		seeds = append(seeds, CapitalSeed{Coord: c.coord, Score: c.score})
	}

	names := generateNames(rng, len(seeds))
	for i := range seeds {
		seeds[i].Name = names[i]
	}
	return seeds
}

// capitalScore evaluates how desirable a hex is as a seat of government.
// Prefers coast and lowland with varied surroundings.
func capitalScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0
	switch hex.Terrain {
	case TerrainCoast:
		score += 4.0 // Harbors are prime locations
	case TerrainLowland:
		score += 3.0
	case TerrainHighland:
		score += 0.3
	default:
		return 0
	}

	// Bonus for nearby terrain diversity.
	terrainTypes := make(map[Terrain]bool)
	land := 0
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh == nil || nh.IsWater() {
			continue
		}
		terrainTypes[nh.Terrain] = true
		land++
	}
	score += float64(len(terrainTypes)) * 0.3
	// A seat surrounded by water has nothing to govern.
	score += float64(land) * 0.2
	return score
}

func tooClose(coord HexCoord, existing []CapitalSeed, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}

// generateNames produces procedural realm names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	suffixes := []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "rest", "point", "reach", "helm",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Partition assigns every land hex to its nearest capital within reach.
// Ties go to the better-ranked capital. Hexes out of reach stay unclaimed.
func Partition(m *Map, capitals []CapitalSeed, reach int) [][]HexCoord {
	out := make([][]HexCoord, len(capitals))
	for coord, hex := range m.Hexes {
		if hex.IsWater() {
			continue
		}
		best, bestDist := -1, reach+1
		for i, c := range capitals {
			if d := Distance(coord, c.Coord); d < bestDist {
				best, bestDist = i, d
			}
		}
		if best >= 0 {
			out[best] = append(out[best], coord)
		}
	}
	return out
}

// SeedGovernments founds one government per capital and establishes its
// share of the land as a top-level territory named after the capital.
func SeedGovernments(w *World, m *Map, capitals []CapitalSeed, reach int) ([]*territory.Government, error) {
	shares := Partition(m, capitals, reach)
	govs := make([]*territory.Government, 0, len(capitals))
	for i, c := range capitals {
		if len(shares[i]) == 0 {
			continue
		}
		polys := make([]geom.Polygon, len(shares[i]))
		for j, coord := range shares[i] {
			polys[j] = coord.Polygon(m.HexSize)
		}

		g := w.FoundGovernment("Realm of " + c.Name)
		if _, err := w.EstablishTerritory(g, c.Name, polys); err != nil {
			return govs, fmt.Errorf("seed %s: %w", c.Name, err)
		}
		govs = append(govs, g)
	}
	return govs, nil
}
