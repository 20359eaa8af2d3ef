package world

import (
	"fmt"

	"github.com/talgya/polity/internal/geom"
)

// Map holds a generated hex grid and the planar size of its hexes.
type Map struct {
	Hexes   map[HexCoord]*Hex `json:"-"` // All hexes keyed by coordinate
	Radius  int               `json:"radius"`
	HexSize float64           `json:"hex_size"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int, hexSize float64) *Map {
	return &Map{
		Hexes:   make(map[HexCoord]*Hex),
		Radius:  radius,
		HexSize: hexSize,
	}
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Set places a hex at the given coordinate.
func (m *Map) Set(hex *Hex) {
	m.Hexes[hex.Coord] = hex
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return max(abs(coord.Q), abs(coord.R), abs(coord.S())) <= m.Radius
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// Extent returns the union of every hex: the whole physical world.
func (m *Map) Extent() (geom.Area, error) {
	return m.union(func(*Hex) bool { return true })
}

// WaterArea returns the union of all ocean hexes.
func (m *Map) WaterArea() (geom.Area, error) {
	return m.union((*Hex).IsWater)
}

func (m *Map) union(keep func(*Hex) bool) (geom.Area, error) {
	parts := make([]geom.Area, 0, len(m.Hexes))
	for coord, hex := range m.Hexes {
		if !keep(hex) {
			continue
		}
		a, err := geom.PolygonArea(coord.Polygon(m.HexSize))
		if err != nil {
			return geom.Area{}, fmt.Errorf("hex %v: %w", coord, err)
		}
		parts = append(parts, a)
	}
	return geom.UnionAll(parts...)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d)", m.Radius, m.HexCount())
}
