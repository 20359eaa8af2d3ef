// Package world ties the territorial tree to the physical map: the water
// mask, the governments, and the hex grid the mask can be generated on.
// The grid uses pointy-top hexes in axial coordinates (q, r).
package world

import (
	"math"

	"github.com/talgya/polity/internal/geom"
)

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Terrain classifies a hex for the water mask.
type Terrain uint8

const (
	TerrainOcean    Terrain = iota // Part of the water mask
	TerrainCoast                   // Land touching ocean
	TerrainLowland                 // Inland, below the highland threshold
	TerrainHighland                // Hills and mountains
)

// Hex is a single tile on the generated map.
type Hex struct {
	Coord     HexCoord `json:"coord"`
	Terrain   Terrain  `json:"terrain"`
	Elevation float64  `json:"elevation"` // 0.0 (sea floor) to 1.0 (peak)
}

// IsWater reports whether the hex belongs to the water mask.
func (h *Hex) IsWater() bool {
	return h.Terrain == TerrainOcean
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// Corners are laid out on a lattice of half-widths (sqrt(3)/2 * size) by
// half-heights (size/2). Neighbouring hexes compute shared corners from the
// same lattice indices, so their edges coincide exactly and unions leave no
// slivers.
var cornerOffsets = [6][2]int{
	{1, -1}, {1, 1}, {0, 2}, {-1, 1}, {-1, -1}, {0, -2},
}

func lattice(size float64, i, j int) geom.Point {
	return geom.Pt(float64(i)*size*math.Sqrt(3)/2, float64(j)*size/2)
}

// Center returns the planar centre of the hex for a given corner radius.
func (h HexCoord) Center(size float64) geom.Point {
	return lattice(size, 2*h.Q+h.R, 3*h.R)
}

// Polygon returns the hex outline for a given corner radius.
func (h HexCoord) Polygon(size float64) geom.Polygon {
	ci, cj := 2*h.Q+h.R, 3*h.R
	ring := make(geom.Ring, 0, len(cornerOffsets))
	for _, o := range cornerOffsets {
		ring = append(ring, lattice(size, ci+o[0], cj+o[1]))
	}
	return geom.Polygon{ring}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
