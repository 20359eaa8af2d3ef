package world

import (
	"fmt"
	"os"

	"github.com/talgya/polity/internal/geom"
)

// LoadWater reads a water mask from a GeoJSON geometry file. A
// GeometryCollection of (Multi)Polygons is merged into one mask.
func LoadWater(path string) (geom.Area, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return geom.Area{}, fmt.Errorf("read water source: %w", err)
	}
	water, err := geom.FromGeoJSON(string(data))
	if err != nil {
		return geom.Area{}, fmt.Errorf("parse water source %s: %w", path, err)
	}
	return water, nil
}

// GenerateWater builds a world from noise and returns the map with its
// water mask.
func GenerateWater(cfg GenConfig) (*Map, geom.Area, error) {
	m := Generate(cfg)
	water, err := m.WaterArea()
	if err != nil {
		return nil, geom.Area{}, fmt.Errorf("build water mask: %w", err)
	}
	return m, water, nil
}
