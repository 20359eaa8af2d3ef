package world

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/polity/internal/geom"
	"github.com/talgya/polity/internal/territory"
)

var (
	// ErrNoLand: a claim lies entirely in water.
	ErrNoLand = errors.New("claim contains no land")
	// ErrOverlap: a claim overlaps territory already held by a government.
	ErrOverlap = errors.New("claim overlaps existing territory")
	// ErrDuplicateGovernment: a government with that id is already registered.
	ErrDuplicateGovernment = errors.New("government already registered")
)

// World is the top-level container: the water mask, the governments, and
// the arena of divisions they hold.
//
// The world lock is first in the lock order. It guards the water mask and
// the government index, and serialises the founding of new territory so
// that overlap checks and establishment happen atomically.
type World struct {
	mu          sync.RWMutex
	water       geom.Area
	governments map[territory.GovernmentID]*territory.Government

	Divisions   *territory.Registry
	BulkWorkers int
}

// New creates an empty world over reg. A nil reg gets a default registry.
func New(reg *territory.Registry) *World {
	if reg == nil {
		reg = territory.NewRegistry()
	}
	return &World{
		governments: make(map[territory.GovernmentID]*territory.Government),
		Divisions:   reg,
		BulkWorkers: runtime.GOMAXPROCS(0),
	}
}

// SetWater replaces the water mask.
func (w *World) SetWater(water geom.Area) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.water = water
}

// Water returns the water mask.
func (w *World) Water() geom.Area {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.water
}

// InWater reports whether p is covered by the water mask. Coastline points
// are covered.
func (w *World) InWater(p geom.Point) bool {
	return geom.ContainsPoint(w.Water(), p)
}

// OnLand reports whether p is dry land: not covered by the water mask.
// Points on the coastline are water. A point with a NaN or infinite
// coordinate is neither land nor water.
func (w *World) OnLand(p geom.Point) bool {
	return p.Finite() && !w.InWater(p)
}

// OnLandBulk answers OnLand for many points at once, fanning the work out
// over BulkWorkers goroutines. Results are in input order.
func (w *World) OnLandBulk(ctx context.Context, pts []geom.Point) ([]bool, error) {
	out := make([]bool, len(pts))
	if len(pts) == 0 {
		return out, nil
	}
	water := w.Water()

	workers := max(w.BulkWorkers, 1)
	chunk := (len(pts) + workers - 1) / workers

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(pts); start += chunk {
		end := min(start+chunk, len(pts))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = pts[i].Finite() && !geom.ContainsPoint(water, pts[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Covers reports whether area lies on land, sharing no surface with water.
func (w *World) Covers(area geom.Area) (bool, error) {
	if area.IsEmpty() {
		return false, nil
	}
	wet, err := geom.Intersection(area, w.Water())
	if err != nil {
		return false, err
	}
	return wet.IsEmpty(), nil
}

// LandPortion returns the part of area that is not water.
func (w *World) LandPortion(area geom.Area) (geom.Area, error) {
	return geom.Difference(area, w.Water())
}

// AddGovernment registers g with the world.
func (w *World) AddGovernment(g *territory.Government) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.governments[g.ID()]; ok {
		return fmt.Errorf("government %s: %w", g.ID(), ErrDuplicateGovernment)
	}
	w.governments[g.ID()] = g
	return nil
}

// FoundGovernment creates and registers a government with no territory.
func (w *World) FoundGovernment(name string) *territory.Government {
	g := territory.NewGovernment(w.Divisions, name)
	w.mu.Lock()
	w.governments[g.ID()] = g
	w.mu.Unlock()
	slog.Info("government founded", "government", g.ID(), "name", name)
	return g
}

// Government looks up a registered government.
func (w *World) Government(id territory.GovernmentID) (*territory.Government, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	g, ok := w.governments[id]
	return g, ok
}

// Governments returns every registered government ordered by id.
func (w *World) Governments() []*territory.Government {
	w.mu.RLock()
	out := make([]*territory.Government, 0, len(w.governments))
	for _, g := range w.governments {
		out = append(out, g)
	}
	w.mu.RUnlock()
	sortGovernments(out)
	return out
}

func sortGovernments(gs []*territory.Government) {
	sort.Slice(gs, func(i, j int) bool {
		a, b := gs[i].ID(), gs[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})
}

// EstablishTerritory founds a new top-level division for gov from a claim.
// The claim is clipped to land. It fails with ErrNoLand when nothing is
// left and with ErrOverlap when the land shares surface with any territory
// already held by any government.
func (w *World) EstablishTerritory(gov *territory.Government, name string, polys []geom.Polygon) (*territory.Division, error) {
	claim, err := geom.NewArea(polys...)
	if err != nil {
		return nil, fmt.Errorf("establish %q: %w", name, err)
	}
	if claim.IsEmpty() {
		return nil, fmt.Errorf("establish %q: empty claim: %w", name, geom.ErrMalformedGeometry)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if cur, ok := w.governments[gov.ID()]; !ok || cur != gov {
		return nil, fmt.Errorf("establish %q: government %s: %w", name, gov.ID(), territory.ErrNotFound)
	}

	land, err := geom.Difference(claim, w.water)
	if err != nil {
		return nil, fmt.Errorf("establish %q: %w", name, err)
	}
	if land.Size() <= w.Divisions.Tolerance()*claim.Size() {
		return nil, fmt.Errorf("establish %q: %w", name, ErrNoLand)
	}

	for _, g := range w.governments {
		for _, d := range g.Territories() {
			held, err := d.JoinAll()
			if err != nil {
				return nil, fmt.Errorf("establish %q: territory %d: %w", name, d.ID(), err)
			}
			shared, err := geom.Intersection(land, held)
			if err != nil {
				return nil, fmt.Errorf("establish %q: %w", name, err)
			}
			if shared.Size() > w.Divisions.Tolerance()*land.Size() {
				return nil, fmt.Errorf("establish %q: territory %d of %s: %w", name, d.ID(), g.ID(), ErrOverlap)
			}
		}
	}

	return gov.Establish(name, land), nil
}

// resolveTransfer looks up both governments and the territory held by the
// source.
func (w *World) resolveTransfer(to, from territory.GovernmentID, id territory.DivisionID) (*territory.Government, *territory.Government, *territory.Division, error) {
	dst, ok := w.Government(to)
	if !ok {
		return nil, nil, nil, fmt.Errorf("government %s: %w", to, territory.ErrNotFound)
	}
	src, ok := w.Government(from)
	if !ok {
		return nil, nil, nil, fmt.Errorf("government %s: %w", from, territory.ErrNotFound)
	}
	d, ok := src.Territory(id)
	if !ok {
		return nil, nil, nil, fmt.Errorf("division %d held by %s: %w", id, from, territory.ErrNotFound)
	}
	return dst, src, d, nil
}

// Integrate moves territory id from one government to another, keeping its
// subdivisions.
func (w *World) Integrate(to, from territory.GovernmentID, id territory.DivisionID) error {
	dst, src, d, err := w.resolveTransfer(to, from, id)
	if err != nil {
		return err
	}
	return dst.IntegrateTerritory(d, src)
}

// Annex moves territory id from one government to another, collapsing it
// into a single division.
func (w *World) Annex(to, from territory.GovernmentID, id territory.DivisionID) (*territory.Division, error) {
	dst, src, d, err := w.resolveTransfer(to, from, id)
	if err != nil {
		return nil, err
	}
	return dst.AnnexTerritory(d, src)
}

// Stats summarises the world.
type Stats struct {
	Governments int     `json:"governments"`
	Divisions   int     `json:"divisions"`
	WaterArea   float64 `json:"water_area"`
}

// Stats returns current counts.
func (w *World) Stats() Stats {
	w.mu.RLock()
	s := Stats{Governments: len(w.governments), WaterArea: w.water.Size()}
	w.mu.RUnlock()
	s.Divisions = w.Divisions.Len()
	return s
}
