package territory

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/polity/internal/geom"
)

// Government holds sovereignty over a forest of top-level divisions. It
// references only the roots; every node below them is its land too.
type Government struct {
	id  GovernmentID
	reg *Registry

	mu          sync.RWMutex
	name        string
	territories map[DivisionID]*Division
}

// NewGovernment creates a government with a fresh id and no territory.
func NewGovernment(reg *Registry, name string) *Government {
	return RestoreGovernment(reg, uuid.New(), name)
}

// RestoreGovernment recreates a government under a known id.
func RestoreGovernment(reg *Registry, id GovernmentID, name string) *Government {
	return &Government{
		id:          id,
		reg:         reg,
		name:        name,
		territories: make(map[DivisionID]*Division),
	}
}

// ID returns the government's identifier.
func (g *Government) ID() GovernmentID {
	return g.id
}

// Name returns the display name.
func (g *Government) Name() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.name
}

// SetName renames the government.
func (g *Government) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = name
}

// Territory looks up a directly held division.
func (g *Government) Territory(id DivisionID) (*Division, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.territories[id]
	return d, ok
}

// Territories returns the directly held divisions ordered by id.
func (g *Government) Territories() []*Division {
	g.mu.RLock()
	out := make([]*Division, 0, len(g.territories))
	for _, d := range g.territories {
		out = append(out, d)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Establish creates a new top-level division owned by g and adds it to g's
// territories.
func (g *Government) Establish(name string, area geom.Area) *Division {
	d := g.reg.newRoot(name, area, g.id)

	g.mu.Lock()
	g.territories[d.id] = d
	g.mu.Unlock()

	slog.Info("territory established",
		"government", g.id,
		"division", d.id,
		"name", name,
		"area", fmt.Sprintf("%.4f", area.Size()),
	)
	g.reg.Chronicle.Record(Event{
		Category:    CategoryEstablishment,
		Description: fmt.Sprintf("%s established %s", g.Name(), name),
		Meta: map[string]any{
			"government_id": g.id.String(),
			"division_id":   d.id,
			"area":          area.Size(),
		},
	})
	return d
}

// AddTerritory inserts d keyed by its id, replacing any territory already
// held under that id. It never changes d's owner. Only top-level divisions
// can be territories.
func (g *Government) AddTerritory(d *Division) error {
	if d.parent != 0 {
		return fmt.Errorf("add territory %d: %w", d.id, ErrNotTopLevel)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.territories[d.id] = d
	return nil
}

// RemoveTerritory removes the territory with d's id. It reports whether an
// entry was present; afterwards the id is absent either way.
func (g *Government) RemoveTerritory(d *Division) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.territories[d.id]
	delete(g.territories, d.id)
	return ok
}

// lockPair write-locks two distinct governments in id order.
func lockPair(a, b *Government) (unlock func()) {
	first, second := a, b
	if bytes.Compare(a.id[:], b.id[:]) > 0 {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// holds reports whether g holds exactly d under d's id. The caller holds g.mu.
func (g *Government) holds(d *Division) bool {
	cur, ok := g.territories[d.id]
	return ok && cur == d
}

// Holding is one government's state as captured by SnapshotGovernments.
type Holding struct {
	ID          GovernmentID
	Name        string
	Territories []DivisionID // ascending
	Divisions   []Snapshot   // every node of every territory, parents before children
}

// SnapshotGovernments captures govs and their territory trees in one
// consistent read. Every government stays read-locked, in ascending id
// order, for the whole capture, so no transfer can land part way through.
// Holdings are returned in that same order.
func SnapshotGovernments(govs []*Government) ([]Holding, error) {
	sorted := make([]*Government, 0, len(govs))
	seen := make(map[*Government]bool, len(govs))
	for _, g := range govs {
		if !seen[g] {
			seen[g] = true
			sorted = append(sorted, g)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].id[:], sorted[j].id[:]) < 0
	})

	for _, g := range sorted {
		g.mu.RLock()
	}
	defer func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			sorted[i].mu.RUnlock()
		}
	}()

	out := make([]Holding, 0, len(sorted))
	for _, g := range sorted {
		h := Holding{ID: g.id, Name: g.name}
		for id := range g.territories {
			h.Territories = append(h.Territories, id)
		}
		sort.Slice(h.Territories, func(i, j int) bool { return h.Territories[i] < h.Territories[j] })

		for _, id := range h.Territories {
			snaps, err := g.territories[id].SnapshotTree()
			if err != nil {
				return nil, fmt.Errorf("government %s territory %d: %w", g.id, id, err)
			}
			h.Divisions = append(h.Divisions, snaps...)
		}
		out = append(out, h)
	}
	return out, nil
}
