package territory

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/talgya/polity/internal/geom"
)

const (
	DefaultMaxDepth      = 64
	DefaultAreaTolerance = 1e-9
)

// Registry is the arena holding every live division. Its lock guards the id
// index only; tree structure is guarded by the divisions themselves.
type Registry struct {
	mu        sync.RWMutex
	divisions map[DivisionID]*Division
	nextID    atomic.Uint64

	maxDepth  int
	tolerance float64

	Chronicle *Chronicle
}

// Option configures a Registry.
type Option func(*Registry)

// WithMaxDepth bounds how deeply divisions may nest below a top-level division.
func WithMaxDepth(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// WithAreaTolerance sets the relative tolerance under which a residual area
// counts as empty.
func WithAreaTolerance(tol float64) Option {
	return func(r *Registry) {
		if tol > 0 {
			r.tolerance = tol
		}
	}
}

// NewRegistry creates an empty arena.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		divisions: make(map[DivisionID]*Division),
		maxDepth:  DefaultMaxDepth,
		tolerance: DefaultAreaTolerance,
		Chronicle: NewChronicle(defaultChronicleSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxDepth returns the nesting limit.
func (r *Registry) MaxDepth() int {
	return r.maxDepth
}

// Tolerance returns the relative area tolerance.
func (r *Registry) Tolerance() float64 {
	return r.tolerance
}

// Get looks up a live division.
func (r *Registry) Get(id DivisionID) (*Division, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.divisions[id]
	return d, ok
}

// Len returns the number of live divisions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.divisions)
}

// IDs returns all live division ids in ascending order.
func (r *Registry) IDs() []DivisionID {
	r.mu.RLock()
	ids := make([]DivisionID, 0, len(r.divisions))
	for id := range r.divisions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NextID returns the id the next allocated division will receive.
func (r *Registry) NextID() DivisionID {
	return DivisionID(r.nextID.Load() + 1)
}

func (r *Registry) allocID() DivisionID {
	return DivisionID(r.nextID.Add(1))
}

// Reserve makes sure allocation never hands out id or anything below it.
func (r *Registry) Reserve(id DivisionID) {
	for {
		cur := r.nextID.Load()
		if uint64(id) <= cur || r.nextID.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

// NewTerritory creates a top-level division with a freshly allocated id.
// It has no owner until a government establishes or adopts it.
func (r *Registry) NewTerritory(name string, area geom.Area) *Division {
	return r.newRoot(name, area, uuid.Nil)
}

func (r *Registry) newRoot(name string, area geom.Area, owner GovernmentID) *Division {
	d := &Division{id: r.allocID(), reg: r, name: name, owner: owner, area: area}
	r.mu.Lock()
	r.divisions[d.id] = d
	r.mu.Unlock()
	return d
}

// NewTerritoryWithID creates a top-level division under a caller-chosen id.
func (r *Registry) NewTerritoryWithID(id DivisionID, name string, area geom.Area) (*Division, error) {
	if id == 0 {
		return nil, fmt.Errorf("division id 0: %w", ErrDuplicateID)
	}
	d := &Division{id: id, reg: r, name: name, area: area}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.divisions[id]; ok {
		return nil, fmt.Errorf("division %d: %w", id, ErrDuplicateID)
	}
	r.divisions[id] = d
	r.Reserve(id)
	return d, nil
}

func (r *Registry) register(d *Division) {
	r.mu.Lock()
	r.divisions[d.id] = d
	r.mu.Unlock()
}

// replace swaps the collapsed division in under its id and drops the
// descendants it absorbed.
func (r *Registry) replace(d *Division, absorbed []DivisionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range absorbed {
		delete(r.divisions, id)
	}
	r.divisions[d.id] = d
}

// Restore rebuilds divisions from snapshots, typically loaded from storage.
// Snapshots must list parents before their children. On error the registry
// is left as it was.
func (r *Registry) Restore(snaps []Snapshot) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := make(map[DivisionID]bool, len(snaps))
	defer func() {
		if err != nil {
			for id := range added {
				delete(r.divisions, id)
			}
		}
	}()

	for _, s := range snaps {
		if s.ID == 0 {
			return fmt.Errorf("restore: division id 0: %w", ErrDuplicateID)
		}
		if _, ok := r.divisions[s.ID]; ok {
			return fmt.Errorf("restore division %d: %w", s.ID, ErrDuplicateID)
		}
		depth := 0
		if s.Parent != 0 {
			parent, ok := r.divisions[s.Parent]
			if !ok || !added[s.Parent] {
				return fmt.Errorf("restore division %d: parent %d: %w", s.ID, s.Parent, ErrNotFound)
			}
			depth = parent.depth + 1
			if depth > r.maxDepth {
				return fmt.Errorf("restore division %d: %w", s.ID, ErrDepthExceeded)
			}
		}
		d := &Division{
			id:                s.ID,
			parent:            s.Parent,
			depth:             depth,
			reg:               r,
			name:              s.Name,
			owner:             s.Owner,
			area:              s.Area,
			requiredPositions: s.RequiredPositions,
		}
		r.divisions[s.ID] = d
		added[s.ID] = true
		r.Reserve(s.ID)
	}

	// Child lists are rebuilt from the parent links so they always agree.
	for _, s := range snaps {
		if s.Parent != 0 {
			p := r.divisions[s.Parent]
			p.subdivisions = append(p.subdivisions, s.ID)
		}
	}
	return nil
}

// ownerString formats an owner for logs.
func ownerString(id GovernmentID) string {
	if id == uuid.Nil {
		return "none"
	}
	return id.String()
}
