// Package territory maintains the tree of territorial divisions and the
// governments that hold them.
//
// Divisions live in a Registry keyed by id. Parent and child links are ids,
// never pointers, so the tree has exactly one owner per node: its parent's
// subdivision list, or a government's territory map for top-level divisions.
//
// Locking: every Division and Government has its own RWMutex. Locks are
// always taken government first (ascending id), then divisions from the
// root towards the leaves.
package territory

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/polity/internal/geom"
)

// DivisionID identifies a division within a Registry. Zero means none.
type DivisionID uint64

// GovernmentID identifies a government.
type GovernmentID = uuid.UUID

// RoleID refers to a position owned by the role subsystem.
type RoleID uint64

// Division is a node in the territorial tree. Its area is the surface it
// administers directly; the surface of its whole subtree is JoinAll.
type Division struct {
	// Immutable after construction.
	id     DivisionID
	parent DivisionID
	depth  int
	reg    *Registry

	mu                sync.RWMutex
	name              string
	owner             GovernmentID
	area              geom.Area
	subdivisions      []DivisionID
	requiredPositions []RoleID
	retired           bool
}

// ID returns the division's identifier.
func (d *Division) ID() DivisionID {
	return d.id
}

// Parent returns the enclosing division, if any.
func (d *Division) Parent() (DivisionID, bool) {
	return d.parent, d.parent != 0
}

// Depth is the nesting level; top-level divisions are at depth 0.
func (d *Division) Depth() int {
	return d.depth
}

// Name returns the display name.
func (d *Division) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// Owner returns the government holding sovereignty, if any.
func (d *Division) Owner() (GovernmentID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.owner, d.owner != uuid.Nil
}

// Area returns the surface this division administers directly, excluding
// everything carved out into subdivisions.
func (d *Division) Area() geom.Area {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.area
}

// Subdivisions returns the ids of the direct children in creation order.
func (d *Division) Subdivisions() []DivisionID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.subdivisions)
}

// RequiredPositions returns the roles that must be filled for the division
// to function. The contents are opaque to this package.
func (d *Division) RequiredPositions() []RoleID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.requiredPositions)
}

// SetRequiredPositions replaces the required roles.
func (d *Division) SetRequiredPositions(roles []RoleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requiredPositions = slices.Clone(roles)
}

// Retired reports whether the division was collapsed by an annexation and
// is no longer reachable.
func (d *Division) Retired() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.retired
}

// Snapshot is a consistent copy of one division's state.
type Snapshot struct {
	ID                DivisionID   `json:"id"`
	Name              string       `json:"name"`
	Parent            DivisionID   `json:"parent,omitempty"`
	Owner             GovernmentID `json:"owner"`
	Depth             int          `json:"depth"`
	Area              geom.Area    `json:"-"`
	Subdivisions      []DivisionID `json:"subdivisions"`
	RequiredPositions []RoleID     `json:"required_positions,omitempty"`
}

// snapshotLocked copies d. The caller holds d.mu.
func (d *Division) snapshotLocked() Snapshot {
	return Snapshot{
		ID:                d.id,
		Name:              d.name,
		Parent:            d.parent,
		Owner:             d.owner,
		Depth:             d.depth,
		Area:              d.area,
		Subdivisions:      slices.Clone(d.subdivisions),
		RequiredPositions: slices.Clone(d.requiredPositions),
	}
}
