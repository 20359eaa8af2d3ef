package territory

import (
	"fmt"
	"time"

	"github.com/talgya/polity/internal/geom"
)

// lockSubtree locks root and every descendant, parents before children, and
// returns the nodes in that order. Traversal uses an explicit stack; the
// caller releases with unlockAll. On error nothing stays locked.
func (r *Registry) lockSubtree(root *Division, write bool) ([]*Division, error) {
	lock := func(d *Division) {
		if write {
			d.mu.Lock()
		} else {
			d.mu.RLock()
		}
	}

	lock(root)
	locked := []*Division{root}
	fail := func(err error) ([]*Division, error) {
		unlockAll(locked, write)
		return nil, err
	}
	if root.retired {
		return fail(fmt.Errorf("division %d: %w", root.id, ErrDetached))
	}

	visited := map[DivisionID]bool{root.id: true}
	stack := []*Division{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, cid := range n.subdivisions {
			if visited[cid] {
				return fail(fmt.Errorf("division %d reached twice below %d: %w", cid, root.id, ErrCycle))
			}
			visited[cid] = true

			child, ok := r.Get(cid)
			if !ok {
				return fail(fmt.Errorf("subdivision %d of %d: %w", cid, n.id, ErrNotFound))
			}
			if child.parent != n.id || child.depth != n.depth+1 {
				return fail(fmt.Errorf("division %d does not belong under %d: %w", cid, n.id, ErrCycle))
			}
			if child.depth-root.depth > r.maxDepth {
				return fail(fmt.Errorf("division %d at depth %d: %w", cid, child.depth, ErrDepthExceeded))
			}

			lock(child)
			locked = append(locked, child)
			stack = append(stack, child)
		}
	}
	return locked, nil
}

// unlockAll releases nodes in reverse acquisition order.
func unlockAll(nodes []*Division, write bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if write {
			nodes[i].mu.Unlock()
		} else {
			nodes[i].mu.RUnlock()
		}
	}
}

// JoinAll returns the union of the division's own area with the areas of
// all its descendants: the full surface of the subtree. A top-level
// division's JoinAll never changes through subdivision.
func (d *Division) JoinAll() (geom.Area, error) {
	start := time.Now()
	nodes, err := d.reg.lockSubtree(d, false)
	if err != nil {
		return geom.Area{}, err
	}
	areas := make([]geom.Area, len(nodes))
	for i, n := range nodes {
		areas[i] = n.area
	}
	unlockAll(nodes, false)

	joined, err := geom.UnionAll(areas...)
	if err != nil {
		return geom.Area{}, fmt.Errorf("join division %d: %w", d.id, err)
	}
	joinDuration.Observe(time.Since(start).Seconds())
	joinSubtreeSize.Observe(float64(len(nodes)))
	return joined, nil
}

// SnapshotTree copies the division and all descendants in one consistent
// read, parents before children.
func (d *Division) SnapshotTree() ([]Snapshot, error) {
	nodes, err := d.reg.lockSubtree(d, false)
	if err != nil {
		return nil, err
	}
	defer unlockAll(nodes, false)

	out := make([]Snapshot, len(nodes))
	for i, n := range nodes {
		out[i] = n.snapshotLocked()
	}
	return out, nil
}

// Snapshot copies this division alone.
func (d *Division) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshotLocked()
}
