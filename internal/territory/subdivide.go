package territory

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/polity/internal/geom"
)

// CreateSubdivision carves a child division out of d.
//
// Every polygon must lie inside d's own area (ErrOutOfBounds), and some of
// d's area must remain once they are removed (ErrNoResidualArea). On
// success the child takes the union of the polygons and d's owner, and d's
// own area shrinks to the residual, so d.JoinAll() is unchanged.
//
// The whole check-and-carve runs under d's write lock; concurrent carves on
// the same parent are serialised and can never claim the same surface twice.
func (d *Division) CreateSubdivision(name string, polys []geom.Polygon) (*Division, error) {
	r := d.reg
	if d.depth+1 > r.maxDepth {
		subdivisionRejected.WithLabelValues("depth").Inc()
		return nil, fmt.Errorf("subdivide %d: depth %d: %w", d.id, d.depth+1, ErrDepthExceeded)
	}

	// Geometry that does not depend on the parent is built before locking.
	parts := make([]geom.Area, 0, len(polys))
	for i, p := range polys {
		a, err := geom.PolygonArea(p)
		if err != nil {
			subdivisionRejected.WithLabelValues("malformed").Inc()
			return nil, fmt.Errorf("subdivide %d: polygon %d: %w", d.id, i, err)
		}
		parts = append(parts, a)
	}
	carved, err := geom.UnionAll(parts...)
	if err != nil {
		subdivisionRejected.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("subdivide %d: %w", d.id, err)
	}
	if carved.IsEmpty() {
		subdivisionRejected.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("subdivide %d: no surface in %d polygons: %w", d.id, len(polys), ErrMalformedGeometry)
	}

	start := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.retired {
		return nil, fmt.Errorf("subdivide %d: %w", d.id, ErrDetached)
	}
	for i, part := range parts {
		if !geom.ContainsArea(d.area, part) {
			subdivisionRejected.WithLabelValues("out_of_bounds").Inc()
			return nil, fmt.Errorf("subdivide %d: polygon %d: %w", d.id, i, ErrOutOfBounds)
		}
	}

	residual, err := geom.Difference(d.area, carved)
	if err != nil {
		subdivisionRejected.WithLabelValues("malformed").Inc()
		return nil, fmt.Errorf("subdivide %d: %w", d.id, err)
	}
	if residual.Size() <= r.tolerance*d.area.Size() {
		subdivisionRejected.WithLabelValues("no_residual").Inc()
		return nil, fmt.Errorf("subdivide %d: %w", d.id, ErrNoResidualArea)
	}

	// The child is complete before anything can reach it.
	child := &Division{
		id:     r.allocID(),
		parent: d.id,
		depth:  d.depth + 1,
		reg:    r,
		name:   name,
		owner:  d.owner,
		area:   carved,
	}
	r.register(child)
	d.area = residual
	d.subdivisions = append(d.subdivisions, child.id)

	subdivisionsCreated.Inc()
	subdivisionDuration.Observe(time.Since(start).Seconds())
	slog.Info("subdivision created",
		"division", child.id,
		"name", name,
		"parent", d.id,
		"owner", ownerString(d.owner),
		"area", fmt.Sprintf("%.4f", carved.Size()),
		"residual", fmt.Sprintf("%.4f", residual.Size()),
	)
	r.Chronicle.Record(Event{
		Category:    CategorySubdivision,
		Description: fmt.Sprintf("%s was carved out of %s", name, d.name),
		Meta: map[string]any{
			"division_id": child.id,
			"parent_id":   d.id,
			"area":        carved.Size(),
		},
	})
	return child, nil
}
