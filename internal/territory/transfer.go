package territory

import (
	"fmt"
	"log/slog"

	"github.com/talgya/polity/internal/geom"
)

// IntegrateTerritory moves d from another government into g, keeping its
// whole subdivision tree. Only d's own owner changes; descendants keep
// theirs. Both territory maps change together or not at all.
func (g *Government) IntegrateTerritory(d *Division, from *Government) error {
	if err := g.checkTransfer(from); err != nil {
		transfersTotal.WithLabelValues("integrate", "rejected").Inc()
		return fmt.Errorf("integrate %d: %w", d.id, err)
	}

	unlock := lockPair(g, from)
	defer unlock()

	if !from.holds(d) {
		transfersTotal.WithLabelValues("integrate", "not_found").Inc()
		return fmt.Errorf("integrate %d from %s: %w", d.id, from.id, ErrNotFound)
	}

	d.mu.Lock()
	if d.retired {
		d.mu.Unlock()
		transfersTotal.WithLabelValues("integrate", "rejected").Inc()
		return fmt.Errorf("integrate %d: %w", d.id, ErrDetached)
	}
	d.owner = g.id
	name := d.name
	d.mu.Unlock()

	delete(from.territories, d.id)
	g.territories[d.id] = d

	transfersTotal.WithLabelValues("integrate", "ok").Inc()
	slog.Info("territory integrated",
		"division", d.id,
		"name", name,
		"from", from.id,
		"to", g.id,
	)
	g.reg.Chronicle.Record(Event{
		Category:    CategoryIntegration,
		Description: fmt.Sprintf("%s integrated %s from %s", g.name, name, from.name),
		Meta: map[string]any{
			"division_id": d.id,
			"from":        from.id.String(),
			"to":          g.id.String(),
		},
	})
	return nil
}

// AnnexTerritory takes d from another government and collapses its whole
// subtree into a single new division with no subdivisions, owned by g and
// kept under d's id. Local structure, required positions included, is not
// carried over. The old nodes are retired. Returns the new division.
func (g *Government) AnnexTerritory(d *Division, from *Government) (*Division, error) {
	if err := g.checkTransfer(from); err != nil {
		transfersTotal.WithLabelValues("annex", "rejected").Inc()
		return nil, fmt.Errorf("annex %d: %w", d.id, err)
	}

	unlock := lockPair(g, from)
	defer unlock()

	if !from.holds(d) {
		transfersTotal.WithLabelValues("annex", "not_found").Inc()
		return nil, fmt.Errorf("annex %d from %s: %w", d.id, from.id, ErrNotFound)
	}

	// Write locks over the subtree keep carves out while it is collapsed.
	nodes, err := g.reg.lockSubtree(d, true)
	if err != nil {
		transfersTotal.WithLabelValues("annex", "rejected").Inc()
		return nil, fmt.Errorf("annex %d: %w", d.id, err)
	}
	areas := make([]geom.Area, len(nodes))
	absorbed := make([]DivisionID, 0, len(nodes)-1)
	for i, n := range nodes {
		areas[i] = n.area
		if n != d {
			absorbed = append(absorbed, n.id)
		}
	}
	joined, err := geom.UnionAll(areas...)
	if err != nil {
		unlockAll(nodes, true)
		transfersTotal.WithLabelValues("annex", "rejected").Inc()
		return nil, fmt.Errorf("annex %d: %w", d.id, err)
	}
	for _, n := range nodes {
		n.retired = true
	}
	name := d.name + " Territory"
	unlockAll(nodes, true)

	collapsed := &Division{
		id:    d.id,
		reg:   g.reg,
		name:  name,
		owner: g.id,
		area:  joined,
	}
	g.reg.replace(collapsed, absorbed)

	delete(from.territories, d.id)
	g.territories[d.id] = collapsed

	transfersTotal.WithLabelValues("annex", "ok").Inc()
	slog.Info("territory annexed",
		"division", d.id,
		"name", name,
		"from", from.id,
		"to", g.id,
		"absorbed", len(absorbed),
		"area", fmt.Sprintf("%.4f", joined.Size()),
	)
	g.reg.Chronicle.Record(Event{
		Category:    CategoryAnnexation,
		Description: fmt.Sprintf("%s annexed %s from %s", g.name, name, from.name),
		Meta: map[string]any{
			"division_id": d.id,
			"from":        from.id.String(),
			"to":          g.id.String(),
			"absorbed":    len(absorbed),
		},
	})
	return collapsed, nil
}

func (g *Government) checkTransfer(from *Government) error {
	if from == nil {
		return ErrNotFound
	}
	if from == g || from.id == g.id {
		return ErrSelfTransfer
	}
	return nil
}
