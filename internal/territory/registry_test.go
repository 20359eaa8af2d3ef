package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polity/internal/geom"
)

func TestRestoreRebuildsTree(t *testing.T) {
	src := NewRegistry()
	gov, root := realm(t, src, "Avalon")
	root.SetRequiredPositions([]RoleID{1, 2})
	snaps, err := root.SnapshotTree()
	require.NoError(t, err)

	dst := NewRegistry()
	require.NoError(t, dst.Restore(snaps))
	assert.Equal(t, src.IDs(), dst.IDs())

	got, ok := dst.Get(root.ID())
	require.True(t, ok)
	assert.Equal(t, "Avalon Proper", got.Name())
	assert.Equal(t, root.Subdivisions(), got.Subdivisions())
	assert.Equal(t, []RoleID{1, 2}, got.RequiredPositions())
	owner, _ := got.Owner()
	assert.Equal(t, gov.ID(), owner)
	assert.True(t, joined(t, root).Equal(joined(t, got), tol))

	for _, id := range src.IDs() {
		d, _ := dst.Get(id)
		orig, _ := src.Get(id)
		assert.Equal(t, orig.Depth(), d.Depth(), "depth of %d", id)
	}

	// Fresh ids continue after the restored ones.
	next := dst.NewTerritory("New", geom.MustArea(geom.Rect(20, 20, 21, 21)))
	assert.Greater(t, next.ID(), src.IDs()[len(src.IDs())-1])
}

func TestRestoreRollsBackOnError(t *testing.T) {
	src := NewRegistry()
	_, root := realm(t, src, "Avalon")
	snaps, err := root.SnapshotTree()
	require.NoError(t, err)

	dst := NewRegistry()
	existing, err := dst.NewTerritoryWithID(1000, "Existing", geom.MustArea(geom.Rect(0, 0, 1, 1)))
	require.NoError(t, err)

	orphan := snaps[len(snaps)-1]
	orphan.ID = 500
	orphan.Parent = 400
	err = dst.Restore(append(snaps, orphan))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []DivisionID{existing.ID()}, dst.IDs())

	clash := snaps[0]
	clash.ID = existing.ID()
	err = dst.Restore([]Snapshot{clash})
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, dst.Len())
}

func TestRestoreDepthGuard(t *testing.T) {
	src := NewRegistry()
	_, root := realm(t, src, "Avalon")
	snaps, err := root.SnapshotTree()
	require.NoError(t, err)

	dst := NewRegistry(WithMaxDepth(1))
	require.ErrorIs(t, dst.Restore(snaps), ErrDepthExceeded)
	assert.Zero(t, dst.Len())
}

func TestNewTerritoryWithID(t *testing.T) {
	reg := NewRegistry()
	d, err := reg.NewTerritoryWithID(42, "Fixed", geom.MustArea(geom.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	assert.Equal(t, DivisionID(42), d.ID())
	_, ok := d.Owner()
	assert.False(t, ok)

	_, err = reg.NewTerritoryWithID(42, "Again", geom.Empty())
	require.ErrorIs(t, err, ErrDuplicateID)
	_, err = reg.NewTerritoryWithID(0, "Zero", geom.Empty())
	require.ErrorIs(t, err, ErrDuplicateID)

	assert.Equal(t, DivisionID(43), reg.NextID())
	assert.Equal(t, DivisionID(43), reg.NewTerritory("Next", geom.Empty()).ID())
}

func TestRegistryOptions(t *testing.T) {
	reg := NewRegistry(WithMaxDepth(5), WithAreaTolerance(0.01))
	assert.Equal(t, 5, reg.MaxDepth())
	assert.Equal(t, 0.01, reg.Tolerance())

	defaults := NewRegistry(WithMaxDepth(-1), WithAreaTolerance(0))
	assert.Equal(t, DefaultMaxDepth, defaults.MaxDepth())
	assert.Equal(t, DefaultAreaTolerance, defaults.Tolerance())
}

func TestAreaToleranceResidual(t *testing.T) {
	reg := NewRegistry(WithAreaTolerance(0.05))
	root := reg.NewTerritory("Field", geom.MustArea(geom.Rect(0, 0, 10, 10)))

	// Leaves 4% behind, which the tolerance treats as nothing.
	_, err := root.CreateSubdivision("Almost all", rect(0, 0, 10, 9.6))
	require.ErrorIs(t, err, ErrNoResidualArea)

	_, err = root.CreateSubdivision("Most", rect(0, 0, 10, 9))
	require.NoError(t, err)
}

func TestChronicle(t *testing.T) {
	c := NewChronicle(3)
	for i := 0; i < 5; i++ {
		c.Record(Event{Category: CategorySubdivision, Description: "carve"})
	}
	assert.Equal(t, uint64(5), c.LastSeq())

	recent := c.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, uint64(3), recent[0].Seq)
	assert.False(t, recent[0].At.IsZero())

	assert.Len(t, c.Recent(1), 1)
	assert.Equal(t, uint64(5), c.Recent(1)[0].Seq)

	since := c.Since(4)
	require.Len(t, since, 1)
	assert.Equal(t, uint64(5), since[0].Seq)

	c.Resume(100)
	assert.Equal(t, uint64(101), c.Record(Event{}).Seq)
	c.Resume(10)
	assert.Equal(t, uint64(101), c.LastSeq())
}

func TestChronicleRestore(t *testing.T) {
	c := NewChronicle(2)
	c.Restore([]Event{{Seq: 4}, {Seq: 7}, {Seq: 9}})

	got := c.Recent(-1)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(7), got[0].Seq)
	assert.Equal(t, uint64(9), c.LastSeq())
	assert.Equal(t, uint64(10), c.Record(Event{}).Seq)
}

func TestReserve(t *testing.T) {
	reg := NewRegistry()
	reg.Reserve(10)
	reg.Reserve(3)
	assert.Equal(t, DivisionID(11), reg.NewTerritory("After", geom.Empty()).ID())
}
