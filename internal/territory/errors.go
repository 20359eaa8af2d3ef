package territory

import (
	"errors"

	"github.com/talgya/polity/internal/geom"
)

// Failures of tree mutations. A failed call leaves every division and
// government it touched unchanged.
var (
	// ErrOutOfBounds: a proposed subdivision is not inside the parent's area.
	ErrOutOfBounds = errors.New("subdivision out of bounds")
	// ErrNoResidualArea: a subdivision would consume the whole parent.
	ErrNoResidualArea = errors.New("subdivision leaves no residual area")
	// ErrNotFound: the division is not a territory of the source government.
	ErrNotFound = errors.New("territory not found")
	// ErrMalformedGeometry: degenerate or self-intersecting input.
	ErrMalformedGeometry = geom.ErrMalformedGeometry

	ErrDepthExceeded = errors.New("division nesting too deep")
	ErrCycle         = errors.New("division tree contains a cycle")
	ErrDetached      = errors.New("division is no longer part of any tree")
	ErrNotTopLevel   = errors.New("division has a parent")
	ErrSelfTransfer  = errors.New("government cannot take territory from itself")
	ErrDuplicateID   = errors.New("division id already registered")
)
