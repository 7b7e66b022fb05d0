package grid

// Object is the minimal capability the grid requires from anything it
// stores: a stable identity. Cells compare occupants by interface identity,
// so implementations must be pointer types.
type Object interface {
	ID() string
}

// Detacher is implemented by objects that keep a back-reference to the grid
// and can unhook themselves from it. Close calls it on every object still
// referenced by a cell so teardown order never leaves a dangling
// back-reference.
type Detacher interface {
	RemoveFromGrid()
}

// cell is one location's record. committed is the occupant as of the last
// successful commit, pending the proposal for the next one, conflicting at
// most one rejected claimant awaiting resolution.
//
// pending == committed is ambiguous between "nothing proposed yet" and
// "keep this occupant next tick"; stasis distinguishes the two.
type cell struct {
	committed   Object
	pending     Object
	conflicting Object
	blacklisted bool
	stasis      bool
}

// livePending reports whether the cell carries an actual proposal, as
// opposed to pending merely mirroring committed with no stasis request.
func (c *cell) livePending() bool {
	return c.pending != nil && (c.pending != c.committed || c.stasis)
}
