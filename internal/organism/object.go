// Package organism provides the reference consumers of the grid: the
// position bookkeeping shared by anything living on it, an Organism that
// plans factor-weighted moves each tick, and the conflict-resolution
// strategies that untangle competing claims. See design doc Section 1.
package organism

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/automata/internal/grid"
)

// Object is a minimal grid occupant. It tracks the position it last
// successfully claimed and, lazily, the position last committed for it.
// Objects hold a non-owning reference to their grid and must not be used
// after that grid is closed.
type Object struct {
	id     uuid.UUID
	grid   *grid.Grid
	self   grid.Object // the outermost object registered in cells
	pos    grid.Point  // last successfully claimed position
	baked  grid.Point  // last committed position, grid.Unset before first commit
	placed bool
}

// NewObject creates a standalone occupant bound to g.
func NewObject(g *grid.Grid) *Object {
	o := &Object{
		id:    uuid.New(),
		grid:  g,
		pos:   grid.Unset,
		baked: grid.Unset,
	}
	o.self = o
	return o
}

// ID implements grid.Object.
func (o *Object) ID() string {
	return o.id.String()
}

// Position returns the last successfully claimed position, grid.Unset
// before initialization.
func (o *Object) Position() grid.Point {
	return o.pos
}

// BakedPosition returns the position last committed for this object:
// until a commit lands the pending claim, the previously committed cell
// still reads back. Unset before the first commit.
func (o *Object) BakedPosition() grid.Point {
	o.refreshBaked()
	return o.baked
}

// refreshBaked resolves the committed position against the grid. It must
// run before pos moves off a committed cell, or the commit is lost.
func (o *Object) refreshBaked() {
	if o.grid != nil && o.placed && o.grid.Occupant(o.pos) == o.self {
		o.baked = o.pos
	}
}

// Initialize places the object on the grid with its first claim.
func (o *Object) Initialize(p grid.Point) error {
	if o.grid == nil {
		return fmt.Errorf("organism %s: grid is closed", o.ID())
	}
	if o.placed {
		return fmt.Errorf("organism %s: already placed at %v", o.ID(), o.pos)
	}
	if err := o.grid.Claim(p, o.self); err != nil {
		return err
	}
	o.pos = p
	o.placed = true
	return nil
}

// SetPosition claims p, withdraws the previous claim, and proposes vacancy
// for the departed cell. Re-stating the current position is an explicit
// stasis request. On a rejected claim nothing about the object changes: the
// old claim stands and the conflict sits recorded at p for resolution.
func (o *Object) SetPosition(p grid.Point) error {
	if o.grid == nil {
		return fmt.Errorf("organism %s: grid is closed", o.ID())
	}
	if !o.placed {
		return o.Initialize(p)
	}
	if p == o.pos {
		return o.grid.Claim(p, o.self)
	}
	// Snapshot the committed position before pos moves off it.
	o.refreshBaked()
	if err := o.grid.Claim(p, o.self); err != nil {
		return err
	}
	if err := o.grid.Withdraw(o.pos, o.self); err != nil && !errors.Is(err, grid.ErrNotFound) {
		return fmt.Errorf("organism %s: withdraw old claim at %v: %w", o.ID(), o.pos, err)
	}
	// Leaving means the old cell should read vacant next tick. A nil claim
	// is a no-op if someone else already has a live claim there.
	if err := o.grid.Claim(o.pos, nil); err != nil {
		return fmt.Errorf("organism %s: vacate %v: %w", o.ID(), o.pos, err)
	}
	o.pos = p
	return nil
}

// RemoveFromGrid detaches the object from every cell slot it occupies.
// Idempotent; the object keeps its last positions but can no longer touch
// the grid.
func (o *Object) RemoveFromGrid() {
	if o.grid == nil {
		return
	}
	o.refreshBaked()
	o.grid.Detach(o.self)
	o.grid = nil
}
