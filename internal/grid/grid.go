package grid

import (
	"errors"
	"fmt"

	"github.com/talgya/automata/internal/entropy"
)

// Sentinel outcomes. Every one of them is recoverable: resolve the reported
// condition and retry.
var (
	ErrOutOfBounds         = errors.New("grid: location out of bounds")
	ErrBlacklisted         = errors.New("grid: cell is blacklisted")
	ErrConflict            = errors.New("grid: claim conflicts with an existing pending claim")
	ErrNotFound            = errors.New("grid: object not found at location")
	ErrUnresolvedConflicts = errors.New("grid: unresolved conflicts block commit")
	ErrNoCandidates        = errors.New("grid: no claimable candidate locations")
)

// Grid owns the cell array and is its only mutator. Operations are
// single-threaded and cooperative: callers serialize their own
// planning-phase calls and commit between ticks.
type Grid struct {
	width  int
	height int
	cells  []cell
	rng    entropy.Source
}

// New creates a width x height grid with every cell vacant. Movement draws
// use rng; passing nil falls back to a crypto-backed source, which forfeits
// reproducibility.
func New(width, height int, rng entropy.Source) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: invalid extent %dx%d", width, height)
	}
	if rng == nil {
		rng = entropy.Crypto{}
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]cell, width*height),
		rng:    rng,
	}, nil
}

// Width returns the grid's horizontal extent.
func (g *Grid) Width() int { return g.width }

// Height returns the grid's vertical extent.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies on the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) at(p Point) *cell {
	return &g.cells[p.Y*g.width+p.X]
}

func (g *Grid) pointAt(i int) Point {
	return Point{X: i % g.width, Y: i / g.width}
}

// Claim proposes obj as the next occupant of p. A nil obj proposes vacancy.
//
// Blacklisted cells reject new claims (ErrBlacklisted) but re-stating the
// current pending claim, or a nil claim, is a successful no-op. A cell with
// a live pending claim accepts an idempotent re-claim as a no-op; any other
// claimant is recorded in the conflicting slot and ErrConflict is returned.
// Only one conflicting claimant is retained per cell, so callers must
// resolve a reported conflict before a further competing claim arrives or
// the earlier one is silently replaced.
func (g *Grid) Claim(p Point, obj Object) error {
	if !g.InBounds(p) {
		return ErrOutOfBounds
	}
	c := g.at(p)

	if c.blacklisted {
		if obj == nil || obj == c.pending {
			// Nothing would change anyway; not a failure.
			return nil
		}
		return ErrBlacklisted
	}

	if !c.livePending() {
		c.pending = obj
		if obj == c.committed {
			// Explicit request to keep this cell the same next tick.
			c.stasis = true
		}
		return nil
	}

	if obj == nil || obj == c.pending {
		return nil
	}

	c.conflicting = obj
	return ErrConflict
}

// Withdraw retracts obj's claim at p, whether it currently sits in the
// pending or the conflicting slot. Withdrawing the pending claimant
// promotes a recorded conflicting claim into its place; with no conflict
// recorded, pending reverts to the committed occupant.
func (g *Grid) Withdraw(p Point, obj Object) error {
	if !g.InBounds(p) {
		return ErrOutOfBounds
	}
	c := g.at(p)

	switch {
	case obj == c.pending:
		if c.conflicting != nil {
			// The conflict isn't a conflict anymore.
			c.pending = c.conflicting
			c.conflicting = nil
			// A promoted claim that matches the committed occupant is an
			// explicit stasis request.
			c.stasis = c.pending == c.committed
		} else {
			c.pending = c.committed
			c.stasis = false
		}
	case obj == c.conflicting:
		c.conflicting = nil
	default:
		return ErrNotFound
	}
	return nil
}

// Occupant returns the committed occupant of p as of the last commit, or
// nil for a vacant or out-of-bounds location.
func (g *Grid) Occupant(p Point) Object {
	if !g.InBounds(p) {
		return nil
	}
	return g.at(p).committed
}

// PendingOccupant returns the occupant proposed for the next commit, or nil
// when nothing is actually proposed (pending merely mirrors committed with
// no stasis request).
func (g *Grid) PendingOccupant(p Point) Object {
	if !g.InBounds(p) {
		return nil
	}
	c := g.at(p)
	if c.pending == c.committed && !c.stasis {
		return nil
	}
	return c.pending
}

// Blacklist sets or clears the transient claim exclusion on p. Commit
// clears all blacklists.
func (g *Grid) Blacklist(p Point, excluded bool) error {
	if !g.InBounds(p) {
		return ErrOutOfBounds
	}
	g.at(p).blacklisted = excluded
	return nil
}

// Blacklisted reports whether p is currently excluded from new claims.
func (g *Grid) Blacklisted(p Point) bool {
	return g.InBounds(p) && g.at(p).blacklisted
}

// Commit advances the whole grid one tick: every cell's pending occupant
// becomes committed and the transient flags clear. It validates first and
// applies second, so a commit blocked by an unresolved conflict mutates
// nothing, and repeat calls stay blocked until the conflict is resolved.
func (g *Grid) Commit() error {
	for i := range g.cells {
		if g.cells[i].conflicting != nil {
			return ErrUnresolvedConflicts
		}
	}
	for i := range g.cells {
		c := &g.cells[i]
		c.committed = c.pending
		c.blacklisted = false
		c.stasis = false
	}
	return nil
}

// ConflictPair reports one unresolved conflict: the claimant holding the
// pending slot, the rejected claimant, and the contested location.
type ConflictPair struct {
	At          Point
	Pending     Object
	Conflicting Object
}

// ConflictedPairs returns every unresolved conflict on the grid, for
// external resolution before the next commit.
func (g *Grid) ConflictedPairs() []ConflictPair {
	var pairs []ConflictPair
	for i := range g.cells {
		c := &g.cells[i]
		if c.conflicting != nil {
			pairs = append(pairs, ConflictPair{
				At:          g.pointAt(i),
				Pending:     c.pending,
				Conflicting: c.conflicting,
			})
		}
	}
	return pairs
}

// Detach removes obj from every cell slot it occupies, restoring each cell
// to a well-defined state. Safe to call for objects the grid no longer
// references.
func (g *Grid) Detach(obj Object) {
	if obj == nil {
		return
	}
	for i := range g.cells {
		c := &g.cells[i]
		if c.conflicting == obj {
			c.conflicting = nil
		}
		if c.pending == obj {
			switch {
			case c.conflicting != nil:
				c.pending = c.conflicting
				c.conflicting = nil
				c.stasis = c.pending == c.committed
			case c.committed != obj:
				c.pending = c.committed
				c.stasis = false
			default:
				c.pending = nil
				c.stasis = false
			}
		}
		if c.committed == obj {
			c.committed = nil
		}
	}
}

// Close tears the grid down: every object still referenced by a cell is
// detached, then the cells reset to vacant. Host runtimes do not guarantee
// destruction order, so objects must be unhooked here rather than trusted
// to outlive the grid. Idempotent; objects must not use the grid after
// Close.
func (g *Grid) Close() {
	for i := range g.cells {
		c := &g.cells[i]
		for _, obj := range [3]Object{c.committed, c.pending, c.conflicting} {
			if d, ok := obj.(Detacher); ok {
				d.RemoveFromGrid()
			}
		}
		g.cells[i] = cell{}
	}
}
