package organism

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/automata/internal/entropy"
	"github.com/talgya/automata/internal/grid"
)

// Organism is the reference behavior consumer: each tick it asks the grid
// for a destination weighted by its factor set, bounded by its speed (ring
// levels per move) and vision (visibility override), and claims it.
type Organism struct {
	Object

	Factors []grid.MovementFactor
	Speed   int // ring levels considered per move
	Vision  int // vision override applied to factors, <= 0 = unlimited
}

// New creates an organism bound to g. It is not on the grid until
// Initialize.
func New(g *grid.Grid, speed, vision int) *Organism {
	org := &Organism{Speed: speed, Vision: vision}
	org.Object = Object{
		id:    uuid.New(),
		grid:  g,
		pos:   grid.Unset,
		baked: grid.Unset,
	}
	org.self = org
	return org
}

// UpdatePosition plans the organism's next cell and claims it. Returns
// grid.ErrConflict (wrapped claim failure) when the chosen cell is
// contested; the organism's own state is unchanged in that case. Returns
// grid.ErrNoCandidates when exclusions leave nowhere to claim, the
// organism's own cell included — callers must treat that as "stayed put",
// not as a fault.
func (o *Organism) UpdatePosition() error {
	destination, err := o.grid.MoveObject(o.pos, o.Factors, o.Speed, o.Vision)
	if err != nil {
		return err
	}
	return o.SetPosition(destination)
}

// Strategy resolves one recorded conflict: the organism holding the pending
// claim at the contested cell versus the rejected claimant. A strategy must
// leave the contested cell conflict-free; any fresh conflict it creates
// elsewhere is picked up on the caller's next resolution round.
type Strategy func(g *grid.Grid, at grid.Point, pending, rejected *Organism) error

// RandomRelocate returns the reference strategy: withdraw the rejected
// claim, pick one of the two contenders uniformly at random, blacklist that
// contender's current cell, force it through another movement cycle, and
// clear the blacklist. When the pending claimant is the one displaced, the
// rejected claimant re-issues its claim on the freed cell — but only after
// the displaced claimant verifiably left; if its replan could not land
// anywhere, it keeps the cell and the rejected claimant stays where it was.
func RandomRelocate(rng entropy.Source) Strategy {
	return func(g *grid.Grid, at grid.Point, pending, rejected *Organism) error {
		if err := g.Withdraw(at, rejected); err != nil {
			return fmt.Errorf("organism: clear rejected claim at %v: %w", at, err)
		}

		if rng.Float() < 0.5 {
			return relocate(g, rejected)
		}
		if err := relocate(g, pending); err != nil {
			return err
		}
		if pending.Position() == at {
			// The displaced claimant could not land anywhere else and still
			// holds the cell. Handing it to the rejected claimant now would
			// leave two organisms booked on one cell; instead the rejected
			// one restates its own cell so nothing takes it silently.
			return g.Claim(rejected.Position(), rejected)
		}
		return rejected.SetPosition(at)
	}
}

// relocate blacklists the mover's current cell so it cannot trivially
// re-select it, replans the mover, then clears the blacklist. A mover that
// cannot land anywhere — boxed in, or its replanned cell contested too —
// retracts the failed claim and stays put, so the caller can trust
// mover.Position() to say whether it left.
func relocate(g *grid.Grid, mover *Organism) error {
	at := mover.Position()
	if err := g.Blacklist(at, true); err != nil {
		return err
	}

	dest, err := g.MoveObject(at, mover.Factors, mover.Speed, mover.Vision)
	switch {
	case errors.Is(err, grid.ErrNoCandidates):
		// Boxed in; staying put resolves the conflict too.
		err = nil
	case err == nil:
		err = mover.SetPosition(dest)
		if errors.Is(err, grid.ErrConflict) {
			// The replanned cell is contested as well. Retract the recorded
			// claim rather than leave it dangling: a stale conflicting slot
			// can later be promoted into a cell the mover never booked.
			err = g.Withdraw(dest, mover)
		}
	}

	if clearErr := g.Blacklist(at, false); err == nil {
		err = clearErr
	}
	if err != nil {
		return err
	}
	if mover.Position() != at {
		// The mover's vacancy proposal was a no-op while its cell was
		// blacklisted; reissue it now.
		return g.Claim(at, nil)
	}
	// The mover stays. Restate its claim so the cell reads as an explicit
	// stay and cannot be taken silently; a foreign pending claim already on
	// the cell surfaces as a fresh conflict for the next resolution round.
	return g.Claim(at, mover)
}
