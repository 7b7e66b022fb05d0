// Simulation wires the grid, its organisms, and the conflict-resolution
// strategy into one tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/automata/internal/grid"
	"github.com/talgya/automata/internal/organism"
)

// Simulation holds the complete substrate state for a run.
type Simulation struct {
	Grid      *grid.Grid
	Organisms []*organism.Organism
	Index     map[string]*organism.Organism // ID → organism
	Resolve   organism.Strategy

	Events   []Event // Recent events (trimmed periodically)
	LastTick uint64  // Most recent tick processed
	Stats    SimStats
}

// Event is a notable occurrence during a run.
type Event struct {
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "move", "conflict", "commit"
}

// SimStats tracks aggregate statistics across ticks.
type SimStats struct {
	Moves             int `json:"moves"`
	Stays             int `json:"stays"`
	ConflictsResolved int `json:"conflicts_resolved"`
	ConflictsDropped  int `json:"conflicts_dropped"`
	Occupied          int `json:"occupied"`
}

// NewSimulation creates a Simulation from its components.
func NewSimulation(g *grid.Grid, orgs []*organism.Organism, resolve organism.Strategy) *Simulation {
	index := make(map[string]*organism.Organism, len(orgs))
	for _, o := range orgs {
		index[o.ID()] = o
	}
	return &Simulation{
		Grid:      g,
		Organisms: orgs,
		Index:     index,
		Resolve:   resolve,
	}
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// Step runs one complete tick: every organism replans (with conflicts
// resolved synchronously as they are reported), then the grid commits
// atomically.
func (s *Simulation) Step(tick uint64) {
	s.LastTick = tick

	moves, stays := 0, 0
	for _, o := range s.Organisms {
		before := o.Position()
		err := o.UpdatePosition()
		switch {
		case errors.Is(err, grid.ErrConflict):
			// Resolve immediately: a later competing claim at the same cell
			// would silently replace this recorded one.
			s.resolveConflicts(tick)
		case err != nil:
			slog.Warn("organism could not plan a move",
				"organism", o.ID(), "at", before, "error", err)
			// Restate the current claim anyway: an organism that books
			// nothing this tick loses its cell to any later claimant.
			if err := s.Grid.Claim(before, o); errors.Is(err, grid.ErrConflict) {
				s.resolveConflicts(tick)
			}
		}
		if o.Position() == before {
			stays++
		} else {
			moves++
		}
	}

	// Strategies may queue fresh conflicts on cells planned later; sweep
	// until clean before committing.
	s.resolveConflicts(tick)

	if err := s.Grid.Commit(); err != nil {
		s.dropLeftoverConflicts(tick)
		if err := s.Grid.Commit(); err != nil {
			slog.Error("commit still blocked", "tick", tick, "error", err)
			return
		}
	}

	s.Stats.Moves += moves
	s.Stats.Stays += stays
	s.updateOccupancy()

	slog.Debug("tick committed",
		"tick", tick, "moves", moves, "stays", stays, "occupied", s.Stats.Occupied)
}

// resolveConflicts applies the resolution strategy pair by pair until no
// conflicts remain, re-reading the conflict set after each resolution since
// a strategy mutates cells beyond the contested one. Bounded so a
// pathological strategy cannot livelock the tick.
func (s *Simulation) resolveConflicts(tick uint64) {
	maxAttempts := 8 + 4*len(s.Organisms)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		pairs := s.Grid.ConflictedPairs()
		if len(pairs) == 0 {
			return
		}
		pair := pairs[0]

		pending := s.lookup(pair.Pending)
		rejected := s.lookup(pair.Conflicting)
		if pending == nil || rejected == nil {
			// Not an organism we manage; drop the rejected claim outright.
			if err := s.Grid.Withdraw(pair.At, pair.Conflicting); err != nil {
				slog.Warn("could not drop foreign claim", "at", pair.At, "error", err)
				return
			}
			s.Stats.ConflictsDropped++
			continue
		}

		if err := s.Resolve(s.Grid, pair.At, pending, rejected); err != nil {
			slog.Warn("conflict resolution failed",
				"at", pair.At, "pending", pending.ID(), "rejected", rejected.ID(), "error", err)
			continue
		}
		s.Stats.ConflictsResolved++
		s.Events = append(s.Events, Event{
			Tick:        tick,
			Description: fmt.Sprintf("conflict at (%d,%d) between %s and %s resolved", pair.At.X, pair.At.Y, pending.ID(), rejected.ID()),
			Category:    "conflict",
		})
	}
}

// dropLeftoverConflicts withdraws any rejected claimants still recorded, so
// a tick can always advance. Losing a claim this way just leaves the
// claimant where it was.
func (s *Simulation) dropLeftoverConflicts(tick uint64) {
	for _, pair := range s.Grid.ConflictedPairs() {
		if err := s.Grid.Withdraw(pair.At, pair.Conflicting); err != nil {
			slog.Warn("could not withdraw leftover claim", "at", pair.At, "error", err)
			continue
		}
		s.Stats.ConflictsDropped++
		s.Events = append(s.Events, Event{
			Tick:        tick,
			Description: fmt.Sprintf("unresolved claim at (%d,%d) dropped", pair.At.X, pair.At.Y),
			Category:    "conflict",
		})
	}
}

func (s *Simulation) lookup(obj grid.Object) *organism.Organism {
	if obj == nil {
		return nil
	}
	return s.Index[obj.ID()]
}

func (s *Simulation) updateOccupancy() {
	occupied := 0
	for y := 0; y < s.Grid.Height(); y++ {
		for x := 0; x < s.Grid.Width(); x++ {
			if s.Grid.Occupant(grid.Point{X: x, Y: y}) != nil {
				occupied++
			}
		}
	}
	s.Stats.Occupied = occupied
}

// TrimEvents caps the retained event log at keep entries.
func (s *Simulation) TrimEvents(keep int) {
	if len(s.Events) > keep {
		s.Events = s.Events[len(s.Events)-keep:]
	}
}
