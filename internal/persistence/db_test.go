package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/automata/internal/engine"
	"github.com/talgya/automata/internal/entropy"
	"github.com/talgya/automata/internal/grid"
	"github.com/talgya/automata/internal/organism"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func placedOrganism(t *testing.T, g *grid.Grid, at grid.Point, speed, vision int) *organism.Organism {
	t.Helper()

	o := organism.New(g, speed, vision)
	require.NoError(t, o.Initialize(at))
	return o
}

func TestSaveLoadOccupants(t *testing.T) {
	db := newTestDB(t)

	g, err := grid.New(8, 8, entropy.NewSeeded(1))
	require.NoError(t, err)

	a := placedOrganism(t, g, grid.Point{X: 2, Y: 3}, 1, 5)
	b := placedOrganism(t, g, grid.Point{X: 6, Y: 1}, 2, -1)
	require.NoError(t, g.Commit())

	// Not yet committed anywhere; must be skipped.
	c := organism.New(g, 1, 1)

	require.NoError(t, db.SaveOccupants([]*organism.Organism{a, b, c}))

	rows, err := db.LoadOccupants()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := make(map[string]OccupantRow)
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.Equal(t, OccupantRow{ID: a.ID(), X: 2, Y: 3, Speed: 1, Vision: 5}, byID[a.ID()])
	assert.Equal(t, OccupantRow{ID: b.ID(), X: 6, Y: 1, Speed: 2, Vision: -1}, byID[b.ID()])
}

func TestSaveOccupants_FullReplace(t *testing.T) {
	db := newTestDB(t)

	g, err := grid.New(8, 8, entropy.NewSeeded(1))
	require.NoError(t, err)

	a := placedOrganism(t, g, grid.Point{X: 0, Y: 0}, 1, 1)
	b := placedOrganism(t, g, grid.Point{X: 1, Y: 1}, 1, 1)
	require.NoError(t, g.Commit())

	require.NoError(t, db.SaveOccupants([]*organism.Organism{a, b}))
	require.NoError(t, db.SaveOccupants([]*organism.Organism{a}))

	rows, err := db.LoadOccupants()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID(), rows[0].ID)
}

func TestSaveLoadFactors(t *testing.T) {
	db := newTestDB(t)

	factors := []grid.MovementFactor{
		{X: 1, Y: 2, Strength: 50, Visibility: -1},
		{X: 4, Y: 4, Strength: -30, Visibility: 6},
		{X: 0, Y: 7, Strength: 0, Visibility: 1},
	}
	require.NoError(t, db.SaveFactors(factors))

	loaded, err := db.LoadFactors()
	require.NoError(t, err)
	assert.Equal(t, factors, loaded)

	// Full replace.
	require.NoError(t, db.SaveFactors(factors[:1]))
	loaded, err = db.LoadFactors()
	require.NoError(t, err)
	assert.Equal(t, factors[:1], loaded)
}

func TestEventsRoundTrip(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveEvents(nil))

	events := []engine.Event{
		{Tick: 1, Description: "conflict at (2,2) resolved", Category: "conflict"},
		{Tick: 2, Description: "unresolved claim at (3,1) dropped", Category: "conflict"},
		{Tick: 3, Description: "tick committed", Category: "commit"},
	}
	require.NoError(t, db.SaveEvents(events))

	recent, err := db.RecentEvents(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Newest first.
	assert.Equal(t, uint64(3), recent[0].Tick)
	assert.Equal(t, uint64(2), recent[1].Tick)
}

func TestMeta(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetMeta("last_tick")
	assert.Error(t, err)

	require.NoError(t, db.SaveMeta("last_tick", "42"))
	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	require.NoError(t, db.SaveMeta("last_tick", "43"))
	v, err = db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "43", v)
}

func TestHasRunStateAndSaveRunState(t *testing.T) {
	db := newTestDB(t)
	assert.False(t, db.HasRunState())

	g, err := grid.New(8, 8, entropy.NewSeeded(1))
	require.NoError(t, err)
	o := placedOrganism(t, g, grid.Point{X: 3, Y: 3}, 1, -1)
	require.NoError(t, g.Commit())

	sim := engine.NewSimulation(g, []*organism.Organism{o}, organism.RandomRelocate(entropy.NewSeeded(2)))
	sim.LastTick = 9
	sim.Events = []engine.Event{{Tick: 9, Description: "x", Category: "move"}}

	factors := []grid.MovementFactor{{X: 1, Y: 1, Strength: 10, Visibility: -1}}
	require.NoError(t, db.SaveRunState(sim, factors))

	assert.True(t, db.HasRunState())
	assert.Empty(t, sim.Events, "saved events are flushed from memory")

	v, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "9", v)

	loaded, err := db.LoadFactors()
	require.NoError(t, err)
	assert.Equal(t, factors, loaded)
}
