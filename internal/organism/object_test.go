package organism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/automata/internal/entropy"
	"github.com/talgya/automata/internal/grid"
)

func newTestGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.New(9, 9, entropy.NewSeeded(1))
	require.NoError(t, err)
	return g
}

func TestObject_InitializeAndPositions(t *testing.T) {
	g := newTestGrid(t)
	o := NewObject(g)

	assert.Equal(t, grid.Unset, o.Position())
	assert.Equal(t, grid.Unset, o.BakedPosition())

	p := grid.Point{X: 2, Y: 2}
	require.NoError(t, o.Initialize(p))
	assert.Equal(t, p, o.Position())
	// Nothing committed yet.
	assert.Equal(t, grid.Unset, o.BakedPosition())

	require.NoError(t, g.Commit())
	assert.Equal(t, p, o.BakedPosition())

	// Double initialization is an error.
	assert.Error(t, o.Initialize(grid.Point{X: 0, Y: 0}))
}

func TestObject_BakedLagsPendingUntilCommit(t *testing.T) {
	g := newTestGrid(t)
	o := NewObject(g)

	start := grid.Point{X: 2, Y: 2}
	require.NoError(t, o.Initialize(start))
	require.NoError(t, g.Commit())

	next := grid.Point{X: 0, Y: 1}
	require.NoError(t, o.SetPosition(next))

	// The claim is pending: position moves, baked position does not.
	assert.Equal(t, next, o.Position())
	assert.Equal(t, start, o.BakedPosition())

	require.NoError(t, g.Commit())
	assert.Equal(t, next, o.BakedPosition())
	assert.Nil(t, g.Occupant(start))
	assert.Equal(t, grid.Object(o), g.Occupant(next))
}

func TestObject_SetPositionConflictLeavesStateUnchanged(t *testing.T) {
	g := newTestGrid(t)
	a := NewObject(g)
	b := NewObject(g)

	require.NoError(t, a.Initialize(grid.Point{X: 0, Y: 0}))
	require.NoError(t, b.Initialize(grid.Point{X: 1, Y: 1}))
	require.NoError(t, g.Commit())

	target := grid.Point{X: 2, Y: 2}
	require.NoError(t, a.SetPosition(target))
	err := b.SetPosition(target)
	assert.ErrorIs(t, err, grid.ErrConflict)

	// b keeps its old claim; the conflict is recorded at the target cell.
	assert.Equal(t, grid.Point{X: 1, Y: 1}, b.Position())
	pairs := g.ConflictedPairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, target, pairs[0].At)
	assert.Equal(t, grid.Object(a), pairs[0].Pending)
	assert.Equal(t, grid.Object(b), pairs[0].Conflicting)
}

func TestObject_RestatePositionIsStasisRequest(t *testing.T) {
	g := newTestGrid(t)
	a := NewObject(g)
	b := NewObject(g)

	home := grid.Point{X: 4, Y: 4}
	require.NoError(t, a.Initialize(home))
	require.NoError(t, b.Initialize(grid.Point{X: 0, Y: 0}))
	require.NoError(t, g.Commit())

	// Explicitly staying put blocks a displacement claim.
	require.NoError(t, a.SetPosition(home))
	assert.ErrorIs(t, b.SetPosition(home), grid.ErrConflict)
}

func TestObject_RemoveFromGrid(t *testing.T) {
	g := newTestGrid(t)
	o := NewObject(g)

	p := grid.Point{X: 3, Y: 3}
	require.NoError(t, o.Initialize(p))
	require.NoError(t, g.Commit())

	o.RemoveFromGrid()
	assert.Nil(t, g.Occupant(p))
	assert.Nil(t, g.PendingOccupant(p))

	// Idempotent, and the object can no longer touch the grid.
	o.RemoveFromGrid()
	assert.Error(t, o.SetPosition(grid.Point{X: 1, Y: 1}))
}
