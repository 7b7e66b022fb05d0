package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocations_OutOfBounds(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	_, err := g.Locations(Point{X: -1, Y: -1}, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = g.Locations(Point{X: 9, Y: 0}, 1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestLocations_SingleRingOrder(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	levels, err := g.Locations(Point{X: 1, Y: 1}, 1)
	require.NoError(t, err)
	require.Len(t, levels, 1)

	// Top and bottom rows per column, then the side columns without
	// corners.
	want := []Point{
		{0, 0}, {0, 2},
		{1, 0}, {1, 2},
		{2, 0}, {2, 2},
		{0, 1}, {2, 1},
	}
	assert.Equal(t, want, levels[0])
}

func TestLocations_CornerClipped(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	levels, err := g.Locations(Point{X: 0, Y: 0}, 1)
	require.NoError(t, err)
	require.Len(t, levels, 1)

	// Only the in-bounds boundary points survive; clipping never fails the
	// query.
	assert.Equal(t, []Point{{0, 1}, {1, 1}, {1, 0}}, levels[0])
}

func TestLocations_TwoRings(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	levels, err := g.Locations(Point{X: 4, Y: 4}, 2)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	// Interior rings have 4*(side-1) boundary cells: 8 then 16.
	assert.Len(t, levels[0], 8)
	assert.Len(t, levels[1], 16)

	// Rings don't overlap and stay at the right Chebyshev distance.
	for _, p := range levels[0] {
		assert.Equal(t, 1, chebyshev(p, Point{X: 4, Y: 4}))
	}
	for _, p := range levels[1] {
		assert.Equal(t, 2, chebyshev(p, Point{X: 4, Y: 4}))
	}
}

func chebyshev(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

func TestNeighborhood_CommittedOccupants(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	obj := &testObject{id: "a"}

	// Surround (6,6) with the same object.
	for x := 5; x <= 7; x++ {
		require.NoError(t, g.Claim(Point{X: x, Y: 5}, obj))
		require.NoError(t, g.Claim(Point{X: x, Y: 7}, obj))
	}
	require.NoError(t, g.Claim(Point{X: 5, Y: 6}, obj))
	require.NoError(t, g.Claim(Point{X: 7, Y: 6}, obj))
	require.NoError(t, g.Commit())

	levels, err := g.Neighborhood(Point{X: 6, Y: 6}, 1, false)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.Len(t, levels[0], 8)
	for _, got := range levels[0] {
		assert.Equal(t, Object(obj), got)
	}
}

func TestNeighborhood_OmitsEmptyAndSeesPending(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	obj := &testObject{id: "a"}

	require.NoError(t, g.Claim(Point{X: 3, Y: 2}, obj))

	// Committed view: nothing there yet.
	levels, err := g.Neighborhood(Point{X: 3, Y: 3}, 1, false)
	require.NoError(t, err)
	assert.Empty(t, levels[0])

	// Pending view sees the uncommitted claim.
	levels, err = g.Neighborhood(Point{X: 3, Y: 3}, 1, true)
	require.NoError(t, err)
	require.Len(t, levels[0], 1)
	assert.Equal(t, Object(obj), levels[0][0])
}

func TestNeighborhood_OutOfBounds(t *testing.T) {
	g := newTestGrid(t, 9, 9)
	_, err := g.Neighborhood(Point{X: 40, Y: 2}, 1, false)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}
