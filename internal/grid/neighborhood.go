package grid

// Locations enumerates ring neighborhoods around center. Element k-1 holds
// ring k: the boundary cells of the square of side 2k+1 centered on center,
// top and bottom rows first (left to right, corners included), then the
// side columns (corners excluded). Points falling off the grid are clipped
// individually; clipping never fails the query. Only an out-of-bounds
// center does.
func (g *Grid) Locations(center Point, rings int) ([][]Point, error) {
	if !g.InBounds(center) {
		return nil, ErrOutOfBounds
	}

	out := make([][]Point, 0, rings)
	side := 3
	for level := 1; level <= rings; level++ {
		startX := center.X - side/2
		endX := center.X + side/2
		startY := center.Y - side/2
		endY := center.Y + side/2

		ring := make([]Point, 0, 4*(side-1))
		for x := startX; x <= endX; x++ {
			if x < 0 || x >= g.width {
				continue
			}
			if startY >= 0 {
				ring = append(ring, Point{X: x, Y: startY})
			}
			if endY < g.height {
				ring = append(ring, Point{X: x, Y: endY})
			}
		}
		for y := startY + 1; y <= endY-1; y++ {
			if y < 0 || y >= g.height {
				continue
			}
			if startX >= 0 {
				ring = append(ring, Point{X: startX, Y: y})
			}
			if endX < g.width {
				ring = append(ring, Point{X: endX, Y: y})
			}
		}

		out = append(out, ring)
		side += 2
	}
	return out, nil
}

// Neighborhood resolves each ring location to its occupant, partitioned by
// ring exactly as Locations orders them. Empty cells are omitted. With
// usePending the pending occupants are read instead of the committed ones.
func (g *Grid) Neighborhood(center Point, rings int, usePending bool) ([][]Object, error) {
	levels, err := g.Locations(center, rings)
	if err != nil {
		return nil, err
	}

	out := make([][]Object, 0, len(levels))
	for _, ring := range levels {
		objects := make([]Object, 0, len(ring))
		for _, p := range ring {
			var occupant Object
			if usePending {
				occupant = g.PendingOccupant(p)
			} else {
				occupant = g.Occupant(p)
			}
			if occupant != nil {
				objects = append(objects, occupant)
			}
		}
		out = append(out, objects)
	}
	return out, nil
}
