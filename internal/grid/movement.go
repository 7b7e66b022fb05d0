package grid

import (
	"log/slog"
	"math"

	"github.com/talgya/automata/internal/entropy"
)

// VisibleFactors drops factors that cannot be seen from origin: a factor is
// removed when its distance from origin exceeds its own visibility cap
// (when that cap is positive) or the caller's vision override (when that is
// positive). The two caps apply independently.
func VisibleFactors(origin Point, factors []MovementFactor, vision int) []MovementFactor {
	visible := make([]MovementFactor, 0, len(factors))
	for _, f := range factors {
		radius := f.Distance(origin)
		if f.Visibility > 0 && radius > float64(f.Visibility) {
			continue
		}
		if vision > 0 && radius > float64(vision) {
			continue
		}
		visible = append(visible, f)
	}
	return visible
}

// claimableCandidates drops candidates that cannot be claimed this tick:
// blacklisted cells and cells with an active conflict.
func (g *Grid) claimableCandidates(points []Point) []Point {
	usable := make([]Point, 0, len(points))
	for _, p := range points {
		c := g.at(p)
		if c.blacklisted || c.conflicting != nil {
			continue
		}
		usable = append(usable, p)
	}
	return usable
}

// CalculateProbabilities assigns a probability to each candidate location
// from the factor set. With no factors, or factor strengths summing to
// zero, every candidate is equally likely. Otherwise each candidate scores
// the factor-count average of strength*10 for a co-located factor and
// strength/distance^5 for the rest; scores are shifted non-negative by the
// minimum and normalized to sum to 1.
func CalculateProbabilities(factors []MovementFactor, candidates []Point) []float64 {
	probabilities := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return probabilities
	}

	totalStrength := 0
	for _, f := range factors {
		totalStrength += f.Strength
	}
	if len(factors) == 0 || totalStrength == 0 {
		uniform(probabilities)
		slog.Debug("using equal probabilities", "candidates", len(candidates))
		return probabilities
	}

	for i, p := range candidates {
		score := 0.0
		for _, f := range factors {
			radius := f.Distance(p)
			if radius == 0 {
				// The factor sits on the candidate itself.
				score += 10 * float64(f.Strength)
			} else {
				score += float64(f.Strength) / math.Pow(radius, 5)
			}
		}
		probabilities[i] = score / float64(len(factors))
	}

	// Shift everything non-negative, then scale to a distribution.
	min := 0.0
	for _, s := range probabilities {
		if s < min {
			min = s
		}
	}
	total := 0.0
	for i := range probabilities {
		probabilities[i] -= min
		total += probabilities[i]
	}
	if total == 0 {
		// Every shifted score collapsed to zero (all raw scores equal and
		// non-positive). Treat as no preference rather than divide into NaNs.
		uniform(probabilities)
		return probabilities
	}
	for i := range probabilities {
		probabilities[i] /= total
	}
	return probabilities
}

func uniform(probabilities []float64) {
	for i := range probabilities {
		probabilities[i] = 1.0 / float64(len(probabilities))
	}
}

// drawCandidate walks the candidates in order, accumulating probability
// mass until it covers a uniform draw. Rounding can leave the accumulated
// mass just short of 1; the last candidate absorbs the remainder.
func drawCandidate(rng entropy.Source, candidates []Point, probabilities []float64) Point {
	draw := rng.Float()
	running := 0.0
	for i, p := range candidates {
		running += probabilities[i]
		if running >= draw {
			return p
		}
	}
	return candidates[len(candidates)-1]
}

// MoveObject picks a destination for an object at origin: the ring
// neighborhoods out to rings levels plus origin itself (staying put is
// always a candidate), minus blacklisted and conflicted cells, weighted by
// the factors visible from origin under the vision override.
//
// Fails with ErrOutOfBounds for an origin off the grid, and with
// ErrNoCandidates in the degenerate case where exclusions leave nothing to
// claim, origin included.
func (g *Grid) MoveObject(origin Point, factors []MovementFactor, rings, vision int) (Point, error) {
	levels, err := g.Locations(origin, rings)
	if err != nil {
		return Unset, err
	}

	var candidates []Point
	for _, ring := range levels {
		candidates = append(candidates, ring...)
	}
	candidates = append(candidates, origin)
	candidates = g.claimableCandidates(candidates)
	if len(candidates) == 0 {
		return Unset, ErrNoCandidates
	}

	visible := VisibleFactors(origin, factors, vision)
	probabilities := CalculateProbabilities(visible, candidates)
	destination := drawCandidate(g.rng, candidates, probabilities)

	if destination == origin {
		slog.Debug("staying in place", "at", origin)
	}
	return destination, nil
}
