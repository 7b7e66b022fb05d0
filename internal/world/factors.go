// Package world generates the shared movement-factor field from layered
// simplex noise: attraction and repulsion sites whose strength and
// visibility come from independent noise layers, deterministic per seed.
// See design doc Section 3.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/automata/internal/grid"
)

// GenConfig holds factor-field generation parameters.
type GenConfig struct {
	Width  int
	Height int
	Seed   int64 // Random seed (0 = random)

	Sites         int // Number of factor sites to sample
	MaxStrength   int // Strength ranges over [-MaxStrength, MaxStrength]
	MaxVisibility int // Visibility cap per factor; sampled 0..Max, 0 = unlimited
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:         64,
		Height:        64,
		Seed:          0,
		Sites:         24,
		MaxStrength:   100,
		MaxVisibility: 20,
	}
}

// SmallTestConfig returns a tiny field for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:         9,
		Height:        9,
		Seed:          42,
		Sites:         4,
		MaxStrength:   50,
		MaxVisibility: 6,
	}
}

// Generate samples a movement-factor field. Site positions come from the
// seeded stream; strength and visibility from two independent noise layers,
// so nearby sites get correlated influence.
func Generate(cfg GenConfig) []grid.MovementFactor {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	strengthNoise := opensimplex.NewNormalized(seed)
	visNoise := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed + 2))

	factors := make([]grid.MovementFactor, 0, cfg.Sites)
	for i := 0; i < cfg.Sites; i++ {
		x := rng.Intn(cfg.Width)
		y := rng.Intn(cfg.Height)

		// Noise in [0,1] → strength in [-MaxStrength, MaxStrength].
		s := octaveNoise(strengthNoise, float64(x), float64(y), 3, 0.08, 0.5)
		strength := int(math.Round((s*2 - 1) * float64(cfg.MaxStrength)))

		v := octaveNoise(visNoise, float64(x), float64(y), 2, 0.06, 0.5)
		visibility := int(math.Round(v * float64(cfg.MaxVisibility)))
		if visibility == 0 {
			// Unlimited range.
			visibility = -1
		}

		factors = append(factors, grid.MovementFactor{
			X:          x,
			Y:          y,
			Strength:   strength,
			Visibility: visibility,
		})
	}
	return factors
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
