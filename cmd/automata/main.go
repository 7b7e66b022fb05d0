// Command automata runs a grid substrate simulation: organisms plan
// factor-weighted moves each tick, conflicts are resolved, and the grid
// commits atomically. State persists to SQLite so a run can be resumed.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/talgya/automata/internal/engine"
	"github.com/talgya/automata/internal/entropy"
	"github.com/talgya/automata/internal/grid"
	"github.com/talgya/automata/internal/organism"
	"github.com/talgya/automata/internal/persistence"
	"github.com/talgya/automata/internal/world"
)

func main() {
	var (
		seed      = flag.Int64("seed", 42, "random seed for the run")
		width     = flag.Int("width", 64, "grid width")
		height    = flag.Int("height", 64, "grid height")
		organisms = flag.Int("organisms", 40, "number of organisms to spawn")
		speed     = flag.Int("speed", 1, "organism speed (ring levels per move)")
		vision    = flag.Int("vision", 10, "organism vision override, <= 0 = unlimited")
		ticks     = flag.Uint64("ticks", 0, "stop after this many ticks, 0 = run until signal")
		dbPath    = flag.String("db", "data/automata.db", "sqlite database path")
		saveEvery = flag.Uint64("save-every", 100, "persist run state every N ticks")
		debug     = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("automata grid substrate", "seed", *seed, "grid", fmt.Sprintf("%dx%d", *width, *height))

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(*dbPath), 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	// ── Grid ──────────────────────────────────────────────────────────
	rng := entropy.NewSeeded(*seed)
	g, err := grid.New(*width, *height, rng)
	if err != nil {
		slog.Error("failed to create grid", "error", err)
		os.Exit(1)
	}
	defer g.Close()

	// ── Load or generate world state ──────────────────────────────────
	var factors []grid.MovementFactor
	var orgs []*organism.Organism
	var startTick uint64

	if db.HasRunState() {
		slog.Info("found saved run state, loading...")

		factors, err = db.LoadFactors()
		if err != nil {
			slog.Error("failed to load factors", "error", err)
			os.Exit(1)
		}
		rows, err := db.LoadOccupants()
		if err != nil {
			slog.Error("failed to load occupants", "error", err)
			os.Exit(1)
		}
		for _, row := range rows {
			o := organism.New(g, row.Speed, row.Vision)
			o.Factors = factors
			if err := o.Initialize(grid.Point{X: row.X, Y: row.Y}); err != nil {
				slog.Error("failed to re-place organism", "at", row, "error", err)
				os.Exit(1)
			}
			orgs = append(orgs, o)
		}
		if tickStr, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
				startTick = t
			}
		}
		slog.Info("run state restored", "organisms", len(orgs), "factors", len(factors), "tick", startTick)
	} else {
		slog.Info("no saved state found, generating new world...")

		cfg := world.DefaultGenConfig()
		cfg.Width = *width
		cfg.Height = *height
		cfg.Seed = *seed
		cfg.Sites = 8 + *organisms/4
		factors = world.Generate(cfg)

		spawnRng := rand.New(rand.NewSource(*seed + 100))
		for i := 0; i < *organisms; i++ {
			o := organism.New(g, *speed, *vision)
			o.Factors = factors
			placed := false
			for tries := 0; tries < 100; tries++ {
				p := grid.Point{X: spawnRng.Intn(*width), Y: spawnRng.Intn(*height)}
				if g.PendingOccupant(p) != nil {
					continue
				}
				if err := o.Initialize(p); err != nil {
					continue
				}
				placed = true
				break
			}
			if !placed {
				slog.Warn("could not place organism, skipping", "index", i)
				continue
			}
			orgs = append(orgs, o)
		}
		slog.Info("world generated", "organisms", len(orgs), "factors", len(factors))
	}

	// Bake the initial placements.
	if err := g.Commit(); err != nil {
		slog.Error("initial commit failed", "error", err)
		os.Exit(1)
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.NewSimulation(g, orgs, organism.RandomRelocate(rng))
	sim.LastTick = startTick

	if startTick == 0 {
		if err := db.SaveMeta("seed", strconv.FormatInt(*seed, 10)); err != nil {
			slog.Error("failed to record seed", "error", err)
		}
		if err := db.SaveRunState(sim, factors); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	eng := engine.NewEngine()
	eng.Tick = startTick
	if *ticks > 0 {
		eng.MaxTicks = startTick + *ticks
	}
	eng.SaveEvery = *saveEvery
	eng.OnTick = func(tick uint64) {
		sim.Step(tick)
		sim.TrimEvents(1000)
	}
	eng.OnSave = func(tick uint64) {
		if err := db.SaveRunState(sim, factors); err != nil {
			slog.Error("periodic save failed", "error", err)
		}
	}

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	if startTick > 0 {
		slog.Info("resuming", "tick", startTick)
	}
	slog.Info("starting simulation (Ctrl+C to stop)")

	eng.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveRunState(sim, factors); err != nil {
		slog.Error("final save failed", "error", err)
	}
	slog.Info("done",
		"ticks", sim.CurrentTick(),
		"moves", sim.Stats.Moves,
		"stays", sim.Stats.Stays,
		"conflicts_resolved", sim.Stats.ConflictsResolved,
	)
}
