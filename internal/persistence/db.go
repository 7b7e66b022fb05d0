// Package persistence provides SQLite-based run state storage: committed
// occupant snapshots, the factor field, the event log, and run metadata.
// See design doc Section 3.
package persistence

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/automata/internal/engine"
	"github.com/talgya/automata/internal/grid"
	"github.com/talgya/automata/internal/organism"
)

// DB wraps a SQLite connection for run state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS occupants (
		id TEXT PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		speed INTEGER NOT NULL,
		vision INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS factors (
		idx INTEGER PRIMARY KEY,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		strength INTEGER NOT NULL,
		visibility INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// OccupantRow is one organism's persisted state.
type OccupantRow struct {
	ID     string `db:"id"`
	X      int    `db:"x"`
	Y      int    `db:"y"`
	Speed  int    `db:"speed"`
	Vision int    `db:"vision"`
}

// SaveOccupants writes all organisms' committed positions (full replace).
// Organisms not yet committed anywhere are skipped.
func (db *DB) SaveOccupants(orgs []*organism.Organism) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM occupants"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(
		"INSERT INTO occupants (id, x, y, speed, vision) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range orgs {
		pos := o.BakedPosition()
		if pos == grid.Unset {
			continue
		}
		if _, err := stmt.Exec(o.ID(), pos.X, pos.Y, o.Speed, o.Vision); err != nil {
			return fmt.Errorf("insert occupant %s: %w", o.ID(), err)
		}
	}

	return tx.Commit()
}

// LoadOccupants reads back all persisted organism positions.
func (db *DB) LoadOccupants() ([]OccupantRow, error) {
	var rows []OccupantRow
	err := db.conn.Select(&rows, "SELECT id, x, y, speed, vision FROM occupants ORDER BY id")
	return rows, err
}

// SaveFactors writes the movement-factor field (full replace).
func (db *DB) SaveFactors(factors []grid.MovementFactor) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM factors"); err != nil {
		return err
	}

	for i, f := range factors {
		_, err := tx.Exec(
			"INSERT INTO factors (idx, x, y, strength, visibility) VALUES (?, ?, ?, ?, ?)",
			i, f.X, f.Y, f.Strength, f.Visibility,
		)
		if err != nil {
			return fmt.Errorf("insert factor %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadFactors reads back the persisted factor field.
func (db *DB) LoadFactors() ([]grid.MovementFactor, error) {
	var rows []struct {
		X          int `db:"x"`
		Y          int `db:"y"`
		Strength   int `db:"strength"`
		Visibility int `db:"visibility"`
	}
	err := db.conn.Select(&rows, "SELECT x, y, strength, visibility FROM factors ORDER BY idx")
	if err != nil {
		return nil, err
	}

	factors := make([]grid.MovementFactor, 0, len(rows))
	for _, r := range rows {
		factors = append(factors, grid.MovementFactor{
			X: r.X, Y: r.Y, Strength: r.Strength, Visibility: r.Visibility,
		})
	}
	return factors, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// HasRunState reports whether a previous run left restorable state.
func (db *DB) HasRunState() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM occupants"); err != nil {
		return false
	}
	return count > 0
}

// SaveRunState performs a full save of the simulation.
func (db *DB) SaveRunState(sim *engine.Simulation, factors []grid.MovementFactor) error {
	slog.Info("saving run state",
		"organisms", len(sim.Organisms), "events", len(sim.Events), "tick", sim.CurrentTick())

	if err := db.SaveOccupants(sim.Organisms); err != nil {
		return fmt.Errorf("save occupants: %w", err)
	}
	if err := db.SaveFactors(factors); err != nil {
		return fmt.Errorf("save factors: %w", err)
	}
	if err := db.SaveEvents(sim.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	sim.Events = sim.Events[:0]
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", sim.CurrentTick())); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("run state saved")
	return nil
}
