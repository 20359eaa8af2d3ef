// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/polity/internal/geom"
	"github.com/talgya/polity/internal/territory"
	"github.com/talgya/polity/internal/world"
)

// DB wraps a SQLite connection for world state persistence.
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
	CREATE TABLE IF NOT EXISTS governments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS divisions (
		id INTEGER PRIMARY KEY,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		parent_id INTEGER NOT NULL DEFAULT 0,
		owner_id TEXT NOT NULL,
		area_wkb BLOB,
		required_positions_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS government_territories (
		government_id TEXT NOT NULL,
		division_id INTEGER NOT NULL,
		PRIMARY KEY (government_id, division_id)
	);

	CREATE TABLE IF NOT EXISTS water (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		area_wkb BLOB
	);

	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY,
		at TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL,
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_divisions_seq ON divisions(seq);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type governmentRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type divisionRow struct {
	ID           uint64 `db:"id"`
	Seq          int    `db:"seq"`
	Name         string `db:"name"`
	ParentID     uint64 `db:"parent_id"`
	OwnerID      string `db:"owner_id"`
	AreaWKB      []byte `db:"area_wkb"`
	RequiredJSON string `db:"required_positions_json"`
}

type territoryRow struct {
	GovernmentID string `db:"government_id"`
	DivisionID   uint64 `db:"division_id"`
}

type eventRow struct {
	Seq         uint64 `db:"seq"`
	At          string `db:"at"`
	Description string `db:"description"`
	Category    string `db:"category"`
	MetaJSON    string `db:"meta_json"`
}

// SaveWorld writes the full world state (full replace). Every government
// and its division trees are captured in one consistent read, so a
// concurrent transfer lands either wholly before or wholly after the save.
// Events are appended.
func (db *DB) SaveWorld(w *world.World, tick uint64) error {
	holdings, err := territory.SnapshotGovernments(w.Governments())
	if err != nil {
		return fmt.Errorf("snapshot governments: %w", err)
	}

	var (
		govRows  []governmentRow
		terrRows []territoryRow
		divRows  []divisionRow
		saved    = make(map[territory.DivisionID]bool)
	)
	for _, h := range holdings {
		govRows = append(govRows, governmentRow{ID: h.ID.String(), Name: h.Name})
		for _, id := range h.Territories {
			terrRows = append(terrRows, territoryRow{GovernmentID: h.ID.String(), DivisionID: uint64(id)})
		}
		for _, s := range h.Divisions {
			if saved[s.ID] {
				continue
			}
			saved[s.ID] = true
			required, err := json.Marshal(s.RequiredPositions)
			if err != nil {
				return fmt.Errorf("encode division %d: %w", s.ID, err)
			}
			divRows = append(divRows, divisionRow{
				ID:           uint64(s.ID),
				Seq:          len(divRows),
				Name:         s.Name,
				ParentID:     uint64(s.Parent),
				OwnerID:      s.Owner.String(),
				AreaWKB:      s.Area.WKB(),
				RequiredJSON: string(required),
			})
		}
	}

	slog.Info("saving world state", "governments", len(govRows), "divisions", len(divRows), "tick", tick)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"governments", "divisions", "government_territories", "water"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, r := range govRows {
		if _, err := tx.NamedExec(`INSERT INTO governments (id, name) VALUES (:id, :name)`, r); err != nil {
			return fmt.Errorf("insert government %s: %w", r.ID, err)
		}
	}
	for _, r := range divRows {
		_, err := tx.NamedExec(`INSERT INTO divisions
			(id, seq, name, parent_id, owner_id, area_wkb, required_positions_json)
			VALUES (:id, :seq, :name, :parent_id, :owner_id, :area_wkb, :required_positions_json)`, r)
		if err != nil {
			return fmt.Errorf("insert division %d: %w", r.ID, err)
		}
	}
	for _, r := range terrRows {
		_, err := tx.NamedExec(`INSERT INTO government_territories (government_id, division_id)
			VALUES (:government_id, :division_id)`, r)
		if err != nil {
			return fmt.Errorf("insert territory %d: %w", r.DivisionID, err)
		}
	}
	if _, err := tx.Exec("INSERT INTO water (id, area_wkb) VALUES (1, ?)", w.Water().WKB()); err != nil {
		return fmt.Errorf("insert water: %w", err)
	}
	if err := saveEvents(tx, w.Divisions.Chronicle.Recent(-1)); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	meta := map[string]string{
		"last_tick":        strconv.FormatUint(tick, 10),
		"next_division_id": strconv.FormatUint(uint64(w.Divisions.NextID()), 10),
		"saved_at":         time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world state saved")
	return nil
}

// saveEvents appends events not stored yet. Events are immutable once
// recorded, so a repeated sequence number is skipped.
func saveEvents(tx *sqlx.Tx, events []territory.Event) error {
	for _, e := range events {
		meta, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", e.Seq, err)
		}
		_, err = tx.Exec(
			"INSERT OR IGNORE INTO events (seq, at, description, category, meta_json) VALUES (?, ?, ?, ?, ?)",
			e.Seq, e.At.UTC().Format(time.RFC3339Nano), e.Description, e.Category, string(meta),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// HasWorld reports whether a world has been saved to this database.
func (db *DB) HasWorld() (bool, error) {
	_, err := db.GetMeta("saved_at")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// LoadWorld restores a saved world into w, which must be empty. It
// returns the tick the world was saved at.
func (db *DB) LoadWorld(w *world.World) (uint64, error) {
	var waterWKB []byte
	if err := db.conn.Get(&waterWKB, "SELECT area_wkb FROM water WHERE id = 1"); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("load water: %w", err)
	}
	water, err := geom.FromWKB(waterWKB)
	if err != nil {
		return 0, fmt.Errorf("decode water: %w", err)
	}
	w.SetWater(water)

	var divRows []divisionRow
	if err := db.conn.Select(&divRows, "SELECT * FROM divisions ORDER BY seq"); err != nil {
		return 0, fmt.Errorf("load divisions: %w", err)
	}
	snaps := make([]territory.Snapshot, 0, len(divRows))
	for _, r := range divRows {
		s, err := r.snapshot()
		if err != nil {
			return 0, err
		}
		snaps = append(snaps, s)
	}
	if err := w.Divisions.Restore(snaps); err != nil {
		return 0, fmt.Errorf("restore divisions: %w", err)
	}

	var govRows []governmentRow
	if err := db.conn.Select(&govRows, "SELECT id, name FROM governments"); err != nil {
		return 0, fmt.Errorf("load governments: %w", err)
	}
	govs := make(map[string]*territory.Government, len(govRows))
	for _, r := range govRows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return 0, fmt.Errorf("government id %q: %w", r.ID, err)
		}
		g := territory.RestoreGovernment(w.Divisions, id, r.Name)
		if err := w.AddGovernment(g); err != nil {
			return 0, err
		}
		govs[r.ID] = g
	}

	var terrRows []territoryRow
	if err := db.conn.Select(&terrRows, "SELECT government_id, division_id FROM government_territories"); err != nil {
		return 0, fmt.Errorf("load territories: %w", err)
	}
	for _, r := range terrRows {
		g, ok := govs[r.GovernmentID]
		if !ok {
			return 0, fmt.Errorf("territory %d: government %s: %w", r.DivisionID, r.GovernmentID, territory.ErrNotFound)
		}
		d, ok := w.Divisions.Get(territory.DivisionID(r.DivisionID))
		if !ok {
			return 0, fmt.Errorf("territory %d: %w", r.DivisionID, territory.ErrNotFound)
		}
		if err := g.AddTerritory(d); err != nil {
			return 0, err
		}
	}

	events, err := db.RecentEvents(1000)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}
	w.Divisions.Chronicle.Restore(events)

	if v, err := db.GetMeta("next_division_id"); err == nil {
		if next, err := strconv.ParseUint(v, 10, 64); err == nil && next > 0 {
			w.Divisions.Reserve(territory.DivisionID(next - 1))
		}
	}

	var tick uint64
	if v, err := db.GetMeta("last_tick"); err == nil {
		tick, _ = strconv.ParseUint(v, 10, 64)
	}

	slog.Info("world state loaded",
		"governments", len(govRows),
		"divisions", len(divRows),
		"events", len(events),
		"tick", tick,
	)
	return tick, nil
}

func (r divisionRow) snapshot() (territory.Snapshot, error) {
	area, err := geom.FromWKB(r.AreaWKB)
	if err != nil {
		return territory.Snapshot{}, fmt.Errorf("division %d area: %w", r.ID, err)
	}
	owner, err := uuid.Parse(r.OwnerID)
	if err != nil {
		return territory.Snapshot{}, fmt.Errorf("division %d owner %q: %w", r.ID, r.OwnerID, err)
	}
	var required []territory.RoleID
	if err := json.Unmarshal([]byte(r.RequiredJSON), &required); err != nil {
		return territory.Snapshot{}, fmt.Errorf("division %d positions: %w", r.ID, err)
	}
	return territory.Snapshot{
		ID:                territory.DivisionID(r.ID),
		Name:              r.Name,
		Parent:            territory.DivisionID(r.ParentID),
		Owner:             owner,
		Area:              area,
		RequiredPositions: required,
	}, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// RecentEvents returns up to limit of the newest stored events, oldest first.
func (db *DB) RecentEvents(limit int) ([]territory.Event, error) {
	var rows []eventRow
	err := db.conn.Select(&rows,
		"SELECT seq, at, description, category, meta_json FROM events ORDER BY seq DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]territory.Event, len(rows))
	for i, r := range rows {
		at, err := time.Parse(time.RFC3339Nano, r.At)
		if err != nil {
			return nil, fmt.Errorf("event %d time: %w", r.Seq, err)
		}
		var meta map[string]any
		if err := json.Unmarshal([]byte(r.MetaJSON), &meta); err != nil {
			return nil, fmt.Errorf("event %d meta: %w", r.Seq, err)
		}
		// Rows arrive newest first.
		events[len(rows)-1-i] = territory.Event{
			Seq:         r.Seq,
			At:          at,
			Description: r.Description,
			Category:    r.Category,
			Meta:        meta,
		}
	}
	return events, nil
}
