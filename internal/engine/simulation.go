// Simulation ties the world to the engine: periodic saves and reports.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/polity/internal/world"
)

// Store persists the world.
type Store interface {
	SaveWorld(w *world.World, tick uint64) error
}

// Simulation holds the world and the housekeeping that runs on the engine.
type Simulation struct {
	World *world.World
	Store Store

	// AutosaveTicks is the save cadence in ticks; 0 disables autosave.
	AutosaveTicks uint64

	mu        sync.Mutex
	lastSaved uint64
}

// NewSimulation creates a simulation over w, saving to store.
func NewSimulation(w *world.World, store Store, autosaveTicks uint64) *Simulation {
	return &Simulation{World: w, Store: store, AutosaveTicks: autosaveTicks}
}

// Attach wires the simulation's callbacks into e.
func (s *Simulation) Attach(e *Engine) {
	e.OnTick = func(tick uint64) {
		if s.AutosaveTicks > 0 && tick%s.AutosaveTicks == 0 {
			if err := s.Save(tick); err != nil {
				slog.Error("autosave failed", "tick", tick, "error", err)
			}
		}
	}
	e.OnDay = s.Report
}

// Save writes the world at tick. Saves are serialised.
func (s *Simulation) Save(tick uint64) error {
	if s.Store == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Store.SaveWorld(s.World, tick); err != nil {
		return fmt.Errorf("save at tick %d: %w", tick, err)
	}
	s.lastSaved = tick
	return nil
}

// LastSaved returns the tick of the most recent successful save.
func (s *Simulation) LastSaved() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

// Report logs a summary of the political map.
func (s *Simulation) Report(tick uint64) {
	stats := s.World.Stats()
	slog.Info("daily report",
		"time", SimTime(tick),
		"governments", stats.Governments,
		"divisions", stats.Divisions,
		"events", s.World.Divisions.Chronicle.LastSeq(),
	)
}
