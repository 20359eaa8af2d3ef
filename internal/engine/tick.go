// Package engine provides the tick loop that drives periodic work on the
// world: autosaves and daily reports.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// TickSchedule defines when each callback runs relative to the tick counter.
const (
	TicksPerSimHour   = 60    // 60 ticks = 1 sim-hour
	TicksPerSimDay    = 1440  // 24 hours × 60
	TicksPerSimSeason = 90000 // ~62.5 days
)

// Engine advances a monotonic tick counter on a timer.
type Engine struct {
	tick atomic.Uint64 // Monotonic, never resets

	Interval time.Duration // Base tick interval (default 1 second)

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64) // Every tick (sim-minute)
	OnHour   func(tick uint64) // Every 60 ticks
	OnDay    func(tick uint64) // Every 1440 ticks
	OnSeason func(tick uint64) // Every ~90000 ticks
}

// NewEngine creates an engine starting after tick start.
func NewEngine(start uint64) *Engine {
	e := &Engine{Interval: time.Second}
	e.tick.Store(start)
	return e
}

// Tick returns the most recently completed tick.
func (e *Engine) Tick() uint64 {
	return e.tick.Load()
}

// Run steps the engine every Interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = time.Second
	}
	slog.Info("engine started", "tick", e.Tick(), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "tick", e.Tick())
			return
		case <-ticker.C:
			e.Step()
		}
	}
}

// Step advances the engine by one tick and runs the callbacks due.
func (e *Engine) Step() {
	tick := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if tick%TicksPerSimHour == 0 && e.OnHour != nil {
		e.OnHour(tick)
	}
	if tick%TicksPerSimDay == 0 && e.OnDay != nil {
		e.OnDay(tick)
	}
	if tick%TicksPerSimSeason == 0 && e.OnSeason != nil {
		e.OnSeason(tick)
	}
}

// SimTime returns a human-readable simulation time string from a tick number.
func SimTime(tick uint64) string {
	totalMinutes := tick
	minutes := totalMinutes % 60
	totalHours := totalMinutes / 60
	hours := totalHours % 24
	totalDays := totalHours / 24
	days := totalDays%90 + 1
	seasons := totalDays / 90
	season := seasons % 4
	years := seasons/4 + 1

	seasonNames := [4]string{"Spring", "Summer", "Autumn", "Winter"}

	return fmt.Sprintf("%s Day %d, %d:%02d Year %d",
		seasonNames[season], days, hours, minutes, years)
}
