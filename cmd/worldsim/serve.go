package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/polity/internal/api"
	"github.com/talgya/polity/internal/config"
	"github.com/talgya/polity/internal/engine"
	"github.com/talgya/polity/internal/persistence"
	"github.com/talgya/polity/internal/territory"
	"github.com/talgya/polity/internal/world"
)

func newWorld(cfg config.Config) *world.World {
	reg := territory.NewRegistry(
		territory.WithMaxDepth(cfg.Territory.MaxDepth),
		territory.WithAreaTolerance(cfg.Territory.AreaTolerance),
	)
	w := world.New(reg)
	w.BulkWorkers = cfg.BulkWorkers
	return w
}

func openDB(cfg config.Config) (*persistence.DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", cfg.DBPath)
	return db, nil
}

// freshWorld fills w with water and the seeded governments.
func freshWorld(cfg config.Config, w *world.World) error {
	if cfg.WaterSource != "" {
		water, err := world.LoadWater(cfg.WaterSource)
		if err != nil {
			return err
		}
		w.SetWater(water)
		slog.Info("water mask loaded", "source", cfg.WaterSource, "area", fmt.Sprintf("%.2f", water.Size()))
		slog.Warn("external water mask: no governments seeded")
		return nil
	}

	gen := world.DefaultGenConfig()
	gen.Seed = cfg.Seed
	gen.Radius = cfg.Generation.Radius
	gen.HexSize = cfg.Generation.HexSize
	gen.SeaLevel = cfg.Generation.SeaLevel

	slog.Info("generating world map...", "radius", gen.Radius, "seed", gen.Seed)
	m, water, err := world.GenerateWater(gen)
	if err != nil {
		return err
	}
	w.SetWater(water)
	for t, c := range world.TerrainCounts(m) {
		slog.Info("terrain", "type", world.TerrainName(t), "count", c)
	}

	capitals := world.PlaceCapitals(m, cfg.Seeding.Count, cfg.Seeding.MinDistance, cfg.Seed)
	govs, err := world.SeedGovernments(w, m, capitals, cfg.Seeding.Reach)
	if err != nil {
		return err
	}
	for _, g := range govs {
		slog.Info("government seeded", "id", g.ID(), "name", g.Name())
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	slog.Info("Polity: hierarchical political map")

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	w := newWorld(cfg)
	var startTick uint64

	saved, err := db.HasWorld()
	if err != nil {
		return err
	}
	if saved {
		slog.Info("found saved world state, loading...")
		if startTick, err = db.LoadWorld(w); err != nil {
			return fmt.Errorf("load world: %w", err)
		}
		slog.Info("world state restored", "tick", startTick, "sim_time", engine.SimTime(startTick))
	} else {
		slog.Info("no saved state found, generating new world...")
		if err := freshWorld(cfg, w); err != nil {
			return fmt.Errorf("generate world: %w", err)
		}
		if err := db.SaveWorld(w, 0); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	stats := w.Stats()
	slog.Info("world ready",
		"governments", stats.Governments,
		"divisions", stats.Divisions,
		"water_area", fmt.Sprintf("%.2f", stats.WaterArea),
	)

	sim := engine.NewSimulation(w, db, cfg.AutosaveTicks)
	eng := engine.NewEngine(startTick)
	eng.Interval = cfg.TickInterval
	sim.Attach(eng)

	if cfg.AdminKey == "" {
		slog.Warn("WORLDSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	limiter := api.NewRateLimiter(60, time.Minute)
	apiServer := &api.Server{
		World:       w,
		Sim:         sim,
		Eng:         eng,
		Port:        cfg.APIPort,
		AdminKey:    cfg.AdminKey,
		BulkLimiter: limiter,
	}
	apiServer.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nPolity is alive: %d governments, %d divisions.\n", stats.Governments, stats.Divisions)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(startTick))
	}

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	slog.Info("final save...")
	if err := sim.Save(eng.Tick()); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	fmt.Println("Stopped. World state saved.")
	return nil
}
