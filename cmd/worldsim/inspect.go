package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := db.HasWorld()
	if err != nil {
		return err
	}
	if !saved {
		return errors.New("no saved world in " + cfg.DBPath)
	}

	w := newWorld(cfg)
	tick, err := db.LoadWorld(w)
	if err != nil {
		return fmt.Errorf("load world: %w", err)
	}

	stats := w.Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tick %d, %d governments, %d divisions, water %.2f\n\n",
		tick, stats.Governments, stats.Divisions, stats.WaterArea)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, g := range w.Governments() {
		fmt.Fprintf(tw, "%s\t%s\n", g.Name(), g.ID())
		for _, d := range g.Territories() {
			tree, err := d.SnapshotTree()
			if err != nil {
				fmt.Fprintf(os.Stderr, "territory %d: %v\n", d.ID(), err)
				continue
			}
			for _, s := range tree {
				fmt.Fprintf(tw, "%s%d %s\t%.4f\n", strings.Repeat("  ", s.Depth+1), s.ID, s.Name, s.Area.Size())
			}
		}
	}
	return tw.Flush()
}
