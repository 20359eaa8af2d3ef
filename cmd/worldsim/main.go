// Command worldsim serves a hierarchical political map over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/polity/internal/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "worldsim",
		Short: "Polity: governments, territories and their subdivisions on a shared map",
		Long: `worldsim keeps a world of water and land, the governments that hold
territory on it and the division trees they carve. State is saved to
SQLite and served over a JSON API.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Load or generate the world and serve the API (default)",
		RunE:  runServe,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Print the saved world without starting the server",
		RunE:  runInspect,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.AddCommand(serveCmd, inspectCmd)
}

// setup loads the configuration and installs the process logger.
func setup() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(cfg.NewLogger(os.Stdout))
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
