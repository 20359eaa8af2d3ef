// Package config loads worldsim settings from defaults, an optional YAML
// file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting.
type Config struct {
	DBPath      string `yaml:"db_path" validate:"required"`
	APIPort     int    `yaml:"api_port" validate:"gte=0,lte=65535"`
	AdminKey    string `yaml:"-"` // Environment only
	Seed        int64  `yaml:"seed"`
	WaterSource string `yaml:"water_source"` // GeoJSON file; empty generates the mask

	Generation Generation `yaml:"generation"`
	Territory  Territory  `yaml:"territory"`
	Seeding    Seeding    `yaml:"seed_governments"`

	BulkWorkers   int           `yaml:"bulk_workers" validate:"gte=1,lte=1024"`
	TickInterval  time.Duration `yaml:"tick_interval" validate:"gt=0"`
	AutosaveTicks uint64        `yaml:"autosave_ticks"`

	LogLevel  string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=text json"`
}

// Generation configures the procedural water mask.
type Generation struct {
	Radius   int     `yaml:"radius" validate:"gte=1,lte=200"`
	HexSize  float64 `yaml:"hex_size" validate:"gt=0"`
	SeaLevel float64 `yaml:"sea_level" validate:"gte=0,lte=1"`
}

// Territory configures the division tree.
type Territory struct {
	MaxDepth      int     `yaml:"max_depth" validate:"gte=1,lte=10000"`
	AreaTolerance float64 `yaml:"area_tolerance" validate:"gt=0,lt=1"`
}

// Seeding configures the governments founded on a fresh world.
type Seeding struct {
	Count       int `yaml:"count" validate:"gte=0,lte=1000"`
	MinDistance int `yaml:"min_distance" validate:"gte=1"`
	Reach       int `yaml:"reach" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:  "data/polity.db",
		APIPort: 8080,
		Seed:    42,
		Generation: Generation{
			Radius:   22,
			HexSize:  1,
			SeaLevel: 0.25,
		},
		Territory: Territory{
			MaxDepth:      64,
			AreaTolerance: 1e-9,
		},
		Seeding: Seeding{
			Count:       6,
			MinDistance: 6,
			Reach:       8,
		},
		BulkWorkers:   8,
		TickInterval:  time.Second,
		AutosaveTicks: 1440,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

var validate = validator.New()

// Load builds the configuration. path names an optional YAML file; an
// empty path skips it. A .env file in the working directory is read if
// present, without overriding variables already set.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WORLDSIM_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("WORLDSIM_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORLDSIM_API_PORT: %w", err)
		}
		c.APIPort = port
	}
	if v := os.Getenv("WORLDSIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("WORLDSIM_SEED: %w", err)
		}
		c.Seed = seed
	}
	if v := os.Getenv("WORLDSIM_WATER_SOURCE"); v != "" {
		c.WaterSource = v
	}
	c.AdminKey = os.Getenv("WORLDSIM_ADMIN_KEY")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = strings.ToLower(v)
	}
	return nil
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger described by the configuration.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
