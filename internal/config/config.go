// Package config loads blockgrid settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"blockgrid/internal/autoscroll"
	"blockgrid/internal/domain"
	"blockgrid/internal/zone"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMongo    = "mongodb"
)

type Config struct {
	Layout     Layout     `toml:"layout"`
	AutoScroll AutoScroll `toml:"autoscroll"`
	Storage    Storage    `toml:"storage"`
	Undo       Undo       `toml:"undo"`
	MCP        MCP        `toml:"mcp"`
}

// Layout holds the drop thresholds and row limits.
type Layout struct {
	EdgeThresholdPx float64 `toml:"edge_threshold_px"`
	MaxColumns      int     `toml:"max_columns"`
	MinColumnWidth  float64 `toml:"min_column_width"`
}

type AutoScroll struct {
	EdgeZonePx float64 `toml:"edge_zone_px"`
	MaxStepPx  float64 `toml:"max_step_px"`
	IntervalMs int     `toml:"interval_ms"`
}

// Storage selects the document store. DSN is a file path for sqlite and a
// connection string otherwise; Database names the mongodb database.
type Storage struct {
	Driver   string `toml:"driver"`
	DSN      string `toml:"dsn"`
	Database string `toml:"database"`
}

type Undo struct {
	MaxNodes      int    `toml:"max_nodes"`
	PruneSchedule string `toml:"prune_schedule"`
}

type MCP struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in settings. The sqlite file lives in the user
// config directory.
func Default() Config {
	lim := domain.DefaultLimits()
	scroll := autoscroll.DefaultConfig()
	return Config{
		Layout: Layout{
			EdgeThresholdPx: zone.DefaultConfig().EdgeThresholdPx,
			MaxColumns:      lim.MaxColumns,
			MinColumnWidth:  lim.MinColumnWidth,
		},
		AutoScroll: AutoScroll{
			EdgeZonePx: scroll.EdgeZonePx,
			MaxStepPx:  scroll.MaxStepPx,
			IntervalMs: int(scroll.Interval / time.Millisecond),
		},
		Storage: Storage{Driver: DriverSQLite, DSN: filepath.Join(DataDir(), "blockgrid.db")},
		Undo:    Undo{MaxNodes: 40, PruneSchedule: "@every 10m"},
		MCP:     MCP{Enabled: true},
	}
}

// DataDir returns the application data directory.
func DataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "blockgrid")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every out-of-range setting.
func (c Config) Validate() error {
	var err error
	if c.Layout.EdgeThresholdPx <= 0 {
		err = multierr.Append(err, fmt.Errorf("layout.edge_threshold_px must be positive, got %v", c.Layout.EdgeThresholdPx))
	}
	if c.Layout.MaxColumns < 2 {
		err = multierr.Append(err, fmt.Errorf("layout.max_columns must be at least 2, got %d", c.Layout.MaxColumns))
	}
	if c.Layout.MinColumnWidth <= 0 || c.Layout.MinColumnWidth >= 0.5 {
		err = multierr.Append(err, fmt.Errorf("layout.min_column_width must be in (0, 0.5), got %v", c.Layout.MinColumnWidth))
	} else if c.Layout.MaxColumns >= 2 && float64(c.Layout.MaxColumns)*c.Layout.MinColumnWidth > 1+domain.WidthEpsilon {
		err = multierr.Append(err, fmt.Errorf("layout: %d columns of %v do not fit in one row", c.Layout.MaxColumns, c.Layout.MinColumnWidth))
	}
	if c.AutoScroll.EdgeZonePx <= 0 {
		err = multierr.Append(err, fmt.Errorf("autoscroll.edge_zone_px must be positive, got %v", c.AutoScroll.EdgeZonePx))
	}
	if c.AutoScroll.MaxStepPx < 1 {
		err = multierr.Append(err, fmt.Errorf("autoscroll.max_step_px must be at least 1, got %v", c.AutoScroll.MaxStepPx))
	}
	if c.AutoScroll.IntervalMs <= 0 {
		err = multierr.Append(err, fmt.Errorf("autoscroll.interval_ms must be positive, got %d", c.AutoScroll.IntervalMs))
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	case DriverMongo:
		if c.Storage.Database == "" {
			err = multierr.Append(err, errors.New("storage.database is required for mongodb"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("storage.driver %q is not one of sqlite, postgres, mysql, mongodb", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		err = multierr.Append(err, errors.New("storage.dsn is required"))
	}
	if c.Undo.MaxNodes < 1 {
		err = multierr.Append(err, fmt.Errorf("undo.max_nodes must be at least 1, got %d", c.Undo.MaxNodes))
	}
	return err
}

// Limits returns the structural limits for the tree mutator.
func (c Config) Limits() domain.Limits {
	return domain.Limits{MaxColumns: c.Layout.MaxColumns, MinColumnWidth: c.Layout.MinColumnWidth}
}

// Zone returns the classifier thresholds.
func (c Config) Zone() zone.Config {
	return zone.Config{EdgeThresholdPx: c.Layout.EdgeThresholdPx, MaxColumns: c.Layout.MaxColumns}
}

// Scroll returns the autoscroll settings.
func (c Config) Scroll() autoscroll.Config {
	return autoscroll.Config{
		EdgeZonePx: c.AutoScroll.EdgeZonePx,
		MaxStepPx:  c.AutoScroll.MaxStepPx,
		Interval:   time.Duration(c.AutoScroll.IntervalMs) * time.Millisecond,
	}
}
