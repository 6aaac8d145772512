package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	d := Default()
	if d.Layout.MaxColumns != 5 || d.Layout.MinColumnWidth != 0.10 || d.Layout.EdgeThresholdPx != 64 {
		t.Errorf("unexpected layout defaults: %+v", d.Layout)
	}
	if d.Scroll().Interval != 16*time.Millisecond {
		t.Errorf("interval = %v, want 16ms", d.Scroll().Interval)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout != Default().Layout {
		t.Errorf("expected defaults, got %+v", cfg.Layout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[layout]
edge_threshold_px = 40
max_columns = 4

[storage]
driver = "postgres"
dsn = "postgres://localhost/blockgrid?sslmode=disable"

[undo]
prune_schedule = "@hourly"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.EdgeThresholdPx != 40 || cfg.Layout.MaxColumns != 4 {
		t.Errorf("layout = %+v", cfg.Layout)
	}
	if cfg.Layout.MinColumnWidth != 0.10 {
		t.Errorf("unset key should keep default, got %v", cfg.Layout.MinColumnWidth)
	}
	if cfg.Storage.Driver != DriverPostgres {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Undo.PruneSchedule != "@hourly" || cfg.Undo.MaxNodes != 40 {
		t.Errorf("undo = %+v", cfg.Undo)
	}
	if lim := cfg.Limits(); lim.MaxColumns != 4 {
		t.Errorf("Limits() = %+v", lim)
	}
	if z := cfg.Zone(); z.EdgeThresholdPx != 40 || z.MaxColumns != 4 {
		t.Errorf("Zone() = %+v", z)
	}
}

func TestLoad_BadSyntax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[layout\nmax_columns = ")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Layout.MaxColumns = 1
	cfg.Layout.EdgeThresholdPx = 0
	cfg.Storage.Driver = "redis"
	cfg.Undo.MaxNodes = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if n := len(multierr.Errors(err)); n != 4 {
		t.Errorf("expected 4 errors, got %d: %v", n, err)
	}
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"min width too large", func(c *Config) { c.Layout.MinColumnWidth = 0.5 }, "min_column_width"},
		{"columns do not fit", func(c *Config) { c.Layout.MaxColumns = 6; c.Layout.MinColumnWidth = 0.2 }, "do not fit"},
		{"mongo needs database", func(c *Config) { c.Storage.Driver = DriverMongo }, "storage.database"},
		{"empty dsn", func(c *Config) { c.Storage.DSN = "" }, "storage.dsn"},
		{"zero interval", func(c *Config) { c.AutoScroll.IntervalMs = 0 }, "interval_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BoundaryFits(t *testing.T) {
	cfg := Default()
	cfg.Layout.MaxColumns = 10
	cfg.Layout.MinColumnWidth = 0.1
	if err := cfg.Validate(); err != nil {
		t.Errorf("10 columns of 0.1 should fit: %v", err)
	}
}

func TestWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[layout]\nedge_threshold_px = 50\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if got := w.Current().Layout.EdgeThresholdPx; got != 50 {
		t.Fatalf("initial threshold = %v, want 50", got)
	}

	changed := make(chan Config, 4)
	w.OnChange(func(c Config) { changed <- c })

	writeFile(t, path, "[layout]\nedge_threshold_px = 80\n")
	select {
	case c := <-changed:
		if c.Layout.EdgeThresholdPx != 80 {
			t.Errorf("reloaded threshold = %v, want 80", c.Layout.EdgeThresholdPx)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
	if got := w.Current().Layout.EdgeThresholdPx; got != 80 {
		t.Errorf("Current threshold = %v, want 80", got)
	}
}

func TestWatcher_KeepsLastGoodConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[layout]\nmax_columns = 4\n")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	writeFile(t, path, "[layout]\nmax_columns = 1\n")
	time.Sleep(reloadDebounce + 200*time.Millisecond)
	if got := w.Current().Layout.MaxColumns; got != 4 {
		t.Errorf("MaxColumns = %d, want last good value 4", got)
	}
}
