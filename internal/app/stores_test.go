package app

import (
	"path/filepath"
	"testing"

	"blockgrid/internal/config"
	"blockgrid/internal/domain"
)

func TestOpenStores_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DSN = filepath.Join(t.TempDir(), "app.db")

	st, err := openStores(cfg)
	if err != nil {
		t.Fatalf("openStores: %v", err)
	}
	defer st.Close()

	doc := domain.Document{PageID: "p", Items: []domain.Node{domain.Block{ID: "a"}}}
	if err := st.docs.SaveDocument(&doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if _, err := st.undo.Push("p", "open", doc); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if pending, err := st.approvals.Pending(); err != nil || len(pending) != 0 {
		t.Errorf("Pending = %v, %v", pending, err)
	}
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "oracle"
	if _, err := openStores(cfg); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestParseZone(t *testing.T) {
	tests := map[string]domain.Zone{
		"before": domain.ZoneBefore,
		"left":   domain.ZoneLeft,
		"right":  domain.ZoneRight,
		"after":  domain.ZoneAfter,
		"":       domain.ZoneAfter,
	}
	for in, want := range tests {
		if got := parseZone(in); got != want {
			t.Errorf("parseZone(%q) = %s, want %s", in, got, want)
		}
	}
}
