package service_test

import (
	"path/filepath"
	"testing"

	"blockgrid/internal/service"
	"blockgrid/internal/storage"
)

func TestWindowSettings_RoundTrip(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := service.NewWindowSettingsService(storage.NewSettingsStore(db))

	if got := s.LoadWindowSize(); got.Width != 1280 || got.Height != 900 {
		t.Errorf("default size = %+v", got)
	}
	if err := s.SaveWindowSize(1000, 700); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadWindowSize(); got.Width != 1000 || got.Height != 700 {
		t.Errorf("saved size = %+v", got)
	}
	if err := s.SaveWindowSize(100, 100); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadWindowSize(); got.Width != 1280 || got.Height != 900 {
		t.Errorf("too small sizes should fall back, got %+v", got)
	}

	if s.LastPage() != "" {
		t.Error("expected no last page")
	}
	if err := s.SetLastPage("p1"); err != nil {
		t.Fatal(err)
	}
	if s.LastPage() != "p1" {
		t.Errorf("LastPage = %q", s.LastPage())
	}
}

func TestWindowSettings_NilStore(t *testing.T) {
	s := service.NewWindowSettingsService(nil)
	if got := s.LoadWindowSize(); got.Width != 1280 {
		t.Errorf("nil store size = %+v", got)
	}
	if err := s.SaveWindowSize(1, 1); err == nil {
		t.Error("expected error without a store")
	}
}
