package service

import (
	"fmt"
	"strconv"
)

// ─────────────────────────────────────────────────────────────
// Window Settings Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main window size and the last open page between
// sessions, as rows in app_settings.

// SettingsStore is a key-value store. *storage.SettingsStore implements it.
type SettingsStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window state between sessions.
type WindowSettingsService struct {
	store SettingsStore
}

// NewWindowSettingsService creates a WindowSettingsService.
func NewWindowSettingsService(store SettingsStore) *WindowSettingsService {
	return &WindowSettingsService{store: store}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	settingLastPage     = "last_page"
	defaultWindowWidth  = 1280
	defaultWindowHeight = 900
	minWindowWidth      = 640
	minWindowHeight     = 480
)

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	w := s.intSetting(settingWindowWidth, defaultWindowWidth)
	h := s.intSetting(settingWindowHeight, defaultWindowHeight)
	if w < minWindowWidth {
		w = defaultWindowWidth
	}
	if h < minWindowHeight {
		h = defaultWindowHeight
	}
	return WindowSize{Width: w, Height: h}
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.store == nil {
		return fmt.Errorf("window settings: no store")
	}
	if err := s.store.Set(settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.store.Set(settingWindowHeight, strconv.Itoa(height))
}

// LastPage returns the page that was open when the app last closed.
func (s *WindowSettingsService) LastPage() string {
	if s.store == nil {
		return ""
	}
	v, _, _ := s.store.Get(settingLastPage)
	return v
}

func (s *WindowSettingsService) SetLastPage(pageID string) error {
	if s.store == nil {
		return fmt.Errorf("window settings: no store")
	}
	return s.store.Set(settingLastPage, pageID)
}

func (s *WindowSettingsService) intSetting(key string, def int) int {
	if s.store == nil {
		return def
	}
	v, ok, err := s.store.Get(key)
	if err != nil || !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
