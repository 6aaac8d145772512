package app

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"blockgrid/internal/config"
	"blockgrid/internal/logging"
	"blockgrid/internal/service"
	"blockgrid/internal/storage"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx    context.Context
	logger *log.Logger

	cfg    *config.Watcher
	stores *stores
	layout *service.LayoutService
	maint  *service.Maintenance
	window *service.WindowSettingsService
	pages  *pageWatcher
}

// New creates a new App.
func New() *App {
	return &App{logger: logging.New("app")}
}

// wailsEmitter forwards service events to the frontend.
type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	cfg := config.Default()
	w, err := config.NewWatcher(config.DefaultPath())
	if err != nil {
		a.logger.Warn("config not watched, using defaults", "err", err)
	} else {
		a.cfg = w
		cfg = w.Current()
	}

	st, err := openStores(cfg)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open storage: %v", err)
		return
	}
	a.stores = st
	a.layout = service.NewLayoutService(ctx, st.docs, st.undo, wailsEmitter{}, cfg)

	a.window = service.NewWindowSettingsService(storage.NewSettingsStore(st.db))
	size := a.window.LoadWindowSize()
	wailsRuntime.WindowSetSize(ctx, size.Width, size.Height)

	a.maint = service.NewMaintenance(st.undo, cfg.Undo.MaxNodes, wailsEmitter{})
	if err := a.maint.Start(ctx, cfg.Undo.PruneSchedule); err != nil {
		a.logger.Error("maintenance not scheduled", "err", err)
	}

	if a.cfg != nil {
		a.cfg.OnChange(func(c config.Config) {
			a.layout.SetConfig(c)
			wailsRuntime.EventsEmit(ctx, "config:changed", c)
		})
	}

	a.pages = newPageWatcher(ctx, a)
	a.pages.Start()
	a.logger.Info("started", "driver", cfg.Storage.Driver)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.pages != nil {
		a.pages.Stop()
	}
	if a.window != nil {
		w, h := wailsRuntime.WindowGetSize(ctx)
		if err := a.window.SaveWindowSize(w, h); err != nil {
			a.logger.Warn("save window size", "err", err)
		}
	}
	if a.layout != nil {
		a.layout.CloseAll()
	}
	if a.maint != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		a.maint.Stop(stopCtx)
		cancel()
	}
	if a.cfg != nil {
		a.cfg.Close()
	}
	if a.stores != nil {
		if err := a.stores.Close(); err != nil {
			a.logger.Warn("close storage", "err", err)
		}
	}
}

// GetConfig returns the settings in effect for newly opened pages.
func (a *App) GetConfig() config.Config {
	return a.layout.Config()
}

// LastPage returns the page open when the app last closed, or "".
func (a *App) LastPage() string {
	return a.window.LastPage()
}
