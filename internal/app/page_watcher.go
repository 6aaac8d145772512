package app

import (
	"context"
	"sync"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// pageWatcher polls storage for changes to the active page made by another
// process (e.g. the standalone MCP server) and for approvals it is waiting
// on, and tells the frontend.
type pageWatcher struct {
	ctx    context.Context
	app    *App
	mu     sync.Mutex
	pageID string
	stopCh chan struct{}
	// Track emitted approval IDs to avoid infinite re-emission
	emittedApprovals map[string]bool
}

func newPageWatcher(ctx context.Context, app *App) *pageWatcher {
	return &pageWatcher{ctx: ctx, app: app, emittedApprovals: map[string]bool{}}
}

// SetPage updates the watched page ID. Called when user navigates to a page.
func (w *pageWatcher) SetPage(pageID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pageID = pageID
}

// Start begins the polling loop. Should be called once on app startup.
func (w *pageWatcher) Start() {
	w.stopCh = make(chan struct{})
	go w.pollLoop(w.stopCh)
}

// Stop terminates the polling loop.
func (w *pageWatcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
		w.stopCh = nil
	}
}

func (w *pageWatcher) pollLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-stop:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *pageWatcher) check() {
	w.mu.Lock()
	pageID := w.pageID
	w.mu.Unlock()

	// ── Active page ────────────────────────────────────
	// Reload emits layout:tree-changed itself when the tree differs.
	if pageID != "" {
		changed, err := w.app.layout.Reload(pageID)
		if err != nil {
			w.app.logger.Debug("reload skipped", "page", pageID, "err", err)
		} else if changed {
			wailsRuntime.EventsEmit(w.ctx, "mcp:activity", map[string]any{"changes": 1, "pageId": pageID})
		}
	}

	// ── Pending MCP approvals (cross-process IPC) ──────
	pending, err := w.app.stores.approvals.Pending()
	if err != nil {
		return
	}
	live := make(map[string]bool, len(pending))
	for _, p := range pending {
		live[p.ID] = true
		w.mu.Lock()
		alreadySent := w.emittedApprovals[p.ID]
		w.emittedApprovals[p.ID] = true
		w.mu.Unlock()
		if alreadySent {
			continue
		}
		wailsRuntime.EventsEmit(w.ctx, "mcp:approval-required", map[string]string{
			"id":          p.ID,
			"tool":        p.Tool,
			"description": p.Description,
			"createdAt":   p.CreatedAt.Format(time.RFC3339),
			"metadata":    p.Metadata,
		})
	}

	// Forget approvals that were resolved or deleted.
	w.mu.Lock()
	for id := range w.emittedApprovals {
		if !live[id] {
			delete(w.emittedApprovals, id)
		}
	}
	w.mu.Unlock()
}
