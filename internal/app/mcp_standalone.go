package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"blockgrid/internal/config"
	"blockgrid/internal/logging"
	mcpserver "blockgrid/internal/mcp"
	"blockgrid/internal/service"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with no GUI.
// It opens the configured storage and runs until interrupted. Destructive
// tools wait for the desktop app to approve them through the database.
func ServeMCP() {
	logger := logging.New("mcp")
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		logger.Warn("config rejected, using defaults", "err", err)
	}
	if !cfg.MCP.Enabled {
		logger.Fatal("MCP server disabled in config")
	}

	st, err := openStores(cfg)
	if err != nil {
		logger.Fatal("Failed to open storage", "err", err)
	}
	defer st.Close()

	emitter := noopEmitter{}
	layoutSvc := service.NewLayoutService(ctx, st.docs, st.undo, emitter, cfg)
	defer layoutSvc.CloseAll()

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:   emitter,
		Layout:    layoutSvc,
		Approvals: st.approvals,
	})

	if err := mcpSrv.ServeStdio(); err != nil {
		logger.Error("MCP server error", "err", err)
	}
}
