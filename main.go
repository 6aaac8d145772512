package main

import (
	"embed"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"

	gridApp "blockgrid/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// `blockgrid mcp` serves the MCP tools on stdio without a window.
	if len(os.Args) > 1 && os.Args[1] == "mcp" {
		gridApp.ServeMCP()
		return
	}

	app := gridApp.New()

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	err := wails.Run(&options.App{
		Title:     "Blockgrid",
		Width:     1280,
		Height:    900,
		MinWidth:  640,
		MinHeight: 480,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		OnStartup:        app.Startup,
		OnShutdown:       app.Shutdown,
		Bind: []interface{}{
			app,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				FullSizeContent:            true,
			},
			About: &mac.AboutInfo{
				Title:   "Blockgrid",
				Message: "Block editor with drag-and-drop columns",
			},
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
