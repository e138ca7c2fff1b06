package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("[App] config error: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("[App] startup error: %v", err)
	}

	// Create application with options
	err = wails.Run(&options.App{
		Title:         "RaidTick",
		Width:         320,
		Height:        180,
		StartHidden:   false,
		Frameless:     true,
		AlwaysOnTop:   true,
		DisableResize: false,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 20, G: 20, B: 20, A: 255},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Windows: &windows.Options{
			DisableWindowIcon: true,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
