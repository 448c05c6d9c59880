package main

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.aimuz.me/filipimo/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	service := app.New(version)

	wailsApp := application.New(application.Options{
		Name:        "Filipimo",
		Description: "Speech and photo translation for travelers",
		Services: []application.Service{
			application.NewService(service),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		OnShutdown: service.Shutdown,
		Mac: application.MacOptions{
			// Keep running in the tray when the window is closed.
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	mainWindow := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "Filipimo",
		Width:  480,
		Height: 720,
		URL:    "/",
		Mac: application.MacWindow{
			TitleBar:                application.MacTitleBarHiddenInsetUnified,
			InvisibleTitleBarHeight: 38,
		},
	})

	// Hide instead of destroy so the tray can reopen the window.
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		mainWindow.Hide()
	})

	service.Init(wailsApp, mainWindow)

	trayMenu := wailsApp.NewMenu()
	trayMenu.Add("Show Window").OnClick(func(*application.Context) {
		mainWindow.Show()
		mainWindow.Focus()
	})
	trayMenu.Add("Start/Stop Listening").OnClick(func(*application.Context) {
		if err := service.ToggleListening(); err != nil {
			slog.Error("toggle listening from tray", "error", err)
		}
	})
	trayMenu.Add("Scan Screen").
		SetAccelerator("CmdOrCtrl+Shift+S").
		OnClick(func(*application.Context) {
			go func() {
				if err := service.ScanScreen(); err != nil {
					slog.Error("scan screen from tray", "error", err)
				}
			}()
		})
	trayMenu.Add("Swap Languages").OnClick(func(*application.Context) {
		if err := service.ToggleDirection(); err != nil {
			slog.Error("swap languages from tray", "error", err)
		}
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(*application.Context) {
			wailsApp.Quit()
		})

	systemTray := wailsApp.SystemTray.New()
	systemTray.SetLabel("Filipimo")
	systemTray.SetMenu(trayMenu)

	if err := wailsApp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
