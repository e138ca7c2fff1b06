package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"raidtick/internal/api"
	"raidtick/internal/data"
	"raidtick/internal/eqlog"
	"raidtick/internal/overlay"
	"raidtick/internal/submit"
	"raidtick/internal/watcher"
)

// App struct
type App struct {
	ctx context.Context
	cfg Config

	client    *api.Client
	hub       *overlay.Hub
	lotto     *overlay.LottoState
	positions *data.PositionStore

	overlaySrv *http.Server

	mu      sync.Mutex
	session *watcher.Session

	windowVisible bool
}

// NewApp creates a new App application struct
func NewApp(cfg Config) (*App, error) {
	client, err := api.NewClient(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	return &App{
		cfg:           cfg,
		client:        client,
		hub:           overlay.NewHub(),
		lotto:         overlay.NewLottoState(),
		windowVisible: true,
	}, nil
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	positions, err := data.NewPositionStore()
	if err != nil {
		log.Printf("[App] position store unavailable, sessions will not resume: %v", err)
	} else {
		a.positions = positions
	}

	if a.cfg.OverlayAddr != "" {
		a.startOverlayServer()
	}

	a.registerHotkey()
}

// shutdown is called when the app is closing
func (a *App) shutdown(ctx context.Context) {
	a.StopWatching()

	if a.overlaySrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.overlaySrv.Shutdown(shutdownCtx)
	}
	a.hub.Close()

	if a.positions != nil {
		a.positions.Close()
	}
}

// startOverlayServer serves the WebSocket feed for external overlay clients.
func (a *App) startOverlayServer() {
	mux := http.NewServeMux()
	mux.Handle("/ws", a.hub.Handler())

	a.overlaySrv = &http.Server{Addr: a.cfg.OverlayAddr, Handler: mux}
	go func() {
		log.Printf("[App] overlay feed listening on %s", a.cfg.OverlayAddr)
		if err := a.overlaySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[App] overlay server stopped: %v", err)
		}
	}()
}

// ListLogFiles returns the EverQuest log files in a directory, newest
// first. An empty dir falls back to the configured Logs directory.
func (a *App) ListLogFiles(dir string) []eqlog.LogFileInfo {
	if dir == "" {
		dir = a.cfg.LogDir
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[App] failed to read log directory %s: %v", dir, err)
		return nil
	}

	type dated struct {
		info eqlog.LogFileInfo
		mod  time.Time
	}
	var found []dated
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := eqlog.ParseLogFileName(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		mod := time.Time{}
		if fi, err := e.Info(); err == nil {
			mod = fi.ModTime()
		}
		found = append(found, dated{info: info, mod: mod})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })

	out := make([]eqlog.LogFileInfo, len(found))
	for i, d := range found {
		out[i] = d.info
	}
	return out
}

// StartWatching begins deriving raid events from a log file. Any previous
// session is stopped first.
func (a *App) StartWatching(raidID, logPath string) map[string]interface{} {
	info, err := eqlog.ParseLogFileName(logPath)
	if err != nil {
		return map[string]interface{}{"ok": false, "error": err.Error()}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		a.session.Stop()
		a.session = nil
	}

	cfg := watcher.Config{
		RaidID:        raidID,
		LogPath:       logPath,
		CharacterName: info.CharacterName,
		ServerName:    info.ServerName,
		Submit: submit.Config{
			AttendanceCooldown: a.cfg.AttendanceCooldown,
			LootCooldown:       a.cfg.LootCooldown,
		},
	}

	if a.positions != nil {
		cfg.Positions = a.positions
		if pos, ok, err := a.positions.Get(info.FileName); err == nil && ok {
			cfg.Offset = pos.Offset
			cfg.StartAt = pos.Watermark
			log.Printf("[App] resuming %s at offset %d", info.FileName, pos.Offset)
		}
	}

	session, err := watcher.New(cfg, a.client, &uiNotifier{app: a})
	if err != nil {
		return map[string]interface{}{"ok": false, "error": err.Error()}
	}
	if err := session.Start(); err != nil {
		return map[string]interface{}{"ok": false, "error": err.Error()}
	}

	a.session = session
	log.Printf("[App] watching %s for raid %s (%s on %s)",
		logPath, raidID, info.CharacterName, info.ServerName)

	return map[string]interface{}{
		"ok":        true,
		"character": info.CharacterName,
		"server":    info.ServerName,
	}
}

// StopWatching ends the current session, if any.
func (a *App) StopWatching() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		a.session.Stop()
		a.session = nil
	}
}

// GetStatus returns the current watching state for the frontend.
func (a *App) GetStatus() map[string]interface{} {
	a.mu.Lock()
	session := a.session
	a.mu.Unlock()

	if session == nil || !session.Active() {
		return map[string]interface{}{"watching": false}
	}
	return map[string]interface{}{
		"watching":   true,
		"queuedLoot": session.Scheduler().QueuedLoot(),
		"overlay":    a.hub.Clients(),
	}
}

// GetLootHistory returns the recent lottery results for the overlay.
func (a *App) GetLootHistory() []overlay.HistoryEntry {
	return a.lotto.History()
}
