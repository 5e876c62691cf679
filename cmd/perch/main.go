package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/perchapp/perch/internal/bluesky"
	"github.com/perchapp/perch/internal/bridge"
	"github.com/perchapp/perch/internal/config"
	"github.com/perchapp/perch/internal/feed"
	"github.com/perchapp/perch/internal/logging"
	"github.com/perchapp/perch/internal/session"
	"github.com/perchapp/perch/internal/store"
	"github.com/perchapp/perch/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	closer, err := logging.Setup(cfg.Storage.LogPath, cfg.Storage.LogLevel)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closer.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := store.RunMigrations(cfg.Storage.DatabasePath); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	cache, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer cache.Close()

	restored, err := session.Load()
	if err != nil {
		log.Printf("warn: ignoring session cache: %v", err)
		restored = nil
	}

	var live *bluesky.Client
	if restored != nil {
		live = bluesky.NewClientWithSession(nil, *restored)
	} else {
		live = bluesky.NewClient(nil)
	}

	dispatcher := bridge.NewDispatcher(probeFor(cfg.Bluesky.Transport, live), bridge.NewMock())

	deps := tui.Deps{
		Transport:   dispatcher,
		Store:       cache,
		SessionInfo: func() *feed.Session { return live.Session() },
	}

	p := tea.NewProgram(tui.New(ctx, cfg, deps, restored), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// probeFor builds the per-call capability check. offline never offers
// the live transport, online always does, and auto re-reads
// PERCH_OFFLINE on every call so the capability can flip mid-session.
func probeFor(mode string, live bridge.Transport) bridge.Probe {
	switch mode {
	case config.ModeOffline:
		return func() bridge.Transport { return nil }
	case config.ModeOnline:
		return func() bridge.Transport { return live }
	default:
		return func() bridge.Transport {
			if os.Getenv("PERCH_OFFLINE") != "" {
				return nil
			}
			return live
		}
	}
}
