package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	mcpserver "stylecanvas/internal/mcp"
	"stylecanvas/internal/server"
	"stylecanvas/internal/service"
	"stylecanvas/internal/storage"
)

func main() {
	var (
		cssPaths     = flag.String("css", "canvas.css", "comma-separated stylesheet paths to watch")
		documentPath = flag.String("document", "canvas-document.json", "canvas document path")
		listenAddr   = flag.String("listen", "127.0.0.1:7433", "websocket listen address")
		dataDir      = flag.String("data-dir", defaultDataDir(), "data directory for revision history (empty disables history)")
		remote       = flag.Bool("remote", false, "tune for remote filesystems: wider debounce, smaller file cap")
		snapshotCron = flag.String("snapshot", "@every 15m", "cron schedule for periodic snapshots (empty disables)")
		historyLimit = flag.Int("history-limit", 100, "revisions kept per document")
		mcpStdio     = flag.Bool("mcp", false, "also serve MCP tools on stdin/stdout")
		debounceMS   = flag.Int("debounce-ms", 300, "debounce window in milliseconds")
	)
	flag.Parse()

	cfg := service.DefaultConfig()
	cfg.Remote = *remote
	cfg.DebounceWindow = time.Duration(*debounceMS) * time.Millisecond

	watchPaths := splitPaths(*cssPaths)
	if len(watchPaths) == 0 {
		log.Fatal("main: at least one -css path is required")
	}
	cfg.DefaultStylesheet = watchPaths[0]

	docStore := storage.NewDocumentStore(*documentPath)

	var db *storage.DB
	var revisions *storage.RevisionStore
	if *dataDir != "" {
		var err error
		db, err = storage.New(filepath.Join(*dataDir, "stylecanvas.db"), *dataDir)
		if err != nil {
			log.Fatalf("main: open history db: %v", err)
		}
		defer db.Close()
		revisions = storage.NewRevisionStore(db, *historyLimit)
	}

	syncSvc, err := service.NewSyncService(cfg, docStore, revisions, nil, watchPaths)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	hub := server.NewHub(syncSvc)
	syncSvc.SetBroadcaster(hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := syncSvc.Start(ctx); err != nil {
		log.Fatalf("main: start sync: %v", err)
	}

	var snapshots *service.SnapshotService
	if revisions != nil && *snapshotCron != "" {
		snapshots = service.NewSnapshotService(syncSvc, revisions, *documentPath)
		if err := snapshots.Start(*snapshotCron); err != nil {
			log.Fatalf("main: %v", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	httpServer := &http.Server{Addr: *listenAddr, Handler: mux}

	go func() {
		log.Printf("main: observers connect at ws://%s/ws", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main: listen: %v", err)
		}
	}()

	if *mcpStdio {
		go func() {
			mcpSrv := mcpserver.New(mcpserver.Deps{Sync: syncSvc, Revisions: revisions})
			if err := mcpSrv.ServeStdio(); err != nil {
				log.Printf("main: mcp server exited: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Printf("main: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if snapshots != nil {
		snapshots.Stop(shutdownCtx)
	}
	syncSvc.Stop(shutdownCtx)
	hub.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("main: http shutdown: %v", err)
	}
}

func splitPaths(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".stylecanvas"
	}
	return filepath.Join(base, "stylecanvas")
}
