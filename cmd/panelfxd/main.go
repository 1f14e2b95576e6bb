// Command panelfxd runs the panel-array lighting engine: it ticks the
// effect runner at the configured frame rate, fans frames out to the
// Art-Net sink and the WebSocket state broadcaster, and serves the
// command protocol and the auxiliary HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rgbcct/panelfx/internal/artnet"
	"github.com/rgbcct/panelfx/internal/broadcaster"
	"github.com/rgbcct/panelfx/internal/colormanager"
	"github.com/rgbcct/panelfx/internal/command"
	"github.com/rgbcct/panelfx/internal/config"
	"github.com/rgbcct/panelfx/internal/engine"
	"github.com/rgbcct/panelfx/internal/grid"
	"github.com/rgbcct/panelfx/internal/httpapi"
	"github.com/rgbcct/panelfx/internal/logger"
	"github.com/rgbcct/panelfx/internal/presets"
)

func main() {
	installDir := config.InstallDir()

	debugMode := os.Getenv("PANELFX_DEBUG") == "true"
	dataDir := os.Getenv("PANELFX_DATA_DIR")
	if dataDir == "" {
		dataDir = installDir
	}

	log, err := logger.New(debugMode, dataDir)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	cfgManager := config.NewManager(installDir, log)
	cfg := cfgManager.Load()
	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}

	g := grid.New(cfg.Engine.Columns, cfg.Engine.RowsPerColumn, cfg.Engine.InitialTopology)
	colors := colormanager.New(log)
	colors.LoadPresetsFromConfig(cfg.Presets)

	eng := engine.New(g, colors, cfg.Engine.TargetFPS, log)

	artOut, err := artnet.New(cfg.ArtNet, log)
	if err != nil {
		log.Error("failed to start artnet sink: %v", err)
	} else {
		eng.AddOutput(artOut)
	}

	bcast := broadcaster.New(log, eng.CurrentEffectName)
	eng.AddOutput(bcast)

	presetPath := filepath.Join(dataDir, "presets.json")
	presetManager := presets.New(presetPath, log)
	if err := presetManager.Load(); err != nil {
		log.Error("failed to load preset store: %v", err)
	}

	cmdServer := command.New(eng, colors, g, presetManager, bcast, log)

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("websocket upgrade failed: %v", err)
			return
		}
		cmdServer.HandleConnection(conn)
	})
	wsServer := &http.Server{
		Addr:    formatPort(cfg.Protocol.CommandPort),
		Handler: wsMux,
	}

	router := httpapi.NewRouter(eng, presetManager, cfgManager, log)
	httpServer := &http.Server{
		Addr:    formatPort(cfg.Protocol.HTTPPort),
		Handler: router,
	}

	eng.Start()
	log.Info("engine started: %d panels at %d FPS", g.N(), cfg.Engine.TargetFPS)

	go func() {
		log.Info("command server listening on %s", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("command server stopped: %v", err)
		}
	}()
	go func() {
		log.Info("http api listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http api stopped: %v", err)
		}
	}()

	waitForShutdown()

	log.Info("shutting down")
	eng.Stop()
	bcast.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = wsServer.Shutdown(ctx)
	_ = httpServer.Shutdown(ctx)

	if artOut != nil {
		if err := artOut.Close(); err != nil {
			log.Error("artnet close: %v", err)
		}
	}

	os.Exit(0)
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func formatPort(port int) string {
	if port <= 0 {
		port = 8080
	}
	return ":" + strconv.Itoa(port)
}
