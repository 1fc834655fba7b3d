package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"investigation-sync/internal/bridge"
	"investigation-sync/internal/investigation"
	"investigation-sync/internal/page"
	"investigation-sync/internal/platform/config"
	"investigation-sync/internal/platform/logger"
	"investigation-sync/internal/platform/metrics"
	"investigation-sync/internal/playback"
	"investigation-sync/internal/session"
	"investigation-sync/internal/timeline"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	dataPath := config.GetEnv("INVESTIGATION_CONFIG", "investigation.yaml")
	sheetURL := config.GetEnv("TIMELINE_SHEET_URL", "")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	tuning := playback.Tuning{
		ResyncInterval: config.GetEnvDuration("RESYNC_INTERVAL", 0),
		DriftTolerance: config.GetEnvFloat("DRIFT_TOLERANCE", 0),
		SettleDelay:    config.GetEnvDuration("SEEK_SETTLE_DELAY", 0),
	}
	stopCooldown := config.GetEnvDuration("STOP_COOLDOWN", session.DefaultStopCooldown)

	log := logger.New(logLevel, logFormat)

	data, err := investigation.LoadFile(dataPath)
	if err != nil {
		log.Error("failed to load investigation config", "path", dataPath, "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	state := session.NewState(stopCooldown)
	hub := bridge.NewHub(log)

	p := page.New(data, state, tuning, hub.Factory(), log, met)
	defer p.Close()
	hub.SetPage(p)

	loadMargin := config.GetEnvFloat("LOAD_MARGIN", session.DefaultLoadMargin)
	visibleThreshold := config.GetEnvFloat("VISIBLE_THRESHOLD", session.DefaultVisibleThreshold)
	for _, ev := range data.Events {
		if m, ok := p.Mount(ev.ID); ok {
			m.Controller().SetThresholds(loadMargin, visibleThreshold)
		}
	}

	ph := page.NewHandler(p, log)
	th := timeline.NewHandler(timeline.NewFetcher(sheetURL, config.GetEnvDuration("TIMELINE_FETCH_TIMEOUT", 10*time.Second)), log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			met.SetMountedEvents(p.MountedCount())
			met.SetConnectedSurfaces(hub.ConnectedCount())
		}).ServeHTTP(w, r)
	})
	ph.Routes(r)
	th.Routes(r)
	hub.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"events", len(data.Events),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
