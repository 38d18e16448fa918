package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"trenchline/internal/api"
	"trenchline/internal/config"
	"trenchline/internal/data"
	"trenchline/internal/game"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			// Environment-only configuration is fine.
		}
	}

	cfg, err := config.Load(os.Getenv("TRENCHLINE_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := buildLogger(cfg.Logging)
	defer log.Sync()

	modes, err := data.LoadModeTable(os.Getenv("MODES_PATH"))
	if err != nil {
		log.Fatal("load modes", zap.Error(err))
	}
	hazards, err := data.LoadHazardTable(os.Getenv("HAZARDS_PATH"))
	if err != nil {
		log.Fatal("load hazards", zap.Error(err))
	}
	weapons, err := data.LoadWeaponTable(os.Getenv("WEAPONS_PATH"))
	if err != nil {
		log.Fatal("load weapons", zap.Error(err))
	}

	audit := game.NewAuditLog()
	if err := audit.Start(cfg.Debug.EventLogPath); err != nil {
		log.Warn("audit log disabled", zap.Error(err))
	}

	extraOrigins := splitList(os.Getenv("GAME_ALLOWED_ORIGINS"))
	hub := api.NewHub(cfg, log, extraOrigins)
	metrics := api.NewMetrics()

	manager := game.NewRoomManager(game.Deps{
		Cfg:     cfg,
		Log:     log,
		Modes:   modes,
		Hazards: hazards,
		Weapons: weapons,
		Audit:   audit,
		Pub:     hub,
		Obs:     metrics,
	})
	hub.SetManager(manager)

	api.StartDebugServer(api.ObservabilityConfig{
		Enabled:    os.Getenv("DISABLE_DEBUG_SERVER") != "true",
		ListenAddr: cfg.Debug.MetricsAddr,
	}, log)

	go func() {
		var lastDropped uint64
		for range time.Tick(5 * time.Second) {
			api.UpdateRoomCount(manager.Count())
			if d := audit.DroppedCount(); d > lastDropped {
				api.AddAuditDropped(d - lastDropped)
				lastDropped = d
			}
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Cfg:     cfg,
		Manager: manager,
		Hub:     hub,
		Modes:   modes,
		Weapons: weapons,
		Audit:   audit,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		RateLimitOff: !cfg.RateLimit.Enabled,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.Int("tickRate", cfg.Sim.TickRate),
			zap.Int("snapshotRate", cfg.Sim.SnapshotRate),
			zap.Strings("modes", modes.Names()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	manager.Shutdown()
	audit.Stop()
	log.Info("goodbye")
}

func buildLogger(lc config.LoggingConfig) *zap.Logger {
	level := zapcore.InfoLevel
	if err := level.Set(lc.Level); err != nil {
		level = zapcore.InfoLevel
	}
	var zc zap.Config
	if lc.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
