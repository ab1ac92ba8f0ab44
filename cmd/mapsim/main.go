package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/becomap/becomap-go/internal/adapters/http"
	"github.com/becomap/becomap-go/internal/adapters/memory"
	natsadapter "github.com/becomap/becomap-go/internal/adapters/nats"
	"github.com/becomap/becomap-go/internal/adapters/postgres"
	"github.com/becomap/becomap-go/internal/adapters/valkey"
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/internal/core/usecases"
	"github.com/becomap/becomap-go/internal/pkg/config"
	"github.com/becomap/becomap-go/internal/pkg/logging"
	"github.com/becomap/becomap-go/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("mapsim")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("mapsim", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Venue data: Postgres when enabled, otherwise bundle files served
	// from memory.
	var (
		db         *postgres.DB
		sites      ports.SiteRepository
		locations  ports.LocationRepository
		categories ports.CategoryRepository
	)
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns))
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		sites = postgres.NewSiteRepo(db)
		locations = postgres.NewLocationRepo(db)
		categories = postgres.NewCategoryRepo(db)
	} else {
		store := memory.NewStore()
		loaded, err := loadBundles(store, cfg.Engine.BundleDir)
		if err != nil {
			log.Fatalf("load venue bundles: %v", err)
		}
		if loaded == 0 {
			slog.Warn("no venue bundles found", "dir", cfg.Engine.BundleDir)
		}
		slog.Info("running without a database", "bundles", loaded, "dir", cfg.Engine.BundleDir)
		sites = store
		locations = store.Locations()
		categories = store.Categories()
	}

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Password)
	if err != nil {
		slog.Warn("valkey unavailable, serving uncached", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, session events are dropped", "error", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Use cases
	venues := usecases.NewVenueService(sites, locations, categories, cacheSvc)
	search := usecases.NewSearchService(locations, categories)
	routes := usecases.NewRoutePlanner(venues, cacheSvc)
	sessions := usecases.NewSessionService(publisher, cfg.Engine.Version)

	deps := &http.Dependencies{
		Venues:   venues,
		Search:   search,
		Routes:   routes,
		Sessions: sessions,
		Bridge: http.BridgeConfig{
			InitDelay:   time.Duration(cfg.Engine.InitDelayMs) * time.Millisecond,
			MaxSessions: cfg.Engine.MaxSessions,
			APIKey:      cfg.Engine.APIKey,
		},
		NATS:  natsConn,
		DB:    db,
		Cache: cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Becomap Mapsim",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.becomap.dev",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	hub := http.SetupRoutes(app, deps)

	// Republished venues are fanned out to attached bridge sessions.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("refresh subscriber unavailable, live sessions will not see republishes", "error", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeSiteRefresh(ctx, hub.NotifySiteRefresh); err != nil {
			slog.Warn("subscribe site refresh", "error", err)
		}
	}

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("mapsim engine starting", "addr", addr, "engine_version", cfg.Engine.Version)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining sessions...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("engine stopped")
}

// loadBundles reads every venue bundle JSON file in dir into the store.
func loadBundles(store *memory.Store, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("read %s: %w", path, err)
		}
		var bundle domain.Bundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			return loaded, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := store.Load(&bundle); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		slog.Info("venue bundle loaded",
			"site", bundle.Site.ID, "version", bundle.Site.Version, "file", e.Name())
		loaded++
	}
	return loaded, nil
}
