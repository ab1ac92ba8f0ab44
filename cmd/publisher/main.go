package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/becomap/becomap-go/internal/adapters/nats"
	"github.com/becomap/becomap-go/internal/adapters/postgres"
	"github.com/becomap/becomap-go/internal/adapters/valkey"
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/internal/core/usecases"
	"github.com/becomap/becomap-go/internal/pkg/config"
	"github.com/becomap/becomap-go/internal/workflows"
)

func main() {
	cfg, err := config.Load("mapsim-publisher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns))
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	sites := postgres.NewSiteRepo(db)
	locations := postgres.NewLocationRepo(db)
	categories := postgres.NewCategoryRepo(db)
	connectors := postgres.NewConnectorRepo(db)

	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Password)
	if err != nil {
		log.Printf("WARNING: valkey unavailable, publishes skip cache invalidation: %v", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Printf("WARNING: nats unavailable, announces are dropped: %v", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	venues := usecases.NewVenueService(sites, locations, categories, cacheSvc)
	publish := usecases.NewPublishService(sites, locations, categories, connectors, venues, publisher)

	// Session telemetry rides in this binary: a durable consumer drains
	// the work queue while the worker waits for publishes.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Printf("WARNING: session analytics disabled: %v", err)
	} else {
		defer sub.Close()
		if err := sub.SubscribeSessionEvents(ctx, logSessionEvent); err != nil {
			log.Printf("WARNING: subscribe session events: %v", err)
		}
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.PublishWorkflow)
	w.RegisterActivity(&workflows.PublishActivities{
		Publish: publish,
		Sites:   sites,
	})

	log.Printf("publish worker started on queue %s", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func logSessionEvent(ctx context.Context, ev *domain.SessionEvent) error {
	switch ev.Kind {
	case domain.SessionError:
		log.Printf("session %s: %s during %s (%s) site=%s",
			ev.SessionID, ev.Kind, ev.Operation, ev.ErrorCode, ev.SiteID)
	case domain.SessionOperation:
		log.Printf("session %s: %s site=%s", ev.SessionID, ev.Operation, ev.SiteID)
	default:
		log.Printf("session %s: %s site=%s", ev.SessionID, ev.Kind, ev.SiteID)
	}
	return nil
}
