package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	natsadapter "github.com/becomap/becomap-go/internal/adapters/nats"
	"github.com/becomap/becomap-go/internal/adapters/postgres"
	"github.com/becomap/becomap-go/internal/adapters/valkey"
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/internal/core/usecases"
	"github.com/becomap/becomap-go/internal/pkg/config"
)

// ---------------------------------------------------------------------------
// Manifest types
// ---------------------------------------------------------------------------

type Manifest struct {
	Source string       `json:"source"`
	Venues []VenueEntry `json:"venues"`
}

// VenueEntry points at one bundle, either a local file or a URL.
type VenueEntry struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	BundlePath string `json:"bundle_path,omitempty"`
	BundleURL  string `json:"bundle_url,omitempty"`
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	cfg, err := config.Load("mapsim-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns))
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	sites := postgres.NewSiteRepo(db)
	locations := postgres.NewLocationRepo(db)
	categories := postgres.NewCategoryRepo(db)
	connectors := postgres.NewConnectorRepo(db)

	// Dropping shared cache entries needs the same valkey the engines use.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Password)
	if err != nil {
		log.Printf("WARNING: valkey unavailable, cached reads stay stale until TTL: %v", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Printf("WARNING: nats unavailable, live sessions will not see these bundles: %v", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	venues := usecases.NewVenueService(sites, locations, categories, cacheSvc)
	publish := usecases.NewPublishService(sites, locations, categories, connectors, venues, publisher)

	// Load manifest
	manifestPath := "manifest.json"
	if len(os.Args) > 1 {
		manifestPath = os.Args[1]
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("read manifest: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		log.Fatalf("parse manifest: %v", err)
	}

	log.Printf("Becomap Venue Ingestor — %d venues from %s", len(manifest.Venues), manifest.Source)

	// Filter venues (optional CLI arg: slug list)
	slugFilter := map[string]bool{}
	if len(os.Args) > 2 {
		for _, s := range strings.Split(os.Args[2], ",") {
			slugFilter[strings.TrimSpace(s)] = true
		}
	}

	client := &http.Client{Timeout: 120 * time.Second}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 4) // max 4 concurrent fetches

	for _, venue := range manifest.Venues {
		if len(slugFilter) > 0 && !slugFilter[venue.Slug] {
			continue
		}

		wg.Add(1)
		go func(v VenueEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ingestVenue(ctx, publish, sites, client, v); err != nil {
				log.Printf("ERROR [%s]: %v", v.Slug, err)
			}
		}(venue)
	}

	wg.Wait()
	log.Println("ingestion complete")
}

// ---------------------------------------------------------------------------
// Per-venue ingestion
// ---------------------------------------------------------------------------

func ingestVenue(ctx context.Context, publish *usecases.PublishService, sites ports.SiteRepository, client *http.Client, v VenueEntry) error {
	bundle, err := fetchBundle(client, v)
	if err != nil {
		return err
	}

	if err := publish.ValidateBundle(ctx, bundle); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	// Skip bundles the store already carries at this version or newer.
	if current, err := sites.GetByID(ctx, bundle.Site.ID); err == nil && current.Version >= bundle.Site.Version {
		log.Printf("[%s] version %d already published, skipping", v.Slug, current.Version)
		return nil
	}

	if err := publish.PersistBundle(ctx, bundle); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	if err := publish.InvalidateCache(ctx, bundle.Site.ID); err != nil {
		log.Printf("[%s] cache invalidation: %v", v.Slug, err)
	}
	if err := publish.Announce(ctx, bundle.Site.ID, bundle.Site.Version, "ingest"); err != nil {
		log.Printf("[%s] announce: %v", v.Slug, err)
	}

	log.Printf("[%s] published version %d: %d buildings, %d locations, %d connectors",
		v.Slug, bundle.Site.Version, len(bundle.Site.Buildings), len(bundle.Locations), len(bundle.Connectors))
	return nil
}

// fetchBundle loads and parses one bundle from disk or over HTTP.
func fetchBundle(client *http.Client, v VenueEntry) (*domain.Bundle, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case v.BundlePath != "":
		data, err = os.ReadFile(v.BundlePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", v.BundlePath, err)
		}
	case v.BundleURL != "":
		log.Printf("[%s] downloading bundle from %s", v.Slug, v.BundleURL)
		resp, err := client.Get(v.BundleURL)
		if err != nil {
			return nil, fmt.Errorf("download: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, v.BundleURL)
		}
		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
	default:
		return nil, fmt.Errorf("venue %s has neither bundle_path nor bundle_url", v.Slug)
	}

	var bundle domain.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	// The manifest slug wins when the bundle omits one.
	if bundle.Site.Slug == "" {
		bundle.Site.Slug = v.Slug
	}
	return &bundle, nil
}
