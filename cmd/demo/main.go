// Command demo drives the bridge SDK against a running mapsim engine:
// init, floors, search, selection, a cross-floor route walked step by
// step, then cleanup. Useful as a smoke test and as SDK example code.
//
//	demo [siteID] [originQuery] [destinationQuery]
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/becomap/becomap-go/pkg/becomap"
)

func main() {
	url := os.Getenv("BRIDGE_URL")
	if url == "" {
		url = "ws://localhost:8080/bridge"
	}
	siteID := "site-aurora"
	originQuery := "coffee"
	destQuery := "books"
	if len(os.Args) > 1 {
		siteID = os.Args[1]
	}
	if len(os.Args) > 2 {
		originQuery = os.Args[2]
	}
	if len(os.Args) > 3 {
		destQuery = os.Args[3]
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	ch, err := becomap.DialWS(ctx, url, nil)
	if err != nil {
		log.Error("dial bridge", "url", url, "error", err)
		os.Exit(1)
	}

	view := becomap.NewMapView(ch, becomap.WithLogger(log))
	view.OnFloorSwitch(func(f becomap.Floor) {
		log.Info("floor switched", "floor", f.Name, "level", f.Level)
	})
	view.OnSiteRefresh(func(s becomap.Site) {
		log.Info("site republished under this session", "site", s.Name)
	})
	view.OnError(func(e *becomap.Error) {
		log.Warn("bridge error", "code", e.Code, "message", e.Message)
	})

	site, err := view.Init(ctx, becomap.MapOptions{
		SiteID: siteID,
		APIKey: os.Getenv("BECOMAP_API_KEY"),
	})
	if err != nil {
		log.Error("init", "site", siteID, "error", err)
		os.Exit(1)
	}
	log.Info("map ready", "site", site.Name, "buildings", len(site.Buildings))

	if hs, err := view.HealthCheck(ctx); err == nil {
		log.Info("engine health", "status", hs.Status, "version", hs.Version, "sessions", hs.Sessions)
	}

	floor, err := view.GetCurrentFloor(ctx)
	if err != nil {
		log.Error("current floor", "error", err)
		os.Exit(1)
	}
	log.Info("starting on", "floor", floor.Name, "level", floor.Level)

	origin := findLocation(ctx, log, view, originQuery)
	if origin == nil {
		_ = view.Cleanup(ctx)
		return
	}
	if _, err := view.SelectLocationWithID(ctx, origin.ID); err != nil {
		log.Warn("select location", "error", err)
	} else {
		log.Info("selected", "location", origin.Name, "floor", origin.FloorID)
	}

	dest := findLocation(ctx, log, view, destQuery)
	if dest != nil && dest.ID != origin.ID {
		walkRoute(ctx, log, view, origin, dest)
	}

	if v, err := view.UpdateZoom(ctx, 18); err == nil {
		log.Info("zoomed in", "zoom", v.Zoom)
	}
	if err := view.DeselectLocation(ctx); err != nil {
		log.Warn("deselect", "error", err)
	}

	if err := view.Cleanup(ctx); err != nil {
		log.Warn("cleanup", "error", err)
	}
	log.Info("walkthrough complete")
}

func findLocation(ctx context.Context, log *slog.Logger, view *becomap.MapView, query string) *becomap.Location {
	results, err := view.SearchForLocations(ctx, query, nil)
	if err != nil {
		log.Error("search", "query", query, "error", err)
		return nil
	}
	if len(results) == 0 {
		log.Warn("no results", "query", query)
		return nil
	}
	log.Info("search hit", "query", query, "location", results[0].Name, "of", len(results))
	return &results[0]
}

func walkRoute(ctx context.Context, log *slog.Logger, view *becomap.MapView, origin, dest *becomap.Location) {
	route, err := view.GetRoute(ctx, []becomap.RouteWaypoint{
		{LocationID: origin.ID},
		{LocationID: dest.ID},
	})
	if err != nil {
		log.Warn("route", "from", origin.Name, "to", dest.Name, "error", err)
		return
	}
	log.Info("route calculated", "distance_m", int(route.Distance),
		"duration_s", int(route.Duration), "segments", len(route.Segments))

	if err := view.ShowRoute(ctx, route.ID); err != nil {
		log.Warn("show route", "error", err)
		return
	}

	for _, seg := range route.Segments {
		for _, step := range seg.Steps {
			shown, err := view.ShowStep(ctx, route.ID, seg.Index, step.Index)
			if err != nil {
				log.Warn("show step", "segment", seg.Index, "step", step.Index, "error", err)
				continue
			}
			log.Info("step", "instruction", shown.Instruction, "floor", shown.FloorID)
			time.Sleep(300 * time.Millisecond)
		}
	}

	if err := view.ClearRoute(ctx); err != nil {
		log.Warn("clear route", "error", err)
	}
}
