package http_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	handler "github.com/becomap/becomap-go/internal/adapters/http"
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// startBridgeServer runs the full route stack on a loopback listener so
// clients can dial the bridge endpoint over a real socket.
func startBridgeServer(t *testing.T, deps *handler.Dependencies) (*handler.BridgeHub, string) {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	hub := handler.SetupRoutes(app, deps)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return hub, "ws://" + ln.Addr().String() + "/bridge"
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestBridgeWebSocket_SessionRoundTrip drives a MapView through the
// real endpoint: dial, init, cross-floor selection, health check, a
// server-pushed site refresh, and cleanup.
func TestBridgeWebSocket_SessionRoundTrip(t *testing.T) {
	hub, url := startBridgeServer(t, bundleDeps(testBundle()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch, err := becomap.DialWS(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial bridge: %v", err)
	}
	view := becomap.NewMapView(ch)
	defer view.Cleanup(context.Background())

	floors := make(chan becomap.Floor, 1)
	view.OnFloorSwitch(func(f becomap.Floor) {
		select {
		case floors <- f:
		default:
		}
	})
	refreshes := make(chan becomap.Site, 1)
	view.OnSiteRefresh(func(s becomap.Site) {
		select {
		case refreshes <- s:
		default:
		}
	})

	site, err := view.Init(ctx, becomap.MapOptions{SiteID: "site-1"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if site.Name != "Aurora Galleria" {
		t.Errorf("expected site %q, got %q", "Aurora Galleria", site.Name)
	}
	if got := hub.Count(); got != 1 {
		t.Errorf("expected 1 live session, got %d", got)
	}

	// Selecting a location on another floor switches the floor first.
	loc, err := view.SelectLocationWithID(ctx, "loc-books")
	if err != nil {
		t.Fatalf("select location: %v", err)
	}
	if loc.ID != "loc-books" {
		t.Errorf("expected location loc-books, got %q", loc.ID)
	}
	select {
	case f := <-floors:
		if f.ID != "f-1" {
			t.Errorf("expected switch to floor f-1, got %q", f.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no floor switch callback")
	}
	if cur := view.CurrentFloor(); cur == nil || cur.ID != "f-1" {
		t.Errorf("current floor not mirrored after selection, got %+v", cur)
	}

	hs, err := view.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if hs.Status != "healthy" {
		t.Errorf("expected healthy engine, got %q", hs.Status)
	}
	if hs.Sessions != 1 {
		t.Errorf("expected 1 session in health report, got %d", hs.Sessions)
	}

	// A republished bundle reaches the attached client as a refresh.
	if err := hub.NotifySiteRefresh(ctx, &domain.SiteRefresh{
		SiteID: "site-1", Version: 3, Reason: "ingest", OccurredAt: time.Now(),
	}); err != nil {
		t.Fatalf("notify refresh: %v", err)
	}
	select {
	case s := <-refreshes:
		if s.ID != "site-1" {
			t.Errorf("refresh carried site %q", s.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no site refresh callback")
	}

	if err := view.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return hub.Count() == 0 })
}

// TestBridgeWebSocket_DecodeErrorCapDisconnects sends undecodable
// frames until the engine gives up on the connection.
func TestBridgeWebSocket_DecodeErrorCapDisconnects(t *testing.T) {
	_, url := startBridgeServer(t, bundleDeps(testBundle()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial bridge: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("not an envelope")); err != nil {
			t.Fatalf("write garbage frame %d: %v", i, err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	errorReplies := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg becomap.Message
		if json.Unmarshal(data, &msg) == nil && msg.Type == becomap.EventError {
			errorReplies++
		}
	}
	if errorReplies == 0 {
		t.Error("expected error replies before the disconnect")
	}
}
