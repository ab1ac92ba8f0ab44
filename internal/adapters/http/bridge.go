package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/pkg/metrics"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// BridgeConfig carries the engine knobs for bridge sessions.
type BridgeConfig struct {
	// InitDelay stretches init to simulate engine load. Zero disables it.
	InitDelay time.Duration
	// MaxSessions caps concurrent bridge sessions. Zero means unlimited.
	MaxSessions int
	// APIKey, when set, must match the apiKey clients pass to init.
	APIKey string
}

// BridgeHub tracks the live bridge sessions and fans site refreshes out
// to them.
type BridgeHub struct {
	deps *Dependencies

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewBridgeHub creates an empty hub over the shared dependencies.
func NewBridgeHub(deps *Dependencies) *BridgeHub {
	return &BridgeHub{deps: deps, sessions: make(map[string]*Session)}
}

func newSessionID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return "sess-" + hex.EncodeToString(b)
}

// Open registers a new session, enforcing the session cap.
func (h *BridgeHub) Open() (*Session, error) {
	h.mu.Lock()
	if h.deps.Bridge.MaxSessions > 0 && len(h.sessions) >= h.deps.Bridge.MaxSessions {
		n := len(h.sessions)
		h.mu.Unlock()
		return nil, becomap.New(becomap.CodeChannelUnavailable, "session limit reached").
			WithMetadata(map[string]string{"active": fmt.Sprintf("%d", n)})
	}

	s := &Session{
		id:    newSessionID(),
		deps:  h.deps,
		delay: h.deps.Bridge.InitDelay,
		key:   h.deps.Bridge.APIKey,
		state: becomap.StateUninitialized,
		out:   make(chan becomap.Message, 64),
	}
	h.sessions[s.id] = s
	metrics.BridgeSessionsActive.Set(float64(len(h.sessions)))
	h.mu.Unlock()

	if h.deps.Sessions != nil {
		h.deps.Sessions.SessionOpened(context.Background(), s.id)
	}
	return s, nil
}

// Close removes a session from the hub.
func (h *BridgeHub) Close(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	metrics.BridgeSessionsActive.Set(float64(len(h.sessions)))
	h.mu.Unlock()

	if h.deps.Sessions != nil {
		h.deps.Sessions.SessionClosed(context.Background(), s.id, s.SiteID())
	}
}

// Count returns the number of live sessions.
func (h *BridgeHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// NotifySiteRefresh reloads the republished bundle once and hands it to
// every session attached to the site.
func (h *BridgeHub) NotifySiteRefresh(ctx context.Context, ref *domain.SiteRefresh) error {
	h.mu.Lock()
	var attached []*Session
	for _, s := range h.sessions {
		if s.SiteID() == ref.SiteID {
			attached = append(attached, s)
		}
	}
	h.mu.Unlock()

	if len(attached) == 0 {
		return nil
	}

	bundle, err := h.deps.Venues.GetBundle(ctx, ref.SiteID)
	if err != nil {
		return fmt.Errorf("reload site %s: %w", ref.SiteID, err)
	}
	for _, s := range attached {
		s.refresh(bundle)
	}
	slog.Info("bridge: site refresh fanned out",
		"site_id", ref.SiteID, "version", ref.Version, "sessions", len(attached))
	return nil
}

const (
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

// BridgeHandler runs the message pump for one bridge connection: a
// writer goroutine drains the session queue while the read loop feeds
// inbound operations through the session. Connections that flood frames
// or keep sending undecodable ones are dropped.
func BridgeHandler(hub *BridgeHub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		remote := c.RemoteAddr().String()

		var wmu sync.Mutex
		writeMsg := func(msg becomap.Message) error {
			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			wmu.Lock()
			defer wmu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		s, err := hub.Open()
		if err != nil {
			_ = writeMsg(becomap.ErrorMessage(becomap.EventError, "connect", 0, asBridgeError(err)))
			return
		}
		defer hub.Close(s)
		slog.Info("bridge session opened", "session_id", s.ID(), "remote", remote)

		ctx := context.Background()
		done := make(chan struct{})

		go func() {
			for {
				select {
				case msg := <-s.Out():
					if err := writeMsg(msg); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					wmu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					wmu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		windowStart := time.Now()
		framesInWindow := 0
		decodeErrors := 0

		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				break
			}

			now := time.Now()
			if now.Sub(windowStart) >= time.Second {
				windowStart = now
				framesInWindow = 0
			}
			framesInWindow++
			if framesInWindow > maxFramesPerSecond {
				_ = writeMsg(becomap.ErrorMessage(becomap.EventError, "", 0,
					becomap.New(becomap.CodeChannelUnavailable, "frame rate limit exceeded")))
				break
			}

			if len(data) > becomap.MaxMessageBytes {
				s.push(oversizeError(data))
				continue
			}

			var msg becomap.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				decodeErrors++
				bad := becomap.ErrorMessage(becomap.EventError, "", 0,
					becomap.New(becomap.CodeInvalidArgument, "undecodable bridge message"))
				if decodeErrors >= maxDecodeErrorsPerConn {
					_ = writeMsg(bad)
					break
				}
				s.push(bad)
				continue
			}
			decodeErrors = 0

			for _, r := range s.Handle(ctx, msg) {
				s.push(r)
			}
			if s.destroyed() {
				break
			}
		}

		close(done)
		slog.Info("bridge session closed", "session_id", s.ID(), "remote", remote)
	}
}

// oversizeError answers an oversize frame without killing the
// connection. Only the envelope head is decoded so the reply can still
// correlate.
func oversizeError(data []byte) becomap.Message {
	var envelope struct {
		Type      string `json:"type"`
		RequestID uint64 `json:"requestId"`
	}
	_ = json.Unmarshal(data, &envelope)
	werr := becomap.New(becomap.CodePayloadTooLarge,
		fmt.Sprintf("message is %d bytes, limit %d", len(data), becomap.MaxMessageBytes))
	return becomap.ErrorMessage(becomap.ErrorEventFor(envelope.Type), envelope.Type, envelope.RequestID, werr)
}
