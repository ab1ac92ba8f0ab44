package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/pkg/metrics"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// defaultZoom is the camera zoom applied when init carries no view.
const defaultZoom = 16.0

// Session is the engine side of one bridge connection. It owns the
// lifecycle state, the loaded bundle, and the camera, and answers each
// inbound operation with the callback events the client SDK awaits.
// Handle is driven by a single reader goroutine; the out queue carries
// replies and unsolicited pushes to the socket writer.
type Session struct {
	id    string
	deps  *Dependencies
	delay time.Duration
	key   string // required init apiKey, empty disables the check

	mu         sync.Mutex
	state      becomap.State
	opts       becomap.MapOptions
	bundle     *domain.Bundle
	floor      becomap.Floor
	view       becomap.ViewOptions
	selected   string
	shownRoute string

	out chan becomap.Message
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the session lifecycle state.
func (s *Session) State() becomap.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SiteID returns the site the session is attached to, empty before init.
func (s *Session) SiteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bundle == nil {
		return ""
	}
	return s.bundle.Site.ID
}

// Out is the outbound message queue drained by the socket writer.
func (s *Session) Out() <-chan becomap.Message { return s.out }

// push enqueues an outbound message, dropping it when the client is not
// draining fast enough.
func (s *Session) push(msg becomap.Message) {
	select {
	case s.out <- msg:
	default:
		slog.Warn("bridge: outbound queue full, dropping message",
			"session_id", s.id, "type", msg.Type)
	}
}

func (s *Session) destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == becomap.StateDestroyed
}

func (s *Session) setState(st becomap.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Handle processes one inbound envelope and returns the replies, in
// order. Correlated replies echo the inbound requestId; floor switches
// triggered as a side effect are pushed without one.
func (s *Session) Handle(ctx context.Context, msg becomap.Message) []becomap.Message {
	start := time.Now()
	metrics.BridgeMessagesTotal.WithLabelValues(msg.Type, "in").Inc()

	replies := s.dispatch(ctx, msg)

	status := "ok"
	for _, r := range replies {
		metrics.BridgeMessagesTotal.WithLabelValues(r.Type, "out").Inc()
		if isErrorEventType(r.Type) {
			status = "error"
			if s.deps.Sessions != nil {
				s.deps.Sessions.RecordError(ctx, s.id, s.SiteID(), msg.Type, errorCodeOf(r))
			}
		}
	}
	if status == "ok" && s.deps.Sessions != nil {
		s.deps.Sessions.RecordOperation(ctx, s.id, s.SiteID(), msg.Type)
	}
	metrics.BridgeCallsTotal.WithLabelValues(msg.Type, status).Inc()
	metrics.BridgeCallDuration.WithLabelValues(msg.Type).Observe(time.Since(start).Seconds())

	return replies
}

func (s *Session) dispatch(ctx context.Context, msg becomap.Message) []becomap.Message {
	switch msg.Type {
	case becomap.OpInit:
		return s.handleInit(ctx, msg)
	case becomap.OpRecoverFromError:
		return s.handleRecover(ctx, msg)
	case becomap.OpCleanup:
		return s.handleCleanup()
	}

	if werr := s.requireReady(msg.Type); werr != nil {
		return fail(msg, werr)
	}

	switch msg.Type {
	case becomap.OpHealthCheck:
		return s.handleHealthCheck(msg)
	case becomap.OpGetCurrentFloor:
		return s.handleGetCurrentFloor(msg)
	case becomap.OpSelectFloor:
		return s.handleSelectFloor(msg)
	case becomap.OpSelectLocationWithID:
		return s.handleSelectLocation(msg)
	case becomap.OpDeselectLocation:
		return s.handleDeselectLocation(msg)
	case becomap.OpFocusTo:
		return s.handleFocusTo(msg)
	case becomap.OpUpdateZoom, becomap.OpUpdateBearing, becomap.OpUpdatePitch:
		return s.handleUpdateView(msg)
	case becomap.OpSearchForLocations:
		return s.handleSearchLocations(ctx, msg)
	case becomap.OpSearchForCategories:
		return s.handleSearchCategories(ctx, msg)
	case becomap.OpGetRoute:
		return s.handleGetRoute(ctx, msg)
	case becomap.OpShowRoute:
		return s.handleShowRoute(ctx, msg)
	case becomap.OpShowStep:
		return s.handleShowStep(ctx, msg)
	case becomap.OpClearRoute:
		return s.handleClearRoute(msg)
	default:
		return fail(msg, becomap.New(becomap.CodeInvalidArgument, "unknown operation "+msg.Type))
	}
}

// requireReady is the state guard every operation except init, cleanup
// and recoverFromError passes through.
func (s *Session) requireReady(op string) *becomap.Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case becomap.StateReady:
		return nil
	case becomap.StateDestroyed:
		return becomap.New(becomap.CodeStateDestroyed, "session destroyed").
			WithMetadata(map[string]string{"operation": op})
	default:
		return becomap.New(becomap.CodeStateNotReady, becomap.MsgNotInitialized).
			WithMetadata(map[string]string{"operation": op, "state": s.state.String()})
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (s *Session) handleInit(ctx context.Context, msg becomap.Message) []becomap.Message {
	var opts becomap.MapOptions
	if err := msg.DecodePayload(&opts); err != nil {
		return fail(msg, asBridgeError(err))
	}
	if err := opts.Validate(); err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	if s.state != becomap.StateUninitialized {
		st := s.state
		s.mu.Unlock()
		return fail(msg, becomap.New(becomap.CodeAlreadyInitialized, "init already performed").
			WithMetadata(map[string]string{"state": st.String()}))
	}
	s.state = becomap.StateInitializing
	s.opts = opts
	s.mu.Unlock()

	if s.key != "" && opts.APIKey != s.key {
		s.setState(becomap.StateError)
		return fail(msg, becomap.New(becomap.CodeUnauthorized, "invalid api key"))
	}

	return s.loadSite(ctx, msg, opts)
}

// loadSite resolves the site, loads its bundle, and brings the session
// to Ready, answering with onMapReady.
func (s *Session) loadSite(ctx context.Context, msg becomap.Message, opts becomap.MapOptions) []becomap.Message {
	site, err := s.deps.Venues.GetSite(ctx, opts.SiteID)
	if err != nil {
		s.setState(becomap.StateError)
		return fail(msg, becomap.Wrap(becomap.CodeSiteDataUnavailable, "site "+opts.SiteID+" unavailable", err))
	}
	bundle, err := s.deps.Venues.GetBundle(ctx, site.ID)
	if err != nil {
		s.setState(becomap.StateError)
		return fail(msg, becomap.Wrap(becomap.CodeSiteDataUnavailable, "site "+opts.SiteID+" unavailable", err))
	}

	if s.delay > 0 {
		// Simulated engine load; lets clients exercise their init timeout.
		t := time.NewTimer(s.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			s.setState(becomap.StateError)
			return fail(msg, becomap.Wrap(becomap.CodeInitTimeout, "engine load interrupted", ctx.Err()))
		}
	}

	floor := bundle.DefaultFloor()
	if opts.InitialFloorID != "" {
		floor = bundle.Floor(opts.InitialFloorID)
	}
	if floor == nil {
		s.setState(becomap.StateError)
		return fail(msg, becomap.New(becomap.CodeInvalidOptions, "initial floor "+opts.InitialFloorID+" not found").
			WithMetadata(map[string]string{"floorId": opts.InitialFloorID}))
	}

	wf := wireFloor(*floor)
	center := wirePoint(bundle.Site.Center)
	view := becomap.ViewOptions{Center: &center, Zoom: defaultZoom, FloorID: wf.ID}
	if opts.View != nil {
		view = *opts.View
		if view.FloorID == "" {
			view.FloorID = wf.ID
		}
	}

	s.mu.Lock()
	s.bundle = bundle
	s.floor = wf
	s.view = view
	s.selected = ""
	s.shownRoute = ""
	s.state = becomap.StateReady
	s.mu.Unlock()

	return reply(msg, becomap.EventMapReady, wireSite(&bundle.Site))
}

func (s *Session) handleRecover(ctx context.Context, msg becomap.Message) []becomap.Message {
	s.mu.Lock()
	if s.state != becomap.StateError {
		st := s.state
		s.mu.Unlock()
		return fail(msg, becomap.New(becomap.CodeInvalidTransition, "recoverFromError requires the error state").
			WithMetadata(map[string]string{"state": st.String()}))
	}
	s.state = becomap.StateInitializing
	opts := s.opts
	s.mu.Unlock()

	if s.key != "" && opts.APIKey != s.key {
		s.setState(becomap.StateError)
		return fail(msg, becomap.New(becomap.CodeUnauthorized, "invalid api key"))
	}
	return s.loadSite(ctx, msg, opts)
}

// handleCleanup tears the session down. The client does not await a
// reply; the socket loop closes the connection once destroyed.
func (s *Session) handleCleanup() []becomap.Message {
	s.mu.Lock()
	s.state = becomap.StateDestroyed
	s.bundle = nil
	s.selected = ""
	s.shownRoute = ""
	s.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// Map operations
// ---------------------------------------------------------------------------

func (s *Session) handleHealthCheck(msg becomap.Message) []becomap.Message {
	hs := s.deps.Sessions.Health()
	return reply(msg, becomap.EventHealthCheck, hs)
}

func (s *Session) handleGetCurrentFloor(msg becomap.Message) []becomap.Message {
	s.mu.Lock()
	floor := s.floor
	s.mu.Unlock()
	return reply(msg, becomap.EventCurrentFloor, floor)
}

func (s *Session) handleSelectFloor(msg becomap.Message) []becomap.Message {
	var req becomap.SelectFloorRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}
	if req.FloorID == "" {
		return fail(msg, becomap.New(becomap.CodeMissingParameter, "floorId is required").
			WithMetadata(map[string]string{"parameter": "floorId"}))
	}

	s.mu.Lock()
	bundle := s.bundle
	s.mu.Unlock()

	f := bundle.Floor(req.FloorID)
	if f == nil {
		return fail(msg, becomap.New(becomap.CodeNotFound, "floor "+req.FloorID+" not found").
			WithMetadata(map[string]string{"floorId": req.FloorID}))
	}

	wf := wireFloor(*f)
	s.mu.Lock()
	s.floor = wf
	s.view.FloorID = wf.ID
	s.mu.Unlock()
	return reply(msg, becomap.EventFloorSwitch, wf)
}

func (s *Session) handleSelectLocation(msg becomap.Message) []becomap.Message {
	var req becomap.SelectLocationRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}
	if req.LocationID == "" {
		return fail(msg, becomap.New(becomap.CodeMissingParameter, "locationId is required").
			WithMetadata(map[string]string{"parameter": "locationId"}))
	}

	s.mu.Lock()
	bundle := s.bundle
	s.mu.Unlock()

	loc := bundle.Location(req.LocationID)
	if loc == nil {
		return fail(msg, becomap.New(becomap.CodeNotFound, "location "+req.LocationID+" not found").
			WithMetadata(map[string]string{"locationId": req.LocationID}))
	}

	wl := wireLocation(*loc)
	s.mu.Lock()
	s.selected = loc.ID
	s.mu.Unlock()

	msgs := s.moveCamera(wl.FloorID, wl.Center)
	return append(msgs, reply(msg, becomap.EventLocationSelect, wl)...)
}

func (s *Session) handleDeselectLocation(msg becomap.Message) []becomap.Message {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
	return reply(msg, becomap.EventLocationDeselect, nil)
}

func (s *Session) handleFocusTo(msg becomap.Message) []becomap.Message {
	var opts becomap.FocusOptions
	if err := msg.DecodePayload(&opts); err != nil {
		return fail(msg, asBridgeError(err))
	}
	if err := opts.Validate(); err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	bundle := s.bundle
	view := s.view
	cur := s.floor
	s.mu.Unlock()

	var center becomap.GeoPoint
	floorID := view.FloorID
	if opts.LocationID != "" {
		loc := bundle.Location(opts.LocationID)
		if loc == nil {
			return fail(msg, becomap.New(becomap.CodeNotFound, "location "+opts.LocationID+" not found").
				WithMetadata(map[string]string{"locationId": opts.LocationID}))
		}
		center = wirePoint(loc.Center)
		floorID = loc.FloorID
	} else {
		center = *opts.Center
		if opts.FloorID != "" {
			floorID = opts.FloorID
		}
	}

	var msgs []becomap.Message
	if floorID != cur.ID {
		f := bundle.Floor(floorID)
		if f == nil {
			return fail(msg, becomap.New(becomap.CodeNotFound, "floor "+floorID+" not found").
				WithMetadata(map[string]string{"floorId": floorID}))
		}
		wf := wireFloor(*f)
		s.mu.Lock()
		s.floor = wf
		s.mu.Unlock()
		msgs = append(msgs, eventMessage(becomap.EventFloorSwitch, wf))
	}

	view.Center = &center
	view.FloorID = floorID
	if opts.Zoom != nil {
		view.Zoom = *opts.Zoom
	}
	if opts.Bearing != nil {
		view.Bearing = *opts.Bearing
	}
	if opts.Pitch != nil {
		view.Pitch = *opts.Pitch
	}

	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	return append(msgs, reply(msg, becomap.EventFocusTo, view)...)
}

func (s *Session) handleUpdateView(msg becomap.Message) []becomap.Message {
	var req becomap.UpdateViewRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	view := s.view
	s.mu.Unlock()

	switch msg.Type {
	case becomap.OpUpdateZoom:
		if req.Zoom == nil {
			return fail(msg, becomap.New(becomap.CodeMissingParameter, "zoom is required").
				WithMetadata(map[string]string{"parameter": "zoom"}))
		}
		if err := becomap.ValidateZoom(*req.Zoom); err != nil {
			return fail(msg, asBridgeError(err))
		}
		view.Zoom = *req.Zoom
	case becomap.OpUpdateBearing:
		if req.Bearing == nil {
			return fail(msg, becomap.New(becomap.CodeMissingParameter, "bearing is required").
				WithMetadata(map[string]string{"parameter": "bearing"}))
		}
		if err := becomap.ValidateBearing(*req.Bearing); err != nil {
			return fail(msg, asBridgeError(err))
		}
		view.Bearing = *req.Bearing
	case becomap.OpUpdatePitch:
		if req.Pitch == nil {
			return fail(msg, becomap.New(becomap.CodeMissingParameter, "pitch is required").
				WithMetadata(map[string]string{"parameter": "pitch"}))
		}
		if err := becomap.ValidatePitch(*req.Pitch); err != nil {
			return fail(msg, asBridgeError(err))
		}
		view.Pitch = *req.Pitch
	}

	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	return reply(msg, becomap.EventViewChange, view)
}

func (s *Session) handleSearchLocations(ctx context.Context, msg becomap.Message) []becomap.Message {
	var req becomap.SearchRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}
	query := strings.TrimSpace(req.Query)
	if err := becomap.ValidateQuery(query); err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	siteID := s.bundle.Site.ID
	near := s.view.Center
	s.mu.Unlock()

	// Results near the camera rank first.
	var nearPt *domain.GeoPoint
	if near != nil {
		nearPt = &domain.GeoPoint{Lat: near.Lat, Lon: near.Lon}
	}

	locs, err := s.deps.Search.SearchLocations(ctx, siteID, query, nearPt, req.Limit)
	if err != nil {
		return fail(msg, asBridgeError(err))
	}

	if req.FloorID != "" || req.CategoryID != "" {
		var filtered []domain.Location
		for _, l := range locs {
			if req.FloorID != "" && l.FloorID != req.FloorID {
				continue
			}
			if req.CategoryID != "" && l.CategoryID != req.CategoryID {
				continue
			}
			filtered = append(filtered, l)
		}
		locs = filtered
	}

	metrics.SearchesTotal.WithLabelValues(siteID, "locations").Inc()
	result := becomap.SearchLocationsResult{Query: query, Results: wireLocations(locs)}
	return reply(msg, becomap.EventSearchForLocations, result)
}

func (s *Session) handleSearchCategories(ctx context.Context, msg becomap.Message) []becomap.Message {
	var req becomap.SearchRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}
	query := strings.TrimSpace(req.Query)
	if err := becomap.ValidateQuery(query); err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	siteID := s.bundle.Site.ID
	s.mu.Unlock()

	cats, err := s.deps.Search.SearchCategories(ctx, siteID, query, req.Limit)
	if err != nil {
		return fail(msg, asBridgeError(err))
	}

	metrics.SearchesTotal.WithLabelValues(siteID, "categories").Inc()
	result := becomap.SearchCategoriesResult{Query: query, Results: wireCategories(cats)}
	return reply(msg, becomap.EventSearchForCategories, result)
}

func (s *Session) handleGetRoute(ctx context.Context, msg becomap.Message) []becomap.Message {
	var req becomap.GetRouteRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	siteID := s.bundle.Site.ID
	s.mu.Unlock()

	route, err := s.deps.Routes.ComputeRoute(ctx, siteID, req.Waypoints)
	if err != nil {
		return fail(msg, asBridgeError(err))
	}

	metrics.RoutesComputed.WithLabelValues(siteID).Inc()
	return reply(msg, becomap.EventGetRoute, route)
}

func (s *Session) handleShowRoute(ctx context.Context, msg becomap.Message) []becomap.Message {
	var req becomap.ShowRouteRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}
	if req.RouteID == "" {
		return fail(msg, becomap.New(becomap.CodeMissingParameter, "routeId is required").
			WithMetadata(map[string]string{"parameter": "routeId"}))
	}

	route, err := s.deps.Routes.GetRoute(ctx, req.RouteID)
	if err != nil {
		return fail(msg, asBridgeError(err))
	}

	s.mu.Lock()
	s.shownRoute = route.ID
	s.mu.Unlock()

	// The display opens on the route's first step.
	var msgs []becomap.Message
	if len(route.Segments) > 0 && len(route.Segments[0].Steps) > 0 {
		first := route.Segments[0]
		msgs = s.moveCamera(first.FloorID, first.Steps[0].Center)
	}
	return append(msgs, reply(msg, becomap.EventShowRoute, route)...)
}

func (s *Session) handleShowStep(ctx context.Context, msg becomap.Message) []becomap.Message {
	var req becomap.ShowStepRequest
	if err := msg.DecodePayload(&req); err != nil {
		return fail(msg, asBridgeError(err))
	}
	if req.RouteID == "" {
		return fail(msg, becomap.New(becomap.CodeMissingParameter, "routeId is required").
			WithMetadata(map[string]string{"parameter": "routeId"}))
	}
	if req.SegmentIndex < 0 || req.StepIndex < 0 {
		return fail(msg, becomap.New(becomap.CodeInvalidParameter, "step indexes must not be negative"))
	}

	route, err := s.deps.Routes.GetRoute(ctx, req.RouteID)
	if err != nil {
		return fail(msg, asBridgeError(err))
	}
	if req.SegmentIndex >= len(route.Segments) {
		return fail(msg, becomap.New(becomap.CodeOutOfRange,
			fmt.Sprintf("segmentIndex %d outside route with %d segments", req.SegmentIndex, len(route.Segments))))
	}
	seg := route.Segments[req.SegmentIndex]
	if req.StepIndex >= len(seg.Steps) {
		return fail(msg, becomap.New(becomap.CodeOutOfRange,
			fmt.Sprintf("stepIndex %d outside segment with %d steps", req.StepIndex, len(seg.Steps))))
	}
	step := seg.Steps[req.StepIndex]

	msgs := s.moveCamera(seg.FloorID, step.Center)
	return append(msgs, reply(msg, becomap.EventShowStep, step)...)
}

func (s *Session) handleClearRoute(msg becomap.Message) []becomap.Message {
	s.mu.Lock()
	s.shownRoute = ""
	s.mu.Unlock()
	return reply(msg, becomap.EventRouteClear, nil)
}

// ---------------------------------------------------------------------------
// Shared session plumbing
// ---------------------------------------------------------------------------

// moveCamera centers the view on a point, switching floors when needed.
// The unsolicited floor switch event, if any, precedes the correlated
// reply in the returned order.
func (s *Session) moveCamera(floorID string, center becomap.GeoPoint) []becomap.Message {
	s.mu.Lock()
	bundle := s.bundle
	cur := s.floor
	s.mu.Unlock()

	var msgs []becomap.Message
	if floorID != "" && floorID != cur.ID {
		if f := bundle.Floor(floorID); f != nil {
			wf := wireFloor(*f)
			s.mu.Lock()
			s.floor = wf
			s.mu.Unlock()
			msgs = append(msgs, eventMessage(becomap.EventFloorSwitch, wf))
		}
	}

	s.mu.Lock()
	s.view.Center = &center
	if floorID != "" {
		s.view.FloorID = floorID
	}
	s.mu.Unlock()
	return msgs
}

// refresh swaps in a republished bundle and pushes the refresh event.
// The current floor is kept when it still exists; otherwise the session
// falls back to the default floor.
func (s *Session) refresh(bundle *domain.Bundle) {
	s.mu.Lock()
	if s.state != becomap.StateReady {
		s.mu.Unlock()
		return
	}
	s.bundle = bundle
	if bundle.Floor(s.floor.ID) == nil {
		if f := bundle.DefaultFloor(); f != nil {
			s.floor = wireFloor(*f)
			s.view.FloorID = s.floor.ID
		}
	}
	s.mu.Unlock()
	s.push(eventMessage(becomap.EventSiteRefresh, wireSite(&bundle.Site)))
}

// reply builds the correlated callback for msg.
func reply(msg becomap.Message, eventType string, payload any) []becomap.Message {
	out, err := becomap.NewMessage(eventType, payload)
	if err != nil {
		return fail(msg, asBridgeError(err))
	}
	out.RequestID = msg.RequestID
	return []becomap.Message{out}
}

// fail builds the error callback for msg, routed to the operation's
// dedicated error event when it has one.
func fail(msg becomap.Message, werr *becomap.Error) []becomap.Message {
	return []becomap.Message{becomap.ErrorMessage(becomap.ErrorEventFor(msg.Type), msg.Type, msg.RequestID, werr)}
}

// eventMessage builds an unsolicited event envelope.
func eventMessage(eventType string, payload any) becomap.Message {
	msg, _ := becomap.NewMessage(eventType, payload)
	return msg
}

func asBridgeError(err error) *becomap.Error {
	var werr *becomap.Error
	if errors.As(err, &werr) {
		return werr
	}
	return becomap.Wrap(becomap.CodeInternal, "engine failure", err)
}

func isErrorEventType(eventType string) bool {
	switch eventType {
	case becomap.EventError, becomap.EventGetRouteError, becomap.EventShowRouteError, becomap.EventFocusToError:
		return true
	}
	return false
}

func errorCodeOf(m becomap.Message) string {
	var ev becomap.ErrorEvent
	if err := json.Unmarshal(m.Payload, &ev); err != nil {
		return ""
	}
	return ev.Err.Code
}
