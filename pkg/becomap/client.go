// Package becomap is the Go client for the Becomap indoor map engine
// bridge: typed operations over a JSON message channel, with correlated
// asynchronous callbacks.
package becomap

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultLoadTimeout = 15 * time.Second
)

// Option configures a MapView.
type Option func(*MapView)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(m *MapView) { m.log = log }
}

// WithCallTimeout bounds each bridge round-trip when the caller's
// context carries no deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(m *MapView) {
		if d > 0 {
			m.callTimeout = d
		}
	}
}

type pendingCall struct {
	op     string
	events map[string]struct{}
	done   chan callResult
}

type callResult struct {
	event   string
	payload json.RawMessage
	err     *Error
}

type handlers struct {
	floorSwitch      func(Floor)
	locationSelect   func(Location)
	locationDeselect func()
	viewChange       func(ViewOptions)
	siteRefresh      func(Site)
	err              func(*Error)
}

// MapView is a bridge client bound to one Channel. Operations may be
// issued from any goroutine; each blocks until the callback that
// resolves it arrives, its context expires, or the channel dies.
// Registered handlers run on a single dispatch goroutine.
type MapView struct {
	ch  Channel
	log *slog.Logger

	callTimeout time.Duration

	nextID        atomic.Uint64
	routeInFlight atomic.Bool

	mu           sync.Mutex
	state        State
	site         *Site
	currentFloor *Floor
	view         ViewOptions
	search       SearchState
	lastErr      *Error
	pending      map[uint64]*pendingCall
	handlers     handlers

	dispatchDone chan struct{}
}

// NewMapView wraps a channel in a typed bridge client and starts its
// dispatch loop. The client starts Uninitialized; call Init first.
func NewMapView(ch Channel, opts ...Option) *MapView {
	m := &MapView{
		ch:           ch,
		log:          slog.Default(),
		callTimeout:  defaultCallTimeout,
		state:        StateUninitialized,
		pending:      make(map[uint64]*pendingCall),
		dispatchDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.dispatch()
	return m
}

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

func (m *MapView) dispatch() {
	defer close(m.dispatchDone)
	for msg := range m.ch.Receive() {
		m.handleMessage(msg)
	}
	m.channelClosed(m.ch.Err())
}

func (m *MapView) handleMessage(msg Message) {
	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		m.log.Debug("bridge: callback after cleanup ignored", "type", msg.Type)
		return
	}

	// Resolve the pending call the token belongs to, exactly once.
	var pc *pendingCall
	if msg.RequestID != 0 {
		if cand, ok := m.pending[msg.RequestID]; ok {
			if _, resolves := cand.events[msg.Type]; resolves {
				delete(m.pending, msg.RequestID)
				pc = cand
			}
		}
	}
	m.mu.Unlock()

	res := callResult{event: msg.Type, payload: msg.Payload}
	if isErrorEvent(msg.Type) {
		var ev ErrorEvent
		if err := msg.DecodePayload(&ev); err != nil {
			res.err = New(CodeInternal, "undecodable error event")
		} else {
			res.err = FromWire(ev.Err)
			if ev.Operation != "" {
				res.err.WithMetadata(map[string]string{"operation": ev.Operation})
			}
		}
	}

	if msg.RequestID != 0 && pc == nil {
		m.log.Debug("bridge: stale callback ignored", "type", msg.Type, "request_id", msg.RequestID)
	}

	m.applyEvent(msg, res.err)

	if pc != nil {
		pc.done <- res
	}
}

// applyEvent updates client-side mirrors and fires registered handlers.
// Handlers fire for every event they cover, solicited or not.
func (m *MapView) applyEvent(msg Message, werr *Error) {
	switch msg.Type {
	case EventFloorSwitch, EventCurrentFloor:
		var f Floor
		if err := msg.DecodePayload(&f); err != nil {
			m.log.Debug("bridge: bad floor payload", "error", err)
			return
		}
		m.mu.Lock()
		m.currentFloor = &f
		m.view.FloorID = f.ID
		fn := m.handlers.floorSwitch
		m.mu.Unlock()
		if msg.Type == EventFloorSwitch && fn != nil {
			fn(f)
		}

	case EventLocationSelect:
		var loc Location
		if err := msg.DecodePayload(&loc); err != nil {
			m.log.Debug("bridge: bad location payload", "error", err)
			return
		}
		m.mu.Lock()
		fn := m.handlers.locationSelect
		m.mu.Unlock()
		if fn != nil {
			fn(loc)
		}

	case EventLocationDeselect:
		m.mu.Lock()
		fn := m.handlers.locationDeselect
		m.mu.Unlock()
		if fn != nil {
			fn()
		}

	case EventViewChange, EventFocusTo:
		var v ViewOptions
		if err := msg.DecodePayload(&v); err != nil {
			m.log.Debug("bridge: bad view payload", "error", err)
			return
		}
		m.mu.Lock()
		m.view = v
		fn := m.handlers.viewChange
		m.mu.Unlock()
		if fn != nil {
			fn(v)
		}

	case EventSiteRefresh:
		var s Site
		if err := msg.DecodePayload(&s); err != nil {
			m.log.Debug("bridge: bad site payload", "error", err)
			return
		}
		m.mu.Lock()
		m.site = &s
		fn := m.handlers.siteRefresh
		m.mu.Unlock()
		if fn != nil {
			fn(s)
		}

	case EventError:
		if werr == nil {
			return
		}
		m.mu.Lock()
		m.lastErr = werr
		fn := m.handlers.err
		m.mu.Unlock()
		if fn != nil {
			fn(werr)
		}
	}
}

func isErrorEvent(eventType string) bool {
	switch eventType {
	case EventError, EventGetRouteError, EventShowRouteError, EventFocusToError:
		return true
	}
	return false
}

// channelClosed moves the client to Error and fails everything pending
// after the transport dies underneath it.
func (m *MapView) channelClosed(cause error) {
	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return
	}
	werr := New(CodeChannelUnavailable, "bridge channel closed")
	if cause != nil {
		werr = Wrap(CodeChannelUnavailable, "bridge channel failed", cause)
	}
	if next, err := transition(m.state, StateError); err == nil {
		m.state = next
	}
	m.lastErr = werr
	drained := m.pending
	m.pending = make(map[uint64]*pendingCall)
	fn := m.handlers.err
	m.mu.Unlock()

	for _, pc := range drained {
		pc.done <- callResult{err: werr}
	}
	if fn != nil {
		fn(werr)
	}
}

// ---------------------------------------------------------------------------
// Call plumbing
// ---------------------------------------------------------------------------

// call sends one correlated operation and blocks until an event from
// resolveEvents (or the generic onError) echoes its token.
func (m *MapView) call(ctx context.Context, op string, payload any, resolveEvents ...string) (callResult, error) {
	msg, err := NewMessage(op, payload)
	if err != nil {
		return callResult{}, err
	}
	id := m.nextID.Add(1)
	msg.RequestID = id

	events := make(map[string]struct{}, len(resolveEvents)+1)
	for _, ev := range resolveEvents {
		events[ev] = struct{}{}
	}
	events[EventError] = struct{}{}

	pc := &pendingCall{op: op, events: events, done: make(chan callResult, 1)}

	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return callResult{}, New(CodeStateDestroyed, "MapView destroyed")
	}
	m.pending[id] = pc
	m.mu.Unlock()

	if err := m.ch.Send(ctx, msg); err != nil {
		m.forget(id)
		return callResult{}, err
	}

	cancel := func() {}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, m.callTimeout)
	}
	defer cancel()

	select {
	case res := <-pc.done:
		if res.err != nil {
			return res, res.err
		}
		return res, nil
	case <-ctx.Done():
		m.forget(id)
		if res, ok := m.takeResult(pc); ok {
			if res.err != nil {
				return res, res.err
			}
			return res, nil
		}
		return callResult{}, Wrap(CodeNetworkTimeout, op+" timed out awaiting callback", ctx.Err())
	case <-m.dispatchDone:
		m.forget(id)
		if res, ok := m.takeResult(pc); ok {
			if res.err != nil {
				return res, res.err
			}
			return res, nil
		}
		return callResult{}, New(CodeChannelUnavailable, "bridge closed")
	}
}

// takeResult drains a resolution that raced the fallback arm, so a call
// that was answered in time reports the answer rather than the race.
func (m *MapView) takeResult(pc *pendingCall) (callResult, bool) {
	select {
	case res := <-pc.done:
		return res, true
	default:
		return callResult{}, false
	}
}

func (m *MapView) forget(id uint64) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// requireReady is the state guard every operation except init and
// cleanup passes through.
func (m *MapView) requireReady(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady:
		return nil
	case StateDestroyed:
		return New(CodeStateDestroyed, "MapView destroyed").
			WithMetadata(map[string]string{"operation": op})
	default:
		return New(CodeStateNotReady, MsgNotInitialized).
			WithMetadata(map[string]string{"operation": op, "state": m.state.String()})
	}
}

// ---------------------------------------------------------------------------
// Lifecycle operations
// ---------------------------------------------------------------------------

// Init loads the site and brings the bridge to Ready. It may be called
// once per MapView; use RecoverFromError after a failure.
func (m *MapView) Init(ctx context.Context, opts MapOptions) (*Site, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return nil, New(CodeStateDestroyed, "MapView destroyed")
	}
	next, terr := transition(m.state, StateInitializing)
	if terr != nil {
		st := m.state
		m.mu.Unlock()
		return nil, New(CodeAlreadyInitialized, "init already performed").
			WithMetadata(map[string]string{"state": st.String()})
	}
	m.state = next
	m.mu.Unlock()

	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	res, err := m.call(ctx, OpInit, opts, EventMapReady)
	if err != nil {
		if IsCode(err, CodeNetworkTimeout) {
			err = Wrap(CodeInitTimeout, "map load timed out", err)
		}
		m.failInit(err)
		return nil, err
	}

	var site Site
	if uerr := json.Unmarshal(res.payload, &site); uerr != nil {
		werr := Wrap(CodeSiteDataUnavailable, "undecodable site payload", uerr)
		m.failInit(werr)
		return nil, werr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if next, terr := transition(m.state, StateReady); terr == nil {
		m.state = next
		m.site = &site
		m.lastErr = nil
		return &site, nil
	}
	// Cleanup raced the init round-trip.
	return nil, New(CodeStateDestroyed, "MapView destroyed")
}

func (m *MapView) failInit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if next, terr := transition(m.state, StateError); terr == nil {
		m.state = next
	}
	if e, ok := err.(*Error); ok {
		m.lastErr = e
	} else {
		m.lastErr = Wrap(CodeInitFailed, "init failed", err)
	}
}

// RecoverFromError re-runs the init handshake after a failure. Only
// valid in the Error state; nothing is retried automatically.
func (m *MapView) RecoverFromError(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateError {
		st := m.state
		m.mu.Unlock()
		return New(CodeInvalidTransition, "recoverFromError requires the error state").
			WithMetadata(map[string]string{"state": st.String()})
	}
	m.state = StateInitializing
	m.mu.Unlock()

	res, err := m.call(ctx, OpRecoverFromError, nil, EventMapReady)
	if err != nil {
		m.failInit(err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var site Site
	if uerr := json.Unmarshal(res.payload, &site); uerr == nil && site.ID != "" {
		m.site = &site
	}
	if next, terr := transition(m.state, StateReady); terr == nil {
		m.state = next
		m.lastErr = nil
	}
	return nil
}

// Cleanup destroys the MapView: pending calls fail, the cleanup message
// is sent fire-and-forget, and the channel closes. Callbacks arriving
// afterwards are silently ignored. Cleanup is idempotent.
func (m *MapView) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateDestroyed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateDestroyed
	drained := m.pending
	m.pending = make(map[uint64]*pendingCall)
	m.site = nil
	m.currentFloor = nil
	m.search = SearchState{}
	m.mu.Unlock()

	werr := New(CodeStateDestroyed, "MapView destroyed")
	for _, pc := range drained {
		pc.done <- callResult{err: werr}
	}

	if msg, err := NewMessage(OpCleanup, nil); err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_ = m.ch.Send(sendCtx, msg)
		cancel()
	}
	return m.ch.Close()
}

// ---------------------------------------------------------------------------
// Map operations
// ---------------------------------------------------------------------------

// HealthCheck asks the engine for its health report.
func (m *MapView) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if err := m.requireReady(OpHealthCheck); err != nil {
		return nil, err
	}
	res, err := m.call(ctx, OpHealthCheck, nil, EventHealthCheck)
	if err != nil {
		return nil, err
	}
	var hs HealthStatus
	if uerr := json.Unmarshal(res.payload, &hs); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable health payload", uerr)
	}
	return &hs, nil
}

// GetCurrentFloor returns the floor the engine camera is on.
func (m *MapView) GetCurrentFloor(ctx context.Context) (*Floor, error) {
	if err := m.requireReady(OpGetCurrentFloor); err != nil {
		return nil, err
	}
	res, err := m.call(ctx, OpGetCurrentFloor, nil, EventCurrentFloor)
	if err != nil {
		return nil, err
	}
	var f Floor
	if uerr := json.Unmarshal(res.payload, &f); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable floor payload", uerr)
	}
	return &f, nil
}

// SelectFloor switches the engine to another floor.
func (m *MapView) SelectFloor(ctx context.Context, floorID string) (*Floor, error) {
	if err := m.requireReady(OpSelectFloor); err != nil {
		return nil, err
	}
	if floorID == "" {
		return nil, missingParam("floorId")
	}
	res, err := m.call(ctx, OpSelectFloor, SelectFloorRequest{FloorID: floorID}, EventFloorSwitch)
	if err != nil {
		return nil, err
	}
	var f Floor
	if uerr := json.Unmarshal(res.payload, &f); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable floor payload", uerr)
	}
	return &f, nil
}

// SelectLocationWithID highlights a location on the map.
func (m *MapView) SelectLocationWithID(ctx context.Context, locationID string) (*Location, error) {
	if err := m.requireReady(OpSelectLocationWithID); err != nil {
		return nil, err
	}
	if locationID == "" {
		return nil, missingParam("locationId")
	}
	res, err := m.call(ctx, OpSelectLocationWithID, SelectLocationRequest{LocationID: locationID}, EventLocationSelect)
	if err != nil {
		return nil, err
	}
	var loc Location
	if uerr := json.Unmarshal(res.payload, &loc); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable location payload", uerr)
	}
	return &loc, nil
}

// DeselectLocation clears the current selection.
func (m *MapView) DeselectLocation(ctx context.Context) error {
	if err := m.requireReady(OpDeselectLocation); err != nil {
		return err
	}
	_, err := m.call(ctx, OpDeselectLocation, nil, EventLocationDeselect)
	return err
}

// FocusTo moves the camera to a location or point. Camera fields left
// nil keep their current values.
func (m *MapView) FocusTo(ctx context.Context, opts FocusOptions) (*ViewOptions, error) {
	if err := m.requireReady(OpFocusTo); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	res, err := m.call(ctx, OpFocusTo, opts, EventFocusTo, EventFocusToError)
	if err != nil {
		return nil, err
	}
	var v ViewOptions
	if uerr := json.Unmarshal(res.payload, &v); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable view payload", uerr)
	}
	return &v, nil
}

// UpdateZoom sets the camera zoom, range [1, 25].
func (m *MapView) UpdateZoom(ctx context.Context, zoom float64) (*ViewOptions, error) {
	if err := m.requireReady(OpUpdateZoom); err != nil {
		return nil, err
	}
	if err := ValidateZoom(zoom); err != nil {
		return nil, err
	}
	return m.updateView(ctx, OpUpdateZoom, UpdateViewRequest{Zoom: &zoom})
}

// UpdateBearing sets the camera bearing, range [0, 360].
func (m *MapView) UpdateBearing(ctx context.Context, bearing float64) (*ViewOptions, error) {
	if err := m.requireReady(OpUpdateBearing); err != nil {
		return nil, err
	}
	if err := ValidateBearing(bearing); err != nil {
		return nil, err
	}
	return m.updateView(ctx, OpUpdateBearing, UpdateViewRequest{Bearing: &bearing})
}

// UpdatePitch sets the camera pitch, range [0, 60].
func (m *MapView) UpdatePitch(ctx context.Context, pitch float64) (*ViewOptions, error) {
	if err := m.requireReady(OpUpdatePitch); err != nil {
		return nil, err
	}
	if err := ValidatePitch(pitch); err != nil {
		return nil, err
	}
	return m.updateView(ctx, OpUpdatePitch, UpdateViewRequest{Pitch: &pitch})
}

func (m *MapView) updateView(ctx context.Context, op string, req UpdateViewRequest) (*ViewOptions, error) {
	res, err := m.call(ctx, op, req, EventViewChange)
	if err != nil {
		return nil, err
	}
	var v ViewOptions
	if uerr := json.Unmarshal(res.payload, &v); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable view payload", uerr)
	}
	return &v, nil
}

// SearchForLocations runs a location search. The query is trimmed and
// must be 1–100 characters.
func (m *MapView) SearchForLocations(ctx context.Context, query string, opts *SearchOptions) ([]Location, error) {
	if err := m.requireReady(OpSearchForLocations); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.search = SearchState{Query: query, Loading: true}
	m.mu.Unlock()

	req := SearchRequest{Query: query}
	if opts != nil {
		req.FloorID = opts.FloorID
		req.CategoryID = opts.CategoryID
		req.Limit = opts.Limit
	}

	res, err := m.call(ctx, OpSearchForLocations, req, EventSearchForLocations)
	if err != nil {
		m.mu.Lock()
		m.search = SearchState{Query: query, Err: err}
		m.mu.Unlock()
		return nil, err
	}

	var out SearchLocationsResult
	if uerr := json.Unmarshal(res.payload, &out); uerr != nil {
		werr := Wrap(CodeInternal, "undecodable search payload", uerr)
		m.mu.Lock()
		m.search = SearchState{Query: query, Err: werr}
		m.mu.Unlock()
		return nil, werr
	}

	m.mu.Lock()
	m.search = SearchState{Query: query, Results: out.Results}
	m.mu.Unlock()
	return out.Results, nil
}

// SearchForCategories runs a category search with the same query rules
// as location search.
func (m *MapView) SearchForCategories(ctx context.Context, query string) ([]Category, error) {
	if err := m.requireReady(OpSearchForCategories); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	res, err := m.call(ctx, OpSearchForCategories, SearchRequest{Query: query}, EventSearchForCategories)
	if err != nil {
		return nil, err
	}
	var out SearchCategoriesResult
	if uerr := json.Unmarshal(res.payload, &out); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable search payload", uerr)
	}
	return out.Results, nil
}

// GetRoute calculates a route through 2–10 waypoints. Only one route
// calculation may be in flight per MapView; the guard is a flag, not a
// queue. Exactly one of the route callbacks resolves the call.
func (m *MapView) GetRoute(ctx context.Context, waypoints []RouteWaypoint) (*Route, error) {
	if err := m.requireReady(OpGetRoute); err != nil {
		return nil, err
	}
	if err := ValidateWaypoints(waypoints); err != nil {
		return nil, err
	}
	if !m.routeInFlight.CompareAndSwap(false, true) {
		return nil, New(CodeRouteInProgress, "route calculation already in flight")
	}
	defer m.routeInFlight.Store(false)

	res, err := m.call(ctx, OpGetRoute, GetRouteRequest{Waypoints: waypoints}, EventGetRoute, EventGetRouteError)
	if err != nil {
		return nil, err
	}

	var rt Route
	if uerr := json.Unmarshal(res.payload, &rt); uerr != nil {
		return nil, Wrap(CodeRouteDataCorrupt, "undecodable route payload", uerr)
	}
	if len(rt.Segments) == 0 {
		return nil, New(CodeRouteDataCorrupt, "route has no segments")
	}
	return &rt, nil
}

// ShowRoute asks the engine to display a previously calculated route.
func (m *MapView) ShowRoute(ctx context.Context, routeID string) error {
	if err := m.requireReady(OpShowRoute); err != nil {
		return err
	}
	if routeID == "" {
		return missingParam("routeId")
	}
	_, err := m.call(ctx, OpShowRoute, ShowRouteRequest{RouteID: routeID}, EventShowRoute, EventShowRouteError)
	return err
}

// ShowStep focuses the display on one step of a shown route.
func (m *MapView) ShowStep(ctx context.Context, routeID string, segmentIndex, stepIndex int) (*RouteStep, error) {
	if err := m.requireReady(OpShowStep); err != nil {
		return nil, err
	}
	if routeID == "" {
		return nil, missingParam("routeId")
	}
	if segmentIndex < 0 || stepIndex < 0 {
		return nil, New(CodeInvalidParameter, "step indexes must not be negative")
	}
	req := ShowStepRequest{RouteID: routeID, SegmentIndex: segmentIndex, StepIndex: stepIndex}
	res, err := m.call(ctx, OpShowStep, req, EventShowStep, EventShowRouteError)
	if err != nil {
		return nil, err
	}
	var step RouteStep
	if uerr := json.Unmarshal(res.payload, &step); uerr != nil {
		return nil, Wrap(CodeInternal, "undecodable step payload", uerr)
	}
	return &step, nil
}

// ClearRoute removes the displayed route.
func (m *MapView) ClearRoute(ctx context.Context) error {
	if err := m.requireReady(OpClearRoute); err != nil {
		return err
	}
	_, err := m.call(ctx, OpClearRoute, nil, EventRouteClear, EventShowRouteError)
	return err
}

// ---------------------------------------------------------------------------
// Handlers and accessors
// ---------------------------------------------------------------------------

// OnFloorSwitch registers the floor change handler.
func (m *MapView) OnFloorSwitch(fn func(Floor)) {
	m.mu.Lock()
	m.handlers.floorSwitch = fn
	m.mu.Unlock()
}

// OnLocationSelect registers the selection handler.
func (m *MapView) OnLocationSelect(fn func(Location)) {
	m.mu.Lock()
	m.handlers.locationSelect = fn
	m.mu.Unlock()
}

// OnLocationDeselect registers the deselection handler.
func (m *MapView) OnLocationDeselect(fn func()) {
	m.mu.Lock()
	m.handlers.locationDeselect = fn
	m.mu.Unlock()
}

// OnViewChange registers the camera change handler.
func (m *MapView) OnViewChange(fn func(ViewOptions)) {
	m.mu.Lock()
	m.handlers.viewChange = fn
	m.mu.Unlock()
}

// OnSiteRefresh registers the handler for engine-side site data reloads.
func (m *MapView) OnSiteRefresh(fn func(Site)) {
	m.mu.Lock()
	m.handlers.siteRefresh = fn
	m.mu.Unlock()
}

// OnError registers the handler for generic bridge errors.
func (m *MapView) OnError(fn func(*Error)) {
	m.mu.Lock()
	m.handlers.err = fn
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *MapView) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Site returns the site loaded by init, nil before Ready.
func (m *MapView) Site() *Site {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.site
}

// CurrentFloor returns the last known floor, nil before the first floor
// event.
func (m *MapView) CurrentFloor() *Floor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentFloor
}

// View returns the last known camera parameters.
func (m *MapView) View() ViewOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// LastSearch returns the state of the most recent location search.
func (m *MapView) LastSearch() SearchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.search
}

// LastError returns the most recent bridge error, nil when healthy.
func (m *MapView) LastError() *Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}
