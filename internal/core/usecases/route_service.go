package usecases

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/internal/pkg/geospatial"
	"github.com/becomap/becomap-go/pkg/becomap"
)

const (
	walkSpeedMetersPerSec  = 1.4
	defaultConnectorSec    = 30
	turnThresholdDeg       = 15.0
	routeTTLSeconds        = 1800
	maxRememberedRoutes    = 128
	metersPerFloorFallback = 4.0
)

// RoutePlanner synthesizes navigation routes between waypoints of a
// site. Legs are straight great-circle walks; floor changes go through
// a connector joining the two floors. There is no corridor geometry
// and no graph search behind this.
type RoutePlanner struct {
	venues *VenueService
	cache  ports.CacheService

	mu     sync.Mutex
	recent map[string]*becomap.Route
	order  []string
}

func NewRoutePlanner(venues *VenueService, cache ports.CacheService) *RoutePlanner {
	return &RoutePlanner{
		venues: venues,
		cache:  cache,
		recent: make(map[string]*becomap.Route),
	}
}

// ComputeRoute plans a route through the given waypoints and stores it
// so ShowRoute can recall it by id later.
func (p *RoutePlanner) ComputeRoute(ctx context.Context, siteID string, waypoints []becomap.RouteWaypoint) (*becomap.Route, error) {
	if err := becomap.ValidateWaypoints(waypoints); err != nil {
		return nil, err
	}

	bundle, err := p.venues.GetBundle(ctx, siteID)
	if err != nil {
		return nil, becomap.Wrap(becomap.CodeSiteDataUnavailable, "load site "+siteID, err)
	}

	pts := make([]routePoint, len(waypoints))
	for i, wp := range waypoints {
		rp, err := resolveWaypoint(bundle, wp, i)
		if err != nil {
			return nil, err
		}
		pts[i] = rp
	}

	rb := newRouteBuilder()
	rb.depart(pts[0])
	for i := 0; i < len(pts)-1; i++ {
		if err := rb.leg(bundle, pts[i], pts[i+1]); err != nil {
			return nil, err
		}
	}
	rb.arrive(pts[len(pts)-1])

	route := rb.finish(newRouteID())
	p.remember(ctx, route)
	return route, nil
}

// GetRoute recalls a previously computed route by id.
func (p *RoutePlanner) GetRoute(ctx context.Context, routeID string) (*becomap.Route, error) {
	p.mu.Lock()
	if r, ok := p.recent[routeID]; ok {
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	if p.cache != nil {
		if data, err := p.cache.Get(ctx, "route:"+routeID); err == nil && data != nil {
			var route becomap.Route
			if err := json.Unmarshal(data, &route); err == nil {
				return &route, nil
			}
		}
	}
	return nil, becomap.New(becomap.CodeRouteNotFound, "route "+routeID+" not found").
		WithMetadata(map[string]string{"routeId": routeID})
}

func (p *RoutePlanner) remember(ctx context.Context, route *becomap.Route) {
	p.mu.Lock()
	p.recent[route.ID] = route
	p.order = append(p.order, route.ID)
	for len(p.order) > maxRememberedRoutes {
		delete(p.recent, p.order[0])
		p.order = p.order[1:]
	}
	p.mu.Unlock()

	if p.cache != nil {
		if data, err := json.Marshal(route); err == nil {
			_ = p.cache.Set(ctx, "route:"+route.ID, data, routeTTLSeconds)
		}
	}
}

func newRouteID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return "rt-" + hex.EncodeToString(b)
}

// routePoint is a waypoint resolved to coordinates on a known floor.
type routePoint struct {
	point   domain.GeoPoint
	floorID string
	name    string
}

func resolveWaypoint(bundle *domain.Bundle, wp becomap.RouteWaypoint, index int) (routePoint, error) {
	if wp.LocationID != "" {
		loc := bundle.Location(wp.LocationID)
		if loc == nil {
			return routePoint{}, becomap.New(becomap.CodeInvalidWaypoint, "waypoint references unknown location").
				WithMetadata(map[string]string{"index": fmt.Sprintf("%d", index), "locationId": wp.LocationID})
		}
		return routePoint{point: loc.Center, floorID: loc.FloorID, name: loc.Name}, nil
	}

	if bundle.Floor(wp.FloorID) == nil {
		return routePoint{}, becomap.New(becomap.CodeInvalidWaypoint, "waypoint references unknown floor").
			WithMetadata(map[string]string{"index": fmt.Sprintf("%d", index), "floorId": wp.FloorID})
	}
	return routePoint{
		point:   domain.GeoPoint{Lat: wp.Point.Lat, Lon: wp.Point.Lon},
		floorID: wp.FloorID,
	}, nil
}

// routeBuilder accumulates steps into per-floor segments.
type routeBuilder struct {
	segments    []becomap.RouteSegment
	cur         *becomap.RouteSegment
	stepIndex   int
	distance    float64
	duration    float64
	lastBearing *float64
}

func newRouteBuilder() *routeBuilder {
	return &routeBuilder{}
}

func (rb *routeBuilder) ensureSegment(floorID string) {
	if rb.cur != nil && rb.cur.FloorID == floorID {
		return
	}
	if rb.cur != nil {
		rb.segments = append(rb.segments, *rb.cur)
	}
	rb.cur = &becomap.RouteSegment{Index: len(rb.segments), FloorID: floorID}
}

func (rb *routeBuilder) addStep(action becomap.StepAction, dir becomap.StepDirection, floorID, instruction string, at domain.GeoPoint, distance, durationSec float64) {
	rb.ensureSegment(floorID)
	rb.cur.Steps = append(rb.cur.Steps, becomap.RouteStep{
		Index:       rb.stepIndex,
		Action:      action,
		Direction:   dir,
		Distance:    distance,
		FloorID:     floorID,
		Instruction: instruction,
		Center:      becomap.GeoPoint{Lat: at.Lat, Lon: at.Lon},
	})
	rb.stepIndex++
	rb.cur.Distance += distance
	rb.cur.Duration += durationSec
	rb.distance += distance
	rb.duration += durationSec
}

func (rb *routeBuilder) depart(p routePoint) {
	rb.addStep(becomap.ActionDepart, "", p.floorID, departInstruction(p), p.point, 0, 0)
}

func (rb *routeBuilder) arrive(p routePoint) {
	rb.addStep(becomap.ActionArrive, "", p.floorID, arriveInstruction(p), p.point, 0, 0)
}

// leg connects two resolved points. Same-floor legs are one straight
// walk, with a turn step when the heading changes enough. Cross-floor
// legs require a connector joining the two floors and break into walk,
// connector, walk.
func (rb *routeBuilder) leg(bundle *domain.Bundle, from, to routePoint) error {
	if from.floorID == to.floorID {
		rb.walk(from, to)
		return nil
	}

	conn := nearestConnector(bundle.ConnectorsBetween(from.floorID, to.floorID), from.point)
	if conn == nil {
		return becomap.New(becomap.CodeRouteNotFound, "floors are not connected").
			WithMetadata(map[string]string{"fromFloorId": from.floorID, "toFloorId": to.floorID})
	}

	connFrom := routePoint{point: conn.Point, floorID: from.floorID, name: connectorName(conn)}
	rb.walk(from, connFrom)
	rb.connector(bundle, conn, from.floorID, to.floorID)
	rb.lastBearing = nil
	connTo := routePoint{point: conn.Point, floorID: to.floorID, name: connectorName(conn)}
	rb.walk(connTo, to)
	return nil
}

func (rb *routeBuilder) walk(from, to routePoint) {
	dist := geospatial.Haversine(from.point.Lat, from.point.Lon, to.point.Lat, to.point.Lon)
	if dist < 1 {
		return
	}

	bearing := geospatial.InitialBearing(from.point.Lat, from.point.Lon, to.point.Lat, to.point.Lon)
	if rb.lastBearing != nil {
		if dir := turnDirection(*rb.lastBearing, bearing); dir != "" {
			rb.addStep(becomap.ActionTurn, dir, from.floorID, turnInstruction(dir), from.point, 0, 0)
		}
	}
	rb.lastBearing = &bearing

	rb.addStep(becomap.ActionStraight, "", from.floorID, walkInstruction(dist, to), from.point, dist, dist/walkSpeedMetersPerSec)
}

func (rb *routeBuilder) connector(bundle *domain.Bundle, conn *domain.Connector, fromFloorID, toFloorID string) {
	action := becomap.ActionElevator
	switch conn.Kind {
	case domain.ConnectorEscalator:
		action = becomap.ActionEscalator
	case domain.ConnectorStairs:
		action = becomap.ActionStairs
	}

	seconds := float64(conn.TraverseSec)
	if seconds <= 0 {
		seconds = defaultConnectorSec
	}

	dist := metersPerFloorFallback
	fromFloor, toFloor := bundle.Floor(fromFloorID), bundle.Floor(toFloorID)
	if fromFloor != nil && toFloor != nil {
		if dh := math.Abs(toFloor.Elevation - fromFloor.Elevation); dh > 0 {
			dist = dh
		}
	}

	target := toFloorID
	if toFloor != nil && toFloor.Name != "" {
		target = toFloor.Name
	}
	instruction := fmt.Sprintf("Take the %s to %s", conn.Kind, target)

	// The connector step is placed on the destination floor so its
	// segment opens the new floor.
	rb.addStep(action, "", toFloorID, instruction, conn.Point, dist, seconds)
}

func (rb *routeBuilder) finish(id string) *becomap.Route {
	if rb.cur != nil {
		rb.segments = append(rb.segments, *rb.cur)
		rb.cur = nil
	}
	return &becomap.Route{
		ID:       id,
		Distance: math.Round(rb.distance*10) / 10,
		Duration: math.Round(rb.duration),
		Segments: rb.segments,
	}
}

func nearestConnector(conns []domain.Connector, from domain.GeoPoint) *domain.Connector {
	var best *domain.Connector
	bestDist := math.MaxFloat64
	for i := range conns {
		d := geospatial.Haversine(from.Lat, from.Lon, conns[i].Point.Lat, conns[i].Point.Lon)
		if d < bestDist {
			best = &conns[i]
			bestDist = d
		}
	}
	return best
}

func connectorName(c *domain.Connector) string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.Kind)
}

// turnDirection classifies the heading change between two bearings.
// Small changes return "" and produce no turn step.
func turnDirection(prev, next float64) becomap.StepDirection {
	delta := math.Mod(next-prev+540, 360) - 180
	switch {
	case delta > 120 || delta < -120:
		return becomap.DirectionAround
	case delta > 45:
		return becomap.DirectionRight
	case delta > turnThresholdDeg:
		return becomap.DirectionSlightRight
	case delta < -45:
		return becomap.DirectionLeft
	case delta < -turnThresholdDeg:
		return becomap.DirectionSlightLeft
	default:
		return ""
	}
}

func turnInstruction(dir becomap.StepDirection) string {
	switch dir {
	case becomap.DirectionLeft:
		return "Turn left"
	case becomap.DirectionRight:
		return "Turn right"
	case becomap.DirectionSlightLeft:
		return "Bear left"
	case becomap.DirectionSlightRight:
		return "Bear right"
	case becomap.DirectionAround:
		return "Turn around"
	}
	return "Continue"
}

func walkInstruction(dist float64, to routePoint) string {
	target := "your destination"
	if to.name != "" {
		target = to.name
	}
	return fmt.Sprintf("Walk %d m toward %s", int(math.Round(dist)), target)
}

func departInstruction(p routePoint) string {
	if p.name != "" {
		return "Start at " + p.name
	}
	return "Start here"
}

func arriveInstruction(p routePoint) string {
	if p.name != "" {
		return "Arrive at " + p.name
	}
	return "You have arrived"
}
