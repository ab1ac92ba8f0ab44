package becomap

import "time"

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Site is the top-level venue served by the map engine. The engine owns
// site data; clients only read it.
type Site struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address,omitempty"`
	Center      GeoPoint   `json:"center"`
	Buildings   []Building `json:"buildings,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
}

// Building groups the floors of one physical structure on a site.
type Building struct {
	ID     string  `json:"id"`
	SiteID string  `json:"siteId"`
	Name   string  `json:"name"`
	Floors []Floor `json:"floors,omitempty"`
}

// Floor is one level of a building. Level is the ordinal used for
// floor-switching (0 = ground); Elevation is meters above ground.
type Floor struct {
	ID         string  `json:"id"`
	BuildingID string  `json:"buildingId"`
	Name       string  `json:"name"`
	ShortName  string  `json:"shortName,omitempty"`
	Level      int     `json:"level"`
	Elevation  float64 `json:"elevation"`
}

// Category classifies locations (food, retail, services, ...).
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IconName string `json:"iconName,omitempty"`
}

// Location is a selectable point of interest on a floor.
type Location struct {
	ID          string   `json:"id"`
	FloorID     string   `json:"floorId"`
	CategoryID  string   `json:"categoryId,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Amenity     string   `json:"amenity,omitempty"`
	Center      GeoPoint `json:"center"`
	Tags        []string `json:"tags,omitempty"`
}

// StepAction is the movement kind of a single route step.
type StepAction string

const (
	ActionDepart    StepAction = "depart"
	ActionStraight  StepAction = "straight"
	ActionTurn      StepAction = "turn"
	ActionElevator  StepAction = "elevator"
	ActionEscalator StepAction = "escalator"
	ActionStairs    StepAction = "stairs"
	ActionArrive    StepAction = "arrive"
)

// IsValid reports whether the action is one of the known values.
func (a StepAction) IsValid() bool {
	switch a {
	case ActionDepart, ActionStraight, ActionTurn, ActionElevator, ActionEscalator, ActionStairs, ActionArrive:
		return true
	}
	return false
}

// StepDirection refines a turn step.
type StepDirection string

const (
	DirectionLeft        StepDirection = "left"
	DirectionRight       StepDirection = "right"
	DirectionSlightLeft  StepDirection = "slight-left"
	DirectionSlightRight StepDirection = "slight-right"
	DirectionStraight    StepDirection = "straight"
	DirectionAround      StepDirection = "around"
)

// IsValid reports whether the direction is one of the known values.
func (d StepDirection) IsValid() bool {
	switch d {
	case DirectionLeft, DirectionRight, DirectionSlightLeft, DirectionSlightRight, DirectionStraight, DirectionAround:
		return true
	}
	return false
}

// RouteStep is one navigation instruction. Steps are immutable once
// received.
type RouteStep struct {
	Index       int           `json:"index"`
	Action      StepAction    `json:"action"`
	Direction   StepDirection `json:"direction,omitempty"`
	Distance    float64       `json:"distance"`
	FloorID     string        `json:"floorId"`
	Instruction string        `json:"instruction,omitempty"`
	Center      GeoPoint      `json:"center"`
}

// RouteSegment is the ordered run of steps on a single floor.
type RouteSegment struct {
	Index    int         `json:"index"`
	FloorID  string      `json:"floorId"`
	Distance float64     `json:"distance"`
	Duration float64     `json:"duration"`
	Steps    []RouteStep `json:"steps"`
}

// Route is a full navigation result. Distance is meters, Duration seconds.
type Route struct {
	ID       string         `json:"id"`
	Distance float64        `json:"distance"`
	Duration float64        `json:"duration"`
	Segments []RouteSegment `json:"segments"`
}

// RouteWaypoint is one endpoint or via of a route request. Either
// LocationID or Point+FloorID must be set.
type RouteWaypoint struct {
	LocationID string    `json:"locationId,omitempty"`
	Point      *GeoPoint `json:"point,omitempty"`
	FloorID    string    `json:"floorId,omitempty"`
}

// ViewOptions mirrors the engine camera. Ranges are enforced at the call
// boundary, not here.
type ViewOptions struct {
	Center  *GeoPoint `json:"center,omitempty"`
	Zoom    float64   `json:"zoom"`
	Bearing float64   `json:"bearing"`
	Pitch   float64   `json:"pitch"`
	FloorID string    `json:"floorId,omitempty"`
}

// FocusOptions targets the camera at a location or an explicit point.
// Nil numeric fields keep the current camera value.
type FocusOptions struct {
	LocationID string    `json:"locationId,omitempty"`
	Center     *GeoPoint `json:"center,omitempty"`
	FloorID    string    `json:"floorId,omitempty"`
	Zoom       *float64  `json:"zoom,omitempty"`
	Bearing    *float64  `json:"bearing,omitempty"`
	Pitch      *float64  `json:"pitch,omitempty"`
}

// SearchOptions narrows a location search.
type SearchOptions struct {
	FloorID    string `json:"floorId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// SearchState is the client-side projection of the most recent search.
// It is ephemeral and never crosses the wire.
type SearchState struct {
	Query   string
	Results []Location
	Loading bool
	Err     error
}

// HealthStatus is the engine health report.
type HealthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
}

// MapOptions configures init. LoadTimeout bounds the init round-trip on
// the client side only and is not part of the wire payload.
type MapOptions struct {
	SiteID         string       `json:"siteId"`
	APIKey         string       `json:"apiKey,omitempty"`
	InitialFloorID string       `json:"initialFloorId,omitempty"`
	View           *ViewOptions `json:"view,omitempty"`

	LoadTimeout time.Duration `json:"-"`
}
