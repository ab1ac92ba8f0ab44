package becomap

// Request and result payload shapes shared by the client and the engine.

// SelectFloorRequest is the payload of selectFloor.
type SelectFloorRequest struct {
	FloorID string `json:"floorId"`
}

// SelectLocationRequest is the payload of selectLocationWithId.
type SelectLocationRequest struct {
	LocationID string `json:"locationId"`
}

// UpdateViewRequest is the payload of updateZoom, updateBearing and
// updatePitch. Only the field for the invoked operation is set.
type UpdateViewRequest struct {
	Zoom    *float64 `json:"zoom,omitempty"`
	Bearing *float64 `json:"bearing,omitempty"`
	Pitch   *float64 `json:"pitch,omitempty"`
}

// SearchRequest is the payload of searchForLocations and
// searchForCategories.
type SearchRequest struct {
	Query      string `json:"query"`
	FloorID    string `json:"floorId,omitempty"`
	CategoryID string `json:"categoryId,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// GetRouteRequest is the payload of getRoute.
type GetRouteRequest struct {
	Waypoints []RouteWaypoint `json:"waypoints"`
}

// ShowRouteRequest is the payload of showRoute.
type ShowRouteRequest struct {
	RouteID string `json:"routeId"`
}

// ShowStepRequest is the payload of showStep.
type ShowStepRequest struct {
	RouteID      string `json:"routeId"`
	SegmentIndex int    `json:"segmentIndex"`
	StepIndex    int    `json:"stepIndex"`
}

// SearchLocationsResult is the payload of onSearchForLocations.
type SearchLocationsResult struct {
	Query   string     `json:"query"`
	Results []Location `json:"results"`
}

// SearchCategoriesResult is the payload of onSearchForCategories.
type SearchCategoriesResult struct {
	Query   string     `json:"query"`
	Results []Category `json:"results"`
}
