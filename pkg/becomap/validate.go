package becomap

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Fixed parameter bounds of the bridge contract.
const (
	MinZoom    = 1.0
	MaxZoom    = 25.0
	MinBearing = 0.0
	MaxBearing = 360.0
	MinPitch   = 0.0
	MaxPitch   = 60.0

	MinWaypoints = 2
	MaxWaypoints = 10

	MaxQueryLen = 100
)

func outOfRange(param string, v, lo, hi float64) *Error {
	return New(CodeOutOfRange, fmt.Sprintf("%s %g outside [%g, %g]", param, v, lo, hi)).
		WithMetadata(map[string]string{
			"parameter": param,
			"value":     strconv.FormatFloat(v, 'f', -1, 64),
		})
}

func missingParam(param string) *Error {
	return New(CodeMissingParameter, param+" is required").
		WithMetadata(map[string]string{"parameter": param})
}

// ValidateZoom checks zoom against [1, 25].
func ValidateZoom(zoom float64) error {
	if zoom < MinZoom || zoom > MaxZoom {
		return outOfRange("zoom", zoom, MinZoom, MaxZoom)
	}
	return nil
}

// ValidateBearing checks bearing against [0, 360].
func ValidateBearing(bearing float64) error {
	if bearing < MinBearing || bearing > MaxBearing {
		return outOfRange("bearing", bearing, MinBearing, MaxBearing)
	}
	return nil
}

// ValidatePitch checks pitch against [0, 60].
func ValidatePitch(pitch float64) error {
	if pitch < MinPitch || pitch > MaxPitch {
		return outOfRange("pitch", pitch, MinPitch, MaxPitch)
	}
	return nil
}

// ValidateQuery checks a search query: non-empty, at most 100 characters.
func ValidateQuery(query string) error {
	if query == "" {
		return missingParam("query")
	}
	if n := utf8.RuneCountInString(query); n > MaxQueryLen {
		return New(CodeQueryTooLong, fmt.Sprintf("query is %d characters, limit %d", n, MaxQueryLen)).
			WithMetadata(map[string]string{"length": strconv.Itoa(n)})
	}
	return nil
}

// Validate checks that a waypoint names a location or an explicit point
// with its floor.
func (w RouteWaypoint) Validate() error {
	if w.LocationID != "" {
		return nil
	}
	if w.Point == nil {
		return New(CodeInvalidWaypoint, "waypoint needs locationId or point")
	}
	if w.FloorID == "" {
		return New(CodeInvalidWaypoint, "waypoint with point needs floorId")
	}
	return nil
}

// ValidateWaypoints checks count bounds and each waypoint.
func ValidateWaypoints(waypoints []RouteWaypoint) error {
	if len(waypoints) < MinWaypoints {
		return New(CodeMissingParameter, fmt.Sprintf("route needs at least %d waypoints, got %d", MinWaypoints, len(waypoints)))
	}
	if len(waypoints) > MaxWaypoints {
		return New(CodeTooManyWaypoints, fmt.Sprintf("route accepts at most %d waypoints, got %d", MaxWaypoints, len(waypoints))).
			WithMetadata(map[string]string{"count": strconv.Itoa(len(waypoints))})
	}
	for i, w := range waypoints {
		if err := w.Validate(); err != nil {
			if e, ok := err.(*Error); ok {
				return e.WithMetadata(map[string]string{"index": strconv.Itoa(i)})
			}
			return err
		}
	}
	return nil
}

// Validate checks init options.
func (o MapOptions) Validate() error {
	if o.SiteID == "" {
		return New(CodeInvalidOptions, "siteId is required")
	}
	if o.View != nil {
		if err := o.View.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a full camera description.
func (v ViewOptions) Validate() error {
	if err := ValidateZoom(v.Zoom); err != nil {
		return err
	}
	if err := ValidateBearing(v.Bearing); err != nil {
		return err
	}
	return ValidatePitch(v.Pitch)
}

// Validate checks focus options: a target is required, camera fields are
// optional but range-checked when present.
func (o FocusOptions) Validate() error {
	if o.LocationID == "" && o.Center == nil {
		return missingParam("locationId or center")
	}
	if o.Zoom != nil {
		if err := ValidateZoom(*o.Zoom); err != nil {
			return err
		}
	}
	if o.Bearing != nil {
		if err := ValidateBearing(*o.Bearing); err != nil {
			return err
		}
	}
	if o.Pitch != nil {
		if err := ValidatePitch(*o.Pitch); err != nil {
			return err
		}
	}
	return nil
}
