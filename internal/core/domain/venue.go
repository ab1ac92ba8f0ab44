package domain

import (
	"fmt"
	"time"
)

// Site is a mapped venue: a campus, mall, airport, or other indoor
// complex. A site aggregates buildings and the category taxonomy its
// locations are tagged with.
type Site struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address,omitempty"`
	Center      GeoPoint   `json:"center"`
	Version     int        `json:"version"`
	Buildings   []Building `json:"buildings,omitempty"`
	Categories  []Category `json:"categories,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Building groups the floors of one physical structure on a site.
type Building struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	Name      string    `json:"name"`
	Outline   *GeoLine  `json:"outline,omitempty"`
	Floors    []Floor   `json:"floors,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Floor is one level of a building. Level is the ordinal used for
// vertical ordering; Elevation is meters above the site datum.
type Floor struct {
	ID         string    `json:"id"`
	BuildingID string    `json:"building_id"`
	Name       string    `json:"name"`
	ShortName  string    `json:"short_name,omitempty"`
	Level      int       `json:"level"`
	Elevation  float64   `json:"elevation"`
	CreatedAt  time.Time `json:"created_at"`
}

// Category is a taxonomy entry locations are tagged with.
type Category struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"site_id"`
	Name      string    `json:"name"`
	IconName  string    `json:"icon_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Location is a selectable point of interest on a floor.
type Location struct {
	ID          string         `json:"id"`
	FloorID     string         `json:"floor_id"`
	CategoryID  string         `json:"category_id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Amenity     string         `json:"amenity,omitempty"`
	Center      GeoPoint       `json:"center"`
	Tags        []string       `json:"tags,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Distance    *float64       `json:"distance,omitempty"` // computed field
	CreatedAt   time.Time      `json:"created_at"`
}

// ConnectorKind is the vertical transport type of a connector.
type ConnectorKind string

const (
	ConnectorElevator  ConnectorKind = "elevator"
	ConnectorEscalator ConnectorKind = "escalator"
	ConnectorStairs    ConnectorKind = "stairs"
)

// Connector links two floors at a fixed point, e.g. an elevator shaft.
// Routes that span floors pass through connectors.
type Connector struct {
	ID          string        `json:"id"`
	SiteID      string        `json:"site_id"`
	Kind        ConnectorKind `json:"kind"`
	Name        string        `json:"name,omitempty"`
	FromFloorID string        `json:"from_floor_id"`
	ToFloorID   string        `json:"to_floor_id"`
	Point       GeoPoint      `json:"point"`
	TraverseSec int           `json:"traverse_sec"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Bundle is a fully loaded site: the aggregate handed to bridge
// sessions at init and shipped by the ingestor.
type Bundle struct {
	Site       Site        `json:"site"`
	Locations  []Location  `json:"locations"`
	Connectors []Connector `json:"connectors,omitempty"`
}

// Validate checks the structural invariants a bundle must hold before
// it is persisted or served.
func (b *Bundle) Validate() error {
	if b.Site.ID == "" {
		return fmt.Errorf("bundle: site id is required")
	}
	if b.Site.Name == "" {
		return fmt.Errorf("bundle: site name is required")
	}
	if len(b.Site.Buildings) == 0 {
		return fmt.Errorf("bundle: site %s has no buildings", b.Site.ID)
	}

	floors := make(map[string]struct{})
	for _, bl := range b.Site.Buildings {
		if bl.ID == "" {
			return fmt.Errorf("bundle: building without id in site %s", b.Site.ID)
		}
		if len(bl.Floors) == 0 {
			return fmt.Errorf("bundle: building %s has no floors", bl.ID)
		}
		for _, f := range bl.Floors {
			if f.ID == "" {
				return fmt.Errorf("bundle: floor without id in building %s", bl.ID)
			}
			if _, dup := floors[f.ID]; dup {
				return fmt.Errorf("bundle: duplicate floor id %s", f.ID)
			}
			floors[f.ID] = struct{}{}
		}
	}

	for _, loc := range b.Locations {
		if loc.ID == "" {
			return fmt.Errorf("bundle: location without id in site %s", b.Site.ID)
		}
		if _, ok := floors[loc.FloorID]; !ok {
			return fmt.Errorf("bundle: location %s references unknown floor %s", loc.ID, loc.FloorID)
		}
	}

	for _, c := range b.Connectors {
		if _, ok := floors[c.FromFloorID]; !ok {
			return fmt.Errorf("bundle: connector %s references unknown floor %s", c.ID, c.FromFloorID)
		}
		if _, ok := floors[c.ToFloorID]; !ok {
			return fmt.Errorf("bundle: connector %s references unknown floor %s", c.ID, c.ToFloorID)
		}
	}
	return nil
}

// Floors flattens the buildings into one slice ordered as stored.
func (b *Bundle) Floors() []Floor {
	var out []Floor
	for _, bl := range b.Site.Buildings {
		out = append(out, bl.Floors...)
	}
	return out
}

// Floor finds a floor by id, nil when absent.
func (b *Bundle) Floor(id string) *Floor {
	for bi := range b.Site.Buildings {
		for fi := range b.Site.Buildings[bi].Floors {
			if b.Site.Buildings[bi].Floors[fi].ID == id {
				return &b.Site.Buildings[bi].Floors[fi]
			}
		}
	}
	return nil
}

// Location finds a location by id, nil when absent.
func (b *Bundle) Location(id string) *Location {
	for i := range b.Locations {
		if b.Locations[i].ID == id {
			return &b.Locations[i]
		}
	}
	return nil
}

// DefaultFloor picks the floor a fresh session lands on: the lowest
// non-negative level, falling back to the first floor stored.
func (b *Bundle) DefaultFloor() *Floor {
	var best *Floor
	for bi := range b.Site.Buildings {
		for fi := range b.Site.Buildings[bi].Floors {
			f := &b.Site.Buildings[bi].Floors[fi]
			if best == nil {
				best = f
				continue
			}
			if f.Level >= 0 && (best.Level < 0 || f.Level < best.Level) {
				best = f
			}
		}
	}
	return best
}

// ConnectorsBetween returns connectors joining two floors, in either
// direction.
func (b *Bundle) ConnectorsBetween(fromFloorID, toFloorID string) []Connector {
	var out []Connector
	for _, c := range b.Connectors {
		if (c.FromFloorID == fromFloorID && c.ToFloorID == toFloorID) ||
			(c.FromFloorID == toFloorID && c.ToFloorID == fromFloorID) {
			out = append(out, c)
		}
	}
	return out
}
