package http

import (
	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// The REST surface serves domain types (snake_case); the bridge speaks
// the client SDK's wire schema (camelCase). These converters sit on
// that boundary.

func wireSite(s *domain.Site) becomap.Site {
	out := becomap.Site{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Address:     s.Address,
		Center:      wirePoint(s.Center),
	}
	for _, b := range s.Buildings {
		out.Buildings = append(out.Buildings, wireBuilding(b))
	}
	for _, c := range s.Categories {
		out.Categories = append(out.Categories, wireCategory(c))
	}
	return out
}

func wireBuilding(b domain.Building) becomap.Building {
	out := becomap.Building{
		ID:     b.ID,
		SiteID: b.SiteID,
		Name:   b.Name,
	}
	for _, f := range b.Floors {
		out.Floors = append(out.Floors, wireFloor(f))
	}
	return out
}

func wireFloor(f domain.Floor) becomap.Floor {
	return becomap.Floor{
		ID:         f.ID,
		BuildingID: f.BuildingID,
		Name:       f.Name,
		ShortName:  f.ShortName,
		Level:      f.Level,
		Elevation:  f.Elevation,
	}
}

func wireCategory(c domain.Category) becomap.Category {
	return becomap.Category{
		ID:       c.ID,
		Name:     c.Name,
		IconName: c.IconName,
	}
}

func wireLocation(l domain.Location) becomap.Location {
	return becomap.Location{
		ID:          l.ID,
		FloorID:     l.FloorID,
		CategoryID:  l.CategoryID,
		Name:        l.Name,
		Description: l.Description,
		Amenity:     l.Amenity,
		Center:      wirePoint(l.Center),
		Tags:        l.Tags,
	}
}

// wireLocations always returns a non-nil slice so search results encode
// as [] rather than null.
func wireLocations(ls []domain.Location) []becomap.Location {
	out := make([]becomap.Location, 0, len(ls))
	for _, l := range ls {
		out = append(out, wireLocation(l))
	}
	return out
}

func wireCategories(cs []domain.Category) []becomap.Category {
	out := make([]becomap.Category, 0, len(cs))
	for _, c := range cs {
		out = append(out, wireCategory(c))
	}
	return out
}

func wirePoint(p domain.GeoPoint) becomap.GeoPoint {
	return becomap.GeoPoint{Lat: p.Lat, Lon: p.Lon}
}
