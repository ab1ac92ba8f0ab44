package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	siteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Site",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"slug":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"center":      &graphql.Field{Type: geoPointType},
			"version":     &graphql.Field{Type: graphql.Int},
		},
	})

	floorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Floor",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"building_id": &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"short_name":  &graphql.Field{Type: graphql.String},
			"level":       &graphql.Field{Type: graphql.Int},
			"elevation":   &graphql.Field{Type: graphql.Float},
		},
	})

	categoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"site_id":   &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"icon_name": &graphql.Field{Type: graphql.String},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"floor_id":    &graphql.Field{Type: graphql.String},
			"category_id": &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"amenity":     &graphql.Field{Type: graphql.String},
			"center":      &graphql.Field{Type: geoPointType},
			"tags":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"distance":    &graphql.Field{Type: graphql.Float},
		},
	})

	// Route types carry the bridge wire schema, so their field names are
	// camelCase where the rest of the graph is snake_case.
	routeStepType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteStep",
		Fields: graphql.Fields{
			"index":       &graphql.Field{Type: graphql.Int},
			"action":      &graphql.Field{Type: graphql.String},
			"direction":   &graphql.Field{Type: graphql.String},
			"distance":    &graphql.Field{Type: graphql.Float},
			"floorId":     &graphql.Field{Type: graphql.String},
			"instruction": &graphql.Field{Type: graphql.String},
			"center":      &graphql.Field{Type: geoPointType},
		},
	})

	routeSegmentType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteSegment",
		Fields: graphql.Fields{
			"index":    &graphql.Field{Type: graphql.Int},
			"floorId":  &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
			"duration": &graphql.Field{Type: graphql.Float},
			"steps":    &graphql.Field{Type: graphql.NewList(routeStepType)},
		},
	})

	routeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Route",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"distance": &graphql.Field{Type: graphql.Float},
			"duration": &graphql.Field{Type: graphql.Float},
			"segments": &graphql.Field{Type: graphql.NewList(routeSegmentType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"sites": &graphql.Field{
				Type:        graphql.NewList(siteType),
				Description: "List all published sites",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Venues.ListSites(p.Context)
				},
			},
			"site": &graphql.Field{
				Type:        siteType,
				Description: "Get a site by ID or slug",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Venues.GetSite(p.Context, id)
				},
			},
			"floors": &graphql.Field{
				Type:        graphql.NewList(floorType),
				Description: "List a site's floors ordered by level",
				Args: graphql.FieldConfigArgument{
					"site_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					siteID := p.Args["site_id"].(string)
					return deps.Venues.ListFloors(p.Context, siteID)
				},
			},
			"categories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "List a site's location categories",
				Args: graphql.FieldConfigArgument{
					"site_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					siteID := p.Args["site_id"].(string)
					return deps.Venues.ListCategories(p.Context, siteID)
				},
			},
			"locationsNearby": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Find locations near a point",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 250.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Venues.FindNearbyLocations(p.Context, lat, lon, radius, limit)
				},
			},
			"searchLocations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "Search locations by name (fuzzy matching)",
				Args: graphql.FieldConfigArgument{
					"site_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					siteID := p.Args["site_id"].(string)
					q := p.Args["query"].(string)
					limit := p.Args["limit"].(int)
					return deps.Search.SearchLocations(p.Context, siteID, q, nil, limit)
				},
			},
			"searchCategories": &graphql.Field{
				Type:        graphql.NewList(categoryType),
				Description: "Search categories by name (fuzzy matching)",
				Args: graphql.FieldConfigArgument{
					"site_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					siteID := p.Args["site_id"].(string)
					q := p.Args["query"].(string)
					limit := p.Args["limit"].(int)
					return deps.Search.SearchCategories(p.Context, siteID, q, limit)
				},
			},
			"location": &graphql.Field{
				Type:        locationType,
				Description: "Get a location by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Venues.GetLocation(p.Context, id)
				},
			},
			"route": &graphql.Field{
				Type:        routeType,
				Description: "Recall a computed route by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Routes.GetRoute(p.Context, id)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
