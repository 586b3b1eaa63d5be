package export

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func toGeoJSON(route *models.Route) ([]byte, error) {
	collection := geojson.NewFeatureCollection()

	path := route.FullPath()
	line := make(orb.LineString, 0, len(path))

	for _, coordinate := range path {
		line = append(line, orb.Point{coordinate.Lon, coordinate.Lat})
	}

	routeFeature := geojson.NewFeature(line)
	routeFeature.Properties["name"] = route.Title
	routeFeature.Properties["kind"] = "route"
	routeFeature.Properties["total_distance_km"] = route.TotalDistanceKM
	routeFeature.Properties["total_duration_min"] = route.TotalDurationMin

	if len(route.Highlights) > 0 {
		routeFeature.Properties["highlights"] = route.Highlights
	}

	collection.Append(routeFeature)

	for _, waypoint := range route.Waypoints() {
		feature := geojson.NewFeature(orb.Point{waypoint.Coordinate.Lon, waypoint.Coordinate.Lat})
		feature.Properties["name"] = waypoint.Label
		feature.Properties["kind"] = "waypoint"
		feature.Properties["role"] = string(waypoint.Role)
		feature.Properties["day"] = waypoint.Day

		collection.Append(feature)
	}

	body, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}

	return body, nil
}
