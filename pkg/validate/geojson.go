package validate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/xeipuuv/gojsonschema"
)

const featureCollectionSchema = `{
  "type": "object",
  "required": ["type", "features"],
  "properties": {
    "type": {"const": "FeatureCollection"},
    "features": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "geometry"],
        "properties": {
          "type": {"const": "Feature"},
          "properties": {"type": ["object", "null"]},
          "geometry": {
            "type": "object",
            "required": ["type", "coordinates"],
            "properties": {
              "type": {"enum": ["Point", "MultiPoint", "LineString", "MultiLineString"]},
              "coordinates": {"type": "array"}
            }
          }
        }
      }
    }
  }
}`

var featureCollectionLoader = gojsonschema.NewStringLoader(featureCollectionSchema)

func checkGeoJSON(data []byte, result *Result) {
	if !json.Valid(data) {
		result.errorf("malformed JSON")
		return
	}

	schemaResult, err := gojsonschema.Validate(featureCollectionLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		result.errorf("malformed JSON: %v", err)
		return
	}

	if !schemaResult.Valid() {
		for _, schemaErr := range schemaResult.Errors() {
			result.errorf("%s", schemaErr.String())
		}

		return
	}

	collection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		result.errorf("decode feature collection: %v", err)
		return
	}

	var (
		points     int
		lines      int
		routeNamed bool
	)

	for i, feature := range collection.Features {
		where := "feature " + strconv.Itoa(i+1)

		for _, point := range flatten(feature.Geometry) {
			points++
			checkRange(result, where, point.Lat(), point.Lon())
		}

		name := strings.TrimSpace(feature.Properties.MustString("name", ""))

		switch feature.Geometry.(type) {
		case orb.LineString, orb.MultiLineString:
			lines++

			if name != "" {
				routeNamed = true
			}
		case orb.Point:
			if name == "" {
				result.warnf("%s: waypoint has no name", where)
			}
		}
	}

	if points == 0 {
		result.errorf("document has no waypoints, routes or tracks")
	}

	if lines > 0 && !routeNamed {
		result.warnf("route has no name")
	}
}

func flatten(geometry orb.Geometry) []orb.Point {
	switch g := geometry.(type) {
	case orb.Point:
		return []orb.Point{g}
	case orb.MultiPoint:
		return g
	case orb.LineString:
		return g
	case orb.MultiLineString:
		var all []orb.Point
		for _, line := range g {
			all = append(all, line...)
		}

		return all
	default:
		return nil
	}
}
