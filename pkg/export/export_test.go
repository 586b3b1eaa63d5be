package export_test

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoute() *models.Route {
	a := models.Coordinate{Lat: 50.06, Lon: 19.94}
	mid := models.Coordinate{Lat: 49.77, Lon: 19.985}
	b := models.Coordinate{Lat: 49.48, Lon: 20.03}
	c := models.Coordinate{Lat: 49.29, Lon: 19.95}

	return &models.Route{
		Title:            "Tatra & back",
		TotalDistanceKM:  90,
		TotalDurationMin: 105,
		Highlights:       []string{"Zakopane"},
		Paths: []models.PathFeature{
			{Coordinates: []models.Coordinate{a, mid, b}, Day: 1, SegmentIndex: 0, Name: "Krakow to Nowy Targ"},
			{Coordinates: []models.Coordinate{b, c}, Day: 1, SegmentIndex: 1, Name: "Nowy Targ to Zakopane"},
		},
		Points: []models.PointFeature{
			{Coordinate: a, Role: models.PointRoleStart, Label: "Krakow", Day: 1},
			{Coordinate: mid, Role: models.PointRoleIntermediate, Label: "via", Day: 1},
			{Coordinate: b, Role: models.PointRoleEnd, Label: "Nowy Targ", Day: 1},
			{Coordinate: b, Role: models.PointRoleStart, Label: "Nowy Targ", Day: 1, SegmentIndex: 1},
			{Coordinate: c, Role: models.PointRoleEnd, Label: "Zakopane", Day: 1, SegmentIndex: 1},
		},
	}
}

func TestConvert_EveryFormatPassesValidation(t *testing.T) {
	for _, format := range export.Formats {
		t.Run(string(format), func(t *testing.T) {
			data, err := export.Convert(format, sampleRoute())
			require.NoError(t, err)

			result := validate.Document(format, data)
			assert.True(t, result.Valid, result.String())
			assert.Empty(t, result.Warnings)
			assert.NoError(t, validate.Must(format, data))
		})
	}
}

func TestConvert_GPX(t *testing.T) {
	data, err := export.Convert(export.FormatGPX, sampleRoute())
	require.NoError(t, err)

	body := string(data)
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `xmlns="http://www.topografix.com/GPX/1/1"`)
	assert.Contains(t, body, `version="1.1"`)
	assert.Contains(t, body, "<name>Tatra &amp; back</name>")

	var doc struct {
		Waypoints []struct {
			Name string `xml:"name"`
		} `xml:"wpt"`
		RoutePoints []struct {
			Lat string `xml:"lat,attr"`
		} `xml:"rte>rtept"`
	}
	require.NoError(t, xml.Unmarshal(data, &doc))

	require.Len(t, doc.Waypoints, 3)
	assert.Equal(t, "Krakow", doc.Waypoints[0].Name)
	assert.Equal(t, "Zakopane", doc.Waypoints[2].Name)
	require.Len(t, doc.RoutePoints, 4)
	assert.Equal(t, "50.060000", doc.RoutePoints[0].Lat)
}

func TestConvert_KML(t *testing.T) {
	data, err := export.Convert(export.FormatKML, sampleRoute())
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `xmlns="http://www.opengis.net/kml/2.2"`)
	assert.Contains(t, body, "<name>Waypoints</name>")
	assert.Contains(t, body, "<coordinates>19.940000,50.060000,0 19.985000,49.770000,0 20.030000,49.480000,0 19.950000,49.290000,0</coordinates>")
	assert.Equal(t, 4, strings.Count(body, "<Placemark>"))
}

func TestConvert_GeoJSON(t *testing.T) {
	data, err := export.Convert(export.FormatGeoJSON, sampleRoute())
	require.NoError(t, err)

	assert.Contains(t, string(data), "\n  ")

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 4)
	assert.Equal(t, "LineString", doc.Features[0].Geometry.Type)
	assert.Equal(t, "Tatra & back", doc.Features[0].Properties["name"])
	assert.Equal(t, "Point", doc.Features[1].Geometry.Type)
	assert.Equal(t, "Krakow", doc.Features[1].Properties["name"])
}

func TestConvert_RejectsUnusableRoutes(t *testing.T) {
	outOfRange := sampleRoute()
	outOfRange.Paths[0].Coordinates[1] = models.Coordinate{Lat: 91, Lon: 0}

	tests := []struct {
		name  string
		route *models.Route
	}{
		{"nil", nil},
		{"empty", &models.Route{Title: "nothing"}},
		{"out of range", outOfRange},
	}

	for _, tt := range tests {
		for _, format := range export.Formats {
			data, err := export.Convert(format, tt.route)

			var conversionErr *export.ConversionError
			require.True(t, errors.As(err, &conversionErr), "%s/%s: %v", tt.name, format, err)
			assert.Equal(t, format, conversionErr.Format)
			assert.Nil(t, data)
		}
	}
}

func TestConvert_UnknownFormat(t *testing.T) {
	_, err := export.Convert("shp", sampleRoute())
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]export.Format{
		"gpx": export.FormatGPX, ".KML": export.FormatKML, "geojson": export.FormatGeoJSON, "json": export.FormatGeoJSON,
	} {
		got, err := export.ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := export.ParseFormat("fit")
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "application/gpx+xml", export.FormatGPX.ContentType())
	assert.Equal(t, "application/vnd.google-earth.kml+xml", export.FormatKML.ContentType())
	assert.Equal(t, "application/geo+json", export.FormatGeoJSON.ContentType())
	assert.Equal(t, "tatra-back.gpx", export.Filename("Tatra & back", export.FormatGPX))
	assert.Equal(t, "route.geojson", export.Filename("  ", export.FormatGeoJSON))
}
