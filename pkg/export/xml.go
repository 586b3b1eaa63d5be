package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/roadbook/pkg/models"
)

const (
	GPXNamespace = "http://www.topografix.com/GPX/1/1"
	KMLNamespace = "http://www.opengis.net/kml/2.2"

	creator = "roadbook"
)

type gpxDocument struct {
	XMLName   xml.Name    `xml:"http://www.topografix.com/GPX/1/1 gpx"`
	Version   string      `xml:"version,attr"`
	Creator   string      `xml:"creator,attr"`
	Metadata  gpxMetadata `xml:"metadata"`
	Waypoints []gpxPoint  `xml:"wpt"`
	Route     gpxRoute    `xml:"rte"`
}

type gpxMetadata struct {
	Name string `xml:"name"`
	Desc string `xml:"desc,omitempty"`
}

type gpxPoint struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Name string `xml:"name,omitempty"`
}

type gpxRoute struct {
	Name   string     `xml:"name"`
	Points []gpxPoint `xml:"rtept"`
}

func toGPX(route *models.Route) ([]byte, error) {
	doc := gpxDocument{
		Version:  "1.1",
		Creator:  creator,
		Metadata: gpxMetadata{Name: route.Title, Desc: strings.Join(route.Highlights, ", ")},
		Route:    gpxRoute{Name: route.Title},
	}

	for _, waypoint := range route.Waypoints() {
		doc.Waypoints = append(doc.Waypoints, gpxPoint{
			Lat:  formatDegrees(waypoint.Coordinate.Lat),
			Lon:  formatDegrees(waypoint.Coordinate.Lon),
			Name: waypoint.Label,
		})
	}

	for _, coordinate := range route.FullPath() {
		doc.Route.Points = append(doc.Route.Points, gpxPoint{
			Lat: formatDegrees(coordinate.Lat),
			Lon: formatDegrees(coordinate.Lon),
		})
	}

	return marshalXML(doc)
}

type kmlDocument struct {
	XMLName  xml.Name `xml:"http://www.opengis.net/kml/2.2 kml"`
	Document kmlBody  `xml:"Document"`
}

type kmlBody struct {
	Name        string       `xml:"name"`
	Description string       `xml:"description,omitempty"`
	Folder      kmlFolder    `xml:"Folder"`
	Path        kmlPlacemark `xml:"Placemark"`
}

type kmlFolder struct {
	Name       string         `xml:"name"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name       string         `xml:"name"`
	Point      *kmlPoint      `xml:"Point,omitempty"`
	LineString *kmlLineString `xml:"LineString,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

func toKML(route *models.Route) ([]byte, error) {
	doc := kmlDocument{
		Document: kmlBody{
			Name:        route.Title,
			Description: strings.Join(route.Highlights, ", "),
			Folder:      kmlFolder{Name: "Waypoints"},
		},
	}

	for _, waypoint := range route.Waypoints() {
		doc.Document.Folder.Placemarks = append(doc.Document.Folder.Placemarks, kmlPlacemark{
			Name:  waypoint.Label,
			Point: &kmlPoint{Coordinates: kmlTuple(waypoint.Coordinate)},
		})
	}

	path := route.FullPath()
	tuples := make([]string, 0, len(path))

	for _, coordinate := range path {
		tuples = append(tuples, kmlTuple(coordinate))
	}

	doc.Document.Path = kmlPlacemark{
		Name:       route.Title,
		LineString: &kmlLineString{Tessellate: 1, Coordinates: strings.Join(tuples, " ")},
	}

	return marshalXML(doc)
}

func marshalXML(doc any) ([]byte, error) {
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}

func kmlTuple(c models.Coordinate) string {
	return formatDegrees(c.Lon) + "," + formatDegrees(c.Lat) + ",0"
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
