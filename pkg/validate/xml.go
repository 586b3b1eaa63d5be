package validate

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/dukex/roadbook/pkg/export"
)

// xmlWalker streams a document and calls visit for every start element with its parent path. Character
// data is delivered to text for the innermost open element.
type xmlWalker struct {
	stack []string
	visit func(element xml.StartElement, parent string)
	text  func(element string, data string)
	close func(element string)
}

func (w *xmlWalker) parent() string {
	if len(w.stack) == 0 {
		return ""
	}

	return w.stack[len(w.stack)-1]
}

func (w *xmlWalker) walk(data []byte) (root *xml.StartElement, err error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return root, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if root == nil {
				start := t.Copy()
				root = &start
			}

			if w.visit != nil {
				w.visit(t, w.parent())
			}

			w.stack = append(w.stack, t.Name.Local)
		case xml.EndElement:
			if w.close != nil {
				w.close(t.Name.Local)
			}

			w.stack = w.stack[:len(w.stack)-1]
		case xml.CharData:
			if w.text != nil && len(w.stack) > 0 {
				w.text(w.parent(), string(t))
			}
		}
	}

	if root == nil {
		return nil, errors.New("document has no root element")
	}

	return root, nil
}

func attr(element xml.StartElement, name string) (string, bool) {
	for _, a := range element.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}

	return "", false
}

type gpxPoint struct {
	kind  string
	index int
	named bool
}

func checkGPX(data []byte, result *Result) {
	var (
		points       int
		metadataName bool
		current      *gpxPoint
		routes       int
		routeNamed   []bool
		counts       = map[string]int{}
	)

	walker := &xmlWalker{
		visit: func(element xml.StartElement, parent string) {
			switch element.Name.Local {
			case "wpt", "rtept", "trkpt":
				counts[element.Name.Local]++
				points++
				current = &gpxPoint{kind: element.Name.Local, index: counts[element.Name.Local]}
				checkGPXPoint(result, element, current)
			case "rte", "trk":
				routes++
				routeNamed = append(routeNamed, false)
			case "name":
				switch parent {
				case "metadata":
					metadataName = true
				case "wpt":
					if current != nil {
						current.named = true
					}
				case "rte", "trk":
					routeNamed[len(routeNamed)-1] = true
				}
			}
		},
		close: func(element string) {
			if element == "wpt" && current != nil && !current.named {
				result.warnf("waypoint %d has no name", current.index)
			}

			if element == "wpt" || element == "rtept" || element == "trkpt" {
				current = nil
			}
		},
	}

	root, err := walker.walk(data)
	if err != nil {
		result.errorf("malformed XML: %v", err)

		if root == nil {
			return
		}
	}

	if root.Name.Local != "gpx" {
		result.errorf("root element is <%s>, expected <gpx>", root.Name.Local)
		return
	}

	switch version, ok := attr(*root, "version"); {
	case !ok:
		result.errorf("missing GPX version attribute")
	case version != "1.1":
		result.errorf("unsupported GPX version %q", version)
	}

	if root.Name.Space != export.GPXNamespace {
		result.errorf("missing GPX namespace %s", export.GPXNamespace)
	}

	if points == 0 {
		result.errorf("document has no waypoints, routes or tracks")
	}

	if !metadataName {
		result.warnf("metadata has no name")
	}

	for i, named := range routeNamed {
		if !named {
			result.warnf("route %d has no name", i+1)
		}
	}
}

func checkGPXPoint(result *Result, element xml.StartElement, point *gpxPoint) {
	where := point.kind + " " + strconv.Itoa(point.index)

	lat, latErr := parseAttrFloat(element, "lat")
	lon, lonErr := parseAttrFloat(element, "lon")

	if latErr != nil || lonErr != nil {
		result.errorf("%s: missing or invalid lat/lon", where)
		return
	}

	checkRange(result, where, lat, lon)
}

func parseAttrFloat(element xml.StartElement, name string) (float64, error) {
	value, ok := attr(element, name)
	if !ok {
		return 0, errors.New("missing")
	}

	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

func checkKML(data []byte, result *Result) {
	var (
		geometries   int
		documentName bool
		placemarks   int
		named        []bool
		coordinates  strings.Builder
		collecting   bool
		geometry     bool
	)

	walker := &xmlWalker{
		visit: func(element xml.StartElement, parent string) {
			switch element.Name.Local {
			case "Placemark":
				placemarks++
				named = append(named, false)
			case "name":
				switch parent {
				case "Document":
					documentName = true
				case "Placemark":
					named[len(named)-1] = true
				}
			case "coordinates":
				collecting = true
				geometry = parent == "Point" || parent == "LineString" || parent == "LinearRing"
				coordinates.Reset()
			}
		},
		text: func(element string, data string) {
			if collecting && element == "coordinates" {
				coordinates.WriteString(data)
			}
		},
		close: func(element string) {
			if element == "coordinates" {
				collecting = false

				if geometry && strings.TrimSpace(coordinates.String()) != "" {
					geometries++
				}

				checkKMLCoordinates(result, coordinates.String())
			}
		},
	}

	root, err := walker.walk(data)
	if err != nil {
		result.errorf("malformed XML: %v", err)

		if root == nil {
			return
		}
	}

	if root.Name.Local != "kml" {
		result.errorf("root element is <%s>, expected <kml>", root.Name.Local)
		return
	}

	if root.Name.Space != export.KMLNamespace {
		result.errorf("missing KML 2.2 namespace %s", export.KMLNamespace)
	}

	if geometries == 0 {
		result.errorf("document has no points or line strings")
	}

	if !documentName {
		result.warnf("document has no name")
	}

	for i, ok := range named {
		if !ok {
			result.warnf("placemark %d of %d has no name", i+1, placemarks)
		}
	}
}

func checkKMLCoordinates(result *Result, text string) {
	tuples := strings.Fields(text)
	if len(tuples) == 0 {
		result.errorf("empty coordinates element")
		return
	}

	for i, tuple := range tuples {
		parts := strings.Split(tuple, ",")
		where := "coordinate " + strconv.Itoa(i+1)

		if len(parts) < 2 {
			result.errorf("%s: expected lon,lat[,alt], got %q", where, tuple)
			continue
		}

		lon, lonErr := strconv.ParseFloat(parts[0], 64)
		lat, latErr := strconv.ParseFloat(parts[1], 64)

		if lonErr != nil || latErr != nil {
			result.errorf("%s: invalid number in %q", where, tuple)
			continue
		}

		checkRange(result, where, lat, lon)
	}
}
