package osrm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-polyline"
)

// GeometryFormat selects how the service encodes geometries.
type GeometryFormat string

const (
	GeometryGeoJSON   GeometryFormat = "geojson"
	GeometryPolyline  GeometryFormat = "polyline"
	GeometryPolyline6 GeometryFormat = "polyline6"
)

var polyline6 = polyline.Codec{Dim: 2, Scale: 1e6}

// Geometry keeps the geometry exactly as the service returned it: a GeoJSON
// object or an encoded polyline string.
type Geometry json.RawMessage

// MarshalJSON emits the raw value, or null when empty.
func (g Geometry) MarshalJSON() ([]byte, error) {
	if len(g) == 0 {
		return []byte("null"), nil
	}
	return g, nil
}

// UnmarshalJSON stores a copy of the raw value.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	if g == nil {
		return fmt.Errorf("osrm: UnmarshalJSON on nil Geometry")
	}
	*g = append((*g)[0:0], data...)
	return nil
}

// Raw returns the undecoded JSON value.
func (g Geometry) Raw() json.RawMessage { return json.RawMessage(g) }

// IsEmpty reports whether the service returned no geometry.
func (g Geometry) IsEmpty() bool {
	trimmed := bytes.TrimSpace(g)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

type geoJSONLine struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// Coordinates decodes the geometry into points. format only matters for
// encoded polylines, where it selects 5 or 6 digit precision.
func (g Geometry) Coordinates(format GeometryFormat) ([]Coordinate, error) {
	if g.IsEmpty() {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(g)
	switch trimmed[0] {
	case '{':
		var line geoJSONLine
		if err := json.Unmarshal(trimmed, &line); err != nil {
			return nil, fmt.Errorf("decode geojson geometry: %w", err)
		}
		out := make([]Coordinate, 0, len(line.Coordinates))
		for i, pt := range line.Coordinates {
			if len(pt) < 2 {
				return nil, fmt.Errorf("geojson position %d has %d values", i, len(pt))
			}
			out = append(out, Coordinate{Lon: pt[0], Lat: pt[1]})
		}
		return out, nil
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, fmt.Errorf("decode polyline geometry: %w", err)
		}
		return decodePolyline(encoded, format)
	default:
		return nil, fmt.Errorf("unsupported geometry value %.32q", trimmed)
	}
}

func decodePolyline(encoded string, format GeometryFormat) ([]Coordinate, error) {
	var (
		coords [][]float64
		err    error
	)
	if format == GeometryPolyline6 {
		coords, _, err = polyline6.DecodeCoords([]byte(encoded))
	} else {
		coords, _, err = polyline.DecodeCoords([]byte(encoded))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	// polyline pairs are (lat, lon)
	out := make([]Coordinate, 0, len(coords))
	for _, c := range coords {
		out = append(out, Coordinate{Lon: c[1], Lat: c[0]})
	}
	return out, nil
}
