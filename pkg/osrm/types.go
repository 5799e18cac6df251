package osrm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownName is shown for waypoints the service returned without a street name.
const UnknownName = "Unknown"

// Coordinate is a (longitude, latitude) pair. Values are forwarded to the
// service unvalidated.
type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// String renders the coordinate as "lon,lat" using the shortest float form.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

// ParseCoordinate parses "lon,lat".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q (expected lon,lat)", s)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid longitude in %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, fmt.Errorf("invalid latitude in %q: %w", s, err)
	}
	return Coordinate{Lon: lon, Lat: lat}, nil
}

// ParseCoordinates parses every entry with ParseCoordinate.
func ParseCoordinates(values []string) ([]Coordinate, error) {
	out := make([]Coordinate, 0, len(values))
	for i, v := range values {
		c, err := ParseCoordinate(v)
		if err != nil {
			return nil, fmt.Errorf("coordinate[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// FormatCoordinates joins coordinates into the "lon,lat;lon,lat" path segment.
func FormatCoordinates(coords []Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

// Step is a single turn-by-turn instruction of a route leg. The typed fields
// cover the common subset; a decoded step keeps its full JSON, so fields such
// as intersections or weight survive re-encoding.
type Step struct {
	Distance float64  `json:"distance"`
	Duration float64  `json:"duration"`
	Name     string   `json:"name"`
	Ref      string   `json:"ref,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Geometry Geometry `json:"geometry,omitempty"`
	Maneuver Maneuver `json:"maneuver"`

	raw json.RawMessage
}

type stepFields Step

// UnmarshalJSON decodes the typed fields and retains the original object.
func (s *Step) UnmarshalJSON(data []byte) error {
	var f stepFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Step(f)
	s.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the decoded object unchanged, or the typed fields for
// steps built in code.
func (s Step) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(stepFields(s))
}

// Raw returns the step as received from the service, or nil.
func (s Step) Raw() json.RawMessage { return s.raw }

// Maneuver describes the action taken at the start of a step. Exit is the
// roundabout exit number, zero when not applicable.
type Maneuver struct {
	Type          string    `json:"type"`
	Modifier      string    `json:"modifier,omitempty"`
	Location      []float64 `json:"location,omitempty"`
	BearingBefore float64   `json:"bearing_before"`
	BearingAfter  float64   `json:"bearing_after"`
	Exit          int       `json:"exit,omitempty"`
}

// Waypoint is an input coordinate snapped to the road network.
type Waypoint struct {
	Name          string    `json:"name"`
	Distance      float64   `json:"distance"`
	Location      []float64 `json:"location"`
	Hint          string    `json:"hint,omitempty"`
	Nodes         []int64   `json:"nodes,omitempty"`
	WaypointIndex *int      `json:"waypoint_index,omitempty"`
	TripsIndex    *int      `json:"trips_index,omitempty"`
}

// Coordinate returns the snapped location, or the zero value when absent.
func (w Waypoint) Coordinate() Coordinate {
	if len(w.Location) < 2 {
		return Coordinate{}
	}
	return Coordinate{Lon: w.Location[0], Lat: w.Location[1]}
}

// DisplayName returns the street name or UnknownName.
func (w Waypoint) DisplayName() string {
	if strings.TrimSpace(w.Name) == "" {
		return UnknownName
	}
	return w.Name
}

// RouteResult is the first route returned for a two-point request.
// Distance is in meters, Duration in seconds.
type RouteResult struct {
	Distance float64  `json:"distance"`
	Duration float64  `json:"duration"`
	Geometry Geometry `json:"geometry"`
	Steps    []Step   `json:"steps"`
}

// Matrix holds pairwise distances (meters) and durations (seconds) indexed in
// input order. Unreachable pairs, reported as null by the service, decode as 0.
type Matrix struct {
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// TripResult is the optimized visiting sequence. Waypoints carry the chosen
// order in WaypointIndex.
type TripResult struct {
	Distance  float64    `json:"distance"`
	Duration  float64    `json:"duration"`
	Geometry  Geometry   `json:"geometry"`
	Waypoints []Waypoint `json:"waypoints"`
}

// MatchResult is the best matching of a GPS trace onto the road network.
type MatchResult struct {
	Distance   float64  `json:"distance"`
	Duration   float64  `json:"duration"`
	Geometry   Geometry `json:"geometry"`
	Confidence float64  `json:"confidence"`
}
