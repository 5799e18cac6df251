package osrm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate(" 13.388860, 52.517037 ")
	require.NoError(t, err)
	assert.Equal(t, Coordinate{Lon: 13.38886, Lat: 52.517037}, c)
	assert.Equal(t, "13.38886,52.517037", c.String())

	for _, in := range []string{"", "13.4", "a,b", "1,2,3"} {
		_, err := ParseCoordinate(in)
		assert.Error(t, err, in)
	}
}

func TestParseCoordinatesReportsIndex(t *testing.T) {
	_, err := ParseCoordinates([]string{"1,2", "oops"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coordinate[1]")
}

func TestFormatCoordinatesForwardsOutOfRangeValues(t *testing.T) {
	got := FormatCoordinates([]Coordinate{{Lon: 200, Lat: -95.5}, {Lon: 0, Lat: 0}})
	assert.Equal(t, "200,-95.5;0,0", got)
	assert.Equal(t, "", FormatCoordinates(nil))
}

func TestGeometryRoundTripsRawValue(t *testing.T) {
	var res RouteResult
	require.NoError(t, json.Unmarshal([]byte(`{"geometry":{"type":"LineString","coordinates":[]}}`), &res))

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"distance":0,"duration":0,"geometry":{"type":"LineString","coordinates":[]},"steps":null}`, string(out))
}

func TestGeometryPolyline6(t *testing.T) {
	// (38.5, -120.2), (40.7, -120.95) at 1e6 precision
	g := Geometry(`"_izlhA~rlgdF_{geC~ywl@"`)

	points, err := g.Coordinates(GeometryPolyline6)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 38.5, points[0].Lat, 1e-6)
	assert.InDelta(t, -120.2, points[0].Lon, 1e-6)
	assert.InDelta(t, 40.7, points[1].Lat, 1e-6)
	assert.InDelta(t, -120.95, points[1].Lon, 1e-6)
}

func TestGeometryRejectsUnknownShapes(t *testing.T) {
	_, err := Geometry(`42`).Coordinates(GeometryGeoJSON)
	assert.Error(t, err)

	points, err := Geometry(`null`).Coordinates(GeometryGeoJSON)
	require.NoError(t, err)
	assert.Nil(t, points)
}

func TestStepBuiltInCodeMarshalsTypedFields(t *testing.T) {
	out, err := json.Marshal(Step{Distance: 5, Name: "Ring", Maneuver: Maneuver{Type: "roundabout", Exit: 3}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"distance":5,"duration":0,"name":"Ring","maneuver":{"type":"roundabout","bearing_before":0,"bearing_after":0,"exit":3}}`, string(out))
	assert.Nil(t, Step{}.Raw())
}
