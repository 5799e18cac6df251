package osrm

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	OverviewFull       = "full"
	OverviewSimplified = "simplified"
	OverviewFalse      = "false"

	TripFirst = "first"
	TripLast  = "last"
	TripAny   = "any"
)

// RouteOptions controls a route request. Zero values fall back to overview
// "full", no steps and GeoJSON geometries.
type RouteOptions struct {
	Overview   string         `json:"overview" yaml:"overview"`
	Steps      bool           `json:"steps" yaml:"steps"`
	Geometries GeometryFormat `json:"geometries" yaml:"geometries"`
}

// DefaultRouteOptions returns the options used when none are given.
func DefaultRouteOptions() RouteOptions {
	return RouteOptions{Overview: OverviewFull, Geometries: GeometryGeoJSON}
}

func (o RouteOptions) withDefaults() RouteOptions {
	if strings.TrimSpace(o.Overview) == "" {
		o.Overview = OverviewFull
	}
	if strings.TrimSpace(string(o.Geometries)) == "" {
		o.Geometries = GeometryGeoJSON
	}
	return o
}

func (o RouteOptions) query() url.Values {
	o = o.withDefaults()
	q := url.Values{}
	q.Set("overview", o.Overview)
	q.Set("steps", strconv.FormatBool(o.Steps))
	q.Set("geometries", string(o.Geometries))
	return q
}

// TripOptions controls a trip request. A nil Roundtrip means true; empty
// Source and Destination mean "first" and "last".
type TripOptions struct {
	Roundtrip   *bool          `json:"roundtrip" yaml:"roundtrip"`
	Source      string         `json:"source" yaml:"source"`
	Destination string         `json:"destination" yaml:"destination"`
	Geometries  GeometryFormat `json:"geometries,omitempty" yaml:"geometries"`
}

// RoundtripValue returns the roundtrip flag defaulting to true.
func (o TripOptions) RoundtripValue() bool {
	if o.Roundtrip == nil {
		return true
	}
	return *o.Roundtrip
}

func (o TripOptions) query() url.Values {
	source := strings.TrimSpace(o.Source)
	if source == "" {
		source = TripFirst
	}
	destination := strings.TrimSpace(o.Destination)
	if destination == "" {
		destination = TripLast
	}

	q := url.Values{}
	q.Set("roundtrip", strconv.FormatBool(o.RoundtripValue()))
	q.Set("source", source)
	q.Set("destination", destination)
	q.Set("overview", OverviewFull)
	if o.Geometries != "" {
		q.Set("geometries", string(o.Geometries))
	}
	return q
}

// MatchOptions controls a match request. Timestamps are Unix seconds, one per
// coordinate; the count is checked by the service, not here.
type MatchOptions struct {
	Timestamps []int64        `json:"timestamps,omitempty" yaml:"timestamps"`
	Geometries GeometryFormat `json:"geometries,omitempty" yaml:"geometries"`
}

func (o MatchOptions) query() url.Values {
	q := url.Values{}
	q.Set("overview", OverviewFull)
	if len(o.Timestamps) > 0 {
		parts := make([]string, len(o.Timestamps))
		for i, ts := range o.Timestamps {
			parts[i] = strconv.FormatInt(ts, 10)
		}
		q.Set("timestamps", strings.Join(parts, ";"))
	}
	if o.Geometries != "" {
		q.Set("geometries", string(o.Geometries))
	}
	return q
}
