package osrm

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/osrm-kit/pkg/httpclient"
)

const (
	DefaultProfile = "driving"

	ServiceRoute   = "route"
	ServiceTable   = "table"
	ServiceNearest = "nearest"
	ServiceTrip    = "trip"
	ServiceMatch   = "match"

	apiVersion = "v1"
	codeOK     = "Ok"
)

var jsonHeaders = map[string]string{"Accept": "application/json"}

// HTTPClient aliases the shared httpclient.Client interface.
type HTTPClient = httpclient.Client

// DefaultHTTPClient returns the resty-backed transport used when none is injected.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(30 * time.Second) }

// Client issues requests against an OSRM HTTP server. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	baseURL string
	profile string
	http    HTTPClient
	log     Logger
}

// NewClient builds a client for baseURL. Trailing slashes are removed; a nil
// httpClient selects DefaultHTTPClient.
func NewClient(baseURL string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		profile: DefaultProfile,
		http:    httpClient,
		log:     noopLogger{},
	}
}

// WithProfile returns a copy of the client that targets another profile.
func (c *Client) WithProfile(profile string) *Client {
	cp := *c
	if p := strings.TrimSpace(profile); p != "" {
		cp.profile = p
	}
	return &cp
}

// WithLogger returns a copy of the client that reports through log.
func (c *Client) WithLogger(log Logger) *Client {
	cp := *c
	cp.log = ensureLogger(log)
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }
func (c *Client) Profile() string { return c.profile }

type envelope struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *envelope) status() *envelope { return e }

type enveloped interface {
	status() *envelope
}

type routeLeg struct {
	Steps []Step `json:"steps"`
}

type route struct {
	Distance float64    `json:"distance"`
	Duration float64    `json:"duration"`
	Geometry Geometry   `json:"geometry"`
	Legs     []routeLeg `json:"legs"`
}

type routeResponse struct {
	envelope
	Routes []route `json:"routes"`
}

type tableResponse struct {
	envelope
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

type waypointsResponse struct {
	envelope
	Waypoints []Waypoint `json:"waypoints"`
}

type tripResponse struct {
	envelope
	Trips     []route    `json:"trips"`
	Waypoints []Waypoint `json:"waypoints"`
}

type matching struct {
	Distance   float64  `json:"distance"`
	Duration   float64  `json:"duration"`
	Geometry   Geometry `json:"geometry"`
	Confidence float64  `json:"confidence"`
}

type matchResponse struct {
	envelope
	Matchings []matching `json:"matchings"`
}

// Route requests a single route between start and end and returns the first
// route with the steps of its first leg.
func (c *Client) Route(ctx context.Context, start, end Coordinate, opts RouteOptions) (*RouteResult, error) {
	var resp routeResponse
	if err := c.get(ctx, ServiceRoute, []Coordinate{start, end}, opts.query(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Routes) == 0 {
		return nil, c.fail(ServiceRoute, emptyResult(ServiceRoute, "routes"))
	}

	r := resp.Routes[0]
	steps := []Step{}
	if len(r.Legs) > 0 && r.Legs[0].Steps != nil {
		steps = r.Legs[0].Steps
	}
	return &RouteResult{
		Distance: r.Distance,
		Duration: r.Duration,
		Geometry: r.Geometry,
		Steps:    steps,
	}, nil
}

// Table requests pairwise distances and durations between coords.
func (c *Client) Table(ctx context.Context, coords []Coordinate) (*Matrix, error) {
	q := url.Values{}
	q.Set("annotations", "distance,duration")

	var resp tableResponse
	if err := c.get(ctx, ServiceTable, coords, q, &resp); err != nil {
		return nil, err
	}
	return &Matrix{Distances: resp.Distances, Durations: resp.Durations}, nil
}

// Nearest returns up to number road waypoints closest to coord. Values below 1
// request a single waypoint.
func (c *Client) Nearest(ctx context.Context, coord Coordinate, number int) ([]Waypoint, error) {
	if number < 1 {
		number = 1
	}
	q := url.Values{}
	q.Set("number", strconv.Itoa(number))

	var resp waypointsResponse
	if err := c.get(ctx, ServiceNearest, []Coordinate{coord}, q, &resp); err != nil {
		return nil, err
	}
	if resp.Waypoints == nil {
		return []Waypoint{}, nil
	}
	return resp.Waypoints, nil
}

// Trip requests a least-cost visiting order for coords.
func (c *Client) Trip(ctx context.Context, coords []Coordinate, opts TripOptions) (*TripResult, error) {
	var resp tripResponse
	if err := c.get(ctx, ServiceTrip, coords, opts.query(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Trips) == 0 {
		return nil, c.fail(ServiceTrip, emptyResult(ServiceTrip, "trips"))
	}

	trip := resp.Trips[0]
	return &TripResult{
		Distance:  trip.Distance,
		Duration:  trip.Duration,
		Geometry:  trip.Geometry,
		Waypoints: resp.Waypoints,
	}, nil
}

// Match snaps a GPS trace onto the road network and returns the first matching.
func (c *Client) Match(ctx context.Context, coords []Coordinate, opts MatchOptions) (*MatchResult, error) {
	var resp matchResponse
	if err := c.get(ctx, ServiceMatch, coords, opts.query(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Matchings) == 0 {
		return nil, c.fail(ServiceMatch, emptyResult(ServiceMatch, "matchings"))
	}

	m := resp.Matchings[0]
	return &MatchResult{
		Distance:   m.Distance,
		Duration:   m.Duration,
		Geometry:   m.Geometry,
		Confidence: m.Confidence,
	}, nil
}

// RequestURL builds the URL for service over coords with the given query.
func (c *Client) RequestURL(service string, coords []Coordinate, q url.Values) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/")
	b.WriteString(service)
	b.WriteString("/" + apiVersion + "/")
	b.WriteString(c.profile)
	b.WriteString("/")
	b.WriteString(FormatCoordinates(coords))
	if len(q) > 0 {
		b.WriteString("?")
		b.WriteString(q.Encode())
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, service string, coords []Coordinate, q url.Values, out enveloped) error {
	reqURL := c.RequestURL(service, coords, q)
	c.log.DebugObj("osrm request", "osrm_request", map[string]any{
		"service": service,
		"url":     reqURL,
	})

	resp, err := c.http.Get(ctx, reqURL, jsonHeaders)
	if err != nil {
		return c.fail(service, &TransportError{Service: service, URL: reqURL, Err: err})
	}

	status := resp.StatusCode()
	body := resp.Body()
	if status < 200 || status > 299 {
		return c.fail(service, &TransportError{
			Service:    service,
			URL:        reqURL,
			StatusCode: status,
			Body:       responseSnippet(body),
		})
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(service, &TransportError{
			Service:    service,
			URL:        reqURL,
			StatusCode: status,
			Body:       responseSnippet(body),
			Err:        err,
		})
	}

	if env := out.status(); env.Code != codeOK {
		return c.fail(service, &ServiceError{Service: service, Code: env.Code, Message: env.Message})
	}
	return nil
}

func (c *Client) fail(service string, err error) error {
	c.log.ErrorObj("osrm request failed", "osrm_error", map[string]any{
		"service": service,
		"error":   err.Error(),
	})
	return err
}
