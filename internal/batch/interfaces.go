package batch

import (
	"context"

	"github.com/samvad-hq/osrm-kit/pkg/osrm"
	"github.com/samvad-hq/osrm-kit/pkg/publishers"
)

// Executor issues routing requests. *osrm.Client satisfies it.
type Executor interface {
	Route(ctx context.Context, start, end osrm.Coordinate, opts osrm.RouteOptions) (*osrm.RouteResult, error)
	Table(ctx context.Context, coords []osrm.Coordinate) (*osrm.Matrix, error)
	Nearest(ctx context.Context, coord osrm.Coordinate, number int) ([]osrm.Waypoint, error)
	Trip(ctx context.Context, coords []osrm.Coordinate, opts osrm.TripOptions) (*osrm.TripResult, error)
	Match(ctx context.Context, coords []osrm.Coordinate, opts osrm.MatchOptions) (*osrm.MatchResult, error)
}

// Dispatcher delivers events downstream. *publishers.Fanout satisfies it.
type Dispatcher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
