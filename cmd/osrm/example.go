package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

var berlinStops = []osrm.Coordinate{
	{Lon: 13.388860, Lat: 52.517037},
	{Lon: 13.397634, Lat: 52.529407},
	{Lon: 13.428555, Lat: 52.523219},
}

func newExampleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Walk through route, matrix, nearest and trip calls in Berlin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if err := runExample(cmd.Context(), g.client(), out); err != nil {
				failure.Fprintf(out, "Error: %v\n", err)
			}
			return nil
		},
	}
}

// runExample stops at the first failing call.
func runExample(ctx context.Context, client *osrm.Client, out io.Writer) error {
	heading.Fprintln(out, "Calculating route...")
	route, err := client.Route(ctx, berlinStops[0], berlinStops[1], osrm.DefaultRouteOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Distance: %.2f km\n", route.Distance/1000)
	fmt.Fprintf(out, "Duration: %.2f minutes\n", route.Duration/60)

	heading.Fprintln(out, "\nCalculating distance matrix...")
	matrix, err := client.Table(ctx, berlinStops)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Distance matrix (km):")
	for _, row := range matrix.Distances {
		cells := make([]string, len(row))
		for i, d := range row {
			cells[i] = fmt.Sprintf("%8.2f", d/1000)
		}
		fmt.Fprintln(out, strings.Join(cells, " "))
	}

	heading.Fprintln(out, "\nFinding nearest road...")
	nearest, err := client.Nearest(ctx, berlinStops[0], 1)
	if err != nil {
		return err
	}
	name := osrm.UnknownName
	if len(nearest) > 0 {
		name = nearest[0].DisplayName()
	}
	fmt.Fprintf(out, "Nearest road: %s\n", name)
	if len(nearest) > 0 {
		fmt.Fprintf(out, "Distance to road: %.2f meters\n", nearest[0].Distance)
	}

	heading.Fprintln(out, "\nOptimizing delivery route...")
	trip, err := client.Trip(ctx, berlinStops, osrm.TripOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Optimized total distance: %.2f km\n", trip.Distance/1000)
	dim.Fprintf(out, "Optimized total duration: %.2f minutes\n", trip.Duration/60)
	return nil
}
