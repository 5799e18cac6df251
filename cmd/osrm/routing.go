package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/osrm-kit/internal/app"
	"github.com/samvad-hq/osrm-kit/pkg/osrm"
)

func newRouteCmd(g *globals) *cobra.Command {
	var (
		from, to string
		opts     osrm.RouteOptions
		geoms    string
	)
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Calculate a route between two points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := osrm.ParseCoordinate(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			end, err := osrm.ParseCoordinate(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			opts.Geometries = osrm.GeometryFormat(geoms)

			res, err := g.client().Route(cmd.Context(), start, end, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start coordinate as lon,lat")
	cmd.Flags().StringVar(&to, "to", "", "end coordinate as lon,lat")
	cmd.Flags().StringVar(&opts.Overview, "overview", osrm.OverviewFull, "geometry detail: full, simplified or false")
	cmd.Flags().BoolVar(&opts.Steps, "steps", false, "include turn-by-turn steps")
	cmd.Flags().StringVar(&geoms, "geometries", string(osrm.GeometryGeoJSON), "geometry encoding: geojson, polyline or polyline6")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTableCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "table lon,lat [lon,lat...]",
		Short: "Calculate the distance and duration matrix between points",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := osrm.ParseCoordinates(args)
			if err != nil {
				return err
			}
			m, err := g.client().Table(cmd.Context(), coords)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
}

func newNearestCmd(g *globals) *cobra.Command {
	var number int
	cmd := &cobra.Command{
		Use:   "nearest lon,lat",
		Short: "Find the nearest roads to a point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := osrm.ParseCoordinate(args[0])
			if err != nil {
				return err
			}
			wps, err := g.client().Nearest(cmd.Context(), coord, number)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), wps)
		},
	}
	cmd.Flags().IntVar(&number, "number", 1, "number of waypoints to return")
	return cmd
}

func newTripCmd(g *globals) *cobra.Command {
	var (
		opts      osrm.TripOptions
		roundtrip bool
	)
	cmd := &cobra.Command{
		Use:   "trip lon,lat [lon,lat...]",
		Short: "Optimize the visiting order of several stops",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := osrm.ParseCoordinates(args)
			if err != nil {
				return err
			}
			opts.Roundtrip = &roundtrip
			res, err := g.client().Trip(cmd.Context(), coords, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&roundtrip, "roundtrip", true, "return to the first stop")
	cmd.Flags().StringVar(&opts.Source, "source", osrm.TripFirst, "start stop: first or any")
	cmd.Flags().StringVar(&opts.Destination, "destination", osrm.TripLast, "end stop: last or any")
	return cmd
}

func newMatchCmd(g *globals) *cobra.Command {
	var opts osrm.MatchOptions
	cmd := &cobra.Command{
		Use:   "match lon,lat [lon,lat...]",
		Short: "Snap a GPS trace to the road network",
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := osrm.ParseCoordinates(args)
			if err != nil {
				return err
			}
			res, err := g.client().Match(cmd.Context(), coords, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int64SliceVar(&opts.Timestamps, "timestamps", nil, "unix timestamps, one per coordinate (comma separated)")
	return cmd
}

func newRunCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every enabled job once and publish changed results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := app.NewWatcher(cmd.Context(), g.cfg, g.log)
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.RunOnce(cmd.Context()); err != nil {
				return err
			}
			success.Fprintln(cmd.OutOrStdout(), "jobs completed")
			return nil
		},
	}
}
