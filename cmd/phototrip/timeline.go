package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phototrip/phototrip/internal/config"
	"github.com/phototrip/phototrip/internal/geo"
	"github.com/phototrip/phototrip/internal/index"
	"github.com/phototrip/phototrip/internal/normalize"
	"github.com/phototrip/phototrip/internal/timeline"
	"github.com/phototrip/phototrip/internal/util"
	"github.com/phototrip/phototrip/pkg/core"
)

type timelineReport struct {
	Source      string           `json:"source"`
	Filter      string           `json:"filter"`
	Stats       normalize.Stats  `json:"stats"`
	Years       []string         `json:"years"`
	Visible     int              `json:"visible"`
	SouthWest   *core.Coordinate `json:"southWest,omitempty"`
	NorthEast   *core.Coordinate `json:"northEast,omitempty"`
	Steps       []core.TripStep  `json:"steps"`
	RouteWKT    string           `json:"routeWkt,omitempty"`
	RouteMeters float64          `json:"routeMeters"`
}

func init() {
	var (
		source string
		year   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Load a manifest and print the trip without serving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setupLogging(false, nil); err != nil {
				return err
			}
			if source == "" {
				source = config.GetManifestConfig().Source
			}

			descs, err := newLoader().Load(cmd.Context(), source)
			if err != nil {
				return err
			}
			n, err := newNormalizer(nil)
			if err != nil {
				return err
			}
			records, stats := n.NormalizeAll(cmd.Context(), descs)

			res := index.Rebuild(records, year)
			steps := timeline.Build(res.Visible)

			rep := timelineReport{
				Source:  source,
				Filter:  year,
				Stats:   stats,
				Years:   res.Years,
				Visible: len(res.Visible),
				Steps:   steps,
			}
			if sw, ne, ok := res.Bounds.Corners(); ok {
				rep.SouthWest, rep.NorthEast = &sw, &ne
			}
			path := timeline.Path(steps)
			if route, err := geo.Route(path); err == nil {
				rep.RouteWKT = route.AsText()
				rep.RouteMeters = geo.RouteLengthMeters(path)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printTimeline(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Manifest path or URL (default: manifest.source)")
	cmd.Flags().StringVarP(&year, "year", "y", index.AllYears, "Only photos taken in this year")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	rootCmd.AddCommand(cmd)
}

func printTimeline(w io.Writer, rep timelineReport) {
	filter := rep.Filter
	if filter == index.AllYears {
		filter = "all years"
	}
	fmt.Fprintf(w, "source:  %s (%s)\n", rep.Source, filter)
	fmt.Fprintf(w, "photos:  %d total, %d located, %d unknown location, %d failed\n",
		rep.Stats.Total, rep.Stats.Located, rep.Stats.Unknown, rep.Stats.Failed)
	fmt.Fprintf(w, "years:   %v\n", rep.Years)
	fmt.Fprintf(w, "visible: %d\n", rep.Visible)
	if rep.SouthWest != nil {
		fmt.Fprintf(w, "bounds:  %.5f,%.5f .. %.5f,%.5f\n",
			rep.SouthWest.Lat, rep.SouthWest.Lon, rep.NorthEast.Lat, rep.NorthEast.Lon)
	}
	fmt.Fprintf(w, "steps:   %d\n", len(rep.Steps))
	for i, s := range rep.Steps {
		fmt.Fprintf(w, "  %3d  %s  %9.5f %10.5f  %s",
			i+1, util.PopupTimestamp(s.Timestamp), s.Coordinate.Lat, s.Coordinate.Lon, s.FileRef)
		if s.Trip != "" {
			fmt.Fprintf(w, "  [%s]", s.Trip)
		}
		fmt.Fprintln(w)
	}
	if rep.RouteWKT != "" {
		fmt.Fprintf(w, "route:   %.0f m\n", rep.RouteMeters)
		fmt.Fprintf(w, "wkt:     %s\n", rep.RouteWKT)
	}
}
