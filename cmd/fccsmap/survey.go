package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/fccs-lookup-service/internal/survey"
)

func surveyCmd(gf *gridFlags) *cobra.Command {
	var (
		bbox         string
		resolutionKm float64
		opts         survey.Options
		format       string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "survey",
		Short: "Break a bounding box into cells and report the fuelbeds of each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bound, err := parseBBox(bbox)
			if err != nil {
				return err
			}
			if format != "geojson" && format != "csv" {
				return fmt.Errorf("unknown format %q: must be geojson or csv", format)
			}
			cells, err := survey.DefineGrid(bound, resolutionKm)
			if err != nil {
				return err
			}

			zonal, logger, err := gf.open(cmd)
			if err != nil {
				return err
			}
			logger.Info("surveying", "cells", len(cells), "resolution_km", resolutionKm)

			results, err := survey.Run(cmd.Context(), zonal, cells, opts, logger)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}
			return writeResults(w, format, results)
		},
	}

	f := cmd.Flags()
	f.StringVar(&bbox, "bbox", "", "bounding box west,south,east,north in degrees")
	f.Float64Var(&resolutionKm, "resolution-km", 3, "cell edge length in km")
	f.IntVar(&opts.Workers, "workers", 0, "concurrent cell lookups (0 = GOMAXPROCS)")
	f.Float64Var(&opts.Thresholds.Percent, "truncation-percent", survey.DefaultPercentThreshold, "cumulative percent after which fuelbeds are truncated (0 = off)")
	f.IntVar(&opts.Thresholds.MaxCount, "truncation-count", 0, "maximum fuelbeds kept per cell (0 = no cap)")
	f.BoolVar(&opts.UseAllGridCells, "use-all-grid-cells", false, "count every grid cell a survey cell touches")
	f.StringVarP(&format, "format", "f", "geojson", "output format: geojson or csv")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("bbox")

	return cmd
}

func writeResults(w io.Writer, format string, results []survey.Result) error {
	if format == "csv" {
		return survey.WriteCSV(w, results)
	}
	return survey.WriteGeoJSON(w, results)
}

// parseBBox reads "west,south,east,north".
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
