package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

type lookupFlags struct {
	areaAcres   float64
	optionsFile string

	ignored         []string
	threshold       float64
	maxCount        int
	keepAll         bool
	noSampling      bool
	radiusKm        float64
	radiusFactors   []float64
	useAllGridCells bool
	resampleAt      float64
}

func lookupCmd(gf *gridFlags) *cobra.Command {
	var lf lookupFlags

	cmd := &cobra.Command{
		Use:   "lookup [geojson | file | -]",
		Short: "Look up the fuelbed composition of a GeoJSON geometry",
		Long: `Look up the fuelbed composition of a GeoJSON geometry, a Feature, or a
request object {"id": ..., "geometry": ..., "area_acres": ...}. The argument is
inline JSON, a file path, or "-" for stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			g, area, err := parseInput(data)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("area-acres") {
				area = lf.areaAcres
			}

			opts, err := loadOptions(lf.optionsFile)
			if err != nil {
				return err
			}
			lf.apply(cmd, &opts)

			zonal, logger, err := gf.open(cmd)
			if err != nil {
				return err
			}
			refiner, err := domain.NewRefiner(zonal, opts, logger)
			if err != nil {
				return err
			}
			comp, err := refiner.LookUp(cmd.Context(), g, area)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(comp)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&lf.areaAcres, "area-acres", 0, "area of a point lookup in acres; sizes the sampling square")
	f.StringVar(&lf.optionsFile, "options", "", "YAML file of lookup options")
	f.StringSliceVar(&lf.ignored, "ignored-fuelbeds", nil, "fuelbed ids removed from every result")
	f.Float64Var(&lf.threshold, "insignificance-threshold", 0, "cumulative percent of least prevalent fuelbeds to drop")
	f.IntVar(&lf.maxCount, "max-fuelbeds", 0, "maximum number of fuelbeds returned (0 = no cap)")
	f.BoolVar(&lf.keepAll, "dont-remove-insignificant", false, "skip truncation")
	f.BoolVar(&lf.noSampling, "no-sampling", false, "query points literally instead of sampling a square")
	f.Float64Var(&lf.radiusKm, "sampling-radius-km", 0, "base sampling radius for point lookups")
	f.Float64SliceVar(&lf.radiusFactors, "sampling-radius-factors", nil, "radius multipliers tried in order")
	f.BoolVar(&lf.useAllGridCells, "use-all-grid-cells", false, "count every grid cell the region touches")
	f.Float64Var(&lf.resampleAt, "ignored-percent-resampling-threshold", 0, "ignored percent that triggers a wider sample")

	return cmd
}

// apply copies the flags the user actually set over opts.
func (lf *lookupFlags) apply(cmd *cobra.Command, opts *domain.Options) {
	f := cmd.Flags()
	if f.Changed("ignored-fuelbeds") {
		opts.IgnoredFuelbeds = lf.ignored
	}
	if f.Changed("insignificance-threshold") {
		opts.InsignificanceThreshold = lf.threshold
	}
	if f.Changed("max-fuelbeds") {
		opts.MaxFuelbedCountThreshold = lf.maxCount
	}
	if f.Changed("dont-remove-insignificant") {
		opts.DontRemoveInsignificant = lf.keepAll
	}
	if f.Changed("no-sampling") {
		opts.NoSampling = lf.noSampling
	}
	if f.Changed("sampling-radius-km") {
		opts.SamplingRadiusKm = lf.radiusKm
	}
	if f.Changed("sampling-radius-factors") {
		opts.SamplingRadiusFactors = lf.radiusFactors
	}
	if f.Changed("use-all-grid-cells") {
		opts.UseAllGridCells = lf.useAllGridCells
	}
	if f.Changed("ignored-percent-resampling-threshold") {
		opts.IgnoredPercentResamplingThreshold = lf.resampleAt
	}
}

// loadOptions reads a YAML options file over the defaults. Keys missing
// from the file keep their default values.
func loadOptions(path string) (domain.Options, error) {
	opts := domain.DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Options{}, fmt.Errorf("read options: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return domain.Options{}, fmt.Errorf("parse options %s: %w", path, err)
	}
	return opts, nil
}

// readInput returns arg itself when it looks like JSON, stdin for "-", and
// the named file otherwise.
func readInput(stdin io.Reader, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		return io.ReadAll(stdin)
	case strings.HasPrefix(strings.TrimSpace(arg), "{"):
		return []byte(arg), nil
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
}

// parseInput accepts a bare geometry or anything ParseLookupRequest does.
func parseInput(data []byte) (g orb.Geometry, areaAcres float64, err error) {
	if gjson.GetBytes(data, "geometry").Exists() {
		req, err := domain.ParseLookupRequest(data, "")
		if err != nil {
			return nil, 0, err
		}
		return req.Geometry, req.AreaAcres, nil
	}
	g, err = domain.ParseGeometry(data)
	return g, 0, err
}
