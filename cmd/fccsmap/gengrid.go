package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fccs-lookup-service/internal/raster"
)

type gengridFlags struct {
	header         raster.Header
	crs            string
	fuelbeds       []string
	patch          int
	seed           uint64
	nodataFraction float64
	output         string
}

func gengridCmd() *cobra.Command {
	var gg gengridFlags

	cmd := &cobra.Command{
		Use:   "gengrid",
		Short: "Write a synthetic fuelbed grid in ESRI ASCII format",
		Long: `Write a synthetic fuelbed grid in ESRI ASCII format. Cells are filled in
square patches, each patch drawn from --fuelbeds, so that nearby cells share
a fuelbed the way real maps do. The same seed always yields the same grid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := gg.generate()
			if err != nil {
				return err
			}
			if err := raster.WriteASCIIGridFile(gg.output, g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %dx%d grid to %s\n", g.Cols, g.Rows, gg.output)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&gg.header.Cols, "cols", 100, "number of columns")
	f.IntVar(&gg.header.Rows, "rows", 100, "number of rows")
	f.Float64Var(&gg.header.XLL, "xll", -120.5, "x of the lower left corner")
	f.Float64Var(&gg.header.YLL, "yll", 47.5, "y of the lower left corner")
	f.Float64Var(&gg.header.CellSize, "cellsize", 0.01, "cell edge length in grid units")
	f.IntVar(&gg.header.NoData, "nodata", -9999, "NODATA value")
	f.StringVar(&gg.crs, "crs", string(raster.CRSWGS84), "grid coordinate system")
	f.StringSliceVar(&gg.fuelbeds, "fuelbeds", []string{"41", "52", "13", "0", "900"}, "fuelbed ids to draw from")
	f.IntVar(&gg.patch, "patch", 5, "edge length in cells of same-fuelbed patches")
	f.Uint64Var(&gg.seed, "seed", 1, "random seed")
	f.Float64Var(&gg.nodataFraction, "nodata-fraction", 0, "fraction of cells left as NODATA")
	f.StringVarP(&gg.output, "output", "o", "", "output .asc file")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// generate builds the grid. Row 0 is the northernmost row.
func (gg *gengridFlags) generate() (*raster.Grid, error) {
	crs, err := raster.ParseCRS(gg.crs)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(gg.fuelbeds))
	for _, s := range gg.fuelbeds {
		id, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("fuelbed id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one fuelbed id is required")
	}
	if gg.patch < 1 {
		return nil, fmt.Errorf("patch must be at least 1, got %d", gg.patch)
	}
	if gg.nodataFraction < 0 || gg.nodataFraction > 1 {
		return nil, fmt.Errorf("nodata-fraction must be in [0, 1], got %g", gg.nodataFraction)
	}

	g, err := raster.NewGrid(gg.header, crs)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(gg.seed, gg.seed^0x9e3779b97f4a7c15))
	patchCols := (g.Cols + gg.patch - 1) / gg.patch
	patchRows := (g.Rows + gg.patch - 1) / gg.patch
	patches := make([]int, patchCols*patchRows)
	for i := range patches {
		patches[i] = ids[rng.IntN(len(ids))]
	}

	for row := range g.Rows {
		for col := range g.Cols {
			if gg.nodataFraction > 0 && rng.Float64() < gg.nodataFraction {
				continue
			}
			g.Set(row, col, patches[(row/gg.patch)*patchCols+col/gg.patch])
		}
	}
	return g, nil
}
