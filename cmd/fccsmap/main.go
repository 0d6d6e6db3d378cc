// Command fccsmap looks up FCCS fuelbed compositions from the command line,
// surveys a bounding box cell by cell, and generates synthetic grids for
// testing.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
	"github.com/couchcryptid/fccs-lookup-service/internal/raster"
	"github.com/couchcryptid/fccs-lookup-service/internal/source"
)

// gridFlags select the fuelbed grid shared by lookup and survey.
type gridFlags struct {
	gridFile      string
	crs           string
	tilesDir      string
	tileCacheSize int
	remoteURL     string
	remoteTimeout time.Duration
	logLevel      string
	logFormat     string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var gf gridFlags

	rootCmd := &cobra.Command{
		Use:          "fccsmap",
		Short:        "FCCS fuelbed composition lookup tools",
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&gf.gridFile, "grid", "", "ESRI ASCII fuelbed grid file")
	pf.StringVar(&gf.crs, "crs", string(raster.CRSWGS84), "grid coordinate system (EPSG:4326 or EPSG:3857)")
	pf.StringVar(&gf.tilesDir, "tiles-dir", "", "directory of ESRI ASCII tiles (instead of --grid)")
	pf.IntVar(&gf.tileCacheSize, "tile-cache-size", 16, "tiles kept in memory")
	pf.StringVar(&gf.remoteURL, "remote-url", "", "remote zonal statistics endpoint (instead of --grid)")
	pf.DurationVar(&gf.remoteTimeout, "remote-timeout", 10*time.Second, "remote zonal request timeout")
	pf.StringVar(&gf.logLevel, "log-level", "warn", "log level")
	pf.StringVar(&gf.logFormat, "log-format", "text", "log format (text or json)")

	rootCmd.AddCommand(lookupCmd(&gf))
	rootCmd.AddCommand(surveyCmd(&gf))
	rootCmd.AddCommand(gengridCmd())

	return rootCmd
}

func (gf *gridFlags) logger(cmd *cobra.Command) *slog.Logger {
	return observability.NewLoggerTo(cmd.ErrOrStderr(), gf.logLevel, gf.logFormat)
}

// spec picks the grid source from whichever flag was given.
func (gf *gridFlags) spec() (source.Spec, error) {
	crs, err := raster.ParseCRS(gf.crs)
	if err != nil {
		return source.Spec{}, err
	}
	s := source.Spec{
		Kind:          source.KindFile,
		GridFile:      gf.gridFile,
		CRS:           crs,
		TilesDir:      gf.tilesDir,
		TileCacheSize: gf.tileCacheSize,
		RemoteURL:     gf.remoteURL,
		RemoteTimeout: gf.remoteTimeout,
	}
	switch {
	case gf.remoteURL != "":
		s.Kind = source.KindRemote
	case gf.tilesDir != "":
		s.Kind = source.KindTiles
	case gf.gridFile == "":
		return source.Spec{}, fmt.Errorf("one of --grid, --tiles-dir or --remote-url is required")
	}
	return s, nil
}

func (gf *gridFlags) open(cmd *cobra.Command) (domain.ZonalLookup, *slog.Logger, error) {
	spec, err := gf.spec()
	if err != nil {
		return nil, nil, err
	}
	logger := gf.logger(cmd)
	lookup, err := source.Open(spec, observability.NewUnregisteredMetrics(), logger)
	if err != nil {
		return nil, nil, err
	}
	return lookup, logger, nil
}
