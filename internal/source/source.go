// Package source opens the fuelbed grid a lookup runs against: a single
// ASCII grid, a directory of tiles, or a remote zonal statistics service.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/fccs-lookup-service/internal/adapter/zonalhttp"
	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
	"github.com/couchcryptid/fccs-lookup-service/internal/raster"
)

// Grid source kinds.
const (
	KindFile   = "file"
	KindTiles  = "tiles"
	KindRemote = "remote"
)

// Spec describes where fuelbed cells come from. Only the fields of the
// selected Kind are read.
type Spec struct {
	Kind string

	GridFile      string
	CRS           raster.CRS
	TilesDir      string
	TileCacheSize int

	RemoteURL     string
	RemoteTimeout time.Duration
}

// Validate checks that the fields Kind needs are set.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindFile:
		if s.GridFile == "" {
			return errors.New("grid file is required for the file source")
		}
	case KindTiles:
		if s.TilesDir == "" {
			return errors.New("tiles directory is required for the tiles source")
		}
	case KindRemote:
		if s.RemoteURL == "" {
			return errors.New("remote zonal URL is required for the remote source")
		}
	default:
		return fmt.Errorf("unknown grid source %q: must be %s, %s or %s", s.Kind, KindFile, KindTiles, KindRemote)
	}
	return nil
}

// Open builds the ZonalLookup for s, instrumented with zonal query timing
// under the source kind.
func Open(s Spec, metrics *observability.Metrics, logger *slog.Logger) (domain.ZonalLookup, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var (
		lookup domain.ZonalLookup
		err    error
	)
	switch s.Kind {
	case KindFile:
		lookup, err = raster.OpenGridLookup(s.GridFile, s.CRS)
		if err == nil {
			logger.Info("fuelbed grid loaded", "file", s.GridFile, "crs", s.CRS)
		}
	case KindTiles:
		var tl *raster.TileLookup
		tl, err = raster.OpenTileLookup(s.TilesDir, s.CRS, s.TileCacheSize, logger)
		if err == nil {
			logger.Info("fuelbed tiles indexed", "dir", s.TilesDir, "tiles", tl.Tiles(), "cache_size", s.TileCacheSize)
			lookup = tl
		}
	case KindRemote:
		timeout := s.RemoteTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		lookup = zonalhttp.NewClient(s.RemoteURL, timeout, metrics, logger)
		logger.Info("remote zonal lookup configured", "url", s.RemoteURL, "timeout", timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s grid source: %w", s.Kind, err)
	}
	return observability.InstrumentZonalLookup(lookup, metrics, s.Kind), nil
}
