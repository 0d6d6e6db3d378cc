package domain

import (
	"context"

	"github.com/paulmach/orb"
)

// Observation is the number of grid cells of one fuelbed inside a region.
type Observation struct {
	FuelbedID int `json:"fuelbed_id"`
	Count     int `json:"count"`
}

// ObservationSet is the output of one zonal lookup over one raster source
// (a file, a tile, a remote feature).
type ObservationSet []Observation

// ZonalQuery describes a region to count cells in. Region is in WGS84
// longitude/latitude degrees; reprojection is the implementation's job.
type ZonalQuery struct {
	Region orb.Geometry

	// UseAllGridCells counts cells only partially inside the region as
	// inside.
	UseAllGridCells bool
}

// ZonalResult holds the per-source observation sets and the region area in
// square meters.
type ZonalResult struct {
	Sets []ObservationSet
	Area float64
}

// ZonalLookup counts fuelbed raster cells inside a region.
type ZonalLookup interface {
	ZonalStats(ctx context.Context, q ZonalQuery) (ZonalResult, error)
}

// ZonalLookupFunc adapts a function to ZonalLookup.
type ZonalLookupFunc func(ctx context.Context, q ZonalQuery) (ZonalResult, error)

// ZonalStats calls f.
func (f ZonalLookupFunc) ZonalStats(ctx context.Context, q ZonalQuery) (ZonalResult, error) {
	return f(ctx, q)
}
