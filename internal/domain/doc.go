// Package domain computes FCCS fuelbed compositions.
//
// # Fuelbeds
//
// The Fuel Characteristic Classification System (FCCS) assigns every raster
// cell of a fuelbed map an integer id describing the vegetation fuel found
// there. Ids 0 (bare ground) and 900 (water) are non-burnable and are
// stripped from results by default.
//
// # Lookup flow
//
// A ZonalLookup counts the cells of each fuelbed inside a WGS84 region. The
// counts are folded by [Aggregate] into a Composition of percentages, then a
// [Refiner] applies the business rules:
//
//	Point / MultiPoint   sample a square around each point; widen it through
//	                     SamplingRadiusFactors while the ignored share is at
//	                     or above IgnoredPercentResamplingThreshold
//	Polygon / MultiPoly  query once
//	then                 RemoveIgnored, Truncate, renormalize to 100%
//
// Sampling radius: SamplingRadiusKm, or half the side of a square of the
// supplied area (acres split evenly across points). The square spans
// radius/111.0 degrees of latitude and radius/(111.321*cos(lat)) degrees of
// longitude.
//
// # Wire format
//
// A Composition marshals as
//
//	{
//	  "fuelbeds": {"41": {"percent": 62.5, "grid_cells": 5}, ...},
//	  "grid_cells": 8,
//	  "area": 7200.0,
//	  "units": "m^2"
//	}
//
// with fuelbeds ordered by descending percent. Point lookups report
// "sampled_grid_cells" and "sampled_area" instead, since the counts describe
// the sampled squares rather than the input. "area" is omitted when unknown.
// grid_cells is the number of cells observed before ignored and
// insignificant fuelbeds were removed.
package domain
