package domain

import "errors"

var (
	// ErrInvalidGeometry marks input geometry with an unsupported type or
	// malformed coordinates.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrNoData means the zonal lookup observed zero grid cells, e.g. the
	// region lies entirely outside the fuelbed raster.
	ErrNoData = errors.New("no fuelbed data")

	// ErrConfiguration marks an invalid combination of lookup options.
	ErrConfiguration = errors.New("invalid lookup configuration")

	// ErrInvalidObservation marks a zonal observation that breaks the
	// collaborator contract (negative cell count).
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrInvalidRequest marks a lookup request that is not a JSON object or
	// carries a malformed field other than the geometry.
	ErrInvalidRequest = errors.New("invalid lookup request")
)
