package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	kmPerDegLat          = 111.0
	kmPerDegLngAtEquator = 111.321
	squareKmPerAcre      = 0.00404686
)

// ParseGeometry decodes a GeoJSON geometry object and checks that it is a
// Point, MultiPoint, Polygon or MultiPolygon with usable coordinates.
func ParseGeometry(data []byte) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if g == nil || g.Coordinates == nil {
		return nil, fmt.Errorf("%w: missing coordinates", ErrInvalidGeometry)
	}
	geom := g.Geometry()
	if err := ValidateGeometry(geom); err != nil {
		return nil, err
	}
	return geom, nil
}

// ValidateGeometry rejects unsupported geometry types and malformed
// coordinates.
func ValidateGeometry(g orb.Geometry) error {
	switch v := g.(type) {
	case orb.Point:
		return validatePoint(v)
	case orb.MultiPoint:
		if len(v) == 0 {
			return fmt.Errorf("%w: MultiPoint has no points", ErrInvalidGeometry)
		}
		for _, p := range v {
			if err := validatePoint(p); err != nil {
				return err
			}
		}
		return nil
	case orb.Polygon:
		return validatePolygon(v)
	case orb.MultiPolygon:
		if len(v) == 0 {
			return fmt.Errorf("%w: MultiPolygon has no polygons", ErrInvalidGeometry)
		}
		for _, p := range v {
			if err := validatePolygon(p); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return fmt.Errorf("%w: missing geometry", ErrInvalidGeometry)
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, g.GeoJSONType())
	}
}

// Points at a pole are rejected: a longitude degree has no width there, so no
// sampling square can be built.
func validatePoint(p orb.Point) error {
	if err := validatePosition(p); err != nil {
		return err
	}
	if math.Abs(p.Lat()) >= 90 {
		return fmt.Errorf("%w: point latitude %g at a pole", ErrInvalidGeometry, p.Lat())
	}
	return nil
}

func validatePolygon(p orb.Polygon) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}
	for _, ring := range p {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring has %d positions, need at least 4", ErrInvalidGeometry, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring is not closed", ErrInvalidGeometry)
		}
		for _, pt := range ring {
			if err := validatePosition(pt); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePosition(p orb.Point) error {
	lon, lat := p.Lon(), p.Lat()
	if !isFinite(lon) || !isFinite(lat) {
		return fmt.Errorf("%w: non-finite coordinate", ErrInvalidGeometry)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: coordinate [%g, %g] out of range", ErrInvalidGeometry, lon, lat)
	}
	return nil
}

// IsPointGeometry reports whether g is a Point or MultiPoint.
func IsPointGeometry(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return true
	}
	return false
}

// geometryPoints returns the points of a Point or MultiPoint.
func geometryPoints(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return []orb.Point(v)
	}
	return nil
}

// SamplingRadiusFromAcres returns half the side length, in km, of a square
// with the given area.
func SamplingRadiusFromAcres(acres float64) float64 {
	return math.Sqrt(acres*squareKmPerAcre) / 2
}

// SamplingSquares expands every point into an axis-aligned square with the
// given half-width in km. The longitude delta is computed per point since
// longitude degrees shrink toward the poles.
func SamplingSquares(points []orb.Point, radiusKm float64) orb.MultiPolygon {
	dLat := radiusKm / kmPerDegLat
	dLngAtEquator := radiusKm / kmPerDegLngAtEquator

	squares := make(orb.MultiPolygon, 0, len(points))
	for _, p := range points {
		dLng := dLngAtEquator / math.Cos(p.Lat()*math.Pi/180.0)
		ring := orb.Ring{
			{p.Lon() - dLng, p.Lat() - dLat},
			{p.Lon() - dLng, p.Lat() + dLat},
			{p.Lon() + dLng, p.Lat() + dLat},
			{p.Lon() + dLng, p.Lat() - dLat},
			{p.Lon() - dLng, p.Lat() - dLat},
		}
		squares = append(squares, orb.Polygon{ring})
	}
	return squares
}
