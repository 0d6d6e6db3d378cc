// Package survey lays a regular grid of square cells over a bounding box and
// reports the fuelbed make-up of every cell.
package survey

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	kmPerDegreeLat = 111.32
	maxCells       = 1_000_000
)

// Cell is one square of a survey grid. Row 0 is the southernmost row and
// Col 0 the westernmost column.
type Cell struct {
	Index   int
	Row     int
	Col     int
	Polygon orb.Polygon
}

// DefineGrid covers bbox with square cells resolutionKm on a side. Cell
// width in degrees of longitude is fixed at the box's middle latitude, so
// cells stay square there and narrow slightly toward the poles. The last row
// and column may extend past bbox.
func DefineGrid(bbox orb.Bound, resolutionKm float64) ([]Cell, error) {
	if !(resolutionKm > 0) || math.IsInf(resolutionKm, 0) {
		return nil, fmt.Errorf("resolution must be a positive number of km, got %g", resolutionKm)
	}
	if err := validateBound(bbox); err != nil {
		return nil, err
	}

	midLat := (bbox.Min.Lat() + bbox.Max.Lat()) / 2
	dLat := resolutionKm / kmPerDegreeLat
	dLon := resolutionKm / (kmPerDegreeLat * math.Cos(midLat*math.Pi/180))

	rows, err := cellsAlong(bbox.Max.Lat()-bbox.Min.Lat(), dLat)
	if err != nil {
		return nil, err
	}
	cols, err := cellsAlong(bbox.Max.Lon()-bbox.Min.Lon(), dLon)
	if err != nil {
		return nil, err
	}
	if rows > maxCells/cols {
		return nil, fmt.Errorf("grid of %dx%d cells exceeds the %d cell limit", rows, cols, maxCells)
	}

	cells := make([]Cell, 0, rows*cols)
	for r := range rows {
		south := bbox.Min.Lat() + float64(r)*dLat
		for c := range cols {
			west := bbox.Min.Lon() + float64(c)*dLon
			b := orb.Bound{
				Min: orb.Point{west, south},
				Max: orb.Point{west + dLon, south + dLat},
			}
			cells = append(cells, Cell{
				Index:   len(cells),
				Row:     r,
				Col:     c,
				Polygon: b.ToPolygon(),
			})
		}
	}
	return cells, nil
}

// cellsAlong returns how many steps cover span, at least one. The count is
// checked as a float so tiny steps cannot overflow the conversion.
func cellsAlong(span, step float64) (int, error) {
	n := math.Ceil(span/step - 1e-9)
	if !(n <= maxCells) {
		return 0, fmt.Errorf("resolution too fine: %g cells along one edge exceeds the %d cell limit", n, maxCells)
	}
	return max(int(n), 1), nil
}

func validateBound(b orb.Bound) error {
	for _, v := range []float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("bounding box has a non-finite edge")
		}
	}
	if b.Min.Lon() < -180 || b.Max.Lon() > 180 || b.Min.Lat() <= -90 || b.Max.Lat() >= 90 {
		return errors.New("bounding box must lie within longitude [-180, 180] and latitude (-90, 90)")
	}
	if b.Min.Lon() >= b.Max.Lon() || b.Min.Lat() >= b.Max.Lat() {
		return errors.New("bounding box must have west < east and south < north")
	}
	return nil
}
