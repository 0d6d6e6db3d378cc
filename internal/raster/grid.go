// Package raster counts fuelbed cells of gridded FCCS maps inside regions.
//
// Grids are read from ESRI ASCII files in either geographic (EPSG:4326)
// or web mercator (EPSG:3857) coordinates. Regions always arrive in WGS84
// and are projected to the grid's CRS before counting.
package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CRS identifies the coordinate system a grid is laid out in.
type CRS string

// Supported coordinate systems.
const (
	CRSWGS84       CRS = "EPSG:4326"
	CRSWebMercator CRS = "EPSG:3857"
)

const (
	defaultNoData = -9999
	maxGridCells  = 1 << 30
)

// ParseCRS validates a CRS name.
func ParseCRS(s string) (CRS, error) {
	switch CRS(s) {
	case CRSWGS84, CRSWebMercator:
		return CRS(s), nil
	case "":
		return CRSWGS84, nil
	}
	return "", fmt.Errorf("unsupported CRS %q (want %s or %s)", s, CRSWGS84, CRSWebMercator)
}

// project converts a WGS84 geometry into c. The input is not modified.
func (c CRS) project(g orb.Geometry) orb.Geometry {
	if c != CRSWebMercator {
		return g
	}
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// Header describes the layout of a grid. XLL and YLL are the outer lower
// left corner, not the centre of the lower left cell.
type Header struct {
	Cols     int
	Rows     int
	XLL      float64
	YLL      float64
	CellSize float64
	NoData   int
}

// Validate checks the header describes a usable grid.
func (h Header) Validate() error {
	if h.Cols <= 0 || h.Rows <= 0 {
		return fmt.Errorf("grid must have positive dimensions, got %dx%d", h.Cols, h.Rows)
	}
	if h.Cols*h.Rows > maxGridCells {
		return fmt.Errorf("grid of %dx%d cells is too large", h.Cols, h.Rows)
	}
	if !(h.CellSize > 0) || math.IsInf(h.CellSize, 0) {
		return fmt.Errorf("cell size must be positive, got %g", h.CellSize)
	}
	if math.IsNaN(h.XLL) || math.IsNaN(h.YLL) {
		return errors.New("grid origin must be a number")
	}
	return nil
}

// Bound returns the extent of the grid.
func (h Header) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{h.XLL, h.YLL},
		Max: orb.Point{h.XLL + float64(h.Cols)*h.CellSize, h.YLL + float64(h.Rows)*h.CellSize},
	}
}

// CellCenter returns the centre of a cell. Row 0 is the northernmost row.
func (h Header) CellCenter(row, col int) orb.Point {
	return orb.Point{
		h.XLL + (float64(col)+0.5)*h.CellSize,
		h.YLL + (float64(h.Rows-row)-0.5)*h.CellSize,
	}
}

// CellBound returns the extent of a cell.
func (h Header) CellBound(row, col int) orb.Bound {
	minX := h.XLL + float64(col)*h.CellSize
	maxY := h.YLL + float64(h.Rows-row)*h.CellSize
	return orb.Bound{
		Min: orb.Point{minX, maxY - h.CellSize},
		Max: orb.Point{minX + h.CellSize, maxY},
	}
}

// window returns the inclusive row and column range of cells overlapping b,
// and false when b misses the grid.
func (h Header) window(b orb.Bound) (minRow, maxRow, minCol, maxCol int, ok bool) {
	if !h.Bound().Intersects(b) {
		return 0, 0, 0, 0, false
	}
	top := h.YLL + float64(h.Rows)*h.CellSize

	minCol = clamp(int(math.Floor((b.Min.X()-h.XLL)/h.CellSize)), 0, h.Cols-1)
	maxCol = clamp(int(math.Ceil((b.Max.X()-h.XLL)/h.CellSize))-1, 0, h.Cols-1)
	minRow = clamp(int(math.Floor((top-b.Max.Y())/h.CellSize)), 0, h.Rows-1)
	maxRow = clamp(int(math.Ceil((top-b.Min.Y())/h.CellSize))-1, 0, h.Rows-1)
	if maxCol < minCol {
		maxCol = minCol
	}
	if maxRow < minRow {
		maxRow = minRow
	}
	return minRow, maxRow, minCol, maxCol, true
}

// cellAt returns the cell containing p.
func (h Header) cellAt(p orb.Point) (row, col int, ok bool) {
	if !h.Bound().Contains(p) {
		return 0, 0, false
	}
	top := h.YLL + float64(h.Rows)*h.CellSize
	col = clamp(int(math.Floor((p.X()-h.XLL)/h.CellSize)), 0, h.Cols-1)
	row = clamp(int(math.Floor((top-p.Y())/h.CellSize)), 0, h.Rows-1)
	return row, col, true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Grid is a fuelbed raster held in memory. Values are stored row-major from
// the northernmost row.
type Grid struct {
	Header
	CRS    CRS
	Values []int32
}

// NewGrid allocates a grid filled with the NODATA value.
func NewGrid(h Header, crs CRS) (*Grid, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{Header: h, CRS: crs, Values: make([]int32, h.Cols*h.Rows)}
	for i := range g.Values {
		g.Values[i] = int32(h.NoData)
	}
	return g, nil
}

// At returns the value of a cell.
func (g *Grid) At(row, col int) int {
	return int(g.Values[row*g.Cols+col])
}

// Set assigns the value of a cell.
func (g *Grid) Set(row, col, v int) {
	g.Values[row*g.Cols+col] = int32(v)
}

// valid reports whether v is a countable fuelbed id.
func (g *Grid) valid(v int) bool {
	return v != g.NoData && v >= 0
}
