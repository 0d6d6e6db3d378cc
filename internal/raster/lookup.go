package raster

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

// GridLookup implements domain.ZonalLookup over a single in-memory grid. The
// grid is read-only after construction, so a GridLookup is safe for
// concurrent use.
type GridLookup struct {
	grid *Grid
}

// NewGridLookup wraps g.
func NewGridLookup(g *Grid) *GridLookup {
	return &GridLookup{grid: g}
}

// OpenGridLookup reads an ESRI ASCII grid from path.
func OpenGridLookup(path string, crs CRS) (*GridLookup, error) {
	g, err := ReadASCIIGridFile(path, crs)
	if err != nil {
		return nil, err
	}
	return NewGridLookup(g), nil
}

// ZonalStats counts the grid's fuelbed cells inside q.Region.
func (l *GridLookup) ZonalStats(ctx context.Context, q domain.ZonalQuery) (domain.ZonalResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ZonalResult{}, err
	}
	projected := l.grid.CRS.project(q.Region)
	return domain.ZonalResult{
		Sets: []domain.ObservationSet{l.grid.Count(projected, q.UseAllGridCells)},
		Area: RegionArea(q.Region),
	}, nil
}

// RegionArea returns the area of a WGS84 region in square meters. Points
// have no area.
func RegionArea(g orb.Geometry) float64 {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return math.Abs(geo.Area(g))
	}
	return 0
}

// cellCounts holds two tallies of the same region: cells whose centre lies
// inside it and every cell overlapping a polygon's bound. For points both
// are the cell the point falls in.
type cellCounts struct {
	inside      *tally
	overlapping *tally
}

// Count tallies fuelbed ids inside region, which must already be in the
// grid's CRS. A point counts the cell it falls in. For polygons a cell counts
// when its centre is inside; when useAll is set, or no centre falls inside a
// small polygon, every cell overlapping the polygon's bound counts instead.
// NODATA and negative values are skipped.
func (g *Grid) Count(region orb.Geometry, useAll bool) domain.ObservationSet {
	return selectCounts([]cellCounts{g.tallyRegion(region, useAll)}, useAll)[0]
}

// tallyRegion counts region both ways. With useAll the inside tally is left
// empty.
func (g *Grid) tallyRegion(region orb.Geometry, useAll bool) cellCounts {
	c := cellCounts{inside: newTally(), overlapping: newTally()}
	switch r := region.(type) {
	case orb.Point:
		g.countPoint(c, r)
	case orb.MultiPoint:
		for _, p := range r {
			g.countPoint(c, p)
		}
	case orb.Polygon:
		g.countPolygons(c, orb.MultiPolygon{r}, useAll)
	case orb.MultiPolygon:
		g.countPolygons(c, r, useAll)
	}
	return c
}

// selectCounts turns tallies taken from one or more grids into observation
// sets. The overlapping tallies are used when useAll is set or when no
// centre fell inside the region in any grid, so splitting a region across
// tiles gives the same answer as counting it on one grid.
func selectCounts(counts []cellCounts, useAll bool) []domain.ObservationSet {
	var inside int
	for _, c := range counts {
		inside += c.inside.total
	}
	sets := make([]domain.ObservationSet, len(counts))
	for i, c := range counts {
		if useAll || inside == 0 {
			sets[i] = c.overlapping.set()
		} else {
			sets[i] = c.inside.set()
		}
	}
	return sets
}

func (g *Grid) countPoint(c cellCounts, p orb.Point) {
	row, col, ok := g.cellAt(p)
	if !ok {
		return
	}
	if v := g.At(row, col); g.valid(v) {
		c.inside.add(v)
		c.overlapping.add(v)
	}
}

func (g *Grid) countPolygons(c cellCounts, mp orb.MultiPolygon, useAll bool) {
	minRow, maxRow, minCol, maxCol, ok := g.window(mp.Bound())
	if !ok {
		return
	}

	bounds := make([]orb.Bound, len(mp))
	for i, p := range mp {
		bounds[i] = p.Bound()
	}

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			v := g.At(row, col)
			if !g.valid(v) {
				continue
			}
			cell := g.CellBound(row, col)
			touches := false
			for _, b := range bounds {
				if overlaps(b, cell) {
					touches = true
					break
				}
			}
			if !touches {
				continue
			}
			c.overlapping.add(v)
			if !useAll && planar.MultiPolygonContains(mp, g.CellCenter(row, col)) {
				c.inside.add(v)
			}
		}
	}
}

// overlaps reports whether a and b share a region of positive area. Bounds
// that only touch along an edge do not overlap.
func overlaps(a, b orb.Bound) bool {
	return a.Min.X() < b.Max.X() && a.Max.X() > b.Min.X() &&
		a.Min.Y() < b.Max.Y() && a.Max.Y() > b.Min.Y()
}

// tally accumulates counts per fuelbed id, remembering first-seen order so
// observation sets are deterministic.
type tally struct {
	counts map[int]int
	order  []int
	total  int
}

func newTally() *tally {
	return &tally{counts: make(map[int]int)}
}

func (t *tally) add(id int) {
	t.addN(id, 1)
}

func (t *tally) addN(id, n int) {
	if _, ok := t.counts[id]; !ok {
		t.order = append(t.order, id)
	}
	t.counts[id] += n
	t.total += n
}

func (t *tally) set() domain.ObservationSet {
	set := make(domain.ObservationSet, 0, len(t.order))
	for _, id := range t.order {
		set = append(set, domain.Observation{FuelbedID: id, Count: t.counts[id]})
	}
	return set
}
