package raster

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

// testGridASC is a 4x3 grid with one NODATA cell:
//
//	y 2-3: 41    41 52 900
//	y 1-2: 41 nodata 52 900
//	y 0-1: 13    13  0 900
const testGridASC = `ncols 4
nrows 3
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
41 41 52 900
41 -9999 52 900
13 13 0 900
`

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {minX, maxY}, {maxX, maxY}, {maxX, minY}, {minX, minY}}}
}

func readTestGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := ReadASCIIGrid(strings.NewReader(testGridASC), CRSWGS84)
	require.NoError(t, err)
	return g
}

func TestReadASCIIGrid(t *testing.T) {
	g := readTestGrid(t)
	assert.Equal(t, Header{Cols: 4, Rows: 3, XLL: 0, YLL: 0, CellSize: 1, NoData: -9999}, g.Header)
	assert.Equal(t, 41, g.At(0, 0))
	assert.Equal(t, -9999, g.At(1, 1))
	assert.Equal(t, 900, g.At(2, 3))
	assert.Equal(t, orb.Point{0.5, 2.5}, g.CellCenter(0, 0))
}

func TestReadASCIIGrid_CenterOriginAndFloats(t *testing.T) {
	src := "NCOLS 2\nNROWS 1\nXLLCENTER 10.5\nYLLCENTER 20.5\nCELLSIZE 1\n41.0 52\n"
	g, err := ReadASCIIGrid(strings.NewReader(src), CRSWGS84)
	require.NoError(t, err)
	assert.Equal(t, 10.0, g.XLL)
	assert.Equal(t, 20.0, g.YLL)
	assert.Equal(t, defaultNoData, g.NoData)
	assert.Equal(t, []int32{41, 52}, g.Values)
}

func TestReadASCIIGrid_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing cellsize", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\n1\n", "missing cellsize"},
		{"too few values", "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1\n", "expected 2 values"},
		{"too many values", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n", "more than 1"},
		{"fractional value", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1.5\n", "invalid fuelbed value"},
		{"unknown key", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nbands 3\n1\n", "unknown header key"},
		{"zero cell size", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 0\n1\n", "cell size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadASCIIGrid(strings.NewReader(tt.src), CRSWGS84)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteASCIIGrid_RoundTrip(t *testing.T) {
	g := readTestGrid(t)

	var buf bytes.Buffer
	require.NoError(t, WriteASCIIGrid(&buf, g))

	back, err := ReadASCIIGrid(&buf, CRSWGS84)
	require.NoError(t, err)
	assert.Equal(t, g, back)
}

func TestParseCRS(t *testing.T) {
	crs, err := ParseCRS("EPSG:3857")
	require.NoError(t, err)
	assert.Equal(t, CRSWebMercator, crs)

	crs, err = ParseCRS("")
	require.NoError(t, err)
	assert.Equal(t, CRSWGS84, crs)

	_, err = ParseCRS("EPSG:5070")
	require.Error(t, err)
}

func TestGrid_Count(t *testing.T) {
	g := readTestGrid(t)

	tests := []struct {
		name   string
		region orb.Geometry
		useAll bool
		want   domain.ObservationSet
	}{
		{
			name:   "cell centres inside polygon",
			region: rect(0.2, 0.2, 2.8, 2.8),
			want: domain.ObservationSet{
				{FuelbedID: 41, Count: 3}, {FuelbedID: 52, Count: 2},
				{FuelbedID: 13, Count: 2}, {FuelbedID: 0, Count: 1},
			},
		},
		{
			name:   "small polygon falls back to overlapping cells",
			region: rect(1.1, 2.1, 1.3, 2.3),
			want:   domain.ObservationSet{{FuelbedID: 41, Count: 1}},
		},
		{
			name:   "partial cells excluded",
			region: rect(0.2, 2.2, 1.2, 2.8),
			want:   domain.ObservationSet{{FuelbedID: 41, Count: 1}},
		},
		{
			name:   "partial cells included with use all",
			region: rect(0.2, 2.2, 1.2, 2.8),
			useAll: true,
			want:   domain.ObservationSet{{FuelbedID: 41, Count: 2}},
		},
		{
			name:   "multipolygon",
			region: orb.MultiPolygon{rect(0.2, 2.2, 0.8, 2.8), rect(3.2, 0.2, 3.8, 2.8)},
			want:   domain.ObservationSet{{FuelbedID: 41, Count: 1}, {FuelbedID: 900, Count: 3}},
		},
		{
			name:   "point",
			region: orb.Point{3.5, 0.5},
			want:   domain.ObservationSet{{FuelbedID: 900, Count: 1}},
		},
		{
			name:   "nodata point",
			region: orb.Point{1.5, 1.5},
			want:   domain.ObservationSet{},
		},
		{
			name:   "outside grid",
			region: rect(10, 10, 11, 11),
			want:   domain.ObservationSet{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Count(tt.region, tt.useAll))
		})
	}
}

func TestGridLookup_ZonalStats(t *testing.T) {
	l := NewGridLookup(readTestGrid(t))

	res, err := l.ZonalStats(context.Background(), domain.ZonalQuery{Region: rect(0.2, 0.2, 2.8, 2.8)})
	require.NoError(t, err)
	require.Len(t, res.Sets, 1)
	assert.Greater(t, res.Area, 0.0)

	c, err := domain.Aggregate(res.Sets, res.Area)
	require.NoError(t, err)
	assert.Equal(t, 8, c.GridCells)
}

func TestGridLookup_WebMercator(t *testing.T) {
	g, err := NewGrid(Header{Cols: 2, Rows: 2, XLL: -200000, YLL: -200000, CellSize: 200000, NoData: -9999}, CRSWebMercator)
	require.NoError(t, err)
	g.Set(0, 0, 1)
	g.Set(0, 1, 2)
	g.Set(1, 0, 3)
	g.Set(1, 1, 4)
	l := NewGridLookup(g)

	region := orb.MultiPoint{{0.5, 0.5}, {-0.5, -0.5}}
	res, err := l.ZonalStats(context.Background(), domain.ZonalQuery{Region: region})
	require.NoError(t, err)
	assert.Equal(t, []domain.ObservationSet{{{FuelbedID: 2, Count: 1}, {FuelbedID: 3, Count: 1}}}, res.Sets)
	assert.Equal(t, orb.MultiPoint{{0.5, 0.5}, {-0.5, -0.5}}, region, "query region must not be modified")
}

func TestRegionArea(t *testing.T) {
	// One degree square at the equator.
	assert.InEpsilon(t, 1.239e10, RegionArea(rect(0, 0, 1, 1)), 0.01)
	assert.Zero(t, RegionArea(orb.Point{0, 0}))
}

func TestTileLookup(t *testing.T) {
	dir := t.TempDir()
	west := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n41 41\n"
	east := "ncols 2\nnrows 1\nxllcorner 2\nyllcorner 0\ncellsize 1\n52 900\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "west.asc"), []byte(west), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "east.asc"), []byte(east), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a tile"), 0o600))

	l, err := OpenTileLookup(dir, CRSWGS84, 1, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 2, l.Tiles())

	t.Run("spans both tiles", func(t *testing.T) {
		res, err := l.ZonalStats(context.Background(), domain.ZonalQuery{Region: rect(0.2, 0.2, 3.8, 0.8)})
		require.NoError(t, err)
		require.Len(t, res.Sets, 2)

		c, err := domain.Aggregate(res.Sets, res.Area)
		require.NoError(t, err)
		assert.Equal(t, 4, c.GridCells)
		assert.Equal(t, 2, c.Fuelbeds["41"].GridCells)
	})

	t.Run("single tile", func(t *testing.T) {
		res, err := l.ZonalStats(context.Background(), domain.ZonalQuery{Region: rect(2.2, 0.2, 2.8, 0.8)})
		require.NoError(t, err)
		assert.Equal(t, []domain.ObservationSet{{{FuelbedID: 52, Count: 1}}}, res.Sets)
	})

	t.Run("outside every tile", func(t *testing.T) {
		res, err := l.ZonalStats(context.Background(), domain.ZonalQuery{Region: rect(10, 10, 11, 11)})
		require.NoError(t, err)
		assert.Empty(t, res.Sets)
	})
}

// uniformASC is an n x n tile of a single fuelbed.
func uniformASC(n int, xll float64, id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\nnrows %d\nxllcorner %g\nyllcorner 0\ncellsize 1\n", n, n, xll)
	row := strings.TrimSpace(strings.Repeat(id+" ", n))
	for range n {
		b.WriteString(row + "\n")
	}
	return b.String()
}

func TestTileLookup_SliverMatchesMergedGrid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "west.asc"), []byte(uniformASC(4, 0, "41")), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "east.asc"), []byte(uniformASC(4, 4, "900")), 0o600))

	tiles, err := OpenTileLookup(dir, CRSWGS84, 2, slog.Default())
	require.NoError(t, err)

	merged, err := NewGrid(Header{Cols: 8, Rows: 4, CellSize: 1, NoData: -9999}, CRSWGS84)
	require.NoError(t, err)
	for row := range 4 {
		for col := range 8 {
			if col < 4 {
				merged.Set(row, col, 41)
			} else {
				merged.Set(row, col, 900)
			}
		}
	}

	// The region clips only the western column of the east tile, so no
	// east cell centre is inside it.
	q := domain.ZonalQuery{Region: rect(0.2, 0.2, 4.3, 3.8)}

	fromTiles, err := tiles.ZonalStats(context.Background(), q)
	require.NoError(t, err)
	fromGrid, err := NewGridLookup(merged).ZonalStats(context.Background(), q)
	require.NoError(t, err)

	tc, err := domain.Aggregate(fromTiles.Sets, fromTiles.Area)
	require.NoError(t, err)
	gc, err := domain.Aggregate(fromGrid.Sets, fromGrid.Area)
	require.NoError(t, err)

	assert.Equal(t, gc, tc)
	assert.Equal(t, domain.Fuelbeds{"41": {Percent: 100, GridCells: 16}}, tc.Fuelbeds)
}

func TestTileLookup_FallbackWhenNoCentreInside(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "west.asc"), []byte(uniformASC(4, 0, "41")), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "east.asc"), []byte(uniformASC(4, 4, "900")), 0o600))

	tiles, err := OpenTileLookup(dir, CRSWGS84, 2, slog.Default())
	require.NoError(t, err)

	// A thin strip across the tile seam misses every centre.
	res, err := tiles.ZonalStats(context.Background(), domain.ZonalQuery{Region: rect(3.8, 1.1, 4.2, 1.3)})
	require.NoError(t, err)
	c, err := domain.Aggregate(res.Sets, res.Area)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Fuelbeds["41"].GridCells)
	assert.Equal(t, 1, c.Fuelbeds["900"].GridCells)
}

func TestOpenTileLookup_EmptyDir(t *testing.T) {
	_, err := OpenTileLookup(t.TempDir(), CRSWGS84, 4, slog.Default())
	require.Error(t, err)
}
