package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
	"github.com/couchcryptid/fccs-lookup-service/internal/raster"
)

const gridASC = `ncols 2
nrows 2
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
41 52
41 41
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeGrid(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(gridASC), 0o600))
	return path
}

var square = orb.Polygon{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}}

func TestOpen_File(t *testing.T) {
	path := writeGrid(t, t.TempDir(), "fccs.asc")
	metrics := observability.NewMetricsForTesting()

	lookup, err := Open(Spec{Kind: KindFile, GridFile: path, CRS: raster.CRSWGS84}, metrics, discardLogger())
	require.NoError(t, err)

	res, err := lookup.ZonalStats(context.Background(), domain.ZonalQuery{Region: square})
	require.NoError(t, err)
	comp, err := domain.Aggregate(res.Sets, res.Area)
	require.NoError(t, err)
	assert.Equal(t, 4, comp.GridCells)
	assert.InDelta(t, 75.0, comp.Fuelbeds["41"].Percent, 1e-9)

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.ZonalDuration, "fccs_lookup_zonal_duration_seconds"))
}

func TestOpen_Tiles(t *testing.T) {
	dir := t.TempDir()
	writeGrid(t, dir, "tile_a.asc")

	lookup, err := Open(Spec{Kind: KindTiles, TilesDir: dir, TileCacheSize: 2}, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)

	res, err := lookup.ZonalStats(context.Background(), domain.ZonalQuery{Region: square})
	require.NoError(t, err)
	assert.Len(t, res.Sets, 1)
}

func TestOpen_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"stats":[{"counts":{"41":3}}],"area":10}`))
	}))
	defer srv.Close()

	lookup, err := Open(Spec{Kind: KindRemote, RemoteURL: srv.URL, RemoteTimeout: time.Second}, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)

	res, err := lookup.ZonalStats(context.Background(), domain.ZonalQuery{Region: square})
	require.NoError(t, err)
	assert.Equal(t, []domain.ObservationSet{{{FuelbedID: 41, Count: 3}}}, res.Sets)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"unknown kind", Spec{Kind: "s3"}},
		{"file without path", Spec{Kind: KindFile}},
		{"missing file", Spec{Kind: KindFile, GridFile: filepath.Join(t.TempDir(), "absent.asc")}},
		{"tiles without dir", Spec{Kind: KindTiles}},
		{"empty tiles dir", Spec{Kind: KindTiles, TilesDir: t.TempDir()}},
		{"remote without url", Spec{Kind: KindRemote}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.spec, observability.NewMetricsForTesting(), discardLogger())
			assert.Error(t, err)
		})
	}
}
