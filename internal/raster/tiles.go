package raster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/lru"
)

// TileLookup implements domain.ZonalLookup over a directory of ESRI ASCII
// tiles sharing one CRS. Only tile headers are read at open; cell values are
// loaded on first use and kept in an LRU cache.
type TileLookup struct {
	crs    CRS
	tiles  []tile
	cache  *lru.Cache[string, *Grid]
	logger *slog.Logger
}

type tile struct {
	path  string
	bound orb.Bound
}

// OpenTileLookup indexes every .asc file in dir. cacheSize bounds the number
// of tiles held in memory at once.
func OpenTileLookup(dir string, crs CRS, cacheSize int, logger *slog.Logger) (*TileLookup, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read tiles dir: %w", err)
	}

	var tiles []tile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".asc") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		h, err := ReadASCIIHeaderFile(path)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile{path: path, bound: h.Bound()})
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("no .asc tiles in %s", dir)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].path < tiles[j].path })

	if cacheSize < 1 {
		cacheSize = 1
	}
	cache := lru.New[string, *Grid](cacheSize)
	cache.OnEvict(func(path string, _ *Grid) {
		logger.Debug("tile evicted", "path", path)
	})

	logger.Info("tiles indexed", "dir", dir, "count", len(tiles), "crs", string(crs))
	return &TileLookup{crs: crs, tiles: tiles, cache: cache, logger: logger}, nil
}

// ZonalStats returns one observation set per tile overlapping q.Region.
// Whether to fall back to every overlapping cell is decided across all
// tiles, so the result matches a lookup on the merged grid.
func (l *TileLookup) ZonalStats(ctx context.Context, q domain.ZonalQuery) (domain.ZonalResult, error) {
	projected := l.crs.project(q.Region)
	b := projected.Bound()

	var counts []cellCounts
	for _, t := range l.tiles {
		if !t.bound.Intersects(b) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.ZonalResult{}, err
		}
		g, err := l.load(t.path)
		if err != nil {
			return domain.ZonalResult{}, err
		}
		counts = append(counts, g.tallyRegion(projected, q.UseAllGridCells))
	}

	res := domain.ZonalResult{Area: RegionArea(q.Region)}
	for _, set := range selectCounts(counts, q.UseAllGridCells) {
		if len(set) > 0 {
			res.Sets = append(res.Sets, set)
		}
	}
	return res, nil
}

// Tiles returns the number of indexed tiles.
func (l *TileLookup) Tiles() int {
	return len(l.tiles)
}

func (l *TileLookup) load(path string) (*Grid, error) {
	if g, ok := l.cache.Get(path); ok {
		return g, nil
	}
	g, err := ReadASCIIGridFile(path, l.crs)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("tile loaded", "path", path, "cols", g.Cols, "rows", g.Rows)
	l.cache.Put(path, g)
	return g, nil
}
