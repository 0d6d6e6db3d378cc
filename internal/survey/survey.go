package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

// Options controls Run.
type Options struct {
	// Workers bounds concurrent zonal queries. Zero uses GOMAXPROCS.
	Workers         int
	Thresholds      Thresholds
	UseAllGridCells bool
}

// Result is the survey outcome for one cell. NoData cells carry empty lists.
type Result struct {
	Cell      Cell
	Breakdown Breakdown
	GridCells int
	NoData    bool
}

// Run queries lookup for every cell and partitions the resulting
// composition. Results are returned in cell order. The first lookup error
// other than missing data cancels the remaining cells.
func Run(ctx context.Context, lookup domain.ZonalLookup, cells []Cell, opts Options, logger *slog.Logger) ([]Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range cells {
		g.Go(func() error {
			r, err := surveyCell(gctx, lookup, cells[i], opts)
			if err != nil {
				return fmt.Errorf("survey cell %d (row %d, col %d): %w", cells[i].Index, cells[i].Row, cells[i].Col, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var noData int
	for _, r := range results {
		if r.NoData {
			noData++
		}
	}
	logger.Info("survey finished", "cells", len(cells), "no_data", noData, "workers", workers)
	return results, nil
}

func surveyCell(ctx context.Context, lookup domain.ZonalLookup, cell Cell, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	res, err := lookup.ZonalStats(ctx, domain.ZonalQuery{
		Region:          cell.Polygon,
		UseAllGridCells: opts.UseAllGridCells,
	})
	if err != nil {
		return Result{}, err
	}

	comp, err := domain.Aggregate(res.Sets, res.Area)
	if errors.Is(err, domain.ErrNoData) {
		return Result{
			Cell:      cell,
			Breakdown: Breakdown{Included: []Entry{}, Truncated: []Entry{}, Excluded: []Entry{}},
			NoData:    true,
		}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{
		Cell:      cell,
		Breakdown: Partition(comp, opts.Thresholds),
		GridCells: comp.GridCells,
	}, nil
}
