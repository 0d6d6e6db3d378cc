package domain

import (
	"fmt"
	"strconv"
)

// Aggregate folds observation sets into a single Composition. Counts for the
// same fuelbed add up across sets, so the result does not depend on how the
// observations were split. Percentages are of the folded total; grid cell
// counts are the raw folded counts.
//
// It returns ErrNoData when the sets contain no cells and
// ErrInvalidObservation when a count is negative.
func Aggregate(sets []ObservationSet, area float64) (Composition, error) {
	totals := make(map[int]int)
	var total int
	for _, set := range sets {
		for _, obs := range set {
			if obs.Count < 0 {
				return Composition{}, fmt.Errorf("%w: fuelbed %d has count %d", ErrInvalidObservation, obs.FuelbedID, obs.Count)
			}
			if obs.Count == 0 {
				continue
			}
			totals[obs.FuelbedID] += obs.Count
			total += obs.Count
		}
	}

	if total == 0 {
		return Composition{}, ErrNoData
	}

	fuelbeds := make(Fuelbeds, len(totals))
	for id, count := range totals {
		fuelbeds[strconv.Itoa(id)] = Fuelbed{
			Percent:   100.0 * float64(count) / float64(total),
			GridCells: count,
		}
	}

	return Composition{
		Fuelbeds:  fuelbeds,
		GridCells: total,
		Area:      area,
		Units:     AreaUnits,
	}, nil
}

// MergeObservationSets collapses several sets into one, summing counts per
// fuelbed. Ids appear in first-seen order.
func MergeObservationSets(sets ...ObservationSet) ObservationSet {
	index := make(map[int]int)
	var merged ObservationSet
	for _, set := range sets {
		for _, obs := range set {
			if i, ok := index[obs.FuelbedID]; ok {
				merged[i].Count += obs.Count
				continue
			}
			index[obs.FuelbedID] = len(merged)
			merged = append(merged, obs)
		}
	}
	return merged
}
