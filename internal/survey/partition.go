package survey

import (
	"strconv"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

// DefaultPercentThreshold is the cumulative share after which remaining
// fuelbeds are truncated.
const DefaultPercentThreshold = 90.0

// Thresholds controls Partition.
type Thresholds struct {
	// Percent is the cumulative percent after which fuelbeds are truncated.
	// Zero or negative disables the cut.
	Percent float64 `json:"percent" yaml:"percent"`
	// MaxCount truncates after this many fuelbeds. Zero means no limit.
	MaxCount int `json:"max_count" yaml:"max_count"`
}

// DefaultThresholds returns a 90% cut with no count limit.
func DefaultThresholds() Thresholds {
	return Thresholds{Percent: DefaultPercentThreshold}
}

// Entry is one fuelbed in a partitioned cell. NormalizedPercent is its share
// of the list it was placed in.
type Entry struct {
	FuelbedID         string  `json:"fccsId"`
	Percent           float64 `json:"pct"`
	GridCells         int     `json:"count"`
	NormalizedPercent float64 `json:"npct"`
}

// Breakdown splits a cell's fuelbeds into the ones kept, the ones cut by the
// thresholds, and the non-fuel ones.
type Breakdown struct {
	Included  []Entry `json:"fuelbeds"`
	Truncated []Entry `json:"truncated"`
	Excluded  []Entry `json:"excluded"`
}

// Partition walks the fuelbeds of c from most to least prevalent. Ids that
// are not positive integers (bare ground, no-data codes) are excluded.
// Once the running total of every fuelbed seen reaches t.Percent, or
// t.MaxCount fuelbeds have been seen, the rest are truncated. Each list is
// then renormalized to its own 100%.
func Partition(c domain.Composition, t Thresholds) Breakdown {
	p := Breakdown{Included: []Entry{}, Truncated: []Entry{}, Excluded: []Entry{}}

	var total float64
	for i, fb := range c.Fuelbeds.Ranked() {
		e := Entry{FuelbedID: fb.ID, Percent: fb.Percent, GridCells: fb.GridCells}
		switch {
		case isExcluded(fb.ID):
			p.Excluded = append(p.Excluded, e)
		case (t.Percent > 0 && total >= t.Percent) || (t.MaxCount > 0 && i >= t.MaxCount):
			p.Truncated = append(p.Truncated, e)
		default:
			p.Included = append(p.Included, e)
		}
		total += fb.Percent
	}

	normalize(p.Included)
	normalize(p.Truncated)
	normalize(p.Excluded)
	return p
}

func isExcluded(id string) bool {
	n, err := strconv.Atoi(id)
	return err != nil || n < 1
}

func normalize(entries []Entry) {
	var total float64
	for _, e := range entries {
		total += e.Percent
	}
	if total <= 0 {
		return
	}
	for i := range entries {
		entries[i].NormalizedPercent = entries[i].Percent * 100 / total
	}
}
