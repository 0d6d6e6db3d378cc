package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// AreaUnits is the unit reported for composition areas.
const AreaUnits = "m^2"

// Fuelbed is one entry of a composition.
type Fuelbed struct {
	Percent   float64 `json:"percent"`
	GridCells int     `json:"grid_cells"`
}

// Fuelbeds maps a fuelbed id (string form) to its share of the region.
// It marshals as a JSON object ordered by descending percent.
type Fuelbeds map[string]Fuelbed

// RankedFuelbed is a fuelbed entry paired with its id.
type RankedFuelbed struct {
	ID string
	Fuelbed
}

// Ranked returns the entries sorted by descending percent. Ties are ordered
// by id so output is stable.
func (f Fuelbeds) Ranked() []RankedFuelbed {
	out := make([]RankedFuelbed, 0, len(f))
	for id, fb := range f {
		out = append(out, RankedFuelbed{ID: id, Fuelbed: fb})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Percent != out[j].Percent {
			return out[i].Percent > out[j].Percent
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

// MarshalJSON writes the fuelbeds in presentation order.
func (f Fuelbeds) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range f.Ranked() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Fuelbed)
		if err != nil {
			return nil, fmt.Errorf("marshal fuelbed %s: %w", e.ID, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Composition is the percent-by-fuelbed breakdown of a region.
//
// GridCells is the number of cells observed by the zonal lookup. Refinement
// removes fuelbeds but leaves GridCells at the observed total. Sampled is set
// for point lookups, which report the counts of the sampled squares under
// "sampled_grid_cells" and "sampled_area".
type Composition struct {
	Fuelbeds  Fuelbeds
	GridCells int
	Area      float64
	Units     string
	Sampled   bool
}

type compositionJSON struct {
	Fuelbeds         Fuelbeds `json:"fuelbeds"`
	GridCells        *int     `json:"grid_cells,omitempty"`
	SampledGridCells *int     `json:"sampled_grid_cells,omitempty"`
	Area             *float64 `json:"area,omitempty"`
	SampledArea      *float64 `json:"sampled_area,omitempty"`
	Units            string   `json:"units"`
}

// MarshalJSON emits the wire form described in the package docs.
func (c Composition) MarshalJSON() ([]byte, error) {
	fuelbeds := c.Fuelbeds
	if fuelbeds == nil {
		fuelbeds = Fuelbeds{}
	}
	out := compositionJSON{Fuelbeds: fuelbeds, Units: c.Units}
	if out.Units == "" {
		out.Units = AreaUnits
	}
	cells := c.GridCells
	var area *float64
	if c.Area != 0 {
		a := c.Area
		area = &a
	}
	if c.Sampled {
		out.SampledGridCells = &cells
		out.SampledArea = area
	} else {
		out.GridCells = &cells
		out.Area = area
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both the sampled and the polygon spelling.
func (c *Composition) UnmarshalJSON(data []byte) error {
	var in compositionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Composition{Fuelbeds: in.Fuelbeds, Units: in.Units}
	if c.Fuelbeds == nil {
		c.Fuelbeds = Fuelbeds{}
	}
	switch {
	case in.SampledGridCells != nil:
		c.Sampled = true
		c.GridCells = *in.SampledGridCells
	case in.GridCells != nil:
		c.GridCells = *in.GridCells
	}
	switch {
	case in.SampledArea != nil:
		c.Sampled = true
		c.Area = *in.SampledArea
	case in.Area != nil:
		c.Area = *in.Area
	}
	return nil
}

// PercentTotal sums the percent of every entry.
func (c Composition) PercentTotal() float64 {
	var total float64
	for _, fb := range c.Fuelbeds {
		total += fb.Percent
	}
	return total
}

// Clone returns a deep copy.
func (c Composition) Clone() Composition {
	out := c
	out.Fuelbeds = make(Fuelbeds, len(c.Fuelbeds))
	for id, fb := range c.Fuelbeds {
		out.Fuelbeds[id] = fb
	}
	return out
}

// percentOf returns the summed percent of the given ids, treating missing ids
// as zero.
func (c Composition) percentOf(ids []string) float64 {
	var total float64
	for _, id := range ids {
		total += c.Fuelbeds[id].Percent
	}
	return total
}

// lessID orders numeric ids numerically and anything else lexically.
func lessID(a, b string) bool {
	ai, errA := strconv.Atoi(a)
	bi, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
