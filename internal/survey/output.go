package survey

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb/geojson"
)

// FeatureCollection renders results as GeoJSON features with the cell
// polygon as geometry and the breakdown as properties.
func FeatureCollection(results []Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range results {
		f := geojson.NewFeature(r.Cell.Polygon)
		f.ID = r.Cell.Index
		f.Properties["crs"] = "EPSG:4326"
		f.Properties["fuelbeds"] = r.Breakdown.Included
		f.Properties["truncated"] = r.Breakdown.Truncated
		f.Properties["excluded"] = r.Breakdown.Excluded
		f.Properties["grid_cells"] = r.GridCells
		f.Properties["no_data"] = r.NoData
		f.Properties["latLngIndices"] = []int{r.Cell.Row, r.Cell.Col}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes results as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, results []Result) error {
	data, err := FeatureCollection(results).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode survey geojson: %w", err)
	}
	_, err = w.Write(data)
	return err
}

var csvHeader = []string{
	"cell", "row", "col", "west", "south", "east", "north",
	"category", "fccs_id", "pct", "npct", "count",
}

// WriteCSV writes one row per fuelbed per cell. A cell without data gets a
// single row with empty fuelbed columns.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		b := r.Cell.Polygon.Bound()
		prefix := []string{
			strconv.Itoa(r.Cell.Index),
			strconv.Itoa(r.Cell.Row),
			strconv.Itoa(r.Cell.Col),
			formatFloat(b.Min.Lon()),
			formatFloat(b.Min.Lat()),
			formatFloat(b.Max.Lon()),
			formatFloat(b.Max.Lat()),
		}

		rows := 0
		for _, group := range []struct {
			name    string
			entries []Entry
		}{
			{"included", r.Breakdown.Included},
			{"truncated", r.Breakdown.Truncated},
			{"excluded", r.Breakdown.Excluded},
		} {
			for _, e := range group.entries {
				row := append(append([]string(nil), prefix...),
					group.name,
					e.FuelbedID,
					formatFloat(e.Percent),
					formatFloat(e.NormalizedPercent),
					strconv.Itoa(e.GridCells),
				)
				if err := cw.Write(row); err != nil {
					return err
				}
				rows++
			}
		}
		if rows == 0 {
			if err := cw.Write(append(prefix, "", "", "", "", "")); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
