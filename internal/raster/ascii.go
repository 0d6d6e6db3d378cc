package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// ReadASCIIGridFile reads an ESRI ASCII grid from disk.
func ReadASCIIGridFile(path string, crs CRS) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid: %w", err)
	}
	defer f.Close()

	g, err := ReadASCIIGrid(f, crs)
	if err != nil {
		return nil, fmt.Errorf("read grid %s: %w", path, err)
	}
	return g, nil
}

// ReadASCIIHeaderFile reads only the header of an ESRI ASCII grid.
func ReadASCIIHeaderFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("open grid: %w", err)
	}
	defer f.Close()

	h, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return Header{}, fmt.Errorf("read grid header %s: %w", path, err)
	}
	return h, nil
}

// ReadASCIIGrid parses an ESRI ASCII grid:
//
//	ncols         4
//	nrows         3
//	xllcorner     -121.0
//	yllcorner     47.0
//	cellsize      0.25
//	NODATA_value  -9999
//	41 41 52 900
//	...
//
// xllcenter/yllcenter are accepted in place of the corner keys. Values are
// listed row by row starting from the north edge.
func ReadASCIIGrid(r io.Reader, crs CRS) (*Grid, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	g, err := NewGrid(h, crs)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	n := 0
	for sc.Scan() {
		if n >= len(g.Values) {
			return nil, fmt.Errorf("more than %d values", len(g.Values))
		}
		v, err := parseCellValue(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", n, err)
		}
		g.Values[n] = v
		n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan values: %w", err)
	}
	if n != len(g.Values) {
		return nil, fmt.Errorf("expected %d values, got %d", len(g.Values), n)
	}
	return g, nil
}

func parseCellValue(s string) (int32, error) {
	if v, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(v), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("invalid fuelbed value %q", s)
	}
	return int32(f), nil
}

func readHeader(br *bufio.Reader) (Header, error) {
	h := Header{NoData: defaultNoData}
	var xCenter, yCenter bool
	seen := make(map[string]bool)

	for {
		letter, err := nextIsLetter(br)
		if err != nil {
			return Header{}, err
		}
		if !letter {
			break
		}
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Header{}, fmt.Errorf("read header: %w", err)
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return Header{}, fmt.Errorf("malformed header line %q", strings.TrimSpace(line))
		}
		key, value := strings.ToLower(fields[0]), fields[1]
		if err := applyHeaderField(&h, key, value, &xCenter, &yCenter); err != nil {
			return Header{}, err
		}
		seen[key] = true
		if errors.Is(err, io.EOF) {
			break
		}
	}

	for _, keys := range [][]string{{"ncols"}, {"nrows"}, {"cellsize"}, {"xllcorner", "xllcenter"}, {"yllcorner", "yllcenter"}} {
		if !seen[keys[0]] && (len(keys) == 1 || !seen[keys[1]]) {
			return Header{}, fmt.Errorf("header is missing %s", keys[0])
		}
	}
	if xCenter {
		h.XLL -= h.CellSize / 2
	}
	if yCenter {
		h.YLL -= h.CellSize / 2
	}
	if err := h.Validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

func applyHeaderField(h *Header, key, value string, xCenter, yCenter *bool) error {
	var err error
	switch key {
	case "ncols":
		h.Cols, err = strconv.Atoi(value)
	case "nrows":
		h.Rows, err = strconv.Atoi(value)
	case "xllcorner", "xllcenter":
		h.XLL, err = strconv.ParseFloat(value, 64)
		*xCenter = key == "xllcenter"
	case "yllcorner", "yllcenter":
		h.YLL, err = strconv.ParseFloat(value, 64)
		*yCenter = key == "yllcenter"
	case "cellsize":
		h.CellSize, err = strconv.ParseFloat(value, 64)
	case "nodata_value":
		var v int32
		v, err = parseCellValue(value)
		h.NoData = int(v)
	default:
		return fmt.Errorf("unknown header key %q", key)
	}
	if err != nil {
		return fmt.Errorf("header %s: %w", key, err)
	}
	return nil
}

// nextIsLetter skips whitespace and reports whether the next byte starts a
// header keyword.
func nextIsLetter(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.Peek(1)
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("read header: %w", err)
		}
		if unicode.IsSpace(rune(b[0])) {
			if _, err := br.ReadByte(); err != nil {
				return false, err
			}
			continue
		}
		return unicode.IsLetter(rune(b[0])), nil
	}
}

// WriteASCIIGrid writes g in ESRI ASCII format using corner coordinates.
func WriteASCIIGrid(w io.Writer, g *Grid) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", formatFloat(g.XLL), formatFloat(g.YLL))
	fmt.Fprintf(bw, "cellsize %s\nNODATA_value %d\n", formatFloat(g.CellSize), g.NoData)

	buf := make([]byte, 0, 16)
	for row := range g.Rows {
		for col := range g.Cols {
			if col > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendInt(buf[:0], int64(g.At(row, col)), 10)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteASCIIGridFile writes g to path.
func WriteASCIIGridFile(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid: %w", err)
	}
	if err := WriteASCIIGrid(f, g); err != nil {
		f.Close()
		return fmt.Errorf("write grid %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
