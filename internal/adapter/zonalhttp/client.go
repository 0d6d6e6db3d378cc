// Package zonalhttp queries a remote zonal statistics service for fuelbed
// cell counts.
package zonalhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/tidwall/gjson"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
)

// Default response paths. A service answering
//
//	{"stats": [{"counts": {"41": 12, "52": 3}}], "area": 51200.5}
//
// needs no further configuration.
const (
	DefaultCountsPath = "stats.#.counts"
	DefaultAreaPath   = "area"
)

// Client implements domain.ZonalLookup against a remote HTTP service. The
// region is POSTed as GeoJSON and the counts are pulled out of the response
// with gjson paths.
type Client struct {
	url        string
	httpClient *http.Client
	countsPath string
	areaPath   string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithCountsPath sets the gjson path to the per-source count objects.
func WithCountsPath(path string) Option {
	return func(c *Client) { c.countsPath = path }
}

// WithAreaPath sets the gjson path to the region area in square meters.
func WithAreaPath(path string) Option {
	return func(c *Client) { c.areaPath = path }
}

// NewClient creates a remote zonal statistics client.
func NewClient(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		countsPath: DefaultCountsPath,
		areaPath:   DefaultAreaPath,
		metrics:    metrics,
		logger:     logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type request struct {
	Geometry        *geojson.Geometry `json:"geometry"`
	UseAllGridCells bool              `json:"use_all_grid_cells"`
}

// ZonalStats asks the remote service for the fuelbed counts inside q.Region.
func (c *Client) ZonalStats(ctx context.Context, q domain.ZonalQuery) (domain.ZonalResult, error) {
	res, err := c.do(ctx, q)
	if err != nil {
		c.metrics.RemoteRequests.WithLabelValues("error").Inc()
		c.logger.Warn("remote zonal lookup failed", "url", c.url, "error", err)
		return domain.ZonalResult{}, err
	}
	c.metrics.RemoteRequests.WithLabelValues("success").Inc()
	return res, nil
}

func (c *Client) do(ctx context.Context, q domain.ZonalQuery) (domain.ZonalResult, error) {
	body, err := json.Marshal(request{
		Geometry:        geojson.NewGeometry(q.Region),
		UseAllGridCells: q.UseAllGridCells,
	})
	if err != nil {
		return domain.ZonalResult{}, fmt.Errorf("encode region: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.ZonalResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ZonalResult{}, fmt.Errorf("zonal request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ZonalResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ZonalResult{}, fmt.Errorf("zonal service error: status %d: %s", resp.StatusCode, respBody)
	}
	if !gjson.ValidBytes(respBody) {
		return domain.ZonalResult{}, errors.New("zonal service returned invalid JSON")
	}

	return c.parse(respBody)
}

func (c *Client) parse(body []byte) (domain.ZonalResult, error) {
	counts := gjson.GetBytes(body, c.countsPath)
	if !counts.Exists() {
		return domain.ZonalResult{}, fmt.Errorf("counts path %q not found in response", c.countsPath)
	}

	var res domain.ZonalResult
	objects := []gjson.Result{counts}
	if counts.IsArray() {
		objects = counts.Array()
	}
	for i, obj := range objects {
		set, err := parseCounts(obj)
		if err != nil {
			return domain.ZonalResult{}, fmt.Errorf("counts[%d]: %w", i, err)
		}
		res.Sets = append(res.Sets, set)
	}

	if area := gjson.GetBytes(body, c.areaPath); area.Exists() {
		if area.Type != gjson.Number {
			return domain.ZonalResult{}, fmt.Errorf("area path %q is not a number", c.areaPath)
		}
		res.Area = area.Float()
	}
	return res, nil
}

// maxExactCount is the largest count a JSON number carries exactly.
const maxExactCount = 1 << 53

// parseCounts reads an object of fuelbed id to cell count. Counts must be
// whole numbers.
func parseCounts(obj gjson.Result) (domain.ObservationSet, error) {
	if !obj.IsObject() {
		return nil, fmt.Errorf("expected an object of counts, got %s", obj.Type)
	}
	var (
		set      domain.ObservationSet
		parseErr error
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		id, err := strconv.Atoi(key.String())
		if err != nil {
			parseErr = fmt.Errorf("fuelbed id %q is not an integer", key.String())
			return false
		}
		if value.Type != gjson.Number {
			parseErr = fmt.Errorf("count for fuelbed %d is not a number", id)
			return false
		}
		n := value.Float()
		if n != math.Trunc(n) || math.Abs(n) > maxExactCount {
			parseErr = fmt.Errorf("count %s for fuelbed %d is not an integer", value.Raw, id)
			return false
		}
		set = append(set, domain.Observation{FuelbedID: id, Count: int(n)})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return set, nil
}
