package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/paulmach/orb"
)

// SamplingState is the state a point-sampling attempt ended in.
type SamplingState string

const (
	// SamplingContinue means the attempt was rejected and a wider square follows.
	SamplingContinue SamplingState = "sampling"
	// SamplingAccepted means the attempt's ignored share was below the threshold.
	SamplingAccepted SamplingState = "accepted"
	// SamplingExhausted means the last factor was reached without an
	// acceptable attempt; the last attempt with data is kept.
	SamplingExhausted SamplingState = "exhausted"
)

// SamplingAttempt describes one iteration of the point-sampling loop.
type SamplingAttempt struct {
	Attempt        int // 1-based
	Factor         float64
	RadiusKm       float64
	IgnoredPercent float64
	NoData         bool
	State          SamplingState
}

// RefinerOption customizes a Refiner.
type RefinerOption func(*Refiner)

// WithSamplingObserver registers a callback invoked after every sampling
// attempt. It must be safe for concurrent use if the Refiner is shared.
func WithSamplingObserver(fn func(SamplingAttempt)) RefinerOption {
	return func(r *Refiner) {
		r.observe = fn
	}
}

// Looker answers composition lookups. *Refiner implements it; decorators
// such as caches wrap it.
type Looker interface {
	LookUp(ctx context.Context, g orb.Geometry, areaAcres float64) (Composition, error)
}

// Refiner turns zonal counts into a cleaned fuelbed composition: it drives
// point sampling, strips ignored fuelbeds, truncates insignificant ones and
// renormalizes. It holds no mutable state after construction.
type Refiner struct {
	lookup  ZonalLookup
	opts    Options
	logger  *slog.Logger
	observe func(SamplingAttempt)
}

// NewRefiner validates opts and returns a Refiner that queries lookup.
func NewRefiner(lookup ZonalLookup, opts Options, logger *slog.Logger, options ...RefinerOption) (*Refiner, error) {
	if lookup == nil {
		return nil, fmt.Errorf("%w: zonal lookup is required", ErrConfiguration)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refiner{
		lookup: lookup,
		opts:   opts.Clone(),
		logger: logger,
	}
	for _, o := range options {
		o(r)
	}
	return r, nil
}

// Options returns a copy of the refiner's configuration.
func (r *Refiner) Options() Options {
	return r.opts.Clone()
}

// LookUp returns the fuelbed composition of g. For a Point or MultiPoint
// (unless sampling is disabled) a square is sampled around each point,
// widening through the configured factors until the result is not dominated
// by ignored fuelbeds. areaAcres, when positive, sets the sampling square
// size for point input and is ignored otherwise.
func (r *Refiner) LookUp(ctx context.Context, g orb.Geometry, areaAcres float64) (Composition, error) {
	if err := ValidateGeometry(g); err != nil {
		return Composition{}, err
	}
	if math.IsNaN(areaAcres) || math.IsInf(areaAcres, 0) {
		return Composition{}, fmt.Errorf("%w: area_acres must be finite", ErrInvalidGeometry)
	}

	var (
		c   Composition
		err error
	)
	if IsPointGeometry(g) && !r.opts.NoSampling {
		c, err = r.sample(ctx, geometryPoints(g), areaAcres)
	} else {
		c, err = r.query(ctx, g)
	}
	if err != nil {
		return Composition{}, err
	}

	RemoveIgnored(&c, r.opts.IgnoredFuelbeds)
	Truncate(&c, r.opts)
	return c, nil
}

func (r *Refiner) query(ctx context.Context, g orb.Geometry) (Composition, error) {
	res, err := r.lookup.ZonalStats(ctx, ZonalQuery{Region: g, UseAllGridCells: r.opts.UseAllGridCells})
	if err != nil {
		return Composition{}, fmt.Errorf("zonal lookup: %w", err)
	}
	return Aggregate(res.Sets, res.Area)
}

// sample runs the widening-square loop for point input.
func (r *Refiner) sample(ctx context.Context, points []orb.Point, areaAcres float64) (Composition, error) {
	radius := r.opts.SamplingRadiusKm
	if areaAcres > 0 {
		radius = SamplingRadiusFromAcres(areaAcres / float64(len(points)))
	}

	var (
		last    Composition
		hasData bool
	)
	factors := r.opts.SamplingRadiusFactors
	for i, factor := range factors {
		if err := ctx.Err(); err != nil {
			return Composition{}, err
		}

		attempt := SamplingAttempt{Attempt: i + 1, Factor: factor, RadiusKm: factor * radius}
		candidate, err := r.query(ctx, SamplingSquares(points, attempt.RadiusKm))
		switch {
		case errors.Is(err, ErrNoData):
			attempt.NoData = true
		case err != nil:
			return Composition{}, err
		default:
			attempt.IgnoredPercent = candidate.percentOf(r.opts.IgnoredFuelbeds)
			last, hasData = candidate, true
		}

		switch {
		case !attempt.NoData && attempt.IgnoredPercent < r.opts.IgnoredPercentResamplingThreshold:
			attempt.State = SamplingAccepted
		case i == len(factors)-1:
			attempt.State = SamplingExhausted
		default:
			attempt.State = SamplingContinue
		}
		r.report(attempt)

		if attempt.State != SamplingContinue {
			break
		}
	}

	if !hasData {
		return Composition{}, ErrNoData
	}
	last.Sampled = true
	return last, nil
}

func (r *Refiner) report(a SamplingAttempt) {
	r.logger.Debug("sampling attempt",
		"attempt", a.Attempt,
		"factor", a.Factor,
		"radius_km", a.RadiusKm,
		"ignored_percent", a.IgnoredPercent,
		"no_data", a.NoData,
		"state", string(a.State),
	)
	if r.observe != nil {
		r.observe(a)
	}
}

// RemoveIgnored deletes the ignored fuelbeds from c and rescales the rest so
// they again sum to 100. A composition made up only of ignored fuelbeds ends
// up empty.
func RemoveIgnored(c *Composition, ignored []string) {
	total := c.percentOf(ignored)
	if total <= 0 {
		return
	}
	for _, id := range ignored {
		delete(c.Fuelbeds, id)
	}
	ReadjustPercentages(c, total)
}

// Truncate drops the least prevalent fuelbeds while their cumulative percent
// stays below the insignificance threshold, or while more fuelbeds remain
// than the count cap allows, then renormalizes what is left.
func Truncate(c *Composition, opts Options) {
	if !opts.truncates() || len(c.Fuelbeds) == 0 {
		return
	}

	ranked := c.Fuelbeds.Ranked()
	remaining := len(ranked)
	var removed float64
	for i := len(ranked) - 1; i >= 0; i-- {
		e := ranked[i]
		insignificant := opts.InsignificanceThreshold > 0 && removed+e.Percent < opts.InsignificanceThreshold
		overCap := opts.MaxFuelbedCountThreshold > 0 && remaining > opts.MaxFuelbedCountThreshold
		if !insignificant && !overCap {
			continue
		}
		removed += e.Percent
		remaining--
		delete(c.Fuelbeds, e.ID)
	}

	ReadjustPercentages(c, removed)
}

// ReadjustPercentages scales every entry by 100/(100-missing), where missing
// is the percent already taken out of c. When nothing is left to scale
// against, c is emptied instead.
func ReadjustPercentages(c *Composition, missing float64) {
	if missing <= 0 || len(c.Fuelbeds) == 0 {
		return
	}
	if missing >= 100 {
		c.Fuelbeds = Fuelbeds{}
		return
	}
	factor := 100.0 / (100.0 - missing)
	for id, fb := range c.Fuelbeds {
		fb.Percent *= factor
		c.Fuelbeds[id] = fb
	}
}
