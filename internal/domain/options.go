package domain

import (
	"fmt"
	"slices"
)

// Options configures a Refiner. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	// IgnoredFuelbeds are non-burnable categories (bare ground, water)
	// stripped from every result.
	IgnoredFuelbeds []string `json:"ignored_fuelbeds" yaml:"ignored_fuelbeds" env:"IGNORED_FUELBEDS"`

	// IgnoredPercentResamplingThreshold triggers a wider sampling square for
	// point lookups when the ignored share reaches it. Slightly below 100 to
	// absorb rounding.
	IgnoredPercentResamplingThreshold float64 `json:"ignored_percent_resampling_threshold" yaml:"ignored_percent_resampling_threshold" env:"IGNORED_PERCENT_RESAMPLING_THRESHOLD"`

	// InsignificanceThreshold is the cumulative percent below which the least
	// prevalent fuelbeds are dropped. Zero or negative disables it.
	InsignificanceThreshold float64 `json:"insignificance_threshold" yaml:"insignificance_threshold" env:"INSIGNIFICANCE_THRESHOLD"`

	// MaxFuelbedCountThreshold caps the number of fuelbeds returned. Zero
	// means no cap.
	MaxFuelbedCountThreshold int `json:"max_fuelbed_count_threshold" yaml:"max_fuelbed_count_threshold" env:"MAX_FUELBED_COUNT_THRESHOLD"`

	DontRemoveInsignificant bool `json:"dont_remove_insignificant" yaml:"dont_remove_insignificant" env:"DONT_REMOVE_INSIGNIFICANT"`

	// NoSampling treats Point and MultiPoint input as a literal query.
	NoSampling bool `json:"no_sampling" yaml:"no_sampling" env:"NO_SAMPLING"`

	SamplingRadiusKm float64 `json:"sampling_radius_km" yaml:"sampling_radius_km" env:"SAMPLING_RADIUS_KM"`

	// SamplingRadiusFactors are applied to the sampling radius on successive
	// attempts. With a 1km radius, [1,3,5] samples a 2km square, then 6km,
	// then 10km.
	SamplingRadiusFactors []float64 `json:"sampling_radius_factors" yaml:"sampling_radius_factors" env:"SAMPLING_RADIUS_FACTORS"`

	UseAllGridCells bool `json:"use_all_grid_cells" yaml:"use_all_grid_cells" env:"USE_ALL_GRID_CELLS"`
}

// DefaultOptions returns the stock lookup configuration.
func DefaultOptions() Options {
	return Options{
		IgnoredFuelbeds:                   []string{"0", "900"},
		IgnoredPercentResamplingThreshold: 99.9,
		InsignificanceThreshold:           10.0,
		SamplingRadiusKm:                  1.0,
		SamplingRadiusFactors:             []float64{1, 3, 5},
	}
}

// Validate reports option combinations the refiner cannot run with.
func (o Options) Validate() error {
	if len(o.SamplingRadiusFactors) == 0 {
		return fmt.Errorf("%w: sampling_radius_factors must not be empty", ErrConfiguration)
	}
	for i, f := range o.SamplingRadiusFactors {
		if !isFinite(f) || f <= 0 {
			return fmt.Errorf("%w: sampling radius factor %g must be positive", ErrConfiguration, f)
		}
		if i > 0 && f <= o.SamplingRadiusFactors[i-1] {
			return fmt.Errorf("%w: sampling_radius_factors must be ascending", ErrConfiguration)
		}
	}
	if !isFinite(o.SamplingRadiusKm) || o.SamplingRadiusKm <= 0 {
		return fmt.Errorf("%w: sampling_radius_km must be positive, got %g", ErrConfiguration, o.SamplingRadiusKm)
	}
	if !isFinite(o.IgnoredPercentResamplingThreshold) ||
		o.IgnoredPercentResamplingThreshold <= 0 || o.IgnoredPercentResamplingThreshold > 100 {
		return fmt.Errorf("%w: ignored_percent_resampling_threshold must be in (0, 100], got %g",
			ErrConfiguration, o.IgnoredPercentResamplingThreshold)
	}
	if !isFinite(o.InsignificanceThreshold) {
		return fmt.Errorf("%w: insignificance_threshold must be finite", ErrConfiguration)
	}
	if o.MaxFuelbedCountThreshold < 0 {
		return fmt.Errorf("%w: max_fuelbed_count_threshold must not be negative", ErrConfiguration)
	}
	return nil
}

// Clone returns a copy that shares no slices with o.
func (o Options) Clone() Options {
	o.IgnoredFuelbeds = slices.Clone(o.IgnoredFuelbeds)
	o.SamplingRadiusFactors = slices.Clone(o.SamplingRadiusFactors)
	return o
}

// truncates reports whether either truncation rule is active.
func (o Options) truncates() bool {
	if o.DontRemoveInsignificant {
		return false
	}
	return o.InsignificanceThreshold > 0 || o.MaxFuelbedCountThreshold > 0
}

func (o Options) isIgnored(id string) bool {
	return slices.Contains(o.IgnoredFuelbeds, id)
}
