package observability

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
)

// ObserveLookup counts one finished lookup. g may be nil when the request
// could not be parsed.
func (m *Metrics) ObserveLookup(g orb.Geometry, err error) {
	m.Lookups.WithLabelValues(geometryLabel(g), LookupOutcome(err)).Inc()
}

// LookupOutcome classifies a lookup error as ok, no_data, invalid or error.
func LookupOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNoData):
		return "no_data"
	case errors.Is(err, domain.ErrInvalidGeometry), errors.Is(err, domain.ErrInvalidRequest):
		return "invalid"
	}
	return "error"
}

func geometryLabel(g orb.Geometry) string {
	switch {
	case g == nil:
		return "unknown"
	case domain.IsPointGeometry(g):
		return "point"
	}
	return "polygon"
}

// SamplingObserver records the outcome of each point-sampling loop. Pass it
// to domain.WithSamplingObserver.
func (m *Metrics) SamplingObserver() func(domain.SamplingAttempt) {
	return func(a domain.SamplingAttempt) {
		switch a.State {
		case domain.SamplingAccepted:
			m.SamplingAttempts.Observe(float64(a.Attempt))
		case domain.SamplingExhausted:
			m.SamplingAttempts.Observe(float64(a.Attempt))
			m.SamplingExhausted.Inc()
		}
	}
}

// InstrumentZonalLookup times every query made through l under the given
// source label.
func InstrumentZonalLookup(l domain.ZonalLookup, m *Metrics, source string) domain.ZonalLookup {
	hist := m.ZonalDuration.WithLabelValues(source)
	return domain.ZonalLookupFunc(func(ctx context.Context, q domain.ZonalQuery) (domain.ZonalResult, error) {
		start := time.Now()
		res, err := l.ZonalStats(ctx, q)
		hist.Observe(time.Since(start).Seconds())
		return res, err
	})
}
