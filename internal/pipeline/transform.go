package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
)

// LookupTransformer implements Transformer by answering each lookup request
// with a fuelbed composition.
type LookupTransformer struct {
	looker  domain.Looker
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a LookupTransformer backed by looker.
func NewTransformer(looker domain.Looker, metrics *observability.Metrics, logger *slog.Logger) *LookupTransformer {
	return &LookupTransformer{
		looker:  looker,
		metrics: metrics,
		logger:  logger,
	}
}

// Transform parses a request, looks it up, and serializes the result.
// Requests over regions without fuelbed data produce a no_data result.
// Unparsable requests and failed lookups are returned as errors.
func (t *LookupTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseLookupRequest(raw.Value, fallbackID(raw))
	if err != nil {
		t.metrics.ObserveLookup(nil, err)
		return domain.OutputEvent{}, err
	}

	comp, lookupErr := t.looker.LookUp(ctx, req.Geometry, req.AreaAcres)
	t.metrics.ObserveLookup(req.Geometry, lookupErr)

	result, err := domain.NewLookupResult(req.ID, comp, lookupErr)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("look up %s: %w", req.ID, err)
	}
	if result.Status == domain.StatusNoData {
		t.logger.Debug("no fuelbed data for region", "id", req.ID)
	}
	return domain.SerializeLookupResult(result)
}

// fallbackID identifies a request that carries no id of its own: the message
// key when present, otherwise its topic position.
func fallbackID(raw domain.RawEvent) string {
	if len(raw.Key) > 0 {
		return string(raw.Key)
	}
	return fmt.Sprintf("%s-%d-%d", raw.Topic, raw.Partition, raw.Offset)
}
