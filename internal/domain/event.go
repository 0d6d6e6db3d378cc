package domain

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// Lookup result statuses.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// RawEvent represents an unprocessed message from the request topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// LookupRequest asks for the fuelbed composition of one region.
type LookupRequest struct {
	ID        string
	Geometry  orb.Geometry
	AreaAcres float64
}

// LookupResult is the answer to a LookupRequest. Composition is nil unless
// Status is StatusOK.
type LookupResult struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	Composition *Composition `json:"composition,omitempty"`
	Error       string       `json:"error,omitempty"`
	LookedUpAt  time.Time    `json:"looked_up_at"`
}

// OutputEvent is the serialized form destined for the result topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
