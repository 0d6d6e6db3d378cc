package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
)

// ParseLookupRequest extracts a LookupRequest from a JSON document. Two shapes
// are accepted: a request object
//
//	{"id": "fire-1", "geometry": {...}, "area_acres": 120}
//
// and a GeoJSON Feature whose properties carry "id" and "area_acres".
// fallbackID is used when the document carries no id.
func ParseLookupRequest(data []byte, fallbackID string) (LookupRequest, error) {
	if !gjson.ValidBytes(data) {
		return LookupRequest{}, fmt.Errorf("%w: not valid JSON", ErrInvalidRequest)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return LookupRequest{}, fmt.Errorf("%w: must be a JSON object", ErrInvalidRequest)
	}

	geom := doc.Get("geometry")
	if !geom.Exists() || geom.Type == gjson.Null {
		return LookupRequest{}, fmt.Errorf("%w: request has no geometry", ErrInvalidGeometry)
	}
	g, err := ParseGeometry([]byte(geom.Raw))
	if err != nil {
		return LookupRequest{}, err
	}

	req := LookupRequest{ID: fallbackID, Geometry: g}
	if id := firstOf(doc, "id", "properties.id"); id.Exists() && id.String() != "" {
		req.ID = id.String()
	}
	if area := firstOf(doc, "area_acres", "properties.area_acres"); area.Exists() && area.Type != gjson.Null {
		if area.Type != gjson.Number {
			return LookupRequest{}, fmt.Errorf("%w: area_acres must be a number", ErrInvalidRequest)
		}
		req.AreaAcres = area.Float()
		if req.AreaAcres < 0 {
			return LookupRequest{}, fmt.Errorf("%w: area_acres must not be negative", ErrInvalidRequest)
		}
	}
	return req, nil
}

func firstOf(doc gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if r := doc.Get(p); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// NewLookupResult builds the result for a finished lookup. A lookup that
// found no fuelbed cells yields a StatusNoData result rather than an error;
// any other error is returned unchanged.
func NewLookupResult(id string, c Composition, lookupErr error) (LookupResult, error) {
	res := LookupResult{ID: id, LookedUpAt: clock.Now().UTC()}
	switch {
	case lookupErr == nil:
		res.Status = StatusOK
		res.Composition = &c
	case errors.Is(lookupErr, ErrNoData):
		res.Status = StatusNoData
		res.Error = lookupErr.Error()
	default:
		return LookupResult{}, lookupErr
	}
	return res, nil
}

// SerializeLookupResult converts a LookupResult into an OutputEvent keyed by
// request id, with the status and timestamp copied into headers.
func SerializeLookupResult(r LookupResult) (OutputEvent, error) {
	value, err := json.Marshal(r)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize lookup result %s: %w", r.ID, err)
	}
	return OutputEvent{
		Key:   []byte(r.ID),
		Value: value,
		Headers: map[string]string{
			"status":       r.Status,
			"looked_up_at": r.LookedUpAt.Format(time.RFC3339),
		},
	}, nil
}
