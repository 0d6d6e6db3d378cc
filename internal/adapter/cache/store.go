// Package cache stores finished fuelbed compositions so repeated lookups of
// the same region skip the zonal query.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/lru"
)

// Store holds compositions by key.
type Store interface {
	// Get returns the composition for key and whether it was found. A miss
	// is not an error.
	Get(ctx context.Context, key string) (domain.Composition, bool, error)
	Put(ctx context.Context, key string, c domain.Composition) error
}

// MemoryStore is an in-process LRU Store.
type MemoryStore struct {
	cache *lru.Cache[string, domain.Composition]
}

// NewMemoryStore creates a store holding at most maxEntries compositions.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{cache: lru.New[string, domain.Composition](maxEntries)}
}

// Get returns a copy of the cached composition.
func (m *MemoryStore) Get(_ context.Context, key string) (domain.Composition, bool, error) {
	c, ok := m.cache.Get(key)
	if !ok {
		return domain.Composition{}, false, nil
	}
	return c.Clone(), true, nil
}

// Put stores a copy of c.
func (m *MemoryStore) Put(_ context.Context, key string, c domain.Composition) error {
	m.cache.Put(key, c.Clone())
	return nil
}

// Key derives a cache key from everything that affects a lookup's result:
// the region, the supplied area, and the refiner options.
func Key(g orb.Geometry, areaAcres float64, opts domain.Options) (string, error) {
	geom, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return "", fmt.Errorf("encode geometry: %w", err)
	}
	options, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}

	h := sha256.New()
	h.Write(geom)
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatFloat(areaAcres, 'g', -1, 64)))
	h.Write([]byte{'|'})
	h.Write(options)
	return hex.EncodeToString(h.Sum(nil)), nil
}
