// Package mapfeed serves the admin map: geocoded orders projected to
// points, optionally filtered by a bounding box, cached pre-serialized so
// repeated polls within the TTL return byte-identical payloads.
package mapfeed

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/interfaces"
	"github.com/alemudanse/dispatch/internal/metrics"
)

const (
	minLimit = 1
	maxLimit = 200
)

type Service struct {
	store  interfaces.OrderStore
	cache  interfaces.FeedCache
	logger logger.Logger
	ttl    time.Duration
}

func NewService(store interfaces.OrderStore, cache interfaces.FeedCache, lgr logger.Logger, ttl time.Duration) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: lgr,
		ttl:    ttl,
	}
}

// Query returns the serialized point list. live bypasses the cache in both
// directions: it neither reads nor populates it.
func (s *Service) Query(ctx context.Context, bounds *interfaces.Bounds, limit int, live bool) (json.RawMessage, error) {
	if limit < minLimit {
		limit = minLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	key := cacheKey(bounds, limit)
	if !live {
		if cached, ok := s.cache.Get(key); ok {
			metrics.FeedCacheHitsTotal.Inc()
			return cached, nil
		}
		metrics.FeedCacheMissesTotal.Inc()
	}

	orders, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	points := []interfaces.MapPoint{}
	for _, o := range orders {
		if !o.HasCoords() {
			continue
		}
		if bounds != nil && !bounds.Contains(*o.Lat, *o.Lng) {
			continue
		}
		p := interfaces.MapPoint{
			ID:             o.ID,
			Number:         o.Number,
			Lat:            *o.Lat,
			Lng:            *o.Lng,
			Address:        o.Address,
			Status:         o.Status,
			AssignedDriver: o.AssignedDriverID,
		}
		if o.DriverLat != nil && o.DriverLng != nil {
			p.DriverLat = *o.DriverLat
			p.DriverLng = *o.DriverLng
		}
		if o.DriverLocAt != nil {
			p.DriverLocAt = o.DriverLocAt.Unix()
		}
		if o.CustomerLat != nil && o.CustomerLng != nil {
			p.CustomerLat = *o.CustomerLat
			p.CustomerLng = *o.CustomerLng
		}
		if o.CustomerLocAt != nil {
			p.CustomerLocAt = o.CustomerLocAt.Unix()
		}
		points = append(points, p)
	}

	payload, err := json.Marshal(points)
	if err != nil {
		return nil, err
	}
	if !live {
		s.cache.Set(key, payload, s.ttl)
	}
	return payload, nil
}

// cacheKey derives the cache key from the query shape. The serialization is
// deterministic (struct fields marshal in declaration order), so equal
// queries always map to the same key.
func cacheKey(bounds *interfaces.Bounds, limit int) string {
	raw, _ := json.Marshal(struct {
		B *interfaces.Bounds `json:"b"`
		L int                `json:"l"`
	}{B: bounds, L: limit})
	sum := md5.Sum(raw)
	return interfaces.FeedCachePrefix + hex.EncodeToString(sum[:])
}
