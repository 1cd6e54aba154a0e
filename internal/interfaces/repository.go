package interfaces

import (
	"context"
	"time"

	"github.com/alemudanse/dispatch/internal/domain"
)

// OrderStore is the contract with the external order repository. Orders are
// owned elsewhere; the core reads typed views and upserts named attributes.
type OrderStore interface {
	// Load returns the typed view of one order, attributes applied.
	// Missing orders fail with domain.KindNotFound.
	Load(ctx context.Context, id string) (*domain.Order, error)

	// GetMeta returns one attribute value, "" when unset.
	GetMeta(ctx context.Context, id, key string) (string, error)
	// SetMeta upserts one attribute.
	SetMeta(ctx context.Context, id, key, value string) error
	// SetMetaIfUnset writes the attribute only when it has no value yet.
	// The first write wins; the check must be atomic.
	SetMetaIfUnset(ctx context.Context, id, key, value string) error
	// DeleteMeta removes one attribute.
	DeleteMeta(ctx context.Context, id, key string) error

	// FindByMeta returns the id of the order whose attribute equals value
	// exactly, or "" when no order matches.
	FindByMeta(ctx context.Context, key, value string) (string, error)

	// ListRecent returns up to limit most-recently-created orders.
	ListRecent(ctx context.Context, limit int) ([]*domain.Order, error)
	// ListAssigned returns up to limit most-recent orders assigned to
	// the given driver.
	ListAssigned(ctx context.Context, driverID string, limit int) ([]*domain.Order, error)
	// ListCreatedBetween returns orders created within [start, end],
	// optionally restricted to one assigned driver ("" for all).
	ListCreatedBetween(ctx context.Context, start, end time.Time, driverID string) ([]*domain.Order, error)

	// FindByNumberAndEmail matches an order by its public number and the
	// billing email (case-insensitive), or "" when no order matches.
	FindByNumberAndEmail(ctx context.Context, number, email string) (string, error)

	// UpdateStatus forwards a lifecycle status into the external order.
	UpdateStatus(ctx context.Context, id, status string) error
}

// DriverDirectory answers whether a driver account exists.
type DriverDirectory interface {
	Exists(ctx context.Context, driverID int64) (bool, error)
}

// FeedCachePrefix keys every cached map-feed result so assignment changes
// can invalidate the whole feed in one sweep.
const FeedCachePrefix = "map_feed_"

// FeedCache is a short-TTL byte cache with coarse prefix invalidation.
// Implementations must be safe for concurrent use.
type FeedCache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	DeletePrefix(prefix string)
}

// LatLng is a geographic coordinate pair.
type LatLng struct {
	Lat float64
	Lng float64
}

// Geocoder resolves a postal address to coordinates. A nil result with a
// nil error means the provider had no match; callers retry later.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*LatLng, error)
}
