// Package geocode backfills destination coordinates for orders whose
// address has not been resolved yet. It runs as its own process mode,
// sweeping recent orders on an interval.
package geocode

import (
	"context"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

type Backfill struct {
	store    interfaces.OrderStore
	geocoder interfaces.Geocoder
	logger   logger.Logger
	batch    int
}

func NewBackfill(store interfaces.OrderStore, geocoder interfaces.Geocoder, lgr logger.Logger, batch int) *Backfill {
	if batch <= 0 {
		batch = 50
	}
	return &Backfill{
		store:    store,
		geocoder: geocoder,
		logger:   lgr,
		batch:    batch,
	}
}

// Sweep geocodes one batch of recent orders that still lack coordinates.
// Provider failures skip the order; it is retried on the next sweep.
func (b *Backfill) Sweep(ctx context.Context) error {
	orders, err := b.store.ListRecent(ctx, b.batch)
	if err != nil {
		return err
	}

	for _, o := range orders {
		if o.HasCoords() || o.Address == "" {
			continue
		}
		pos, err := b.geocoder.Geocode(ctx, o.Address)
		if err != nil {
			b.logger.Warn("geocode", "Geocoding failed", "", map[string]interface{}{
				"order_id": o.ID,
				"error":    err.Error(),
			})
			continue
		}
		if pos == nil {
			continue
		}
		if err := b.store.SetMeta(ctx, o.ID, domain.MetaLat, domain.FormatFloat(pos.Lat)); err != nil {
			b.logger.Error("geocode", "Failed to store latitude", "", map[string]interface{}{
				"order_id": o.ID,
			}, err)
			continue
		}
		if err := b.store.SetMeta(ctx, o.ID, domain.MetaLng, domain.FormatFloat(pos.Lng)); err != nil {
			b.logger.Error("geocode", "Failed to store longitude", "", map[string]interface{}{
				"order_id": o.ID,
			}, err)
			continue
		}
		b.logger.Info("geocode", "Order geocoded", "", map[string]interface{}{
			"order_id": o.ID,
		})
	}
	return nil
}

// Run sweeps on the given interval until the context is canceled.
func (b *Backfill) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.Sweep(ctx); err != nil {
			b.logger.Error("geocode", "Sweep failed", "", nil, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
