package assignment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
	"github.com/alemudanse/dispatch/internal/metrics"
)

// Service maps orders to drivers through order attributes. Batch calls are
// per-order best effort: a failure on one order is logged and the rest of
// the batch proceeds.
type Service struct {
	store   interfaces.OrderStore
	drivers interfaces.DriverDirectory
	cache   interfaces.FeedCache
	logger  logger.Logger
	now     func() time.Time
}

func NewService(store interfaces.OrderStore, drivers interfaces.DriverDirectory, cache interfaces.FeedCache, lgr logger.Logger) *Service {
	return &Service{
		store:   store,
		drivers: drivers,
		cache:   cache,
		logger:  lgr,
		now:     time.Now,
	}
}

func (s *Service) Assign(ctx context.Context, orderIDs []string, driverID int64) error {
	ids := filterIDs(orderIDs)
	if len(ids) == 0 || driverID <= 0 {
		return domain.E(domain.KindInvalidParams, "invalid parameters")
	}

	ok, err := s.drivers.Exists(ctx, driverID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.E(domain.KindNotFound, "driver not found")
	}

	driverVal := strconv.FormatInt(driverID, 10)
	stamp := domain.FormatUnix(s.now())
	for _, id := range ids {
		if err := s.store.SetMeta(ctx, id, domain.MetaAssignedDriver, driverVal); err != nil {
			s.logger.Error("assign_order", "Failed to set assigned driver", "", map[string]interface{}{
				"order_id":  id,
				"driver_id": driverID,
			}, err)
			continue
		}
		// First assignment wins the timestamp; reassignment keeps it.
		if err := s.store.SetMetaIfUnset(ctx, id, domain.MetaAssignedAt, stamp); err != nil {
			s.logger.Error("assign_order", "Failed to stamp assignment time", "", map[string]interface{}{
				"order_id": id,
			}, err)
		}
		metrics.AssignmentsTotal.Inc()
	}

	s.cache.DeletePrefix(interfaces.FeedCachePrefix)
	return nil
}

func (s *Service) Unassign(ctx context.Context, orderIDs []string) error {
	ids := filterIDs(orderIDs)
	if len(ids) == 0 {
		return domain.E(domain.KindInvalidParams, "invalid parameters")
	}

	for _, id := range ids {
		if err := s.store.DeleteMeta(ctx, id, domain.MetaAssignedDriver); err != nil {
			s.logger.Error("unassign_order", "Failed to clear assigned driver", "", map[string]interface{}{
				"order_id": id,
			}, err)
			continue
		}
		metrics.UnassignmentsTotal.Inc()
	}

	s.cache.DeletePrefix(interfaces.FeedCachePrefix)
	return nil
}

// Authorize reports whether the given driver is the one assigned to the
// order. Unassigned orders authorize nobody.
func (s *Service) Authorize(ctx context.Context, driverID, orderID string) (bool, error) {
	val, err := s.store.GetMeta(ctx, orderID, domain.MetaAssignedDriver)
	if err != nil {
		return false, err
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return false, nil
	}
	return val == strings.TrimSpace(driverID), nil
}

func filterIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
