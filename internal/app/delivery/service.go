// Package delivery implements the driver status lifecycle, proof-of-delivery
// issuance and confirmation, and the live-position exchange between driver
// and customer.
package delivery

import (
	"context"
	"net/url"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/app/ratelimit"
	"github.com/alemudanse/dispatch/internal/app/token"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
	"github.com/alemudanse/dispatch/internal/metrics"
)

// Options carries the tunables the delivery flows depend on.
type Options struct {
	PODTokenTTL   time.Duration
	TrackTokenTTL time.Duration

	// PODRateMax initiations per actor per PODRateWindow.
	PODRateMax    int
	PODRateWindow time.Duration

	// TokenOnlyTracking disables the order-number+email tracking fallback.
	TokenOnlyTracking bool

	// CompleteOrderOnDelivered forwards "completed" into the external
	// order status when a driver marks an order delivered.
	CompleteOrderOnDelivered bool

	// PublicBaseURL is the prefix of every link sent to customers.
	PublicBaseURL string
}

type Service struct {
	store     interfaces.OrderStore
	tokens    *token.Service
	limiter   *ratelimit.Limiter
	publisher interfaces.NotificationPublisher
	logger    logger.Logger
	opts      Options
	now       func() time.Time
}

func NewService(store interfaces.OrderStore, tokens *token.Service, limiter *ratelimit.Limiter, publisher interfaces.NotificationPublisher, lgr logger.Logger, opts Options) *Service {
	return &Service{
		store:     store,
		tokens:    tokens,
		limiter:   limiter,
		publisher: publisher,
		logger:    lgr,
		opts:      opts,
		now:       time.Now,
	}
}

// DriverOrders lists the driver's assigned orders, optionally filtered by
// effective driver status.
func (s *Service) DriverOrders(ctx context.Context, driverID, statusFilter string) ([]interfaces.DriverOrderResponse, error) {
	orders, err := s.store.ListAssigned(ctx, driverID, 50)
	if err != nil {
		return nil, err
	}

	out := make([]interfaces.DriverOrderResponse, 0, len(orders))
	for _, o := range orders {
		status := o.EffectiveDriverStatus()
		if statusFilter != "" && string(status) != statusFilter {
			continue
		}
		out = append(out, interfaces.DriverOrderResponse{
			ID:            o.ID,
			Number:        o.Number,
			Status:        o.Status,
			DriverStatus:  string(status),
			CustomerPhone: o.Phone,
			Address:       o.Address,
		})
	}
	return out, nil
}

// SetStatus records the driver-reported status. en_route and delivered
// stamp their timestamps on first reach only; setting the same status again
// never moves a stamp.
func (s *Service) SetStatus(ctx context.Context, orderID string, status domain.DriverStatus) error {
	if !domain.ValidDriverStatus(status) {
		return domain.E(domain.KindBadStatus, "invalid status")
	}

	if err := s.store.SetMeta(ctx, orderID, domain.MetaDriverStatus, string(status)); err != nil {
		return err
	}

	stamp := domain.FormatUnix(s.now())
	switch status {
	case domain.DriverStatusEnRoute:
		if err := s.store.SetMetaIfUnset(ctx, orderID, domain.MetaEnRouteAt, stamp); err != nil {
			s.logger.Error("set_status", "Failed to stamp en_route time", "", map[string]interface{}{
				"order_id": orderID,
			}, err)
		}
	case domain.DriverStatusDelivered:
		if err := s.store.SetMetaIfUnset(ctx, orderID, domain.MetaDeliveredAt, stamp); err != nil {
			s.logger.Error("set_status", "Failed to stamp delivered time", "", map[string]interface{}{
				"order_id": orderID,
			}, err)
		}
		s.maybeCompleteOrder(ctx, orderID)
	}
	return nil
}

// InitiatePOD issues a proof-of-delivery token and asks the notification
// sink to send the confirmation link to the customer. The actor is rate
// limited; notification failures are logged and never surfaced.
func (s *Service) InitiatePOD(ctx context.Context, orderID, actorID string, method domain.NotificationMethod) error {
	if !domain.ValidNotificationMethod(method) {
		return domain.E(domain.KindInvalidParams, "invalid notification method")
	}

	if !s.limiter.Allow("pod_rl_"+actorID, s.opts.PODRateMax, s.opts.PODRateWindow) {
		metrics.RateLimitedTotal.Inc()
		return domain.E(domain.KindRateLimited, "too many requests")
	}

	order, err := s.store.Load(ctx, orderID)
	if err != nil {
		return err
	}

	tok, err := s.tokens.Issue(ctx, orderID, token.PurposePOD, s.opts.PODTokenTTL)
	if err != nil {
		return err
	}
	metrics.PODTokensIssuedTotal.Inc()

	if err := s.store.SetMeta(ctx, orderID, domain.MetaPODMethod, string(method)); err != nil {
		return err
	}

	s.publish(ctx, interfaces.NotificationMessage{
		Kind:    interfaces.NotificationPODConfirm,
		OrderID: orderID,
		Method:  method,
		URL:     s.opts.PublicBaseURL + "/pod/confirm?token=" + url.QueryEscape(tok),
		Email:   order.Email,
		Phone:   order.Phone,
	})
	return nil
}

// ConfirmPOD marks the order delivered on behalf of the customer. The call
// is idempotent: the token is not consumed, repeated confirmations succeed,
// and the delivered timestamp keeps its first value.
func (s *Service) ConfirmPOD(ctx context.Context, tok string) error {
	orderID, err := s.tokens.Validate(ctx, tok, token.PurposePOD)
	if err != nil {
		return err
	}

	stamp := domain.FormatUnix(s.now())
	if err := s.store.SetMeta(ctx, orderID, domain.MetaPODConfirmedAt, stamp); err != nil {
		return err
	}
	if err := s.store.SetMeta(ctx, orderID, domain.MetaDriverStatus, string(domain.DriverStatusDelivered)); err != nil {
		return err
	}
	if err := s.store.SetMetaIfUnset(ctx, orderID, domain.MetaDeliveredAt, stamp); err != nil {
		return err
	}

	metrics.PODConfirmationsTotal.Inc()
	s.logger.Info("pod_confirm", "Delivery confirmed by customer", "", map[string]interface{}{
		"order_id": orderID,
	})
	return nil
}

// RequestLocation issues a tracking token and asks the notification sink
// to send the customer a link to share their live position.
func (s *Service) RequestLocation(ctx context.Context, orderID string, method domain.NotificationMethod) error {
	if !domain.ValidNotificationMethod(method) {
		return domain.E(domain.KindInvalidParams, "invalid notification method")
	}

	order, err := s.store.Load(ctx, orderID)
	if err != nil {
		return err
	}

	tok, err := s.tokens.Issue(ctx, orderID, token.PurposeTrack, s.opts.TrackTokenTTL)
	if err != nil {
		return err
	}
	metrics.TrackTokensIssuedTotal.Inc()

	s.publish(ctx, interfaces.NotificationMessage{
		Kind:    interfaces.NotificationLocationRequest,
		OrderID: orderID,
		Method:  method,
		URL:     s.opts.PublicBaseURL + "/track?token=" + url.QueryEscape(tok),
		Email:   order.Email,
		Phone:   order.Phone,
	})
	return nil
}

// Track resolves a tracking request to the live-position snapshot. A token
// is authoritative when present; otherwise, unless tracking is token-only,
// the order number plus billing email identify the order, still subject to
// the tracking token's expiry.
func (s *Service) Track(ctx context.Context, tok, orderNumber, email string) (*interfaces.TrackResponse, error) {
	var orderID string
	switch {
	case tok != "":
		id, err := s.tokens.Validate(ctx, tok, token.PurposeTrack)
		if err != nil {
			return nil, err
		}
		orderID = id
	case orderNumber == "" || email == "":
		return nil, domain.E(domain.KindInvalidParams, "missing token or order/email")
	case s.opts.TokenOnlyTracking:
		return nil, domain.E(domain.KindInvalidParams, "token required")
	default:
		id, err := s.store.FindByNumberAndEmail(ctx, orderNumber, email)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, domain.E(domain.KindNotFound, "order not found")
		}
		if err := s.tokens.CheckExpiry(ctx, id, token.PurposeTrack); err != nil {
			return nil, err
		}
		orderID = id
	}

	order, err := s.store.Load(ctx, orderID)
	if err != nil {
		return nil, err
	}

	resp := &interfaces.TrackResponse{
		OrderID:     order.ID,
		OrderStatus: order.Status,
	}
	if order.CustomerLat != nil && order.CustomerLng != nil {
		resp.CustomerLat = *order.CustomerLat
		resp.CustomerLng = *order.CustomerLng
	}
	if order.CustomerLocAt != nil {
		resp.CustomerLocAt = order.CustomerLocAt.Unix()
	}
	if order.DriverLat != nil && order.DriverLng != nil {
		resp.DriverLat = *order.DriverLat
		resp.DriverLng = *order.DriverLng
	}
	if order.DriverLocAt != nil {
		resp.DriverLocAt = order.DriverLocAt.Unix()
	}
	return resp, nil
}

// ShareLocation stores the customer's live position, authorized by a valid
// tracking token.
func (s *Service) ShareLocation(ctx context.Context, tok string, lat, lng float64) error {
	orderID, err := s.tokens.Validate(ctx, tok, token.PurposeTrack)
	if err != nil {
		return err
	}

	if err := s.store.SetMeta(ctx, orderID, domain.MetaCustomerLat, domain.FormatFloat(lat)); err != nil {
		return err
	}
	if err := s.store.SetMeta(ctx, orderID, domain.MetaCustomerLng, domain.FormatFloat(lng)); err != nil {
		return err
	}
	return s.store.SetMeta(ctx, orderID, domain.MetaCustomerLocAt, domain.FormatUnix(s.now()))
}

// UpdateDriverLocation stores the driver's live position. Authorization is
// the caller's job; handlers gate on the assignment check first.
func (s *Service) UpdateDriverLocation(ctx context.Context, orderID string, lat, lng float64) error {
	if err := s.store.SetMeta(ctx, orderID, domain.MetaDriverLat, domain.FormatFloat(lat)); err != nil {
		return err
	}
	if err := s.store.SetMeta(ctx, orderID, domain.MetaDriverLng, domain.FormatFloat(lng)); err != nil {
		return err
	}
	return s.store.SetMeta(ctx, orderID, domain.MetaDriverLocAt, domain.FormatUnix(s.now()))
}

func (s *Service) maybeCompleteOrder(ctx context.Context, orderID string) {
	if !s.opts.CompleteOrderOnDelivered {
		return
	}
	if err := s.store.UpdateStatus(ctx, orderID, "completed"); err != nil {
		s.logger.Error("set_status", "Failed to complete external order", "", map[string]interface{}{
			"order_id": orderID,
		}, err)
	}
}

func (s *Service) publish(ctx context.Context, msg interfaces.NotificationMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		s.logger.Error("notify", "Failed to publish notification", "", map[string]interface{}{
			"order_id": msg.OrderID,
			"kind":     msg.Kind,
		}, err)
	}
}
