package interfaces

import (
	"context"

	"github.com/alemudanse/dispatch/internal/domain"
)

// Notification kinds carried on the fanout exchange.
const (
	NotificationPODConfirm      = "pod_confirm"
	NotificationLocationRequest = "location_request"
)

// NotificationMessage asks the notification sink to deliver a link to the
// customer by email or SMS. Delivery failures never propagate back to the
// request that triggered the notification.
type NotificationMessage struct {
	Kind    string                    `json:"kind"`
	OrderID string                    `json:"order_id"`
	Method  domain.NotificationMethod `json:"method"`
	URL     string                    `json:"url"`
	Email   string                    `json:"email,omitempty"`
	Phone   string                    `json:"phone,omitempty"`
}

// NotificationPublisher hands messages to the broker.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg NotificationMessage) error
}

// NotificationHandler processes one raw message body.
type NotificationHandler func(ctx context.Context, body []byte) error

// MessageConsumer subscribes to the notification exchange.
type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}
