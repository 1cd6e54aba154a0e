// Package amqp holds the message handlers behind the broker consumers. The
// notification handler is the delivery sink for customer-facing links: it
// is where a mail or SMS gateway would plug in.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(lgr logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: lgr,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var msg interfaces.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	recipient := msg.Email
	if msg.Method == domain.MethodSMS {
		recipient = msg.Phone
	}
	if recipient == "" {
		h.logger.Warn("notification_skipped", "No recipient for notification", "", map[string]interface{}{
			"order_id": msg.OrderID,
			"kind":     msg.Kind,
			"method":   string(msg.Method),
		})
		return nil
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received %s notification for order %s", msg.Kind, msg.OrderID),
		"", map[string]interface{}{
			"order_id": msg.OrderID,
			"kind":     msg.Kind,
			"method":   string(msg.Method),
		})

	switch msg.Kind {
	case interfaces.NotificationPODConfirm:
		fmt.Printf("[%s -> %s] Your order has arrived. Confirm delivery: %s\n", msg.Method, recipient, msg.URL)
	case interfaces.NotificationLocationRequest:
		fmt.Printf("[%s -> %s] Share your location for delivery: %s\n", msg.Method, recipient, msg.URL)
	default:
		h.logger.Warn("notification_skipped", "Unknown notification kind", "", map[string]interface{}{
			"order_id": msg.OrderID,
			"kind":     msg.Kind,
		})
	}
	return nil
}
