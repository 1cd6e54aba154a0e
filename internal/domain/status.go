package domain

// DriverStatus is the driver-reported delivery lifecycle of an order.
// It lives beside the external order status and never replaces it.
type DriverStatus string

const (
	DriverStatusAssigned  DriverStatus = "assigned"
	DriverStatusEnRoute   DriverStatus = "en_route"
	DriverStatusDelivered DriverStatus = "delivered"
	DriverStatusFailed    DriverStatus = "failed"
)

// ValidDriverStatus reports whether s is one of the four allowed statuses.
// Transition order is intentionally not enforced; any allowed status is
// settable from any other. Timestamps are first-write-wins regardless.
func ValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverStatusAssigned, DriverStatusEnRoute, DriverStatusDelivered, DriverStatusFailed:
		return true
	}
	return false
}

// NotificationMethod is a delivery channel for customer-facing links.
type NotificationMethod string

const (
	MethodEmail NotificationMethod = "email"
	MethodSMS   NotificationMethod = "sms"
)

// ValidNotificationMethod reports whether m is a supported channel.
func ValidNotificationMethod(m NotificationMethod) bool {
	return m == MethodEmail || m == MethodSMS
}
