package domain

import "time"

// Order is a typed view over an externally owned order. The core never
// creates or deletes orders; it reads the columns the external repository
// exposes and reads/writes named attributes on top of them. Optional fields
// are pointers: nil means the attribute was never set.
type Order struct {
	ID        string
	Number    string
	Status    string // external order lifecycle status, owned elsewhere
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time

	AssignedDriverID string
	AssignedAt       *time.Time
	DriverStatus     DriverStatus
	EnRouteAt        *time.Time
	DeliveredAt      *time.Time

	// Geocoded destination.
	Lat *float64
	Lng *float64

	// Live positions.
	DriverLat   *float64
	DriverLng   *float64
	DriverLocAt *time.Time

	CustomerLat   *float64
	CustomerLng   *float64
	CustomerLocAt *time.Time

	// Proof-of-delivery token state.
	PODToken       string
	PODExpiresAt   *time.Time
	PODMethod      string
	PODConfirmedAt *time.Time

	// Customer tracking token state.
	TrackToken     string
	TrackExpiresAt *time.Time
}

// EffectiveDriverStatus is the status presented to callers: an assigned
// order without an explicit driver status reads as "assigned".
func (o *Order) EffectiveDriverStatus() DriverStatus {
	if o.DriverStatus == "" {
		return DriverStatusAssigned
	}
	return o.DriverStatus
}

// HasCoords reports whether the destination has been geocoded.
func (o *Order) HasCoords() bool {
	return o.Lat != nil && o.Lng != nil
}
