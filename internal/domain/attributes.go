package domain

import (
	"strconv"
	"time"
)

// Attribute keys written to the external order repository. Every mutation
// the core performs is a single-key upsert against this set.
const (
	MetaAssignedDriver = "assigned_driver"
	MetaAssignedAt     = "assigned_at"
	MetaDriverStatus   = "driver_status"
	MetaEnRouteAt      = "en_route_at"
	MetaDeliveredAt    = "delivered_at"

	MetaLat = "lat"
	MetaLng = "lng"

	MetaDriverLat   = "driver_lat"
	MetaDriverLng   = "driver_lng"
	MetaDriverLocAt = "driver_loc_at"

	MetaCustomerLat   = "customer_lat"
	MetaCustomerLng   = "customer_lng"
	MetaCustomerLocAt = "customer_loc_at"

	MetaPODToken       = "pod_token"
	MetaPODExpires     = "pod_expires"
	MetaPODMethod      = "pod_method"
	MetaPODConfirmedAt = "pod_confirmed_at"

	MetaTrackToken   = "track_token"
	MetaTrackExpires = "track_expires"
)

// ApplyAttributes fills the optional fields of o from an attribute bag.
// Unknown keys are ignored; unparsable values are treated as unset.
func ApplyAttributes(o *Order, attrs map[string]string) {
	o.AssignedDriverID = attrs[MetaAssignedDriver]
	o.AssignedAt = parseUnix(attrs[MetaAssignedAt])
	o.DriverStatus = DriverStatus(attrs[MetaDriverStatus])
	o.EnRouteAt = parseUnix(attrs[MetaEnRouteAt])
	o.DeliveredAt = parseUnix(attrs[MetaDeliveredAt])

	o.Lat = parseFloat(attrs[MetaLat])
	o.Lng = parseFloat(attrs[MetaLng])

	o.DriverLat = parseFloat(attrs[MetaDriverLat])
	o.DriverLng = parseFloat(attrs[MetaDriverLng])
	o.DriverLocAt = parseUnix(attrs[MetaDriverLocAt])

	o.CustomerLat = parseFloat(attrs[MetaCustomerLat])
	o.CustomerLng = parseFloat(attrs[MetaCustomerLng])
	o.CustomerLocAt = parseUnix(attrs[MetaCustomerLocAt])

	o.PODToken = attrs[MetaPODToken]
	o.PODExpiresAt = parseUnix(attrs[MetaPODExpires])
	o.PODMethod = attrs[MetaPODMethod]
	o.PODConfirmedAt = parseUnix(attrs[MetaPODConfirmedAt])

	o.TrackToken = attrs[MetaTrackToken]
	o.TrackExpiresAt = parseUnix(attrs[MetaTrackExpires])
}

// FormatUnix renders a timestamp the way the attribute store expects it:
// unix seconds as a decimal string.
func FormatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// FormatFloat renders a coordinate for attribute storage.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseUnix(s string) *time.Time {
	if s == "" {
		return nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
