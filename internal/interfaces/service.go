package interfaces

import (
	"context"
	"encoding/json"

	"github.com/alemudanse/dispatch/internal/domain"
)

// AssignmentService assigns and unassigns drivers and answers whether a
// driver may act on an order.
type AssignmentService interface {
	Assign(ctx context.Context, orderIDs []string, driverID int64) error
	Unassign(ctx context.Context, orderIDs []string) error
	Authorize(ctx context.Context, driverID, orderID string) (bool, error)
}

// DeliveryService covers the driver status lifecycle, proof-of-delivery,
// and the live-position exchange between driver and customer.
type DeliveryService interface {
	DriverOrders(ctx context.Context, driverID, statusFilter string) ([]DriverOrderResponse, error)
	SetStatus(ctx context.Context, orderID string, status domain.DriverStatus) error
	InitiatePOD(ctx context.Context, orderID, actorID string, method domain.NotificationMethod) error
	ConfirmPOD(ctx context.Context, token string) error
	RequestLocation(ctx context.Context, orderID string, method domain.NotificationMethod) error
	Track(ctx context.Context, token, orderNumber, email string) (*TrackResponse, error)
	ShareLocation(ctx context.Context, token string, lat, lng float64) error
	UpdateDriverLocation(ctx context.Context, orderID string, lat, lng float64) error
}

// MapFeedService answers the geofenced map feed. Results are returned
// pre-serialized so cached responses stay byte-identical.
type MapFeedService interface {
	Query(ctx context.Context, bounds *Bounds, limit int, live bool) (json.RawMessage, error)
}

// ReportService aggregates delivery outcomes over a date range.
type ReportService interface {
	Report(ctx context.Context, start, end string, driverID int64) (*ReportResponse, error)
}

// Bounds is a geographic bounding box, degrees, inclusive on all edges.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Contains reports whether the point lies inside the box.
func (b *Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

// DriverOrderResponse is one row of a driver's order list.
type DriverOrderResponse struct {
	ID            string `json:"id"`
	Number        string `json:"number"`
	Status        string `json:"status"`
	DriverStatus  string `json:"driverStatus"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	Address       string `json:"address,omitempty"`
}

// TrackResponse is the public tracking read: live positions plus the
// external order status. Zero values mean "not reported yet".
type TrackResponse struct {
	OrderID       string  `json:"orderId"`
	CustomerLat   float64 `json:"customerLat"`
	CustomerLng   float64 `json:"customerLng"`
	CustomerLocAt int64   `json:"customerLocAt"`
	DriverLat     float64 `json:"driverLat"`
	DriverLng     float64 `json:"driverLng"`
	DriverLocAt   int64   `json:"driverLocAt"`
	OrderStatus   string  `json:"orderStatus"`
}

// MapPoint is one projected order on the admin map feed.
type MapPoint struct {
	ID             string  `json:"id"`
	Number         string  `json:"number"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	Address        string  `json:"address"`
	Status         string  `json:"status"`
	AssignedDriver string  `json:"assignedDriver"`
	DriverLat      float64 `json:"driverLat"`
	DriverLng      float64 `json:"driverLng"`
	DriverLocAt    int64   `json:"driverLocAt"`
	CustomerLat    float64 `json:"customerLat"`
	CustomerLng    float64 `json:"customerLng"`
	CustomerLocAt  int64   `json:"customerLocAt"`
}

// ReportRow is one order in the delivery report.
type ReportRow struct {
	OrderID      string `json:"order_id"`
	DriverID     string `json:"driver_id"`
	AssignedAt   string `json:"assigned_at"`
	DeliveredAt  string `json:"delivered_at"`
	DriverStatus string `json:"driver_status"`
}

// ReportResponse aggregates completion outcomes for a date range.
type ReportResponse struct {
	Completed      int         `json:"completed"`
	Failed         int         `json:"failed"`
	CompletionRate float64     `json:"completion_rate"`
	AvgMinutes     int         `json:"avg_minutes"`
	Rows           []ReportRow `json:"rows"`
}
