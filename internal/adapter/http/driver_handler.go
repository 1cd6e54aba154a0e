package http

import (
	"encoding/json"
	"net/http"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

// DriverHandler serves the driver app: assigned order list, status updates,
// proof-of-delivery initiation, and live position reporting. Every
// order-scoped route re-checks the assignment before acting.
type DriverHandler struct {
	delivery   interfaces.DeliveryService
	assignment interfaces.AssignmentService
	logger     logger.Logger
}

func NewDriverHandler(delivery interfaces.DeliveryService, assignment interfaces.AssignmentService, lgr logger.Logger) *DriverHandler {
	return &DriverHandler{
		delivery:   delivery,
		assignment: assignment,
		logger:     lgr,
	}
}

func (h *DriverHandler) Orders(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		writeError(w, domain.E(domain.KindUnauthenticated, "missing credentials"))
		return
	}

	orders, err := h.delivery.DriverOrders(r.Context(), claims.UserID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *DriverHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.authorizedOrder(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if err := h.delivery.SetStatus(r.Context(), orderID, domain.DriverStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *DriverHandler) InitiatePOD(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.authorizedOrder(w, r)
	if !ok {
		return
	}
	claims := claimsFrom(r)

	var req struct {
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if err := h.delivery.InitiatePOD(r.Context(), orderID, claims.UserID, domain.NotificationMethod(req.Method)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "sent"})
}

func (h *DriverHandler) RequestLocation(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.authorizedOrder(w, r)
	if !ok {
		return
	}

	var req struct {
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if err := h.delivery.RequestLocation(r.Context(), orderID, domain.NotificationMethod(req.Method)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "sent"})
}

func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.authorizedOrder(w, r)
	if !ok {
		return
	}

	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if err := h.delivery.UpdateDriverLocation(r.Context(), orderID, req.Lat, req.Lng); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

// authorizedOrder extracts the order id from the path and verifies the
// caller is the assigned driver.
func (h *DriverHandler) authorizedOrder(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := claimsFrom(r)
	if claims == nil {
		writeError(w, domain.E(domain.KindUnauthenticated, "missing credentials"))
		return "", false
	}

	orderID := r.PathValue("order_id")
	if orderID == "" {
		writeError(w, domain.E(domain.KindInvalidParams, "missing order id"))
		return "", false
	}

	ok, err := h.assignment.Authorize(r.Context(), claims.UserID, orderID)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	if !ok {
		writeError(w, domain.E(domain.KindForbidden, "order not assigned to driver"))
		return "", false
	}
	return orderID, true
}
