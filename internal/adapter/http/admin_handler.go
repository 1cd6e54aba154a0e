package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

// AdminHandler serves the dispatcher console: the live order map and the
// assignment actions. Everything here requires the admin role.
type AdminHandler struct {
	assignment   interfaces.AssignmentService
	feed         interfaces.MapFeedService
	geocoder     interfaces.Geocoder
	storeAddress string
	logger       logger.Logger
}

func NewAdminHandler(assignment interfaces.AssignmentService, feed interfaces.MapFeedService, geocoder interfaces.Geocoder, storeAddress string, lgr logger.Logger) *AdminHandler {
	return &AdminHandler{
		assignment:   assignment,
		feed:         feed,
		geocoder:     geocoder,
		storeAddress: storeAddress,
		logger:       lgr,
	}
}

func (h *AdminHandler) OrdersForMap(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	q := r.URL.Query()
	bounds, err := parseBounds(q.Get("south"), q.Get("west"), q.Get("north"), q.Get("east"))
	if err != nil {
		writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit == 0 {
		limit = 200
	}
	live := q.Get("live") == "1" || q.Get("live") == "true"

	payload, err := h.feed.Query(r.Context(), bounds, limit, live)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

func (h *AdminHandler) Assign(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req struct {
		OrderIDs []string `json:"order_ids"`
		DriverID int64    `json:"driver_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if err := h.assignment.Assign(r.Context(), req.OrderIDs, req.DriverID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "assigned"})
}

func (h *AdminHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req struct {
		OrderIDs []string `json:"order_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if err := h.assignment.Unassign(r.Context(), req.OrderIDs); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "unassigned"})
}

// StoreLocation resolves the configured store address to a map marker.
func (h *AdminHandler) StoreLocation(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	if h.storeAddress == "" {
		writeError(w, domain.E(domain.KindNotFound, "store address not configured"))
		return
	}

	pos, err := h.geocoder.Geocode(r.Context(), h.storeAddress)
	if err != nil {
		writeError(w, err)
		return
	}
	if pos == nil {
		writeError(w, domain.E(domain.KindNotFound, "store address could not be geocoded"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": h.storeAddress,
		"lat":     pos.Lat,
		"lng":     pos.Lng,
	})
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	claims := claimsFrom(r)
	if claims == nil {
		writeError(w, domain.E(domain.KindUnauthenticated, "missing credentials"))
		return false
	}
	if claims.Role != RoleAdmin {
		writeError(w, domain.E(domain.KindForbidden, "admin role required"))
		return false
	}
	return true
}

// parseBounds builds a bounding box from the four edge parameters. All four
// must be present together; none at all means an unbounded feed.
func parseBounds(south, west, north, east string) (*interfaces.Bounds, error) {
	if south == "" && west == "" && north == "" && east == "" {
		return nil, nil
	}
	if south == "" || west == "" || north == "" || east == "" {
		return nil, domain.E(domain.KindInvalidParams, "incomplete bounds")
	}

	vals := make([]float64, 4)
	for i, raw := range []string{south, west, north, east} {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, domain.E(domain.KindInvalidParams, "invalid bounds")
		}
		vals[i] = f
	}
	return &interfaces.Bounds{South: vals[0], West: vals[1], North: vals[2], East: vals[3]}, nil
}
