package http

import (
	"encoding/json"
	"net/http"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

// PublicHandler serves the customer-facing endpoints. There is no user
// account on this surface; the order token in the link is the credential.
type PublicHandler struct {
	delivery interfaces.DeliveryService
	logger   logger.Logger
}

func NewPublicHandler(delivery interfaces.DeliveryService, lgr logger.Logger) *PublicHandler {
	return &PublicHandler{
		delivery: delivery,
		logger:   lgr,
	}
}

func (h *PublicHandler) ConfirmPOD(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.Token
		}
	}

	if err := h.delivery.ConfirmPOD(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "confirmed"})
}

func (h *PublicHandler) Track(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.delivery.Track(r.Context(), q.Get("token"), q.Get("order"), q.Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PublicHandler) ShareLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string  `json:"token"`
		Lat   float64 `json:"lat"`
		Lng   float64 `json:"lng"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}

	if err := h.delivery.ShareLocation(r.Context(), req.Token, req.Lat, req.Lng); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}
