package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/services"
)

type submitSightingRequest struct {
	DeviceID      string    `json:"device_id"`
	ReporterToken string    `json:"reporter_token"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Accuracy      float64   `json:"accuracy"`
	ObservedAt    time.Time `json:"observed_at"`
}

func (h *Handler) handleSubmitSighting(w http.ResponseWriter, r *http.Request) {
	var req submitSightingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		respondBadRequest(w, "invalid device id")
		return
	}

	sighting, err := h.location.SubmitSighting(r.Context(), deviceID,
		req.Latitude, req.Longitude, req.Accuracy, req.ReporterToken, req.ObservedAt)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, sighting)
}

func (h *Handler) handleLatestSighting(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.ownedDevice(w, r)
	if !ok {
		return
	}

	sighting, err := h.location.LatestSighting(r.Context(), deviceID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sighting)
}

func (h *Handler) handleSightingHistory(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := h.ownedDevice(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	cutoff := time.Time{}
	if v := q.Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondBadRequest(w, "invalid since timestamp")
			return
		}
		cutoff = parsed
	}

	afterObservedAt := time.Time{}
	if v := q.Get("after_observed_at"); v != "" {
		parsed, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			respondBadRequest(w, "invalid after_observed_at cursor")
			return
		}
		afterObservedAt = parsed
	}

	var afterID int64
	if v := q.Get("after_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondBadRequest(w, "invalid after_id cursor")
			return
		}
		afterID = parsed
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondBadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	sightings, err := h.location.SightingsSince(r.Context(), deviceID, cutoff, afterObservedAt, afterID, limit)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sightings)
}

// ownedDevice resolves the deviceID URL param and verifies the caller owns
// the device. Location queries are owner-only.
func (h *Handler) ownedDevice(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims := claimsFrom(r)

	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		respondBadRequest(w, "invalid device id")
		return uuid.Nil, false
	}

	device, err := h.registry.GetDevice(r.Context(), deviceID)
	if err != nil {
		respondError(w, h.logger, err)
		return uuid.Nil, false
	}
	if device.OwnerAccountID != claims.AccountID {
		respondError(w, h.logger, services.ErrForbidden)
		return uuid.Nil, false
	}
	return deviceID, true
}
