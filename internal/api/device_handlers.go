package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/services"
)

type registerDeviceRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type transferRequestBody struct {
	ToAccountID string `json:"to_account_id,omitempty"`
}

type approveTransferRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req registerDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" {
		respondBadRequest(w, "name is required")
		return
	}

	deviceID := uuid.Nil
	if req.ID != "" {
		parsed, err := uuid.Parse(req.ID)
		if err != nil {
			respondBadRequest(w, "invalid device id")
			return
		}
		deviceID = parsed
	}

	device, err := h.registry.RegisterDevice(r.Context(), claims.AccountID, deviceID, req.Name)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, device)
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	devices, err := h.registry.ListDevicesForAccount(r.Context(), claims.AccountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, devices)
}

func (h *Handler) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		respondBadRequest(w, "invalid device id")
		return
	}

	device, err := h.registry.GetDevice(r.Context(), deviceID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	if device.OwnerAccountID != claims.AccountID {
		respondError(w, h.logger, services.ErrForbidden)
		return
	}
	respondJSON(w, http.StatusOK, device)
}

type renameDeviceRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleRenameDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		respondBadRequest(w, "invalid device id")
		return
	}

	var req renameDeviceRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		respondBadRequest(w, "name is required")
		return
	}

	device, err := h.registry.RenameDevice(r.Context(), deviceID, claims.AccountID, req.Name)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, device)
}

func (h *Handler) handleRequestTransfer(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		respondBadRequest(w, "invalid device id")
		return
	}

	// Receiving account defaults to the caller: the common flow is "I want
	// this device transferred to me".
	toAccountID := claims.AccountID
	var req transferRequestBody
	if err := decodeJSON(r, &req); err == nil && req.ToAccountID != "" {
		parsed, err := uuid.Parse(req.ToAccountID)
		if err != nil {
			respondBadRequest(w, "invalid to_account_id")
			return
		}
		toAccountID = parsed
	}

	request, err := h.registry.RequestTransfer(r.Context(), deviceID, toAccountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, request)
}

func (h *Handler) handleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		respondBadRequest(w, "invalid request id")
		return
	}

	var req approveTransferRequest
	if err := decodeJSON(r, &req); err != nil || req.Code == "" {
		respondBadRequest(w, "code is required")
		return
	}

	request, err := h.registry.ApproveTransfer(r.Context(), requestID, claims.AccountID, req.Code)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, request)
}

func (h *Handler) handleRejectTransfer(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		respondBadRequest(w, "invalid request id")
		return
	}

	request, err := h.registry.RejectTransfer(r.Context(), requestID, claims.AccountID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, request)
}
