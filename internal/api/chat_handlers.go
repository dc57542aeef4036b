package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/beacontrace/internal/bus"
	"github.com/prudhvinik1/beacontrace/internal/models"
)

const (
	defaultEventWait = 30 * time.Second
	maxEventWait     = 60 * time.Second
)

type openSessionRequest struct {
	Role string `json:"role"`
}

type openSessionResponse struct {
	Session   *models.ChatSession `json:"session"`
	Pseudonym string              `json:"pseudonym"`
}

type sendMessageRequest struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type closeSessionRequest struct {
	Role string `json:"role"`
}

type chatEventResponse struct {
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
	Text string `json:"text,omitempty"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(chi.URLParam(r, "deviceID"))
	if err != nil {
		respondBadRequest(w, "invalid device id")
		return
	}

	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	role := models.ChatRole(req.Role)
	if !role.Valid() {
		respondBadRequest(w, "role must be owner or finder")
		return
	}

	session, pseudonym, err := h.relay.OpenSession(r.Context(), deviceID, role)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, openSessionResponse{Session: session, Pseudonym: pseudonym})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondBadRequest(w, "invalid session id")
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	role := models.ChatRole(req.Role)
	if !role.Valid() || req.Text == "" {
		respondBadRequest(w, "role and text are required")
		return
	}

	msg, err := h.relay.SendMessage(r.Context(), sessionID, role, req.Text)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondBadRequest(w, "invalid session id")
		return
	}

	messages, err := h.relay.Messages(r.Context(), sessionID)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// handleChatEvents long-polls for the next event on a session. Responds 204
// when the wait times out with no activity.
func (h *Handler) handleChatEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondBadRequest(w, "invalid session id")
		return
	}

	wait := defaultEventWait
	if v := r.URL.Query().Get("timeout"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			respondBadRequest(w, "invalid timeout")
			return
		}
		wait = min(parsed, maxEventWait)
	}

	events, unsubscribe := h.events.Subscribe("chat.", 16)
	defer unsubscribe()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case evt := <-events:
			payload, ok := evt.Payload.(bus.ChatEvent)
			if !ok || payload.SessionID != sessionID {
				continue
			}
			respondJSON(w, http.StatusOK, chatEventResponse{
				Kind: evt.Kind,
				Role: string(payload.Role),
				Text: payload.Text,
			})
			return
		case <-timer.C:
			respondJSON(w, http.StatusNoContent, nil)
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondBadRequest(w, "invalid session id")
		return
	}

	var req closeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	role := models.ChatRole(req.Role)
	if !role.Valid() {
		respondBadRequest(w, "role must be owner or finder")
		return
	}

	if err := h.relay.CloseSession(r.Context(), sessionID, role); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
