package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prudhvinik1/beacontrace/internal/repositories"
	"github.com/prudhvinik1/beacontrace/internal/services"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses. Expected
// business conditions never surface as 500s.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, repositories.ErrConflict):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "conflict"})
	case errors.Is(err, services.ErrForbidden):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, services.ErrInvalidCode):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid verification code"})
	case errors.Is(err, services.ErrExpired):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "verification code expired"})
	case errors.Is(err, services.ErrInvalidCoordinates):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "coordinates out of range"})
	case errors.Is(err, services.ErrSessionFull):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "session role already taken"})
	case errors.Is(err, services.ErrSessionClosed):
		respondJSON(w, http.StatusGone, errorResponse{Error: "session closed"})
	case errors.Is(err, services.ErrEmailExists):
		respondJSON(w, http.StatusConflict, errorResponse{Error: "email already exists"})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	default:
		logger.Error("request failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func respondBadRequest(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
