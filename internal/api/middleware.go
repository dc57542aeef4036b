package api

import (
	"context"
	"net/http"

	"github.com/prudhvinik1/beacontrace/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// requireAuth validates the bearer token and checks its backing session is
// still live before admitting the request.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondError(w, h.logger, services.ErrInvalidToken)
			return
		}

		claims, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *services.TokenClaims {
	claims, _ := r.Context().Value(claimsKey).(*services.TokenClaims)
	return claims
}
