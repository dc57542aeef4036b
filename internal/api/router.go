package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/beacontrace/internal/bus"
	"github.com/prudhvinik1/beacontrace/internal/services"
	"go.uber.org/zap"
)

// Handler is the HTTP surface consumed by client applications.
type Handler struct {
	auth     *services.AuthService
	registry *services.RegistryService
	location *services.LocationService
	relay    *services.RelayService
	events   *bus.Bus
	logger   *zap.Logger
}

func NewHandler(
	auth *services.AuthService,
	registry *services.RegistryService,
	location *services.LocationService,
	relay *services.RelayService,
	events *bus.Bus,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		auth:     auth,
		registry: registry,
		location: location,
		relay:    relay,
		events:   events,
		logger:   logger,
	}
}

func (h *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.handleRegister)
		r.Post("/auth/login", h.handleLogin)
		r.Post("/auth/logout", h.handleLogout)
		r.Post("/auth/logout-all", h.handleLogoutAll)

		// Sighting ingest is anonymous; reporters carry no credentials
		r.Post("/sightings", h.handleSubmitSighting)

		// Relay sessions authenticate by pseudonym, not account
		r.Post("/chat/{sessionID}/messages", h.handleSendMessage)
		r.Get("/chat/{sessionID}/messages", h.handleMessages)
		r.Get("/chat/{sessionID}/events", h.handleChatEvents)
		r.Post("/chat/{sessionID}/close", h.handleCloseSession)
		r.Post("/devices/{deviceID}/chat", h.handleOpenSession)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/devices", h.handleRegisterDevice)
			r.Get("/devices", h.handleListDevices)
			r.Get("/devices/{deviceID}", h.handleGetDevice)
			r.Patch("/devices/{deviceID}", h.handleRenameDevice)
			r.Get("/devices/{deviceID}/sightings/latest", h.handleLatestSighting)
			r.Get("/devices/{deviceID}/sightings", h.handleSightingHistory)

			r.Post("/devices/{deviceID}/transfers", h.handleRequestTransfer)
			r.Post("/transfers/{requestID}/approve", h.handleApproveTransfer)
			r.Post("/transfers/{requestID}/reject", h.handleRejectTransfer)
		})
	})

	return router
}
