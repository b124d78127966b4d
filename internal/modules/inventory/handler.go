package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/georgemunganga/stockbridge/internal/modules/settings"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes inventory sync streams and store diagnostics.
type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/api/v1/sync/inventory", h.syncInventory)
	r.Get("/api/v1/inventory/missing", h.findMissing)
	r.Route("/api/v1/shopify", func(r chi.Router) {
		r.Post("/test", h.testStores)
		r.Get("/locations", h.listLocations)
	})
}

func (h *Handler) syncInventory(w http.ResponseWriter, r *http.Request) {
	events := h.service.Sync(context.WithoutCancel(r.Context()))
	sse.Stream(r.Context(), w, events, h.log.With(zap.String("stream", "inventory")))
}

func (h *Handler) findMissing(w http.ResponseWriter, r *http.Request) {
	events := h.service.FindMissing(r.Context())
	sse.Stream(r.Context(), w, events, h.log.With(zap.String("stream", "missing")))
}

func (h *Handler) testStores(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.TestStores(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respond(w, http.StatusOK, statuses)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.Locations(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respond(w, http.StatusOK, locations)
}

func statusFor(err error) int {
	if errors.Is(err, settings.ErrNoStores) || errors.Is(err, ErrStoreNotConfigured) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
