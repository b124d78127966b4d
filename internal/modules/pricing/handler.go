package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/georgemunganga/stockbridge/internal/erp"
	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes ERP price sync and customer lookup.
type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/api/v1/sync/prices", h.syncPrices)
	r.Post("/api/v1/erp/test", h.testConnection)
	r.Route("/api/v1/customers", func(r chi.Router) {
		r.Get("/search", h.searchCustomers)
		r.Get("/{id}", h.getCustomer)
	})
}

func (h *Handler) syncPrices(w http.ResponseWriter, r *http.Request) {
	events := h.service.SyncPrices(context.WithoutCancel(r.Context()))
	sse.Stream(r.Context(), w, events, h.log.With(zap.String("stream", "prices")))
}

func (h *Handler) testConnection(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.TestConnection(r.Context())
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respond(w, http.StatusOK, info)
}

func (h *Handler) searchCustomers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	customers, err := h.service.SearchCustomers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respond(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}
	c, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	respond(w, http.StatusOK, c)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, erp.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, erp.ErrCustomerNotFound):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
