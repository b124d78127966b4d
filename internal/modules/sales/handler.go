package sales

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/georgemunganga/stockbridge/internal/platform/sse"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the sales sync stream.
type Handler struct {
	service Service
	log     *zap.Logger
}

func NewHandler(service Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/api/v1/sync/sales", h.syncSales)
}

// syncSales streams a sales sync. The run is detached from the request so a
// client that goes away does not cancel the final database write.
func (h *Handler) syncSales(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	events := h.service.Sync(context.WithoutCancel(r.Context()), req)
	sse.Stream(r.Context(), w, events, h.log.With(zap.String("stream", "sales")))
}

func parseRequest(r *http.Request) (Request, error) {
	q := r.URL.Query()
	return ParseRequest(q.Get("product_ids"), q.Get("from"), q.Get("to"))
}

// ParseRequest builds a Request from a comma separated id list and
// YYYY-MM-DD bounds. Empty arguments leave the field unset; to is inclusive.
func ParseRequest(productIDs, from, to string) (Request, error) {
	var req Request
	if productIDs != "" {
		for _, part := range strings.Split(productIDs, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return req, fmt.Errorf("invalid product id %q", part)
			}
			req.ProductIDs = append(req.ProductIDs, id)
		}
	}
	if from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return req, fmt.Errorf("invalid from date %q", from)
		}
		req.From = &t
	}
	if to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return req, fmt.Errorf("invalid to date %q", to)
		}
		end := t.Add(24*time.Hour - time.Second)
		req.To = &end
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return req, fmt.Errorf("to date is before from date")
	}
	return req, nil
}
