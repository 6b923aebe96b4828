package handlers

import (
	"context"
	"net/http"

	"github.com/wolfman30/clinic-booking-api/internal/catalog"
	"github.com/wolfman30/clinic-booking-api/pkg/logging"
)

// ServiceLister is the catalog surface the listing endpoint needs.
type ServiceLister interface {
	ListActive(ctx context.Context) ([]catalog.Service, error)
}

// ServicesHandler serves GET /services.
type ServicesHandler struct {
	catalog ServiceLister
	logger  *logging.Logger
}

// NewServicesHandler creates the service listing handler.
func NewServicesHandler(cat ServiceLister, logger *logging.Logger) *ServicesHandler {
	if cat == nil {
		panic("handlers: catalog required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ServicesHandler{catalog: cat, logger: logger}
}

// List returns the active services ordered by category then name.
func (h *ServicesHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.ListActive(r.Context())
	if err != nil {
		h.logger.Error("service listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if services == nil {
		services = []catalog.Service{}
	}
	writeJSON(w, http.StatusOK, services)
}
