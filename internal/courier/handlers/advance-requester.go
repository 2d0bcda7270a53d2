package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type AdvanceService interface {
	Advance(ctx context.Context, orderID string) (data.Order, error)
}

// AdvanceRequesterHandler moves an order one step along its lifecycle.
type AdvanceRequesterHandler struct {
	service AdvanceService
	logger  *logging.ZapLogger
}

func NewAdvanceRequesterHandler(service AdvanceService, logger *logging.ZapLogger) *AdvanceRequesterHandler {
	return &AdvanceRequesterHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AdvanceRequesterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	order, err := h.service.Advance(r.Context(), orderID)
	if err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	if err := tryWriteResponseJSON(w, order); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
