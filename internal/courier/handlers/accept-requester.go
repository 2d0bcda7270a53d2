package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type AcceptService interface {
	Accept(ctx context.Context, orderID string) (data.Order, error)
}

// AcceptRequesterHandler claims a pool order for this driver.
type AcceptRequesterHandler struct {
	service AcceptService
	logger  *logging.ZapLogger
}

func NewAcceptRequesterHandler(service AcceptService, logger *logging.ZapLogger) *AcceptRequesterHandler {
	return &AcceptRequesterHandler{
		service: service,
		logger:  logger,
	}
}

func (h *AcceptRequesterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	order, err := h.service.Accept(r.Context(), orderID)
	if err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	if err := tryWriteResponseJSON(w, order); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
