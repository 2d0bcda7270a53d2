package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type CancelService interface {
	Cancel(ctx context.Context, orderID, reason string) (data.Order, error)
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

// CancelRequesterHandler cancels a non-terminal order. The reason is
// mandatory and travels to the backend with the command.
type CancelRequesterHandler struct {
	service CancelService
	logger  *logging.ZapLogger
}

func NewCancelRequesterHandler(service CancelService, logger *logging.ZapLogger) *CancelRequesterHandler {
	return &CancelRequesterHandler{
		service: service,
		logger:  logger,
	}
}

func (h *CancelRequesterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	request, err := decodeJSON[CancelRequest](r.Body)
	if err != nil {
		h.logger.DebugCtx(r.Context(), "input decoding error", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orderID := chi.URLParam(r, "id")
	order, err := h.service.Cancel(r.Context(), orderID, request.Reason)
	if err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	if err := tryWriteResponseJSON(w, order); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
