package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"courierboard/pkg/logging"
)

type DeclineService interface {
	Decline(ctx context.Context, orderID, reason string) error
}

type DeclineRequest struct {
	Reason string `json:"reason"`
}

// DeclineRequesterHandler hides a pending order for this driver.
type DeclineRequesterHandler struct {
	service DeclineService
	logger  *logging.ZapLogger
}

func NewDeclineRequesterHandler(service DeclineService, logger *logging.ZapLogger) *DeclineRequesterHandler {
	return &DeclineRequesterHandler{
		service: service,
		logger:  logger,
	}
}

func (h *DeclineRequesterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	request, err := decodeJSON[DeclineRequest](r.Body)
	if err != nil {
		h.logger.DebugCtx(r.Context(), "input decoding error", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := h.service.Decline(r.Context(), orderID, request.Reason); err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
