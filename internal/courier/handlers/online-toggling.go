package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type OnlineService interface {
	SetOnline(ctx context.Context, online bool) (data.Driver, error)
}

type OnlineRequest struct {
	Online bool `json:"online"`
}

// OnlineTogglingHandler flips the driver's online flag on the backend.
type OnlineTogglingHandler struct {
	service OnlineService
	logger  *logging.ZapLogger
}

func NewOnlineTogglingHandler(service OnlineService, logger *logging.ZapLogger) *OnlineTogglingHandler {
	return &OnlineTogglingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *OnlineTogglingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer closeBody(r.Context(), r.Body, h.logger)

	request, err := decodeJSON[OnlineRequest](r.Body)
	if err != nil {
		h.logger.DebugCtx(r.Context(), "input decoding error", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	driver, err := h.service.SetOnline(r.Context(), request.Online)
	if err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	if err := tryWriteResponseJSON(w, driver); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
