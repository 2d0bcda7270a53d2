package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"courierboard/internal/courier/service"
	"courierboard/pkg/logging"
)

type HistoryService interface {
	History() []service.HistoryEntry
}

// HistoryGettingHandler renders declined, delivered and cancelled orders,
// most recent event first.
type HistoryGettingHandler struct {
	service HistoryService
	logger  *logging.ZapLogger
}

func NewHistoryGettingHandler(service HistoryService, logger *logging.ZapLogger) *HistoryGettingHandler {
	return &HistoryGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *HistoryGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries := h.service.History()
	if entries == nil {
		entries = []service.HistoryEntry{}
	}
	if err := tryWriteResponseJSON(w, entries); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing history response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
