package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"courierboard/internal/courier/service"
	"courierboard/pkg/logging"
)

type StateService interface {
	State() service.StateView
}

// StateGettingHandler renders the reconciled dashboard state.
type StateGettingHandler struct {
	service StateService
	logger  *logging.ZapLogger
}

func NewStateGettingHandler(service StateService, logger *logging.ZapLogger) *StateGettingHandler {
	return &StateGettingHandler{
		service: service,
		logger:  logger,
	}
}

func (h *StateGettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := tryWriteResponseJSON(w, h.service.State()); err != nil {
		h.logger.ErrorCtx(r.Context(), "error writing state response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
