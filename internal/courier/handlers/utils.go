package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"courierboard/internal/common/clientprotocol"
	"courierboard/internal/courier/api"
	"courierboard/internal/courier/service"
	"courierboard/pkg/logging"
)

func closeBody(ctx context.Context, body io.ReadCloser, logger *logging.ZapLogger) {
	if err := body.Close(); err != nil {
		logger.ErrorCtx(ctx, "failed to close body", zap.Error(err))
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&out)
	return out, err
}

func tryWriteResponseJSON(w http.ResponseWriter, responseItem any) error {
	res, err := json.Marshal(responseItem)
	if err != nil {
		return err
	}
	w.Header().Add("Content-Type", "application/json")
	_, err = w.Write(res)
	return err
}

// writeCommandError maps service failures onto the local API: conflicts for
// busy/illegal transitions, 422 for a missing cancel reason, and 502
// carrying the backend's message verbatim for application-level rejections.
func writeCommandError(ctx context.Context, w http.ResponseWriter, logger *logging.ZapLogger, err error) {
	status := 0
	message := err.Error()
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrOrderBusy), errors.Is(err, service.ErrIllegalTransition):
		status = http.StatusConflict
	case errors.Is(err, service.ErrCancelReasonRequired):
		status = http.StatusUnprocessableEntity
	default:
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			status = http.StatusBadGateway
			// the server's own words, without wrapping prefixes
			message = apiErr.Error()
		} else {
			logger.ErrorCtx(ctx, "command handler error", zap.Error(err))
			status = http.StatusInternalServerError
		}
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(clientprotocol.ErrorResponse{Message: message})
}
