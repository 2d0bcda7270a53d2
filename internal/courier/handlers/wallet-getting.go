package handlers

import (
	"context"
	"net/http"
	"strconv"

	"courierboard/internal/common/clientprotocol"
	"courierboard/internal/courier/data"
	"courierboard/pkg/logging"
)

type WalletService interface {
	Transactions(ctx context.Context, limit int) ([]data.WalletTransaction, error)
	Ledger(ctx context.Context) ([]clientprotocol.LedgerEntry, error)
}

type WalletTransactionsHandler struct {
	service WalletService
	logger  *logging.ZapLogger
}

func NewWalletTransactionsHandler(service WalletService, logger *logging.ZapLogger) *WalletTransactionsHandler {
	return &WalletTransactionsHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WalletTransactionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	transactions, err := h.service.Transactions(r.Context(), limit)
	if err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	if transactions == nil {
		transactions = []data.WalletTransaction{}
	}
	if err := tryWriteResponseJSON(w, transactions); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type WalletLedgerHandler struct {
	service WalletService
	logger  *logging.ZapLogger
}

func NewWalletLedgerHandler(service WalletService, logger *logging.ZapLogger) *WalletLedgerHandler {
	return &WalletLedgerHandler{
		service: service,
		logger:  logger,
	}
}

func (h *WalletLedgerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Ledger(r.Context())
	if err != nil {
		writeCommandError(r.Context(), w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []clientprotocol.LedgerEntry{}
	}
	if err := tryWriteResponseJSON(w, entries); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
