package courier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"courierboard/internal/courier/handlers"
	"courierboard/internal/courier/middleware"
	"courierboard/pkg/logging"
)

type Config struct {
	ListenAddress   string
	ShutdownTimeout time.Duration
}

// OrderCommands groups the order mutations exposed over the local API.
type OrderCommands interface {
	handlers.AcceptService
	handlers.AdvanceService
	handlers.CancelService
	handlers.DeclineService
}

// Server is the local view API. It serves the reconciled dashboard state to
// whatever renders it and relays order commands to the backend.
type Server struct {
	logger     *logging.ZapLogger
	httpServer *http.Server
	cfg        Config
}

func NewServer(
	cfg Config,
	stateService handlers.StateService,
	historyService handlers.HistoryService,
	walletService handlers.WalletService,
	orderCommands OrderCommands,
	onlineService handlers.OnlineService,
	logger *logging.ZapLogger,
) *Server {
	srv := &http.Server{
		Addr: cfg.ListenAddress,
		Handler: createMux(
			stateService,
			historyService,
			walletService,
			orderCommands,
			onlineService,
			logger,
		),
	}

	res := &Server{
		cfg:        cfg,
		logger:     logger,
		httpServer: srv,
	}

	return res
}

func (s *Server) Run() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server ListenAndServe failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func createMux(
	stateService handlers.StateService,
	historyService handlers.HistoryService,
	walletService handlers.WalletService,
	orderCommands OrderCommands,
	onlineService handlers.OnlineService,
	logger *logging.ZapLogger,
) *chi.Mux {

	stateHandler := handlers.NewStateGettingHandler(stateService, logger)
	historyHandler := handlers.NewHistoryGettingHandler(historyService, logger)
	transactionsHandler := handlers.NewWalletTransactionsHandler(walletService, logger)
	ledgerHandler := handlers.NewWalletLedgerHandler(walletService, logger)
	acceptHandler := handlers.NewAcceptRequesterHandler(orderCommands, logger)
	advanceHandler := handlers.NewAdvanceRequesterHandler(orderCommands, logger)
	cancelHandler := handlers.NewCancelRequesterHandler(orderCommands, logger)
	declineHandler := handlers.NewDeclineRequesterHandler(orderCommands, logger)
	onlineHandler := handlers.NewOnlineTogglingHandler(onlineService, logger)

	router := chi.NewRouter()

	router.Use(middleware.NewLoggerContext().CreateHandler)
	router.Use(middleware.NewPanicRecover(logger).CreateHandler)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Route("/api", func(router chi.Router) {
		router.Get("/state", stateHandler.ServeHTTP)
		router.Get("/history", historyHandler.ServeHTTP)

		router.Route("/wallet", func(router chi.Router) {
			router.Get("/transactions", transactionsHandler.ServeHTTP)
			router.Get("/ledger", ledgerHandler.ServeHTTP)
		})

		router.Route("/orders/{id}", func(router chi.Router) {
			router.Post("/accept", acceptHandler.ServeHTTP)
			router.Post("/advance", advanceHandler.ServeHTTP)
			router.Post("/cancel", cancelHandler.ServeHTTP)
			router.Post("/decline", declineHandler.ServeHTTP)
		})

		router.Post("/driver/online", onlineHandler.ServeHTTP)
	})

	return router
}
