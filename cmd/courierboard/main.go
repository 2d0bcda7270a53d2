package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"courierboard/cmd/courierboard/config"
	"courierboard/internal/courier"
	"courierboard/internal/courier/api"
	"courierboard/internal/courier/data"
	"courierboard/internal/courier/notify"
	"courierboard/internal/courier/session"
	"courierboard/pkg/localstore"
	"courierboard/pkg/logging"
	"courierboard/pkg/timeutils"
)

var loginAttemptDelays = []time.Duration{
	time.Second,
	3 * time.Second,
	5 * time.Second,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewZapLogger(zapcore.DebugLevel)
	if err != nil {
		log.Fatal(err)
	}

	store, err := localstore.New(cfg.StateDir)
	if err != nil {
		log.Fatal(err)
	}

	apiClient := api.New(cfg.API, logger)

	var sinks []notify.Sink
	if cfg.Telegram.Token != "" {
		telegramSink, err := notify.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatal(err)
		}
		sinks = append(sinks, telegramSink)
	}
	feed := notify.NewFeed(notify.DefaultCapacity, logger, sinks...)

	rootCtx, cancelCtx := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGABRT,
	)
	defer cancelCtx()

	identity, err := resumeOrLogin(rootCtx, cfg, apiClient, session.NewStore(store), logger)
	if err != nil {
		log.Fatal(err)
	}

	sess, err := session.New(
		cfg.Session,
		identity.Driver,
		identity.Code,
		apiClient,
		store,
		feed,
		logger,
	)
	if err != nil {
		log.Fatal(err)
	}

	server := courier.NewServer(
		cfg.Server,
		sess.View(),
		sess.Orders(),
		sess.Wallet(),
		sess.Orders(),
		sess.DriverStatus(),
		logger,
	)

	if err := run(rootCtx, cfg, server, sess, logger); err != nil {
		logger.ErrorCtx(rootCtx, "Shutdown with error", zap.Error(err))
	} else {
		logger.InfoCtx(rootCtx, "Shutdown gracefully")
	}
}

// resumeOrLogin reuses a persisted identity when the stored phone still
// matches the configured one; otherwise it logs in with a few retries and
// persists the result.
func resumeOrLogin(
	ctx context.Context,
	cfg *config.Config,
	apiClient *api.Client,
	sessions *session.Store,
	logger *logging.ZapLogger,
) (session.Identity, error) {
	stored, err := sessions.Load()
	switch {
	case err == nil:
		if stored.Driver.Phone == cfg.Phone && stored.Code == cfg.Code {
			logger.InfoCtx(ctx, "resuming stored session", zap.String("driverID", stored.Driver.ID))
			return stored, nil
		}
	case errors.Is(err, session.ErrNoSession):
	default:
		return session.Identity{}, fmt.Errorf("failed to load stored session: %w", err)
	}

	driver, err := timeutils.Retry(
		ctx,
		loginAttemptDelays,
		func(ctx context.Context) (data.Driver, error) {
			return apiClient.Login(ctx, cfg.Phone, cfg.Code)
		},
		func(_ data.Driver, err error) bool {
			var apiErr *api.Error
			if errors.As(err, &apiErr) {
				return false
			}
			return err != nil
		},
	)
	if err != nil {
		return session.Identity{}, fmt.Errorf("login failed: %w", err)
	}

	identity := session.Identity{Driver: driver, Code: cfg.Code}
	if err := sessions.Save(identity); err != nil {
		logger.ErrorCtx(ctx, "failed to persist session", zap.Error(err))
	}
	return identity, nil
}

func run(
	rootCtx context.Context,
	cfg *config.Config,
	server *courier.Server,
	sess *session.Session,
	logger *logging.ZapLogger,
) error {
	g, ctx := errgroup.WithContext(rootCtx)

	context.AfterFunc(ctx, func() {
		ctx, cancelCtx := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancelCtx()

		<-ctx.Done()
		log.Fatal("failed to gracefully shutdown")
	})

	g.Go(func() error {
		if err := server.Run(); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer logger.InfoCtx(ctx, "Shutting down server")
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		defer logger.InfoCtx(ctx, "Session closed")
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("goroutine error occured: %w", err)
	}

	return nil
}
