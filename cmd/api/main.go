package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/messageplans/api/internal/di"
	"github.com/messageplans/api/internal/handlers"
	"github.com/messageplans/api/internal/platform/auth"
	"github.com/messageplans/api/internal/platform/config"
	"github.com/messageplans/api/internal/platform/events"
	pfirestore "github.com/messageplans/api/internal/platform/firestore"
	"github.com/messageplans/api/internal/platform/observability"
	firestoreRepo "github.com/messageplans/api/internal/repositories/firestore"
	"github.com/messageplans/api/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, cfg.Firestore, cfg.Policy)
	if err != nil {
		logger.Fatal("failed to build repository registry", zap.Error(err))
	}

	publisher, pubsubClient, err := newEventPublisher(ctx, cfg.Events)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	if pubsubClient != nil {
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}
	if publisher == nil {
		logger.Info("lifecycle event publishing disabled")
	}

	container, err := di.NewContainer(ctx, cfg, di.ContainerDeps{
		Registry: registry,
		Events:   publisher,
		Logger:   logger,
		Clock:    time.Now,
	})
	if err != nil {
		logger.Fatal("failed to build container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	routingConfigHandlers := handlers.NewRoutingConfigHandlers(container.Services.RoutingConfigs)
	healthHandlers := handlers.NewHealthHandlers(func(ctx context.Context) error {
		_, err := firestoreProvider.Client(ctx)
		return err
	})

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithAuthMiddleware(auth.Middleware()),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithRoutingConfigRoutes(routingConfigHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	case sig := <-stop:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newEventPublisher builds the Pub/Sub publisher when a topic is configured.
// An empty topic disables event emission.
func newEventPublisher(ctx context.Context, cfg config.EventsConfig) (services.EventPublisher, *pubsub.Client, error) {
	if cfg.Topic == "" {
		return nil, nil, nil
	}
	if cfg.ProjectID == "" {
		return nil, nil, errors.New("events: project id is required when a topic is set")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("events: create pubsub client: %w", err)
	}

	publisher, err := events.NewPubSubPublisher(client.Topic(cfg.Topic))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return publisher, client, nil
}
