package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/hanko-vouchers/internal/handlers"
	"finitefield.org/hanko-vouchers/internal/platform/auth"
	"finitefield.org/hanko-vouchers/internal/platform/config"
	pfirestore "finitefield.org/hanko-vouchers/internal/platform/firestore"
	"finitefield.org/hanko-vouchers/internal/platform/metrics"
	"finitefield.org/hanko-vouchers/internal/platform/observability"
	"finitefield.org/hanko-vouchers/internal/platform/requestctx"
	"finitefield.org/hanko-vouchers/internal/repositories"
	firestoreRepo "finitefield.org/hanko-vouchers/internal/repositories/firestore"
	"finitefield.org/hanko-vouchers/internal/repositories/memory"
	"finitefield.org/hanko-vouchers/internal/services"
	"finitefield.org/hanko-vouchers/internal/vouchers/presentation"
	"finitefield.org/hanko-vouchers/internal/vouchers/targetsync"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("vouchers-admin")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)
	m := metrics.New()

	registry, err := newRegistry(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise voucher store", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("voucher store close error", zap.Error(err))
		}
	}()

	voucherService, err := services.NewVoucherService(services.VoucherServiceDeps{
		Vouchers:     registry.Vouchers(),
		Usages:       registry.VoucherUsages(),
		Synchronizer: targetsync.New(nil),
		Presenter: presentation.New(presentation.Options{
			DefaultCurrency:  cfg.Presentation.DefaultCurrency,
			VoucherURLPrefix: cfg.Presentation.VoucherURLPrefix,
			OrderURLTemplate: cfg.Presentation.OrderURLTemplate,
		}),
		Metrics: m,
		Clock:   time.Now,
		Logger:  zapEventLogger(logger.Named("vouchers")),
	})
	if err != nil {
		logger.Fatal("failed to initialise voucher service", zap.Error(err))
	}

	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: registry.Health(),
		Clock:            time.Now,
		Build:            buildInfo,
	})
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	var authenticator *auth.Authenticator
	if cfg.Firebase.Enabled() {
		verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
		}
		authenticator = auth.NewAuthenticator(verifier)
	} else {
		logger.Warn("firebase project not configured; admin routes are unauthenticated")
	}

	healthOpts := []handlers.HealthOption{handlers.WithHealthBuildInfo(buildInfo)}
	if systemService != nil {
		healthOpts = append(healthOpts, handlers.WithHealthSystemService(systemService))
	}
	voucherHandlers := handlers.NewAdminVoucherHandlers(authenticator, voucherService)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(cfg.Firestore.ProjectID),
			observability.RecoveryMiddleware(logger),
			observability.RequestLoggerMiddleware(),
			m.Middleware,
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(healthOpts...)),
		handlers.WithMetricsHandler(m.Handler()),
		handlers.WithAdminRoutes(voucherHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
	go func() {
		serverLogger.Info("vouchers admin listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	sig := <-shutdown
	serverLogger.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newRegistry(ctx context.Context, logger *zap.Logger, cfg config.Config) (repositories.Registry, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, err
		}
		registry, err := firestoreRepo.NewRegistry(provider, cfg.Store, pfirestore.TxOptions(cfg.Firestore)...)
		if err != nil {
			return nil, err
		}
		return registry, nil
	case config.StoreDriverMemory:
		store := memory.NewStore()
		if seed := strings.TrimSpace(cfg.Store.SeedFile); seed != "" {
			if err := store.LoadSeedFile(ctx, seed); err != nil {
				return nil, err
			}
			logger.Info("voucher seed loaded", zap.String("path", seed))
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func zapEventLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		if reqLogger := requestctx.Logger(ctx); reqLogger != requestctx.NoopLogger() {
			reqLogger.Info(event, zFields...)
			return
		}
		logger.Info(event, zFields...)
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("VOUCHERS_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("VOUCHERS_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("VOUCHERS_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
