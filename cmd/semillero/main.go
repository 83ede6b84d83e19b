package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/semillero-erp/semillero-erp/internal/app"
	"github.com/semillero-erp/semillero-erp/internal/auth"
	"github.com/semillero-erp/semillero-erp/internal/catalog"
	"github.com/semillero-erp/semillero-erp/internal/intake"
	"github.com/semillero-erp/semillero-erp/internal/ledger"
	"github.com/semillero-erp/semillero-erp/internal/outbound"
	"github.com/semillero-erp/semillero-erp/internal/platform/cache"
	"github.com/semillero-erp/semillero-erp/internal/platform/db"
	"github.com/semillero-erp/semillero-erp/internal/production"
	"github.com/semillero-erp/semillero-erp/internal/shared"
	"github.com/semillero-erp/semillero-erp/internal/users"
	"github.com/semillero-erp/semillero-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validate := validator.New(validator.WithRequiredStructEnabled())
	auditLogger := shared.NewAuditLogger(pool)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, validate)

	authService := auth.NewService(usersRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, validate)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService, validate)

	intakeRepo := intake.NewRepository(pool)
	intakeService := intake.NewService(intakeRepo, auditLogger)
	intakeHandler := intake.NewHandler(logger, intakeService, validate)

	inventarioCache := production.NewCache(redisClient, 10*time.Minute)

	productionRepo := production.NewRepository(pool)
	productionService := production.NewService(productionRepo, intakeService, inventarioCache, auditLogger)
	productionHandler := production.NewHandler(logger, productionService, validate)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	outboundRepo := outbound.NewRepository(pool)
	outboundService := outbound.NewService(outboundRepo, inventarioCache, auditLogger)
	outboundHandler := outbound.NewHandler(logger, outboundService, validate)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("init job client", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		if _, err := jobClient.EnqueueCalentarInventario(ctx); err != nil {
			logger.Warn("enqueue inventory warmup", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Tokens:            tokens,
		AuthHandler:       authHandler,
		UsersHandler:      usersHandler,
		CatalogHandler:    catalogHandler,
		IntakeHandler:     intakeHandler,
		ProductionHandler: productionHandler,
		LedgerHandler:     ledgerHandler,
		OutboundHandler:   outboundHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
