package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutorhub/internal/app"
	"github.com/Freeeeeet/tutorhub/internal/config"
	"github.com/Freeeeeet/tutorhub/internal/controller/httpapi"
	"github.com/Freeeeeet/tutorhub/internal/gateway"
	"github.com/Freeeeeet/tutorhub/internal/notify"
	"github.com/Freeeeeet/tutorhub/internal/repository"
	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории
	userRepo := repository.NewUserRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	// Сервисы
	userService := service.NewUserService(userRepo, logger)

	sinks := notify.Fanout{notify.NewLogSink(logger)}
	if cfg.TelegramToken != "" {
		botInstance, err := bot.New(cfg.TelegramToken)
		if err != nil {
			logger.Fatal("Failed to create telegram bot", zap.Error(err))
		}
		sinks = append(sinks, notify.NewTelegramSink(botInstance, userService, logger))
		logger.Info("Telegram notifications enabled")
	}

	bookingService := service.NewBookingService(
		bookingRepo,
		userRepo,
		sinks,
		logger,
		cfg.HoldWindow,
		cfg.PaymentMaxAttempts,
	)

	gw := gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayRetryAttempts, logger)
	paymentService := service.NewPaymentService(paymentRepo, bookingService, gw, cfg.Currency, logger)

	// Фоновая отмена неоплаченных броней с истёкшим hold window
	scheduler := app.NewScheduler(bookingService, time.Minute, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := httpapi.NewHandler(userService, bookingService, paymentService, cfg.GatewayWebhookSecret, logger)
	server := app.NewServer(cfg.HTTPAddr, handler.Router(), logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting tutorhub",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
		zap.Duration("hold_window", cfg.HoldWindow),
	)

	if err := server.Run(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
