package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studymarket/backend/internal/config"
	"github.com/studymarket/backend/internal/db"
	httpHandlers "github.com/studymarket/backend/internal/http/handlers"
	httpRouter "github.com/studymarket/backend/internal/http/router"
	"github.com/studymarket/backend/internal/logger"
	"github.com/studymarket/backend/internal/repository"
	"github.com/studymarket/backend/internal/service"
	"github.com/studymarket/backend/internal/storage"
	"github.com/studymarket/backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	fileStorage, err := storage.NewFileStorage(cfg.FileStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	earningRepo := repository.NewEarningRepository(dbConn)
	commentRepo := repository.NewCommentRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	fileRepo := repository.NewFileRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	referralService := service.NewReferralService(earningRepo, userRepo, cfg.ReferralBaseURL, cfg.RegistrationBonus)
	authService := service.NewAuthService(userRepo, tokenManager, referralService)
	orderService := service.NewOrderService(orderRepo, catalogRepo, commentRepo, referralService, hub)
	bidService := service.NewBidService(bidRepo, orderRepo, hub)
	disputeService := service.NewDisputeService(disputeRepo, orderRepo, userRepo, hub)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	orderHandler := httpHandlers.NewOrderHandler(orderService)
	bidHandler := httpHandlers.NewBidHandler(bidService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	partnerHandler := httpHandlers.NewPartnerHandler(referralService)
	catalogHandler := httpHandlers.NewCatalogHandler(catalogRepo)
	fileHandler := httpHandlers.NewFileHandler(fileRepo, orderRepo, fileStorage)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, orderHandler, bidHandler, disputeHandler, partnerHandler, catalogHandler, fileHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
