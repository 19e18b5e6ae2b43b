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

	"github.com/nurpe/plantrent-contracts/internal/audit"
	"github.com/nurpe/plantrent-contracts/internal/auth"
	"github.com/nurpe/plantrent-contracts/internal/cache"
	"github.com/nurpe/plantrent-contracts/internal/config"
	"github.com/nurpe/plantrent-contracts/internal/db"
	"github.com/nurpe/plantrent-contracts/internal/excel"
	httphandler "github.com/nurpe/plantrent-contracts/internal/http"
	"github.com/nurpe/plantrent-contracts/internal/http/middleware"
	"github.com/nurpe/plantrent-contracts/internal/logger"
	"github.com/nurpe/plantrent-contracts/internal/metrics"
	"github.com/nurpe/plantrent-contracts/internal/pdf"
	"github.com/nurpe/plantrent-contracts/internal/repository"
	"github.com/nurpe/plantrent-contracts/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	pdfGenerator, err := pdf.NewGenerator(cfg.PDF.FontPath, cfg.PDF.BoldFontPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init pdf generator")
	}

	recorder := metrics.NewRecorder()
	notifiers := []service.Notifier{audit.NewLogger(log), recorder}
	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.Connect(context.Background(), cfg.Cache.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer rdb.Close()
		notifiers = append(notifiers, cache.NewInvalidator(rdb, cfg.Cache.KeyPrefix))
	} else {
		log.Warn().Msg("REDIS_URL is empty, page cache invalidation disabled")
	}

	txManager := repository.NewTxManager(database)
	inventoryRepo := repository.NewInventoryRepository(database)
	catalogRepo := repository.NewPlantTypeRepository(database)

	contractService := service.NewContractService(service.Dependencies{
		Tx:        txManager,
		Contracts: repository.NewContractRepository(database),
		Inventory: inventoryRepo,
		Plants:    repository.NewCustomerPlantRepository(database),
		Customers: repository.NewCustomerRepository(database),
		Catalog:   catalogRepo,
		Excel:     excel.NewGenerator(),
		PDF:       pdfGenerator,
		Notifiers: notifiers,
		Shortages: recorder,
		Log:       log,
	}, cfg)
	inventoryService := service.NewInventoryService(txManager, inventoryRepo, catalogRepo, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(contractService, inventoryService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", addr).Msg("starting contracts service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("contracts service stopped")
}
