package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/storefront-go/storefront/internal/config"
	"github.com/storefront-go/storefront/internal/db"
	"github.com/storefront-go/storefront/internal/es"
	"github.com/storefront-go/storefront/internal/events"
	"github.com/storefront-go/storefront/internal/httpserver"
	"github.com/storefront-go/storefront/internal/logging"
	authmw "github.com/storefront-go/storefront/internal/middleware/auth"
	loggingmw "github.com/storefront-go/storefront/internal/middleware/logging"
	"github.com/storefront-go/storefront/internal/repo"
	"github.com/storefront-go/storefront/internal/service/cart"
	"github.com/storefront-go/storefront/internal/service/inventory"
	"github.com/storefront-go/storefront/internal/service/order"
	"github.com/storefront-go/storefront/internal/validation"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, events disabled")
	}

	repos := repo.New(database)
	cartSvc := &cart.Service{Repo: repos}
	inventorySvc := &inventory.Service{Repo: repos}
	orderSvc := &order.Service{Repo: repos}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(loggingmw.RequestLogger(logger))
	e.Validator = validation.New()

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Repo:      repos,
			Cart:      cartSvc,
			Producer:  producer,
			JWTSecret: cfg.JWTSecret,
		},
		CartHandler:  &httpserver.CartHTTP{Svc: cartSvc},
		OrderHandler: &httpserver.OrderHTTP{Svc: orderSvc, Producer: producer},
		ProductHandler: &httpserver.ProductHTTP{
			Repo:      repos,
			Inventory: inventorySvc,
			Producer:  producer,
			Index:     cfg.SearchIndex,
		},
		SearchHandler: &httpserver.SearchHTTP{Index: cfg.SearchIndex},
		AuthMW:        &authmw.Middleware{JWTSecret: cfg.JWTSecret},
	}

	if cfg.ESURL != "" {
		client, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.ProductHandler.ES = client
		deps.SearchHandler.ES = client
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
