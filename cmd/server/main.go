package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gerai-be/internal/api"
	"gerai-be/internal/cart"
	"gerai-be/internal/config"
	"gerai-be/internal/db"
	"gerai-be/internal/inventory"
	"gerai-be/internal/logger"
	"gerai-be/internal/middleware"
	"gerai-be/internal/notify"
	"gerai-be/internal/order"
	"gerai-be/internal/product"
	"gerai-be/internal/promotion"
	"gerai-be/internal/settings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	var publisher notify.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		logger.L().Info("kafka publisher enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaOrderTopic),
		)
	} else {
		publisher = notify.NoopPublisher{}
		logger.L().Warn("no kafka brokers configured, order events disabled")
	}
	defer publisher.Close()

	productRepo := product.NewRepository(database)
	productSvc := product.NewService(productRepo)

	cartRepo := cart.NewRepository(database)
	cartSvc := cart.NewService(cartRepo, productRepo)

	promoRepo := promotion.NewRepository(database)
	promoSvc := promotion.NewService(promoRepo)

	settingsRepo := settings.NewRepository(database)

	orderRepo := order.NewRepository(database, inventory.NewLedger(), promoRepo)
	orderSvc := order.NewService(orderRepo, settingsRepo, publisher)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.NewRateLimiter(rate.Limit(20), 40).Middleware())

	handler := api.NewHandler(orderSvc, cartSvc, productSvc, promoSvc, database)
	handler.RegisterRoutes(router, cfg.SecretKey)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.L().Info("server listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Error("graceful shutdown failed", zap.Error(err))
	}
}
