package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mojagap/moja-node/internal/command"
	"github.com/mojagap/moja-node/internal/config"
	"github.com/mojagap/moja-node/internal/database"
	"github.com/mojagap/moja-node/internal/handler"
	"github.com/mojagap/moja-node/internal/httpgateway"
	"github.com/mojagap/moja-node/internal/query"
	"github.com/mojagap/moja-node/internal/repository"
	"github.com/mojagap/moja-node/shared/events"
	"github.com/mojagap/moja-node/shared/middleware"
	sharedredis "github.com/mojagap/moja-node/shared/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Log)
	gin.SetMode(cfg.Server.Mode)

	// Write store
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Read model cache + event streaming
	redis, err := sharedredis.NewClient(sharedredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	txManager := repository.NewGormTxManager(db)
	userReadRepo := repository.NewUserReadRepository(db, redis.Client, cfg.Cache.UserViewTTL(), logger)
	walletReadRepo := repository.NewWalletReadRepository(redis.Client, logger)
	userSearchRepo := repository.NewUserSearchRepository(db)
	callLogRepo := repository.NewHttpCallLogRepository(db)

	gateway := httpgateway.NewClient(cfg.ExternalUsers.BaseURL, cfg.ExternalUsers.Timeout(), callLogRepo, logger)

	userQuerySvc := query.NewUserQueryService(userReadRepo, userSearchRepo, gateway, logger)

	auth := command.NewAuthenticator(userQuerySvc, []byte(cfg.JWT.Secret), cfg.JWT.Expiry(), logger)
	accountSvc := command.NewAccountCommandService(txManager, auth, userReadRepo, publisher, logger)
	companySvc := command.NewCompanyCommandService(txManager, userReadRepo, publisher, logger)
	userSvc := command.NewUserCommandService(txManager, auth, userReadRepo, gateway, publisher, logger)
	walletSvc := command.NewWalletCommandService(txManager, walletReadRepo, publisher, logger)

	accountHandler := handler.NewAccountHandler(accountSvc)
	companyHandler := handler.NewCompanyHandler(companySvc)
	userHandler := handler.NewUserHandler(userSvc, userQuerySvc)
	walletHandler := handler.NewWalletHandler(walletSvc)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(cors.New(corsConfig(cfg.CORS)))

	router.GET("/health", func(c *gin.Context) {
		status, code := gin.H{"status": "ok", "database": "ok", "redis": "ok"}, http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status["status"], status["database"], code = "degraded", "unreachable", http.StatusServiceUnavailable
		}
		if err := redis.Healthy(c.Request.Context()); err != nil {
			status["status"], status["redis"], code = "degraded", "unreachable", http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/v1/accounts", accountHandler.CreateAccount)
	router.POST("/v1/auth/login", accountHandler.Login)
	router.POST("/v1/users/login", userHandler.Login)

	v1 := router.Group("/v1", middleware.AuthMiddleware([]byte(cfg.JWT.Secret)))
	{
		v1.PUT("/accounts", accountHandler.UpdateAccount)
		v1.PUT("/accounts/:id/activate", accountHandler.ActivateAccount)

		v1.POST("/companies", companyHandler.CreateCompany)
		v1.PUT("/companies/:id", companyHandler.UpdateCompany)
		v1.PUT("/companies/:id/close", companyHandler.CloseCompany)

		v1.GET("/users", userHandler.ListUsers)
		v1.GET("/users/:id", userHandler.GetUser)
		v1.POST("/users", userHandler.CreateUser)
		v1.PUT("/users/:id", userHandler.UpdateUser)
		v1.DELETE("/users/:id", userHandler.RemoveUser)

		v1.GET("/external-users", userHandler.ListExternalUsers)
		v1.GET("/external-users/:id", userHandler.GetExternalUser)
		v1.POST("/external-users", userHandler.CreateExternalUser)

		v1.POST("/wallets/:id/deposits", walletHandler.Deposit)
		v1.POST("/wallets/charges", walletHandler.ApplyWalletCharges)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		hostname, _ := os.Hostname()
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "moja-node-wallet-group",
			Consumer: "wallet-consumer-" + hostname,
			Stream:   events.WalletEventsStream,
			Handlers: map[string]events.Handler{
				events.WalletTransactionCreated: walletSvc.HandleWalletTransactionEvent,
			},
			Logger: logger,
		})
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Wallet event subscriber stopped")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Moja node starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shut down")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", handler.EmailHeader, handler.PasswordHeader},
		ExposeHeaders: []string{handler.AuthenticationHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
