package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/garagehub/parts-service/config"
	"github.com/garagehub/parts-service/pkg/broker"
	"github.com/garagehub/parts-service/pkg/cache"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/garagehub/parts-service/pkg/postgres"

	auditH "github.com/garagehub/parts-service/internal/audit/handler"
	auditRepoPkg "github.com/garagehub/parts-service/internal/audit/repository"
	auditUCPkg "github.com/garagehub/parts-service/internal/audit/usecase"

	partH "github.com/garagehub/parts-service/internal/part/handler"
	partRepoPkg "github.com/garagehub/parts-service/internal/part/repository"
	partUCPkg "github.com/garagehub/parts-service/internal/part/usecase"

	poH "github.com/garagehub/parts-service/internal/purchaseorder/handler"
	poRepoPkg "github.com/garagehub/parts-service/internal/purchaseorder/repository"
	poUCPkg "github.com/garagehub/parts-service/internal/purchaseorder/usecase"

	reqH "github.com/garagehub/parts-service/internal/request/handler"
	reqEventsPkg "github.com/garagehub/parts-service/internal/request/events"
	reqListenerPkg "github.com/garagehub/parts-service/internal/request/listener"
	reqRepoPkg "github.com/garagehub/parts-service/internal/request/repository"
	reqUCPkg "github.com/garagehub/parts-service/internal/request/usecase"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	partRepo := partRepoPkg.NewPGRepository(db)
	requestRepo := reqRepoPkg.NewPGRepository(db)
	auditRepo := auditRepoPkg.NewPGRepository(db)
	orderRepo := poRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	kafkaProducer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.JobCardTopic,
	})
	defer kafkaProducer.Close()

	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.JobCardTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.JobCardTopic))

	// 6. Initialize UseCases
	publisher := reqEventsPkg.NewKafkaPublisher(kafkaProducer)
	partUC := partUCPkg.NewPartUseCase(partRepo, redisClient, appLogger)
	requestUC := reqUCPkg.NewRequestUseCase(requestRepo, partRepo, publisher, redisClient, appLogger)
	auditUC := auditUCPkg.NewAuditUseCase(auditRepo, appLogger)
	orderUC := poUCPkg.NewPurchaseOrderUseCase(orderRepo, partUC, redisClient, appLogger)

	// 6.5 Initialize Listener
	jobCardListener := reqListenerPkg.NewJobCardListener(kafkaConsumer, requestUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go jobCardListener.Start(ctx)

	// 7. Initialize Handlers
	partHandler := partH.NewPartHandler(partUC, appLogger)
	requestHandler := reqH.NewRequestHandler(requestUC, appLogger)
	auditHandler := auditH.NewAuditHandler(auditUC, appLogger)
	orderHandler := poH.NewPurchaseOrderHandler(orderUC, appLogger)

	// 8. Router
	if cfg.Server.AppEnv != "dev" && cfg.Server.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		parts := v1.Group("/parts")
		{
			parts.POST("", partHandler.Create)
			parts.POST("/bulk", partHandler.BulkCreate)
			parts.GET("", partHandler.List)
			parts.GET("/:id", partHandler.Get)
			parts.PATCH("/:id", partHandler.Update)
			parts.POST("/:id/stock", partHandler.UpdateStock)
		}

		requests := v1.Group("/parts-requests")
		{
			requests.POST("", requestHandler.Submit)
			requests.GET("", requestHandler.List)
			requests.GET("/:id", requestHandler.Get)
			requests.POST("/:id/approve", requestHandler.Approve)
			requests.POST("/:id/reject", requestHandler.Reject)
			requests.POST("/:id/assign", requestHandler.Assign)
			requests.POST("/:id/complete", requestHandler.Complete)
		}

		orders := v1.Group("/purchase-orders")
		{
			orders.POST("", orderHandler.Create)
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.POST("/:id/approve", orderHandler.Approve)
			orders.POST("/:id/reject", orderHandler.Reject)
			orders.POST("/:id/issue", orderHandler.Issue)
		}

		v1.GET("/stock-history", auditHandler.List)
	}

	// 9. Start HTTP Server
	port := cfg.Server.HTTPPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("forced shutdown", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
