package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	expenseapp "github.com/tradeops/backoffice/internal/application/expense"
	inventoryapp "github.com/tradeops/backoffice/internal/application/inventory"
	tradeapp "github.com/tradeops/backoffice/internal/application/trade"
	wastageapp "github.com/tradeops/backoffice/internal/application/wastage"
	"github.com/tradeops/backoffice/internal/infrastructure/config"
	"github.com/tradeops/backoffice/internal/infrastructure/logger"
	"github.com/tradeops/backoffice/internal/infrastructure/persistence"
	"github.com/tradeops/backoffice/internal/interfaces/http/handler"
	"github.com/tradeops/backoffice/internal/interfaces/http/middleware"
	"github.com/tradeops/backoffice/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting back office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Every approval workflow runs inside one bounded transaction.
	scope := persistence.NewGormTransactionScope(db.DB, cfg.Workflow.TransactionTimeout)

	allocator := inventoryapp.NewAllocatorService(scope, log)
	wastageService := wastageapp.NewService(scope, allocator, log)
	expenseService := expenseapp.NewService(scope, log)
	tradeService := tradeapp.NewService(scope, allocator, log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tenant(middleware.DefaultTenantConfig()))

	engine.GET("/healthz", healthHandler(db))

	router.NewRouter(engine).
		Register(handler.NewInventoryHandler(allocator)).
		Register(handler.NewWastageHandler(wastageService)).
		Register(handler.NewExpenseHandler(expenseService)).
		Register(handler.NewTradeHandler(tradeService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness including database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
