package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"todo-tracker/internal/config"
	"todo-tracker/internal/database"
	"todo-tracker/internal/handlers"
	"todo-tracker/internal/logging"
	"todo-tracker/internal/middleware"
	"todo-tracker/internal/monitoring"
	"todo-tracker/internal/ratelimit"
	"todo-tracker/internal/services"
)

// application holds the process-wide resources. They are acquired in
// newApplication and released in reverse order by Close.
type application struct {
	cfg     *config.Config
	logger  *log.Logger
	pool    *database.DatabasePool
	service services.TodoService
	limiter ratelimit.Limiter
	health  *monitoring.HealthChecker
	router  *gin.Engine
	closers []func() error
}

func newApplication(cfg *config.Config, logger *log.Logger) (*application, error) {
	app := &application{
		cfg:    cfg,
		logger: logger,
		health: monitoring.NewHealthChecker(),
	}

	poolConfig := database.PoolConfigFrom(cfg, logging.ParseGormLevel(cfg.Database.LogLevel), logging.GormWriter{Logger: logger})
	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}
	app.pool = pool
	app.closers = append(app.closers, pool.Close)

	if err := database.EnsureSchema(pool.DB); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if sqlDB, err := pool.DB.DB(); err == nil {
		if err := monitoring.RegisterDBStats(sqlDB, cfg.Database.Driver); err != nil {
			logger.Warn("failed to register database metrics", "err", err)
		}
	}
	app.health.Register("database", pool.Ping)

	app.service = services.NewTodoService(pool.DB)
	app.limiter = app.buildLimiter()
	app.router = setupRouter(app)

	return app, nil
}

func (app *application) buildLimiter() ratelimit.Limiter {
	limitConfig := ratelimit.ConfigFrom(app.cfg.RateLimit)
	local := ratelimit.NewLocalLimiter(limitConfig)
	if !app.cfg.Redis.Enabled {
		return local
	}

	client := ratelimit.NewRedisClient(ratelimit.RedisConfigFrom(app.cfg))
	redisLimiter := ratelimit.NewRedisLimiter(client, limitConfig)
	app.closers = append(app.closers, redisLimiter.Close)
	app.health.Register("redis", redisLimiter.Health)

	app.logger.Info("distributed rate limiting enabled", "redis", app.cfg.GetRedisAddr())
	return ratelimit.NewFallbackLimiter(redisLimiter, local, nil, app.logger)
}

// Close releases resources in reverse acquisition order.
func (app *application) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

func setupRouter(app *application) *gin.Engine {
	if app.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = false
	router.RedirectTrailingSlash = false

	router.Use(middleware.RecoveryWithLog(app.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(app.logger))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", app.health.HealthHandler())
	router.GET("/ready", app.health.ReadinessHandler())
	router.GET("/live", monitoring.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	api := router.Group("")
	if app.cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(app.limiter, app.logger))
	}

	todoHandler := handlers.NewTodoHandler(app.service, app.logger)
	todoHandler.RegisterRoutes(api)
	todoHandler.RegisterRoutes(api.Group("/api"))

	router.NoRoute(handlers.RouteNotFound)

	return router
}

func (app *application) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         app.cfg.GetServerAddr(),
		Handler:      app.router,
		ReadTimeout:  app.cfg.Server.ReadTimeout,
		WriteTimeout: app.cfg.Server.WriteTimeout,
		IdleTimeout:  app.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server listening", "addr", srv.Addr, "environment", app.cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.logger.Info("shutting down server", "timeout", app.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
