package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"example.com/ai-meal-planner/backend/internal/auth"
	"example.com/ai-meal-planner/backend/internal/config"
	"example.com/ai-meal-planner/backend/internal/handlers"
	"example.com/ai-meal-planner/backend/internal/metrics"
	"example.com/ai-meal-planner/backend/internal/notifications"
	"example.com/ai-meal-planner/backend/internal/optimizer"
	"example.com/ai-meal-planner/backend/internal/planner"
	"example.com/ai-meal-planner/backend/internal/repository"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
// rdb нужен только для кэша в Redis и может быть nil.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	planRepo := repository.NewMealPlanRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	householdRepo := repository.NewHouseholdRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	aiRepo := repository.NewAIRepository(db)
	notificationHub := notifications.NewHub()

	mode := "mock"
	generator := NewGenerator(cfg, aiRepo, m, logger)
	opts := planner.Options{
		Households:           householdRepo,
		Recipes:              recipeRepo,
		Metrics:              m,
		Logger:               logger,
		DisableRenegotiation: !cfg.Planner.Renegotiation,
		MaxRenegotiations:    cfg.Planner.MaxRenegotiations,
	}
	if !cfg.MockMode() {
		mode = cfg.AI.Provider
		opts.Cache = NewCache(cfg, rdb)
	}
	plannerService := planner.NewService(generator, planRepo, opts)
	optimizerEngine := optimizer.NewEngine(plannerService, plannerService, NewOptimizerConfig(cfg.Optimizer), m, logger)

	logger.Info("meal planner configured",
		slog.String("mode", mode),
		slog.String("cache_backend", cfg.Planner.CacheBackend),
		slog.Bool("renegotiation", cfg.Planner.Renegotiation),
	)

	registerRoutes(e, routes{
		health:        handlers.NewHealthHandler(db, mode),
		metrics:       echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})),
		profiles:      handlers.NewProfileHandler(profileRepo),
		mealPlans:     handlers.NewMealPlanHandler(plannerService, profileRepo, notificationHub, logger),
		optimizations: handlers.NewOptimizationHandler(plannerService, optimizerEngine, profileRepo, householdRepo, notificationHub, logger),
		notifications: handlers.NewNotificationHandler(notificationHub),
		recipes:       handlers.NewRecipeHandler(recipeRepo),
		aiUsage:       handlers.NewAIUsageHandler(aiRepo),
		authenticate:  auth.JWTMiddleware(tokenManager),
		apiLimiter:    httpRateLimiter(cfg.Auth.RateLimitPerMinute, cfg.Auth.RateLimitBurst),
		aiLimiter:     httpRateLimiter(cfg.AI.RateLimitPerMinute, cfg.AI.RateLimitBurst),
	})

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

// httpRateLimiter ограничивает частоту запросов с одного IP.
func httpRateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	limit := rate.Limit(float64(perMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
