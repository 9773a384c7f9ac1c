package server

import (
	"github.com/labstack/echo/v4"

	"example.com/ai-meal-planner/backend/internal/handlers"
)

type routes struct {
	health        *handlers.HealthHandler
	metrics       echo.HandlerFunc
	profiles      *handlers.ProfileHandler
	mealPlans     *handlers.MealPlanHandler
	optimizations *handlers.OptimizationHandler
	notifications *handlers.NotificationHandler
	recipes       *handlers.RecipeHandler
	aiUsage       *handlers.AIUsageHandler
	authenticate  echo.MiddlewareFunc
	apiLimiter    echo.MiddlewareFunc
	aiLimiter     echo.MiddlewareFunc
}

func registerRoutes(e *echo.Echo, r routes) {
	e.GET("/health", r.health.Health)
	e.GET("/metrics", r.metrics)

	api := e.Group("/api/v1", r.authenticate)

	api.GET("/profile", r.profiles.Get, r.apiLimiter)
	api.PUT("/profile", r.profiles.Put, r.apiLimiter)

	plans := api.Group("/meal-plans")
	plans.POST("/generate", r.mealPlans.Generate, r.aiLimiter)
	plans.GET("", r.mealPlans.List, r.apiLimiter)
	plans.GET("/:id", r.mealPlans.Get, r.apiLimiter)
	plans.DELETE("/:id", r.mealPlans.Delete, r.apiLimiter)
	plans.POST("/:id/meals/:mealId/swap", r.mealPlans.Swap, r.aiLimiter)
	plans.GET("/:id/meals/:mealId/instructions", r.mealPlans.Instructions, r.aiLimiter)
	plans.GET("/:id/tips", r.mealPlans.Tips, r.aiLimiter)
	plans.POST("/:id/optimizations", r.optimizations.Suggest, r.aiLimiter)
	plans.POST("/:id/optimizations/apply", r.optimizations.Apply, r.aiLimiter)

	api.GET("/recipes/:id", r.recipes.Get, r.apiLimiter)

	api.GET("/notifications/stream", r.notifications.Stream)

	aiRequests := api.Group("/ai-requests", r.apiLimiter)
	aiRequests.GET("", r.aiUsage.ListRequests)
	aiRequests.GET("/usage", r.aiUsage.Usage)
}
