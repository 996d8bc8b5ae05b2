package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pkgAuth "github.com/polkiloo/orderflow/internal/pkg/auth"
	"github.com/polkiloo/orderflow/internal/server/http/handlers"
	"github.com/polkiloo/orderflow/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.Facade, authorizer pkgAuth.Authorizer, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	orderHandler := handlers.NewOrderHandler(facade)
	adminHandler := handlers.NewAdminHandler(facade)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/order-id", orderHandler.NewOrderID)
	api.POST("/orders", orderHandler.Create)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/:orderID", orderHandler.Get)
	api.POST("/orders/:orderID/payment", orderHandler.Payment)
	api.POST("/orders/:orderID/cancel", orderHandler.Cancel)
	api.POST("/orders/:orderID/events", orderHandler.SubmitEvent)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired(authorizer))
	admin.PATCH("/orders/:id/status", adminHandler.UpdateStatus)
	admin.GET("/statistics", adminHandler.Statistics)
	admin.GET("/dead-letters", adminHandler.DeadLetters)

	return engine
}
