package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/lumina_api/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Product      *ProductHandler
	ProductAdmin *ProductAdminHandler
	Order        *OrderHandler
	Channel      *ChannelHandler
	SSE          *SSEHandler
}

// RegisterRoutes mounts the API under /api. Session resolution runs on
// every route; guards are applied per group.
func RegisterRoutes(router *gin.Engine, h *Handlers, sessions *middleware.SessionMiddleware, limiter *middleware.FailedLoginLimiter) {
	api := router.Group("/api")
	api.Use(sessions.Handle())

	api.GET("/health", h.Health.GetHealth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", limiter.Guard(), h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", middleware.RequireUser(), h.Auth.Me)
	}

	api.GET("/products", h.Product.List)
	api.GET("/products/search", h.Product.Search)
	api.GET("/products/:id", h.Product.Get)
	api.GET("/products/:id/related", h.Product.Related)
	api.GET("/flash-sales", h.Product.FlashSales)

	api.POST("/orders", h.Order.Create)
	api.GET("/orders/mine", middleware.RequireUser(), h.Order.Mine)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/products", h.ProductAdmin.Create)
		admin.PATCH("/products/:id", h.ProductAdmin.Update)
		admin.DELETE("/products/:id", h.ProductAdmin.Delete)
		admin.POST("/products/:id/flash-sale", h.ProductAdmin.SetFlashSale)
		admin.DELETE("/products/:id/flash-sale", h.ProductAdmin.ClearFlashSale)
		admin.POST("/products/:id/marketing", h.ProductAdmin.RegenerateMarketing)

		admin.GET("/orders", h.Order.List)
		admin.GET("/orders/:id", h.Order.Get)
		admin.PATCH("/orders/:id/status", h.Order.UpdateStatus)
		admin.GET("/events", h.SSE.Stream)

		admin.POST("/channel/post/:id", h.Channel.PostProduct)
		admin.POST("/channel/post-next", h.Channel.PostNext)
		admin.GET("/channel/posts", h.Channel.ListPosts)
		admin.GET("/channel/scheduler", h.Channel.SchedulerStatus)
		admin.POST("/channel/scheduler", h.Channel.StartScheduler)
		admin.DELETE("/channel/scheduler", h.Channel.StopScheduler)
	}
}
