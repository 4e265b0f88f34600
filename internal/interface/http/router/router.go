// Package router 组装gin引擎: 全局中间件、系统路由和/api/v1业务路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-core/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

// New 创建并注册路由
func New(
	cfg *config.Config,
	m *metrics.Metrics,
	auth *middleware.AuthMiddleware,
	orderHandler *handler.OrderHandler,
	walletHandler *handler.WalletHandler,
	adminHandler *handler.AdminHandler,
	bookHandler *handler.BookHandler,
	userHandler *handler.UserHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Tracing(), middleware.RequestLogger(), middleware.Metrics(m))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	if cfg.Server.Mode != "release" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		v1.GET("/books/:id", bookHandler.GetBook)

		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.POST("/single", orderHandler.CreateSingleOrder)
			orders.POST("/batch-cancel", orderHandler.BatchCancel)
			orders.GET("", orderHandler.ListMyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
		}

		wallet := v1.Group("/wallet")
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.POST("/deposit", walletHandler.Deposit)
			wallet.POST("/withdraw", walletHandler.Withdraw)
			wallet.POST("/pay", walletHandler.Pay)
			wallet.POST("/refund", walletHandler.Refund)
			wallet.POST("/batch-pay", walletHandler.BatchPay)
			wallet.GET("/transactions", walletHandler.ListTransactions)
			wallet.GET("/reconcile", walletHandler.Reconcile)
		}

		admin := v1.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			admin.GET("/orders", adminHandler.ListOrders)
			admin.DELETE("/orders/:id", adminHandler.DeleteOrder)
			admin.POST("/orders/batch-delete", adminHandler.BatchDeleteOrders)
			admin.POST("/orders/sweep", adminHandler.Sweep)
			admin.POST("/books", bookHandler.PublishBook)
			admin.POST("/books/batch-delete", adminHandler.BatchDeleteBooks)
			admin.POST("/users", userHandler.Register)
		}
	}

	return r
}
