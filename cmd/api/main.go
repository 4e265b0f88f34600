// @title           Bookstore Core API
// @version         1.0
// @description     订单、库存与钱包核心服务
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/tracing"
)

func main() {
	// 1. 配置
	cfg, err := config.Load()
	if err != nil {
		logger.L().WithError(err).Fatal("load config")
	}

	// 2. 日志
	closer, err := logger.Init(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		logger.L().WithError(err).Fatal("init logger")
	}
	defer closer.Close()

	// 3. 链路追踪
	shutdownTracer, err := tracing.Init(context.Background(), tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.L().WithError(err).Fatal("init tracing")
	}

	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	// 4. 依赖注入
	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		logger.L().WithError(err).Fatal("initialize app")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 5. 超时订单清理
	var wg sync.WaitGroup
	if cfg.Order.SweepEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.Sweeper.Run(ctx, cfg.Order.SweepInterval)
		}()
	}

	// 6. HTTP服务
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.L().WithFields(logrus.Fields{
			"addr":   srv.Addr,
			"mode":   cfg.Server.Mode,
			"driver": cfg.Database.Driver,
		}).Info("http server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().WithError(err).Error("http server shutdown")
	}
	wg.Wait()
	cleanup()
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.L().WithError(err).Warn("tracer shutdown")
	}
	logger.L().Info("bye")
}
