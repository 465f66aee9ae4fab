package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contact_book/internal/config"
	"contact_book/internal/dao/cache"
	"contact_book/internal/handler"
	"contact_book/internal/https_server"
	"contact_book/internal/infrastructure/logger"
	"contact_book/internal/infrastructure/metrics"
	"contact_book/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf, err := config.Load(config.DefaultPaths...)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// 2. 初始化日志
	if err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = zap.L().Sync() }()
	zap.L().Info("日志初始化成功", zap.String("mode", conf.MainConfig.Mode))

	// 3. 初始化参数校验翻译器
	if err := handler.InitTrans(conf.MainConfig.Locale); err != nil {
		zap.L().Fatal("翻译器初始化失败", zap.Error(err))
	}

	// 4. 初始化缓存
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := cache.Init(ctx, conf)
	cancel()
	if err != nil {
		zap.L().Fatal("缓存初始化失败", zap.Error(err))
	}
	zap.L().Info("缓存初始化成功", zap.String("backend", conf.CacheConfig.Backend))

	// 5. 初始化 Service 层 (依赖注入)
	recorder := metrics.New()
	svc := service.NewServices(conf, store, recorder)
	zap.L().Info("Service 层初始化成功", zap.String("api", conf.ApiConfig.BaseURL))

	// 6. 初始化 HTTP 服务器
	engine, err := https_server.Init(conf, handler.NewHandlers(svc, conf), recorder)
	if err != nil {
		zap.L().Fatal("HTTP 服务器初始化失败", zap.Error(err))
	}

	// 7. 启动服务
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zap.L().Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server running fault", zap.Error(err))
		}
	}()

	// 设置信号监听
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 等待信号
	<-quit
	zap.L().Info("关闭服务器...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		zap.L().Error("cache close failed", zap.Error(err))
	}

	zap.L().Info("服务器已关闭")
}
