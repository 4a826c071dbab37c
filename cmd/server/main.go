package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toppan-service/internal/api"
	"toppan-service/internal/config"
	"toppan-service/internal/repo"
	"toppan-service/internal/service"
	"toppan-service/internal/service/game"
	"toppan-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file")
	flag.Parse()

	// 1. Load Config
	config.LoadConfig(configPath)
	conf := config.GlobalConfig

	// 2. Init Logger
	logger.InitLogger(conf.Server.Mode)
	defer logger.Log.Sync()

	logger.Log.Info("Starting server...", zap.String("mode", conf.Server.Mode))

	// 3. Init DB & Redis
	repo.InitDB()
	repo.InitRedis()

	// 3.5 Init Services
	services := service.NewContainer(repo.DB, repo.RDB, game.Settings{
		InitialPoints:    conf.Game.InitialPoints,
		MaxInitialPoints: conf.Game.MaxInitialPoints,
		MaxBet:           conf.Game.MaxBet,
		DoraCount:        conf.Game.DoraCount,
		InitialHandSize:  conf.Game.InitialHandSize,
		SettleDelay:      time.Duration(conf.Game.SettleDelayMs) * time.Millisecond,
		EmptyRoomTTL:     time.Duration(conf.Game.EmptyRoomTTLSec) * time.Second,
	})

	// 4. Init Router
	if conf.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Register Routes
	api.RegisterRoutes(r, services, conf.Server.AllowedOrigins)

	// 5. Start Server
	addr := fmt.Sprintf(":%s", conf.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	// Drains pending history and directory writes.
	services.Close()
	if repo.RDB != nil {
		_ = repo.RDB.Close()
	}
}
