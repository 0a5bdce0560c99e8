package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Firesolami/needles-sub001/config"
	"github.com/Firesolami/needles-sub001/models"
	"github.com/Firesolami/needles-sub001/routes"
	"github.com/Firesolami/needles-sub001/services"
	"github.com/Firesolami/needles-sub001/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.SyncLogger()

	if err := utils.InitSentry(cfg); err != nil {
		utils.Logger.Warn("sentry disabled", zap.Error(err))
	}

	db := config.InitDatabase(models.All()...)
	utils.GetRedis()

	media := services.NewMediaService(db, utils.Named("media"), time.Duration(cfg.UploadsTTLMinutes)*time.Minute)
	r := routes.SetupRouter(db, media)

	ctx, stop := context.WithCancel(context.Background())
	utils.StartUploadCleaner(ctx, time.Duration(cfg.UploadsCleanupSecs)*time.Second, media)

	utils.Logger.Info("starting server (graceful)", zap.String("port", cfg.AppPort))
	err := utils.GraceServer(":"+cfg.AppPort, r)
	stop()

	// Drain process-wide clients once in-flight requests are done
	if cerr := config.CloseDatabase(); cerr != nil {
		utils.Logger.Warn("close database", zap.Error(cerr))
	}
	if cerr := utils.CloseRedis(); cerr != nil {
		utils.Logger.Warn("close redis", zap.Error(cerr))
	}
	utils.FlushSentry(5 * time.Second)

	if err != nil {
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
	utils.Logger.Info("server stopped")
}
