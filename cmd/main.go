package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data"
	"github.com/stockerhq/stocker/data/cache"
	"github.com/stockerhq/stocker/data/repository/postgres"
	"github.com/stockerhq/stocker/data/session"
	"github.com/stockerhq/stocker/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/stockerhq/stocker/internal/httpserver"
	"github.com/stockerhq/stocker/internal/notifier"
	"github.com/stockerhq/stocker/internal/reportGenerator/xlsxGenerator"
	"github.com/stockerhq/stocker/internal/scheduler"
	"github.com/stockerhq/stocker/internal/seeder"
	"github.com/stockerhq/stocker/internal/service/adminService"
	"github.com/stockerhq/stocker/internal/service/ledgerService"
	"github.com/stockerhq/stocker/internal/service/userService"
	"github.com/stockerhq/stocker/internal/service/valuationService"
	"github.com/stockerhq/stocker/internal/transport/rest"
	"github.com/stockerhq/stocker/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	ntf := notifier.New(cfg, redisClient)

	reportGenerator := xlsxGenerator.New(cfg)

	// cloudStorage stays a nil interface when drive uploads are turned off.
	var cloudStorage adminService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	ledgerSrv := ledgerService.New(cfg, pgRepo, redisCache, ntf)
	valuationSrv := valuationService.New(pgRepo, redisCache)
	adminSrv := adminService.New(cfg, pgRepo, valuationSrv, redisCache, reportGenerator, cloudStorage)
	userSrv := userService.New(pgRepo, ntf)

	if err := seeder.New(cfg, pgRepo).Run(utils.CreateCtxWithNewRqID(ctx)); err != nil {
		panic(err)
	}

	sched := scheduler.New()
	sched.NewIntervalJob("fill quote cache", valuationSrv.FillQuoteCache, cfg.Jobs.FillQuoteCacheInterval, true)
	if cfg.GoogleDrive.Enabled {
		sched.NewIntervalJob("delete old reports", adminSrv.DeleteOldReports, cfg.Jobs.DeleteOldReportsInterval, false)
	}
	sched.Start()
	defer sched.Stop()

	ctrl := rest.NewController(userSrv, ledgerSrv, valuationSrv, adminSrv, redisSession)

	server := httpserver.New(cfg, ctrl, redisSession)
	server.Start()
	defer server.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
