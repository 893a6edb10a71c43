package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moneta/internal/interfaces/scheduler"
	"moneta/internal/shared/config"
	"moneta/internal/shared/logger"
	"moneta/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log := logger.New(false)
		log.Fatal().Err(err).Msg("application error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Pretty)
	ctx := context.Background()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("telemetry shutdown error")
			}
		}()
	}

	// Dependencies
	deps, err := NewDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Background sync scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.NewScheduler(
			deps.UserRepo,
			deps.SyncService,
			deps.NotificationService,
			scheduler.Config{
				CronSpec:     cfg.Scheduler.CronSpec,
				WorkerCount:  cfg.Scheduler.WorkerCount,
				JobDelay:     cfg.Scheduler.JobDelay,
				QueueSize:    cfg.Scheduler.QueueSize,
				RunOnStartup: cfg.Scheduler.RunOnStartup,
			},
			log,
		)
		if err != nil {
			return err
		}

		sched.Start()
		log.Info().Str("cron", cfg.Scheduler.CronSpec).Msg("scheduler started")
	} else {
		log.Info().Msg("scheduler is disabled")
	}

	// HTTP server
	handler := SetupRoutes(deps, cfg, log)
	srv, redirectSrv := StartServers(NewServerConfigFromConfig(handler, cfg), log)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	GracefulShutdown(srv, redirectSrv, sched, 30*time.Second, log)
	return nil
}
