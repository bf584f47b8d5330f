package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/mrivas/taskpool/internal/adminapi"
	"github.com/mrivas/taskpool/internal/config"
	"github.com/mrivas/taskpool/internal/connmanager"
	"github.com/mrivas/taskpool/internal/events"
	"github.com/mrivas/taskpool/internal/logger"
	"github.com/mrivas/taskpool/internal/monitor"
	"github.com/mrivas/taskpool/internal/pool"
	"github.com/mrivas/taskpool/internal/task"
)

var (
	serveRedisAddr string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a pool with its admin API and dashboard websocket",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveRedisAddr, "redis-addr", "", "optional Redis address for event fan-out (disabled when empty)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("starting pool")

	var remote []events.Publisher
	if serveRedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: serveRedisAddr})
		pub := events.NewRedisPublisher(client, 2*time.Second)
		remote = append(remote, pub)
		defer pub.Close()
	}
	bus := events.NewBus(remote...)
	defer bus.Close()

	p := pool.New(pool.Config{
		Name:                      cfg.Pool.Name,
		Size:                      cfg.Pool.Size,
		WorkerHeartbeat:           cfg.Pool.WorkerHeartbeat,
		HeartbeatInitWindow:       cfg.Pool.HeartbeatInitWindow,
		WorkerInactivityThreshold: cfg.Pool.WorkerInactivityThreshold,
		HeartbeatsMissLimit:       cfg.Pool.HeartbeatsMissLimit,
		TaskRetriesLimit:          cfg.Pool.TaskRetriesLimit,
		MaxActiveLoopSleep:        cfg.Pool.MaxActiveLoopSleep,
		Runpath:                   cfg.Pool.Runpath,
	}, connmanager.NewRoundRobin(), pool.LogSink{})
	p.SetPublisher(bus)
	p.SetRescheduleCheck(func(p *pool.Pool, result *task.Result) bool {
		return !result.Status && result.Task.Target() == "flaky"
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("start pool: %w", err)
	}

	mon := monitor.New(p, monitor.Config{
		WorkerHeartbeat:           cfg.Pool.WorkerHeartbeat,
		HeartbeatInitWindow:       cfg.Pool.HeartbeatInitWindow,
		WorkerInactivityThreshold: cfg.Pool.WorkerInactivityThreshold,
		HeartbeatsMissLimit:       cfg.Pool.HeartbeatsMissLimit,
	})
	if mon.Enabled() {
		go mon.Start(ctx, p.Done())
	}

	server := adminapi.NewServer(cfg, p, demoFactory, bus)
	server.Start(ctx)
	defer server.Stop()

	httpServer := adminapi.HTTPServer(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		server,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout,
	)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("admin API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("admin API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	p.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("admin API shutdown error")
	}

	log.Info().Msg("pool stopped")
	return nil
}
