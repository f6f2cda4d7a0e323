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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"accounts-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	codec, err := core.NewTokenCodec([]byte(cfg.JWTKey))
	if err != nil {
		log.Fatalf("failed to init token codec: %v", err)
	}

	users, closeStore, err := core.OpenUserStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open user store: %v", err)
	}
	defer closeStore()

	hostname, _ := os.Hostname()
	state := core.NewDispatcherState(core.NewInstanceID(), hostname, cfg.BlockingPermits, cfg.HeartbeatInterval)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dispatcher := core.NewDispatcher(cfg.BlockingPermits,
		core.WithDispatcherState(state),
		core.WithMetricsRegisterer(reg),
	)

	var status *core.StatusService
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		status = core.NewStatusService(redisClient)
		go state.Start(ctx, redisClient, logger)
	}

	accounts := core.NewAccountService(users, codec, dispatcher, cfg.BcryptCost, logger)
	if err := core.BootstrapAccount(ctx, users, accounts, cfg, logger); err != nil {
		log.Fatalf("bootstrap account failed: %v", err)
	}

	router := core.NewRouter(cfg, core.RouterDeps{
		Logger:   logger,
		Accounts: accounts,
		Codec:    codec,
		State:    state,
		Status:   status,
		Gatherer: reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("starting api server", "addr", srv.Addr, "permits", dispatcher.Permits())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
