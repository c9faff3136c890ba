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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/audit"
	"github.com/xela07ax/tunnelops-console/internal/connectors"
	"github.com/xela07ax/tunnelops-console/internal/console/handler"
	"github.com/xela07ax/tunnelops-console/internal/console/server"
	"github.com/xela07ax/tunnelops-console/internal/console/service"
	"github.com/xela07ax/tunnelops-console/internal/hub"
	"github.com/xela07ax/tunnelops-console/internal/infra"
	"github.com/xela07ax/tunnelops-console/internal/metrics"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
	"github.com/xela07ax/tunnelops-console/internal/risk"
	"github.com/xela07ax/tunnelops-console/internal/scheduler"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла фоновых горутин: SIGTERM гасит всех
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(appCtx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// Redis опционален: без него hub работает локально, кэш выключен
		logger.Warn("redis unreachable, running without bus bridge and cache", zap.Error(err))
		rdb = nil
	}
	pingCancel()

	// База телеметрии тоже опциональна — сервисы умеют в demo-данные
	var repo service.TelemetryRepository
	var src scheduler.SensorSource
	var journal audit.Recorder
	if cfg.Database.URL != "" {
		pgRepo, err := postgres.NewTelemetryRepo(cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			logger.Warn("postgres init failed, serving demo data", zap.Error(err))
		} else {
			dbCtx, dbCancel := context.WithTimeout(appCtx, 5*time.Second)
			if err := pgRepo.Ping(dbCtx); err != nil {
				logger.Warn("postgres unreachable, serving demo data", zap.Error(err))
			} else {
				repo = pgRepo
				src = pgRepo
				defer pgRepo.Close()

				// Журнал эпизодов живет только при живой базе.
				// Stop деферится после Close и потому отработает раньше.
				j := audit.NewJournal(pgRepo, logger)
				j.Start()
				defer j.Stop()
				journal = j
			}
			dbCancel()
		}
	} else {
		logger.Info("database.url is empty, serving demo data")
	}

	// 3. Метрики
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics endpoint started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	// 4. Шина кадров: hub + redis мост (мульти-реплика)
	h := hub.New(logger, m)
	bus := hub.NewBus(h, rdb, logger)
	if rdb != nil {
		go bus.ListenResilient(appCtx)
	}

	// 5. LLM: connector -> Reliability (Rate Limit, CB, Retries)
	var llm connectors.ChatProvider
	base, err := connectors.NewOpenAIConnector(cfg.AI, logger)
	switch {
	case err == nil:
		llm = connectors.NewReliableChat(base, cfg.AI, m)
	case errors.Is(err, connectors.ErrNoCredential):
		logger.Warn("llm api key is not set, ai features degraded")
		llm = connectors.UnconfiguredProvider{}
	default:
		logger.Fatal("llm connector init failed", zap.Error(err))
	}

	workflow := risk.NewWorkflow(llm, risk.NewKnowledgeBase(), logger)

	// 6. Сервисы и обработчики (Dependency Injection)
	dashService := service.NewDashboardService(repo, rdb, logger)
	personnelService := service.NewPersonnelService(repo, logger)
	progressService := service.NewProgressService(repo, logger)
	safetyService := service.NewSafetyService(repo, logger)
	videoService := service.NewVideoService(true)

	srv := server.NewConsoleServer(
		cfg,
		logger,
		handler.NewDashboardHandler(dashService),
		handler.NewPersonnelHandler(personnelService),
		handler.NewProgressHandler(progressService),
		handler.NewSafetyHandler(safetyService),
		handler.NewVideoHandler(videoService),
		handler.NewStreamHandler(h, cfg.Stream.Heartbeat, logger),
		handler.NewAgentHandler(workflow, journal, logger),
		handler.NewAIHandler(llm, logger),
	)

	// 7. Фоновые задачи: пушер телеметрии и автономный монитор рисков
	go scheduler.NewPusher(src, bus, logger).Run(appCtx)
	go scheduler.NewMonitor(workflow, bus, journal, cfg.Agent, logger).Run(appCtx)

	// 8. HTTP Server + Graceful Shutdown
	httpSrv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     srv,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout остается нулевым: SSE-коннекты живут часами
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("console api started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("console stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("console exited properly")
}
