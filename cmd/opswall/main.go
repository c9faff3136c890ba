// opswall — headless-клиент опер-стены: держит состояние всех страниц
// по живому потоку консоли и периодически снимает его в лог. Тот же
// код состояния, что рендерит фронт, но без фронта — удобно для
// витрин без браузера и для нагрузочных прогонов.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/agent"
	"github.com/xela07ax/tunnelops-console/internal/connectors"
	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/infra"
	"github.com/xela07ax/tunnelops-console/internal/metrics"
	"github.com/xela07ax/tunnelops-console/internal/stream"
	"github.com/xela07ax/tunnelops-console/internal/view"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Метрики клиента (переподключения потока)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort+1)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	api := connectors.NewConsoleClient(cfg.Stream.BaseURL, logger)

	// Страницы: стартовая пакетная загрузка, дальше только дельты потока
	dashboard := view.NewDashboard(logger, cfg.Stream.SeriesCap)
	personnel := view.NewPersonnel(logger, cfg.Stream.SeriesCap)
	progress := view.NewProgress(logger, cfg.Stream.SeriesCap)
	safety := view.NewSafety(logger, cfg.Stream.SeriesCap)

	loadCtx, loadCancel := context.WithTimeout(appCtx, 20*time.Second)
	dashboard.Load(loadCtx, api)
	personnel.Load(loadCtx, api)
	progress.Load(loadCtx, api)
	safety.Load(loadCtx, api)
	loadCancel()

	orch := agent.NewOrchestrator(api, logger)

	// Один long-lived SSE-коннект на топик
	subs := make([]*stream.Subscription, 0, 5)
	subscribe := func(topic string, handlers stream.Handlers) {
		client := stream.NewClient(stream.NewSSEDialer(nil), logger, stream.Options{
			BackoffBase: cfg.Stream.BackoffBase,
			BackoffMax:  cfg.Stream.BackoffMax,
			OnReconnect: func() {
				m.StreamReconnects.WithLabelValues(topic).Inc()
			},
		})
		url := cfg.Stream.BaseURL + "/api/stream/" + topic
		subs = append(subs, client.Subscribe(appCtx, url, handlers))
	}

	subscribe(domain.TopicDashboard, dashboard.Handlers())
	subscribe(domain.TopicPersonnel, personnel.Handlers())
	subscribe(domain.TopicProgress, progress.Handlers())
	subscribe(domain.TopicSafety, safety.Handlers())
	subscribe(domain.TopicAgentStatus, stream.Handlers{
		domain.ChanAgent: orch.HandleAgentFrame,
	})

	// Периодический срез состояния в лог
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				ts := dashboard.Timeseries()
				snap := orch.Snapshot()
				logger.Info("wall state",
					zap.Int("advance_speed_points", len(ts.AdvanceSpeed)),
					zap.Int("gas_points", len(ts.GasConcentration)),
					zap.Int("attendance_points", len(personnel.AttendanceTrend())),
					zap.Int("daily_ring_points", len(progress.DailyRings())),
					zap.Int("alarm_points", len(safety.AlarmTrend())),
					zap.String("agent_state", string(snap.State)),
					zap.Int("agent_plan_steps", len(snap.Plan)))
			}
		}
	}()

	logger.Info("opswall started", zap.String("upstream", cfg.Stream.BaseURL))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("opswall stopping...")
	cancel()
	for _, s := range subs {
		s.Close()
	}
	orch.Wait()
	logger.Info("opswall exited properly")
}
