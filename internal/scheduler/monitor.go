package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xela07ax/tunnelops-console/internal/audit"
	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/infra"
)

// RiskAnalyzer — серверный конвейер анализа (internal/risk.Workflow).
type RiskAnalyzer interface {
	Analyze(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error)
}

// Monitor — автономный агент-надзиратель: раз в интервал с небольшой
// вероятностью разыгрывает рисковый сценарий, гоняет его через конвейер
// и вещает результат в топик agent-status. Клиентские стены рендерят
// его по auto-trigger пути, без собственного вызова анализа.
type Monitor struct {
	workflow RiskAnalyzer
	bus      Publisher
	journal  audit.Recorder // nil, если журнал не сконфигурирован
	logger   *zap.Logger
	cfg      infra.AgentConfig

	// Кулдаун между срабатываниями, чтобы стена не мигала сценариями
	limiter *rate.Limiter
}

func NewMonitor(workflow RiskAnalyzer, bus Publisher, journal audit.Recorder, cfg infra.AgentConfig, logger *zap.Logger) *Monitor {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &Monitor{
		workflow: workflow,
		bus:      bus,
		journal:  journal,
		logger:   logger.Named("risk-monitor"),
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cooldown), 1),
	}
}

type scenario struct {
	riskType domain.RiskType
	data     func() map[string]any
	location string
}

var scenarios = []scenario{
	{
		riskType: domain.RiskGas,
		location: "回风管路 A1段",
		data: func() map[string]any {
			return map[string]any{"ch4": 0.8 + rand.Float64()*0.7, "trend": "rising"}
		},
	},
	{
		riskType: domain.RiskPersonnel,
		location: "管片拼装区 B2段",
		data: func() map[string]any {
			return map[string]any{"distance": 0.5 + rand.Float64(), "confidence": 98.5}
		},
	},
	{
		riskType: domain.RiskVehicle,
		location: "后配套物流通道",
		data: func() map[string]any {
			return map[string]any{"speed": 15 + rand.Intn(11), "proximity": 3.0}
		},
	},
}

// Run блокируется до отмены контекста.
func (m *Monitor) Run(ctx context.Context) {
	if !m.cfg.AutoMonitor {
		m.logger.Info("autonomous risk monitor disabled by config")
		return
	}
	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	// Разыгрываем срабатывание с вероятностью 20%
	if rand.Float64() > 0.2 {
		return
	}
	if !m.limiter.Allow() {
		return
	}

	sc := scenarios[rand.Intn(len(scenarios))]
	m.logger.Info("autonomous monitor intervening",
		zap.String("risk_type", string(sc.riskType)),
		zap.String("location", sc.location))

	m.bus.Publish(ctx, domain.TopicAgentStatus, domain.ChanAgent, domain.AgentFrame{
		State:   "detecting",
		Message: "监测到 " + sc.location + " 异常数据，智能体介入分析中...",
	})

	started := time.Now()
	resp, err := m.workflow.Analyze(ctx, domain.AnalyzeRequest{
		RiskType:   sc.riskType,
		SensorData: sc.data(),
		Location:   sc.location,
	})
	if err != nil {
		m.logger.Error("autonomous analysis failed", zap.Error(err))
		m.record(sc, audit.EpisodeRecord{Status: audit.StatusFailed, Error: err.Error()}, started)
		return
	}
	m.record(sc, audit.EpisodeRecord{
		Status:    audit.StatusSuccess,
		RiskLevel: resp.RiskLevel,
		Analysis:  resp.Analysis,
		Report:    resp.Report,
		PlanSteps: len(resp.DecisionPlan),
	}, started)

	m.bus.Publish(ctx, domain.TopicAgentStatus, domain.ChanAgent, domain.AgentFrame{
		State:         "completed",
		RiskType:      sc.riskType,
		RiskLevel:     resp.RiskLevel,
		PlanCount:     len(resp.DecisionPlan),
		AutoTriggered: true,
		Result: &domain.AgentResult{
			Analysis:     resp.Analysis,
			DecisionPlan: resp.DecisionPlan,
			Report:       resp.Report,
		},
	})
	m.logger.Info("autonomous analysis completed",
		zap.String("risk_type", string(sc.riskType)),
		zap.String("risk_level", resp.RiskLevel))
}

func (m *Monitor) record(sc scenario, rec audit.EpisodeRecord, started time.Time) {
	if m.journal == nil {
		return
	}
	rec.ID = uuid.NewString()
	rec.RiskType = string(sc.riskType)
	rec.Location = sc.location
	rec.Trigger = audit.TriggerAuto
	rec.Timestamp = started
	rec.DurationMs = time.Since(started).Milliseconds()
	m.journal.Record(rec)
}
