package view

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/series"
	"github.com/xela07ax/tunnelops-console/internal/stream"
)

type SafetyAPI interface {
	SafetyRisks(ctx context.Context) ([]domain.RiskItem, error)
	SafetySettlement(ctx context.Context) (*domain.SettlementSnapshot, error)
	SafetyScore(ctx context.Context) (int, error)
	SafetyAlarmTrend(ctx context.Context) ([]domain.SeriesPoint, error)
}

type Safety struct {
	mu     sync.Mutex
	logger *zap.Logger

	risks   []domain.RiskItem
	score   int
	actual  *series.Ring[domain.SeriesPoint]
	predict *series.Ring[domain.SeriesPoint]
	alarms  *series.Ring[domain.SeriesPoint]
}

func NewSafety(logger *zap.Logger, seriesCap int) *Safety {
	if seriesCap <= 0 {
		seriesCap = series.DefaultCap
	}
	return &Safety{
		logger:  logger.Named("view-safety"),
		actual:  series.NewRing[domain.SeriesPoint](seriesCap),
		predict: series.NewRing[domain.SeriesPoint](seriesCap),
		alarms:  series.NewRing[domain.SeriesPoint](seriesCap),
	}
}

func (s *Safety) Load(ctx context.Context, api SafetyAPI) {
	var (
		risks      []domain.RiskItem
		settlement *domain.SettlementSnapshot
		score      int
		alarms     []domain.SeriesPoint
	)
	err := runAll(ctx,
		func(ctx context.Context) (e error) { risks, e = api.SafetyRisks(ctx); return },
		func(ctx context.Context) (e error) { settlement, e = api.SafetySettlement(ctx); return },
		func(ctx context.Context) (e error) { score, e = api.SafetyScore(ctx); return },
		func(ctx context.Context) (e error) { alarms, e = api.SafetyAlarmTrend(ctx); return },
	)
	if err != nil {
		s.logger.Warn("initial safety fetch failed, installing demo baseline", zap.Error(err))
		risks = baselineRisks()
		score = 96
		settlement = &domain.SettlementSnapshot{
			Actual:  baselineSeries(40, func(i int) float64 { return float64(i%7) * 0.5 }),
			Predict: baselineSeries(40, func(i int) float64 { return float64(i%7) * 0.6 }),
		}
		alarms = baselineSeries(60, func(i int) float64 { return float64(i % 5) })
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.risks = risks
	s.score = score
	s.actual.Replace(settlement.Actual)
	s.predict.Replace(settlement.Predict)
	s.alarms.Replace(alarms)
}

func (s *Safety) Handlers() stream.Handlers {
	return stream.Handlers{
		domain.ChanSettlementActual:  s.appendTo(s.actual, "settlement actual"),
		domain.ChanSettlementPredict: s.appendTo(s.predict, "settlement predict"),
		domain.ChanAlarmTrend:        s.appendTo(s.alarms, "alarm trend"),
	}
}

func (s *Safety) appendTo(ring *series.Ring[domain.SeriesPoint], what string) stream.Handler {
	return func(payload json.RawMessage) {
		var pt domain.SeriesPoint
		if err := json.Unmarshal(payload, &pt); err != nil {
			s.logger.Warn("bad series point payload", zap.String("series", what), zap.Error(err))
			return
		}
		s.mu.Lock()
		ring.Append(pt)
		s.mu.Unlock()
	}
}

func (s *Safety) Settlement() *domain.SettlementSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &domain.SettlementSnapshot{
		Actual:  s.actual.Items(),
		Predict: s.predict.Items(),
	}
}

func (s *Safety) Risks() []domain.RiskItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RiskItem, len(s.risks))
	copy(out, s.risks)
	return out
}

func (s *Safety) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *Safety) AlarmTrend() []domain.SeriesPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarms.Items()
}
