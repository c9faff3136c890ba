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

type ProgressAPI interface {
	ProgressStats(ctx context.Context) (*domain.ProgressStats, error)
	ProgressGantt(ctx context.Context) ([]domain.GanttTask, error)
	ProgressDailyRings(ctx context.Context) ([]domain.SeriesPoint, error)
}

type Progress struct {
	mu     sync.Mutex
	logger *zap.Logger

	stats      *domain.ProgressStats
	gantt      []domain.GanttTask
	dailyRings *series.Ring[domain.SeriesPoint]
}

func NewProgress(logger *zap.Logger, seriesCap int) *Progress {
	if seriesCap <= 0 {
		seriesCap = series.DefaultCap
	}
	return &Progress{
		logger:     logger.Named("view-progress"),
		dailyRings: series.NewRing[domain.SeriesPoint](seriesCap),
	}
}

func (p *Progress) Load(ctx context.Context, api ProgressAPI) {
	var (
		stats *domain.ProgressStats
		gantt []domain.GanttTask
		rings []domain.SeriesPoint
	)
	err := runAll(ctx,
		func(ctx context.Context) (e error) { stats, e = api.ProgressStats(ctx); return },
		func(ctx context.Context) (e error) { gantt, e = api.ProgressGantt(ctx); return },
		func(ctx context.Context) (e error) { rings, e = api.ProgressDailyRings(ctx); return },
	)
	if err != nil {
		p.logger.Warn("initial progress fetch failed, installing demo baseline", zap.Error(err))
		stats = baselineProgressStats()
		gantt = baselineGantt()
		rings = baselineSeries(60, func(i int) float64 { return 3 + float64(i%4) })
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = stats
	p.gantt = gantt
	p.dailyRings.Replace(rings)
}

func (p *Progress) Handlers() stream.Handlers {
	return stream.Handlers{
		domain.ChanDailyRings: func(payload json.RawMessage) {
			var pt domain.SeriesPoint
			if err := json.Unmarshal(payload, &pt); err != nil {
				p.logger.Warn("bad daily rings payload", zap.Error(err))
				return
			}
			p.mu.Lock()
			p.dailyRings.Append(pt)
			p.mu.Unlock()
		},
		domain.ChanProgressStats: p.mergeStats,
	}
}

func (p *Progress) mergeStats(payload json.RawMessage) {
	var patch domain.ProgressStatsPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		p.logger.Warn("bad progress stats payload", zap.Error(err))
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stats == nil {
		return
	}
	if patch.TotalRings != nil {
		p.stats.TotalRings = *patch.TotalRings
	}
	if patch.TotalGoal != nil {
		p.stats.TotalGoal = *patch.TotalGoal
	}
	if patch.DailyRings != nil {
		p.stats.DailyRings = *patch.DailyRings
	}
	if patch.RemainingDays != nil {
		p.stats.RemainingDays = *patch.RemainingDays
	}
	if patch.Value != nil {
		p.stats.Value = *patch.Value
	}
}

func (p *Progress) Stats() *domain.ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stats == nil {
		return nil
	}
	cp := *p.stats
	return &cp
}

func (p *Progress) DailyRings() []domain.SeriesPoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dailyRings.Items()
}

func (p *Progress) Gantt() []domain.GanttTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.GanttTask, len(p.gantt))
	copy(out, p.gantt)
	return out
}
