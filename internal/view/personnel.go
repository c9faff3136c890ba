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

type PersonnelAPI interface {
	PersonnelStats(ctx context.Context) (*domain.PersonnelStats, error)
	PersonnelDistribution(ctx context.Context) ([]domain.TeamShare, error)
	PersonnelList(ctx context.Context) ([]domain.Worker, error)
	PersonnelAttendanceTrend(ctx context.Context) ([]domain.SeriesPoint, error)
}

type Personnel struct {
	mu     sync.Mutex
	logger *zap.Logger

	stats        *domain.PersonnelStats
	distribution []domain.TeamShare
	workers      []domain.Worker
	attendance   *series.Ring[domain.SeriesPoint]
}

func NewPersonnel(logger *zap.Logger, seriesCap int) *Personnel {
	if seriesCap <= 0 {
		seriesCap = series.DefaultCap
	}
	return &Personnel{
		logger:     logger.Named("view-personnel"),
		attendance: series.NewRing[domain.SeriesPoint](seriesCap),
	}
}

func (p *Personnel) Load(ctx context.Context, api PersonnelAPI) {
	var (
		stats *domain.PersonnelStats
		dist  []domain.TeamShare
		list  []domain.Worker
		trend []domain.SeriesPoint
	)
	err := runAll(ctx,
		func(ctx context.Context) (e error) { stats, e = api.PersonnelStats(ctx); return },
		func(ctx context.Context) (e error) { dist, e = api.PersonnelDistribution(ctx); return },
		func(ctx context.Context) (e error) { list, e = api.PersonnelList(ctx); return },
		func(ctx context.Context) (e error) { trend, e = api.PersonnelAttendanceTrend(ctx); return },
	)
	if err != nil {
		p.logger.Warn("initial personnel fetch failed, installing demo baseline", zap.Error(err))
		stats = baselinePersonnelStats()
		dist = baselineDistribution()
		list = baselineWorkers()
		trend = baselineSeries(60, func(i int) float64 { return 80 + float64(i%10) })
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = stats
	p.distribution = dist
	p.workers = list
	p.attendance.Replace(trend)
}

func (p *Personnel) Handlers() stream.Handlers {
	return stream.Handlers{
		domain.ChanAttendanceTrend: func(payload json.RawMessage) {
			var pt domain.SeriesPoint
			if err := json.Unmarshal(payload, &pt); err != nil {
				p.logger.Warn("bad attendance point payload", zap.Error(err))
				return
			}
			p.mu.Lock()
			p.attendance.Append(pt)
			p.mu.Unlock()
		},
		domain.ChanPersonnelStats: p.mergeStats,
	}
}

func (p *Personnel) mergeStats(payload json.RawMessage) {
	var patch domain.PersonnelStatsPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		p.logger.Warn("bad personnel stats payload", zap.Error(err))
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stats == nil {
		return
	}
	if patch.TotalOnSite != nil {
		p.stats.TotalOnSite = *patch.TotalOnSite
	}
	if patch.AttendanceRate != nil {
		p.stats.AttendanceRate = *patch.AttendanceRate
	}
	if patch.Violations != nil {
		p.stats.Violations = *patch.Violations
	}
	if patch.Managers != nil {
		p.stats.Managers = *patch.Managers
	}
}

func (p *Personnel) Stats() *domain.PersonnelStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stats == nil {
		return nil
	}
	cp := *p.stats
	return &cp
}

func (p *Personnel) AttendanceTrend() []domain.SeriesPoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attendance.Items()
}

func (p *Personnel) Distribution() []domain.TeamShare {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TeamShare, len(p.distribution))
	copy(out, p.distribution)
	return out
}

func (p *Personnel) Workers() []domain.Worker {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Worker, len(p.workers))
	copy(out, p.workers)
	return out
}
