// Package scheduler — фоновые задачи консоли: периодическая публикация
// телеметрии в поток и автономный мониторинг рисков.
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
)

// SensorSource — свежие строки телеметрии. nil-источник допустим:
// пушер целиком живет на синтетике.
type SensorSource interface {
	LatestPoint(ctx context.Context, table string) (domain.SeriesPoint, error)
	LatestSummary(ctx context.Context) (*domain.DashboardSummary, error)
	LatestPersonnelStats(ctx context.Context) (*domain.PersonnelStats, error)
	LatestProgressStats(ctx context.Context) (*domain.ProgressStats, error)
}

// Publisher — шина кадров (hub + redis мост).
type Publisher interface {
	Publish(ctx context.Context, topic, channel string, payload any)
}

// Pusher гонит инкрементальные дельты в поток: по точке на серию плюс
// частичные апдейты сводок. При пустой базе — синтетика с дрожью,
// чтобы графики на стене жили, а не стояли.
type Pusher struct {
	src    SensorSource
	bus    Publisher
	logger *zap.Logger
}

func NewPusher(src SensorSource, bus Publisher, logger *zap.Logger) *Pusher {
	return &Pusher{src: src, bus: bus, logger: logger.Named("pusher")}
}

// Run блокируется до отмены контекста.
func (p *Pusher) Run(ctx context.Context) {
	go p.every(ctx, 2*time.Second, p.pushDashboard)
	go p.every(ctx, 3*time.Second, p.pushPersonnel)
	go p.every(ctx, 3*time.Second, p.pushProgress)
	go p.every(ctx, 4*time.Second, p.pushSafety)
	<-ctx.Done()
}

func (p *Pusher) every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// point отдает свежую точку серии или синтетику base±jitter.
func (p *Pusher) point(ctx context.Context, table string, base, jitter float64) domain.SeriesPoint {
	if p.src != nil {
		if pt, err := p.src.LatestPoint(ctx, table); err == nil {
			return pt
		}
	}
	return domain.SeriesPoint{
		TS:    time.Now().UTC().Format(time.RFC3339),
		Value: base + (rand.Float64()*2-1)*jitter,
	}
}

func (p *Pusher) pushDashboard(ctx context.Context) {
	p.bus.Publish(ctx, domain.TopicDashboard, domain.ChanAdvanceSpeed,
		p.point(ctx, postgres.TableAdvanceSpeed, 1.2, 0.15))
	p.bus.Publish(ctx, domain.TopicDashboard, domain.ChanSlurryPressure,
		p.point(ctx, postgres.TableSlurryPressure, 1.8, 0.2))
	p.bus.Publish(ctx, domain.TopicDashboard, domain.ChanGasConcentration,
		p.point(ctx, postgres.TableGasConcentration, 0.1, 0.03))

	if p.src == nil {
		return
	}
	sum, err := p.src.LatestSummary(ctx)
	if err != nil {
		return
	}
	// Частичный апдейт: projectName и координаты по потоку не меняются
	p.bus.Publish(ctx, domain.TopicDashboard, domain.ChanDashboardSummary, domain.SummaryPatch{
		CameraOnline:   &sum.CameraOnline,
		CameraTotal:    &sum.CameraTotal,
		RingToday:      &sum.RingToday,
		RingCumulative: &sum.RingCumulative,
		MuckToday:      &sum.MuckToday,
		SlurryPressAvg: &sum.SlurryPressAvg,
		GasAlerts:      &sum.GasAlerts,
	})
}

func (p *Pusher) pushPersonnel(ctx context.Context) {
	p.bus.Publish(ctx, domain.TopicPersonnel, domain.ChanAttendanceTrend,
		p.point(ctx, postgres.TableAttendanceTrend, 85, 5))

	stats := &domain.PersonnelStats{TotalOnSite: 48, AttendanceRate: "92%", Violations: 0, Managers: 6}
	if p.src != nil {
		if s, err := p.src.LatestPersonnelStats(ctx); err == nil {
			stats = s
		}
	}
	p.bus.Publish(ctx, domain.TopicPersonnel, domain.ChanPersonnelStats, stats)
}

func (p *Pusher) pushProgress(ctx context.Context) {
	p.bus.Publish(ctx, domain.TopicProgress, domain.ChanDailyRings,
		p.point(ctx, postgres.TableDailyRings, 4, 1))

	stats := &domain.ProgressStats{TotalRings: 130, TotalGoal: 240, DailyRings: 4, RemainingDays: 28, Value: 54}
	if p.src != nil {
		if s, err := p.src.LatestProgressStats(ctx); err == nil {
			stats = s
		}
	}
	p.bus.Publish(ctx, domain.TopicProgress, domain.ChanProgressStats, stats)
}

func (p *Pusher) pushSafety(ctx context.Context) {
	p.bus.Publish(ctx, domain.TopicSafety, domain.ChanSettlementActual,
		p.point(ctx, postgres.TableSettlementActual, 1.0, 0.3))
	p.bus.Publish(ctx, domain.TopicSafety, domain.ChanSettlementPredict,
		p.point(ctx, postgres.TableSettlementPred, 1.2, 0.3))
	p.bus.Publish(ctx, domain.TopicSafety, domain.ChanAlarmTrend,
		p.point(ctx, postgres.TableAlarmTrend, 1, 1))
}
