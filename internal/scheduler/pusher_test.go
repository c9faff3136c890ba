package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
)

type published struct {
	topic   string
	channel string
	payload any
}

type captureBus struct {
	mu     sync.Mutex
	frames []published
}

func (b *captureBus) Publish(_ context.Context, topic, channel string, payload any) {
	b.mu.Lock()
	b.frames = append(b.frames, published{topic, channel, payload})
	b.mu.Unlock()
}

func (b *captureBus) byChannel(channel string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, f := range b.frames {
		if f.channel == channel {
			out = append(out, f)
		}
	}
	return out
}

type stubSource struct {
	points  map[string]domain.SeriesPoint
	summary *domain.DashboardSummary
}

func (s *stubSource) LatestPoint(_ context.Context, table string) (domain.SeriesPoint, error) {
	if pt, ok := s.points[table]; ok {
		return pt, nil
	}
	return domain.SeriesPoint{}, postgres.ErrNoRows
}

func (s *stubSource) LatestSummary(context.Context) (*domain.DashboardSummary, error) {
	if s.summary == nil {
		return nil, errors.New("summary unavailable")
	}
	return s.summary, nil
}

func (s *stubSource) LatestPersonnelStats(context.Context) (*domain.PersonnelStats, error) {
	return &domain.PersonnelStats{TotalOnSite: 51, AttendanceRate: "95%", Violations: 1, Managers: 7}, nil
}

func (s *stubSource) LatestProgressStats(context.Context) (*domain.ProgressStats, error) {
	return nil, errors.New("progress unavailable")
}

func TestPushDashboardFromSource(t *testing.T) {
	bus := &captureBus{}
	src := &stubSource{
		points: map[string]domain.SeriesPoint{
			postgres.TableGasConcentration: {TS: "2026-08-29T08:00:00Z", Value: 0.42},
		},
		summary: &domain.DashboardSummary{RingToday: 8, GasAlerts: 2},
	}
	p := NewPusher(src, bus, zap.NewNop())

	p.pushDashboard(context.Background())

	gas := bus.byChannel(domain.ChanGasConcentration)
	require.Len(t, gas, 1)
	assert.Equal(t, 0.42, gas[0].payload.(domain.SeriesPoint).Value)

	patches := bus.byChannel(domain.ChanDashboardSummary)
	require.Len(t, patches, 1)
	patch := patches[0].payload.(domain.SummaryPatch)
	assert.Equal(t, 8, *patch.RingToday)
	assert.Equal(t, 2, *patch.GasAlerts)
}

// Пустая база — синтетика по всем сериям, сводка не публикуется.
func TestPushDashboardSynthFallback(t *testing.T) {
	bus := &captureBus{}
	p := NewPusher(nil, bus, zap.NewNop())

	p.pushDashboard(context.Background())

	assert.Len(t, bus.byChannel(domain.ChanAdvanceSpeed), 1)
	assert.Len(t, bus.byChannel(domain.ChanSlurryPressure), 1)
	assert.Len(t, bus.byChannel(domain.ChanGasConcentration), 1)
	assert.Empty(t, bus.byChannel(domain.ChanDashboardSummary))

	pt := bus.byChannel(domain.ChanGasConcentration)[0].payload.(domain.SeriesPoint)
	assert.InDelta(t, 0.1, pt.Value, 0.031)
	assert.NotEmpty(t, pt.TS)
}

func TestPushPersonnelPrefersSourceStats(t *testing.T) {
	bus := &captureBus{}
	p := NewPusher(&stubSource{}, bus, zap.NewNop())

	p.pushPersonnel(context.Background())

	stats := bus.byChannel(domain.ChanPersonnelStats)
	require.Len(t, stats, 1)
	assert.Equal(t, 51, stats[0].payload.(*domain.PersonnelStats).TotalOnSite)
}

// Сбой чтения статистики прогресса — уходит demo-набор, а не ничего.
func TestPushProgressFallsBackToDemoStats(t *testing.T) {
	bus := &captureBus{}
	p := NewPusher(&stubSource{}, bus, zap.NewNop())

	p.pushProgress(context.Background())

	stats := bus.byChannel(domain.ChanProgressStats)
	require.Len(t, stats, 1)
	assert.Equal(t, 130, stats[0].payload.(*domain.ProgressStats).TotalRings)
}

func TestPushSafetyPublishesThreeSeries(t *testing.T) {
	bus := &captureBus{}
	p := NewPusher(nil, bus, zap.NewNop())

	p.pushSafety(context.Background())

	assert.Len(t, bus.byChannel(domain.ChanSettlementActual), 1)
	assert.Len(t, bus.byChannel(domain.ChanSettlementPredict), 1)
	assert.Len(t, bus.byChannel(domain.ChanAlarmTrend), 1)
}
