package view

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// fakeDashboardAPI отдает фиксированный снапшот; failSupplies валит
// один запрос из пакета.
type fakeDashboardAPI struct {
	failSupplies bool
}

func (f *fakeDashboardAPI) DashboardSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	return &domain.DashboardSummary{
		ProjectName: "живой проект", CameraOnline: 10, CameraTotal: 16,
		RingToday: 7, RingCumulative: 200, MuckToday: 350, SlurryPressAvg: 2.1,
	}, nil
}

func (f *fakeDashboardAPI) DashboardNotifications(ctx context.Context) ([]domain.Notification, error) {
	return []domain.Notification{{Time: "10:00:00", Type: "通知", Content: "live"}}, nil
}

func (f *fakeDashboardAPI) DashboardSupplies(ctx context.Context) (map[string]int, error) {
	if f.failSupplies {
		return nil, errors.New("supplies endpoint down")
	}
	return map[string]int{"水泥": 1}, nil
}

func (f *fakeDashboardAPI) DashboardDispatch(ctx context.Context) ([]domain.DispatchItem, error) {
	return []domain.DispatchItem{{Time: "10:00:00", Type: "人员", Unit: "掘进班", Status: "到岗"}}, nil
}

func (f *fakeDashboardAPI) DashboardTimeseries(ctx context.Context) (*domain.TimeseriesSnapshot, error) {
	return &domain.TimeseriesSnapshot{
		AdvanceSpeed: []domain.SeriesPoint{{TS: "t0", Value: 1.5}},
	}, nil
}

func TestDashboardLoadCommitsBatch(t *testing.T) {
	d := NewDashboard(zap.NewNop(), 0)
	d.Load(context.Background(), &fakeDashboardAPI{})

	sum := d.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, "живой проект", sum.ProjectName)
	assert.Equal(t, map[string]int{"水泥": 1}, d.Supplies())
	require.Len(t, d.Timeseries().AdvanceSpeed, 1)
	assert.Equal(t, 1.5, d.Timeseries().AdvanceSpeed[0].Value)
}

func TestDashboardBatchIsAllOrNothing(t *testing.T) {
	d := NewDashboard(zap.NewNop(), 0)
	d.Load(context.Background(), &fakeDashboardAPI{failSupplies: true})

	// Один упавший запрос из пяти — весь пакет уходит в демо-набор,
	// успевшие ответы не применяются частично.
	sum := d.Summary()
	require.NotNil(t, sum)
	assert.Equal(t, "隧道监测项目", sum.ProjectName)
	assert.NotEmpty(t, d.Supplies())
	assert.Len(t, d.Timeseries().AdvanceSpeed, 60)
}

func TestSummaryShallowMerge(t *testing.T) {
	d := NewDashboard(zap.NewNop(), 0)
	d.Load(context.Background(), &fakeDashboardAPI{})

	h := d.Handlers()[domain.ChanDashboardSummary]
	require.NotNil(t, h)

	h(json.RawMessage(`{"ringToday": 8}`))
	h(json.RawMessage(`{"gasAlerts": 2}`))

	sum := d.Summary()
	// Пришедшие поля перезаписаны, остальные не тронуты
	assert.Equal(t, 8, sum.RingToday)
	assert.Equal(t, 2, sum.GasAlerts)
	assert.Equal(t, 200, sum.RingCumulative)
	assert.Equal(t, "живой проект", sum.ProjectName)
}

func TestSummaryMergeIntoUnsetIsNoop(t *testing.T) {
	d := NewDashboard(zap.NewNop(), 0)
	// Load не вызывался: сводки нет, патч обязан пропасть

	d.Handlers()[domain.ChanDashboardSummary](json.RawMessage(`{"ringToday": 8}`))

	assert.Nil(t, d.Summary(), "partial update must never create a partial summary")
}

func TestSeriesAppendAndTrim(t *testing.T) {
	d := NewDashboard(zap.NewNop(), 5)
	h := d.Handlers()[domain.ChanAdvanceSpeed]

	for i := 0; i < 8; i++ {
		raw, _ := json.Marshal(domain.SeriesPoint{TS: "t", Value: float64(i)})
		h(raw)
	}

	got := d.Timeseries().AdvanceSpeed
	require.Len(t, got, 5)
	// FIFO: остаются последние пять
	assert.Equal(t, 3.0, got[0].Value)
	assert.Equal(t, 7.0, got[4].Value)
}

func TestBadPayloadIsSkipped(t *testing.T) {
	d := NewDashboard(zap.NewNop(), 0)
	d.Load(context.Background(), &fakeDashboardAPI{})

	d.Handlers()[domain.ChanAdvanceSpeed](json.RawMessage(`{"ts": 12`))
	d.Handlers()[domain.ChanDashboardSummary](json.RawMessage(`not json`))

	assert.Len(t, d.Timeseries().AdvanceSpeed, 1)
	assert.Equal(t, "живой проект", d.Summary().ProjectName)
}
