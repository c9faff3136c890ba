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

// DashboardAPI — срез REST-клиента, нужный главному экрану.
// Интерфейс объявлен у потребителя, реализацию дает connectors.ConsoleClient.
type DashboardAPI interface {
	DashboardSummary(ctx context.Context) (*domain.DashboardSummary, error)
	DashboardNotifications(ctx context.Context) ([]domain.Notification, error)
	DashboardSupplies(ctx context.Context) (map[string]int, error)
	DashboardDispatch(ctx context.Context) ([]domain.DispatchItem, error)
	DashboardTimeseries(ctx context.Context) (*domain.TimeseriesSnapshot, error)
}

// Dashboard агрегирует состояние главного экрана. Mutex заменяет
// однопоточный UI: кадры потока и читатели снапшотов не пересекаются.
type Dashboard struct {
	mu     sync.Mutex
	logger *zap.Logger

	summary       *domain.DashboardSummary
	notifications []domain.Notification
	supplies      map[string]int
	dispatch      []domain.DispatchItem

	advanceSpeed     *series.Ring[domain.SeriesPoint]
	slurryPressure   *series.Ring[domain.SeriesPoint]
	gasConcentration *series.Ring[domain.SeriesPoint]
}

func NewDashboard(logger *zap.Logger, seriesCap int) *Dashboard {
	if seriesCap <= 0 {
		seriesCap = series.DefaultCap
	}
	return &Dashboard{
		logger:           logger.Named("view-dashboard"),
		advanceSpeed:     series.NewRing[domain.SeriesPoint](seriesCap),
		slurryPressure:   series.NewRing[domain.SeriesPoint](seriesCap),
		gasConcentration: series.NewRing[domain.SeriesPoint](seriesCap),
	}
}

// Load — стартовая пакетная загрузка. Результаты применяются только
// после успеха всех запросов; любая ошибка ставит демо-набор целиком.
func (d *Dashboard) Load(ctx context.Context, api DashboardAPI) {
	var (
		sum  *domain.DashboardSummary
		ntf  []domain.Notification
		sup  map[string]int
		dsp  []domain.DispatchItem
		snap *domain.TimeseriesSnapshot
	)
	err := runAll(ctx,
		func(ctx context.Context) (e error) { sum, e = api.DashboardSummary(ctx); return },
		func(ctx context.Context) (e error) { ntf, e = api.DashboardNotifications(ctx); return },
		func(ctx context.Context) (e error) { sup, e = api.DashboardSupplies(ctx); return },
		func(ctx context.Context) (e error) { dsp, e = api.DashboardDispatch(ctx); return },
		func(ctx context.Context) (e error) { snap, e = api.DashboardTimeseries(ctx); return },
	)
	if err != nil {
		d.logger.Warn("initial dashboard fetch failed, installing demo baseline", zap.Error(err))
		sum = baselineSummary()
		ntf = baselineNotifications()
		sup = baselineSupplies()
		dsp = baselineDispatch()
		snap = &domain.TimeseriesSnapshot{
			AdvanceSpeed:     baselineSeries(60, func(i int) float64 { return 1.2 + float64(i)*0.01 }),
			SlurryPressure:   baselineSeries(60, func(i int) float64 { return 1.8 + float64(i%5)*0.02 }),
			GasConcentration: baselineSeries(60, func(i int) float64 { return 0.1 + float64(i%3)*0.01 }),
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.summary = sum
	d.notifications = ntf
	d.supplies = sup
	d.dispatch = dsp
	d.advanceSpeed.Replace(snap.AdvanceSpeed)
	d.slurryPressure.Replace(snap.SlurryPressure)
	d.gasConcentration.Replace(snap.GasConcentration)
}

// Handlers — таблица маршрутизации кадров по имени канала.
func (d *Dashboard) Handlers() stream.Handlers {
	return stream.Handlers{
		domain.ChanAdvanceSpeed:     d.appendTo(d.advanceSpeed),
		domain.ChanSlurryPressure:   d.appendTo(d.slurryPressure),
		domain.ChanGasConcentration: d.appendTo(d.gasConcentration),
		domain.ChanDashboardSummary: d.mergeSummary,
	}
}

func (d *Dashboard) appendTo(ring *series.Ring[domain.SeriesPoint]) stream.Handler {
	return func(payload json.RawMessage) {
		var p domain.SeriesPoint
		if err := json.Unmarshal(payload, &p); err != nil {
			d.logger.Warn("bad series point payload", zap.Error(err))
			return
		}
		d.mu.Lock()
		ring.Append(p)
		d.mu.Unlock()
	}
}

// mergeSummary накатывает частичный апдейт по полям. Пока нет полной
// сводки из Load, патч отбрасывается: неполную сводку не показываем.
func (d *Dashboard) mergeSummary(payload json.RawMessage) {
	var patch domain.SummaryPatch
	if err := json.Unmarshal(payload, &patch); err != nil {
		d.logger.Warn("bad summary patch payload", zap.Error(err))
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.summary == nil {
		return
	}
	if patch.CameraOnline != nil {
		d.summary.CameraOnline = *patch.CameraOnline
	}
	if patch.CameraTotal != nil {
		d.summary.CameraTotal = *patch.CameraTotal
	}
	if patch.RingToday != nil {
		d.summary.RingToday = *patch.RingToday
	}
	if patch.RingCumulative != nil {
		d.summary.RingCumulative = *patch.RingCumulative
	}
	if patch.MuckToday != nil {
		d.summary.MuckToday = *patch.MuckToday
	}
	if patch.SlurryPressAvg != nil {
		d.summary.SlurryPressAvg = *patch.SlurryPressAvg
	}
	if patch.GasAlerts != nil {
		d.summary.GasAlerts = *patch.GasAlerts
	}
}

// Summary возвращает копию сводки; nil пока страница не загружена.
func (d *Dashboard) Summary() *domain.DashboardSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.summary == nil {
		return nil
	}
	cp := *d.summary
	return &cp
}

func (d *Dashboard) Timeseries() *domain.TimeseriesSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &domain.TimeseriesSnapshot{
		AdvanceSpeed:     d.advanceSpeed.Items(),
		SlurryPressure:   d.slurryPressure.Items(),
		GasConcentration: d.gasConcentration.Items(),
	}
}

func (d *Dashboard) Notifications() []domain.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Notification, len(d.notifications))
	copy(out, d.notifications)
	return out
}

func (d *Dashboard) Dispatch() []domain.DispatchItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.DispatchItem, len(d.dispatch))
	copy(out, d.dispatch)
	return out
}

func (d *Dashboard) Supplies() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.supplies))
	for k, v := range d.supplies {
		out[k] = v
	}
	return out
}
