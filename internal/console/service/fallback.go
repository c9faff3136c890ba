package service

import (
	"time"

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// Фиксированные demo-данные. Политика деградации: если база недоступна
// или пуста, стена показывает правдоподобный статический набор,
// а не пустой экран. Значения — из пусконаладочного стенда.

func fallbackSummary() *domain.DashboardSummary {
	return &domain.DashboardSummary{
		ProjectName:    "隧道监测项目",
		Lat:            31.2304,
		Lng:            121.4737,
		CameraOnline:   12,
		CameraTotal:    16,
		RingToday:      4,
		RingCumulative: 128,
		MuckToday:      300,
		SlurryPressAvg: 1.8,
		GasAlerts:      0,
	}
}

func fallbackNotifications() []domain.Notification {
	now := time.Now().Format("15:04:05")
	return []domain.Notification{
		{Time: now, Type: "通知", Content: "系统已启动"},
		{Time: now, Type: "告警", Content: "气体浓度短时升高"},
		{Time: now, Type: "通知", Content: "管片运输完成一批"},
	}
}

func fallbackSupplies() map[string]int {
	return map[string]int{"水泥": 120, "砂石": 200, "钢筋": 80, "燃料": 60}
}

func fallbackDispatch() []domain.DispatchItem {
	now := time.Now().Format("15:04:05")
	return []domain.DispatchItem{
		{Time: now, Type: "人员", Unit: "注浆班", Status: "到岗"},
		{Time: now, Type: "车辆", Unit: "物资运输", Status: "出发"},
	}
}

func fallbackPersonnelStats() *domain.PersonnelStats {
	return &domain.PersonnelStats{
		TotalOnSite:    48,
		AttendanceRate: "92%",
		Violations:     0,
		Managers:       6,
	}
}

func fallbackDistribution() []domain.TeamShare {
	return []domain.TeamShare{
		{Name: "掘进班", Value: 40},
		{Name: "管片拼装班", Value: 30},
		{Name: "注浆班", Value: 20},
		{Name: "其他", Value: 10},
	}
}

func fallbackWorkers() []domain.Worker {
	return []domain.Worker{
		{ID: "P001", Name: "张三", Team: "掘进班", Location: "盾构机", Time: "08:15", Temp: "36.5", Status: "正常"},
		{ID: "P002", Name: "李四", Team: "注浆班", Location: "注浆站", Time: "08:20", Temp: "36.6", Status: "正常"},
	}
}

func fallbackProgressStats() *domain.ProgressStats {
	return &domain.ProgressStats{
		TotalRings:    130,
		TotalGoal:     240,
		DailyRings:    4,
		RemainingDays: 28,
		Value:         54,
	}
}

func fallbackGantt() []domain.GanttTask {
	return []domain.GanttTask{
		{Name: "区间掘进", Start: "2025-01-01", End: "2025-02-28", Progress: 0.62},
		{Name: "管片拼装", Start: "2025-01-10", End: "2025-03-15", Progress: 0.48},
		{Name: "注浆施工", Start: "2025-01-20", End: "2025-03-25", Progress: 0.33},
	}
}

func fallbackRisks() []domain.RiskItem {
	ts := time.Now().UTC().Format(time.RFC3339)
	return []domain.RiskItem{
		{Level: "高", Name: "气体浓度偏高", Status: "未处理", Desc: "请加强通风", Code: "GAS-01", TS: ts},
		{Level: "中", Name: "浆液压力波动", Status: "处理中", Desc: "监控并调参", Code: "SLURRY-02", TS: ts},
		{Level: "低", Name: "设备维护提醒", Status: "已处理", Desc: "完成例检", Code: "MAINT-03", TS: ts},
	}
}

// synthSeries генерит ряд из n точек по формуле f(i).
func synthSeries(n int, f func(i int) float64) []domain.SeriesPoint {
	ts := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	out := make([]domain.SeriesPoint, n)
	for i := range out {
		out[i] = domain.SeriesPoint{TS: ts, Value: f(i)}
	}
	return out
}

func fallbackAdvanceSpeed() []domain.SeriesPoint {
	return synthSeries(60, func(i int) float64 { return 1.2 + float64(i)*0.01 })
}

func fallbackSlurryPressure() []domain.SeriesPoint {
	return synthSeries(60, func(i int) float64 { return 1.8 + float64(i%5)*0.02 })
}

func fallbackGasConcentration() []domain.SeriesPoint {
	return synthSeries(60, func(i int) float64 { return 0.1 + float64(i%3)*0.01 })
}

func fallbackAttendanceTrend() []domain.SeriesPoint {
	return synthSeries(60, func(i int) float64 { return 80 + float64(i%10) })
}

func fallbackDailyRings() []domain.SeriesPoint {
	return synthSeries(60, func(i int) float64 { return 3 + float64(i%4) })
}

func fallbackSettlementActual() []domain.SeriesPoint {
	return synthSeries(40, func(i int) float64 { return float64(i%7) * 0.5 })
}

func fallbackSettlementPredict() []domain.SeriesPoint {
	return synthSeries(40, func(i int) float64 { return float64(i%7) * 0.6 })
}

func fallbackAlarmTrend() []domain.SeriesPoint {
	return synthSeries(60, func(i int) float64 { return float64(i % 5) })
}
