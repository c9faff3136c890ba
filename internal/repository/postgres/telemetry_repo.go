package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/tunnelops-console/internal/domain"
)

// Таблицы временных рядов. Схема у всех одна: ts timestamptz, value float8.
const (
	TableAdvanceSpeed     = "advance_speed"
	TableSlurryPressure   = "slurry_pressure"
	TableGasConcentration = "gas_concentration"
	TableAttendanceTrend  = "attendance_trend"
	TableDailyRings       = "daily_rings"
	TableSettlementActual = "settlement_actual"
	TableSettlementPred   = "settlement_predict"
	TableAlarmTrend       = "alarm_trend"
)

// ErrNoRows — в таблице пока нет ни одной строки; сервисный слой
// подставляет demo-данные, а не ошибку.
var ErrNoRows = errors.New("postgres: no rows")

var seriesTables = map[string]struct{}{
	TableAdvanceSpeed:     {},
	TableSlurryPressure:   {},
	TableGasConcentration: {},
	TableAttendanceTrend:  {},
	TableDailyRings:       {},
	TableSettlementActual: {},
	TableSettlementPred:   {},
	TableAlarmTrend:       {},
}

type TelemetryRepo struct {
	db *sql.DB
}

// NewTelemetryRepo открывает пул соединений. Доступность базы
// проверяется отдельно через Ping в main.
func NewTelemetryRepo(connString string, maxConns int) (*TelemetryRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open failed: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 15
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &TelemetryRepo{db: db}, nil
}

// Ping проверяет доступность базы при старте
func (r *TelemetryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *TelemetryRepo) Close() error {
	return r.db.Close()
}

// Series читает хвост временного ряда (от старых к новым, не более limit).
func (r *TelemetryRepo) Series(ctx context.Context, table string, limit int) ([]domain.SeriesPoint, error) {
	// Имя таблицы не параметризуется драйвером — пропускаем только известные
	if _, ok := seriesTables[table]; !ok {
		return nil, fmt.Errorf("postgres: unknown series table %q", table)
	}
	if limit <= 0 {
		limit = 300
	}

	query := fmt.Sprintf(
		`SELECT ts, value FROM (
			SELECT ts, value FROM %s ORDER BY ts DESC LIMIT $1
		) tail ORDER BY ts ASC`, table)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: series %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.SeriesPoint
	for rows.Next() {
		var (
			ts    time.Time
			value float64
		)
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("postgres: series %s scan: %w", table, err)
		}
		out = append(out, domain.SeriesPoint{TS: ts.UTC().Format(time.RFC3339), Value: value})
	}
	return out, rows.Err()
}

// LatestPoint — самая свежая выборка ряда (для инкрементальных пушей).
func (r *TelemetryRepo) LatestPoint(ctx context.Context, table string) (domain.SeriesPoint, error) {
	points, err := r.Series(ctx, table, 1)
	if err != nil {
		return domain.SeriesPoint{}, err
	}
	if len(points) == 0 {
		return domain.SeriesPoint{}, ErrNoRows
	}
	return points[0], nil
}

// LatestSummary читает последнюю строку сводки главного экрана.
func (r *TelemetryRepo) LatestSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	query := `SELECT camera_online, camera_total, ring_today, ring_cumulative,
			muck_today, slurry_pressure_avg, gas_alerts
		FROM summary ORDER BY ts DESC LIMIT 1`

	s := &domain.DashboardSummary{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.CameraOnline, &s.CameraTotal, &s.RingToday, &s.RingCumulative,
		&s.MuckToday, &s.SlurryPressAvg, &s.GasAlerts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: latest summary: %w", err)
	}
	return s, nil
}

func (r *TelemetryRepo) LatestPersonnelStats(ctx context.Context) (*domain.PersonnelStats, error) {
	query := `SELECT total_on_site, attendance_rate, violations, managers
		FROM personnel_stats ORDER BY ts DESC LIMIT 1`

	s := &domain.PersonnelStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalOnSite, &s.AttendanceRate, &s.Violations, &s.Managers,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: personnel stats: %w", err)
	}
	return s, nil
}

func (r *TelemetryRepo) LatestProgressStats(ctx context.Context) (*domain.ProgressStats, error) {
	query := `SELECT total_rings, total_goal, daily_rings, remaining_days, value
		FROM progress_stats ORDER BY ts DESC LIMIT 1`

	s := &domain.ProgressStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalRings, &s.TotalGoal, &s.DailyRings, &s.RemainingDays, &s.Value,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: progress stats: %w", err)
	}
	return s, nil
}

func (r *TelemetryRepo) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	query := `SELECT ts, type, content FROM notifications ORDER BY ts DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: notifications: %w", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			ts time.Time
			n  domain.Notification
		)
		if err := rows.Scan(&ts, &n.Type, &n.Content); err != nil {
			return nil, fmt.Errorf("postgres: notifications scan: %w", err)
		}
		n.Time = ts.Local().Format("15:04:05")
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *TelemetryRepo) ListDispatch(ctx context.Context, limit int) ([]domain.DispatchItem, error) {
	query := `SELECT ts, type, unit, status FROM dispatch ORDER BY ts DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: dispatch: %w", err)
	}
	defer rows.Close()

	var out []domain.DispatchItem
	for rows.Next() {
		var (
			ts time.Time
			d  domain.DispatchItem
		)
		if err := rows.Scan(&ts, &d.Type, &d.Unit, &d.Status); err != nil {
			return nil, fmt.Errorf("postgres: dispatch scan: %w", err)
		}
		d.Time = ts.Local().Format("15:04:05")
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *TelemetryRepo) Supplies(ctx context.Context) (map[string]int, error) {
	query := `SELECT category, quantity FROM supplies ORDER BY category ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: supplies: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			category string
			quantity int
		)
		if err := rows.Scan(&category, &quantity); err != nil {
			return nil, fmt.Errorf("postgres: supplies scan: %w", err)
		}
		out[category] = quantity
	}
	return out, rows.Err()
}

func (r *TelemetryRepo) ListRisks(ctx context.Context, limit int) ([]domain.RiskItem, error) {
	query := `SELECT level, name, status, description, code, ts
		FROM risks ORDER BY ts DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: risks: %w", err)
	}
	defer rows.Close()

	var out []domain.RiskItem
	for rows.Next() {
		var (
			ts time.Time
			ri domain.RiskItem
		)
		if err := rows.Scan(&ri.Level, &ri.Name, &ri.Status, &ri.Desc, &ri.Code, &ts); err != nil {
			return nil, fmt.Errorf("postgres: risks scan: %w", err)
		}
		ri.TS = ts.UTC().Format(time.RFC3339)
		out = append(out, ri)
	}
	return out, rows.Err()
}
