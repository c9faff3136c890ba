package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/infra"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
)

// summaryCacheTTL — сводка меняется раз в несколько секунд, кэш снимает
// аналитический запрос с Postgres на каждом открытии страницы.
const summaryCacheTTL = 10 * time.Second

// TelemetryRepository описывает требования сервисного слоя к хранилищу.
type TelemetryRepository interface {
	Series(ctx context.Context, table string, limit int) ([]domain.SeriesPoint, error)
	LatestPoint(ctx context.Context, table string) (domain.SeriesPoint, error)
	LatestSummary(ctx context.Context) (*domain.DashboardSummary, error)
	LatestPersonnelStats(ctx context.Context) (*domain.PersonnelStats, error)
	LatestProgressStats(ctx context.Context) (*domain.ProgressStats, error)
	ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error)
	ListDispatch(ctx context.Context, limit int) ([]domain.DispatchItem, error)
	Supplies(ctx context.Context) (map[string]int, error)
	ListRisks(ctx context.Context, limit int) ([]domain.RiskItem, error)
}

type DashboardService struct {
	repo   TelemetryRepository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewDashboardService. repo и rdb могут быть nil — тогда сервис живет
// целиком на demo-данных (пусконаладка без инфраструктуры).
func NewDashboardService(repo TelemetryRepository, rdb *redis.Client, logger *zap.Logger) *DashboardService {
	return &DashboardService{repo: repo, rdb: rdb, logger: logger.Named("dashboard-service")}
}

func (s *DashboardService) Summary(ctx context.Context) *domain.DashboardSummary {
	// L2-кэш в Redis
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, infra.RedisKeySummaryCache).Bytes(); err == nil {
			var cached domain.DashboardSummary
			if json.Unmarshal(raw, &cached) == nil {
				return &cached
			}
		}
	}

	base := fallbackSummary()
	if s.repo == nil {
		return base
	}

	fresh, err := s.repo.LatestSummary(ctx)
	if err != nil {
		if !errors.Is(err, postgres.ErrNoRows) {
			s.logger.Warn("summary fetch degraded to demo data", zap.Error(err))
		}
		return base
	}
	// Географию и имя проекта база не хранит — берем из базовой карточки
	fresh.ProjectName = base.ProjectName
	fresh.Lat = base.Lat
	fresh.Lng = base.Lng

	if s.rdb != nil {
		if raw, err := json.Marshal(fresh); err == nil {
			s.rdb.Set(ctx, infra.RedisKeySummaryCache, raw, summaryCacheTTL)
		}
	}
	return fresh
}

func (s *DashboardService) Notifications(ctx context.Context) []domain.Notification {
	if s.repo != nil {
		if rows, err := s.repo.ListNotifications(ctx, 30); err == nil && len(rows) > 0 {
			return rows
		} else if err != nil {
			s.logger.Warn("notifications degraded to demo data", zap.Error(err))
		}
	}
	return fallbackNotifications()
}

func (s *DashboardService) Supplies(ctx context.Context) map[string]int {
	if s.repo != nil {
		if rows, err := s.repo.Supplies(ctx); err == nil && len(rows) > 0 {
			return rows
		} else if err != nil {
			s.logger.Warn("supplies degraded to demo data", zap.Error(err))
		}
	}
	return fallbackSupplies()
}

func (s *DashboardService) Dispatch(ctx context.Context) []domain.DispatchItem {
	if s.repo != nil {
		if rows, err := s.repo.ListDispatch(ctx, 50); err == nil && len(rows) > 0 {
			return rows
		} else if err != nil {
			s.logger.Warn("dispatch degraded to demo data", zap.Error(err))
		}
	}
	return fallbackDispatch()
}

// Timeseries — стартовый снапшот трех рядов главного экрана. Каждый ряд
// деградирует независимо: пустая таблица не валит остальные.
func (s *DashboardService) Timeseries(ctx context.Context) *domain.TimeseriesSnapshot {
	return &domain.TimeseriesSnapshot{
		AdvanceSpeed:     s.series(ctx, postgres.TableAdvanceSpeed, fallbackAdvanceSpeed),
		SlurryPressure:   s.series(ctx, postgres.TableSlurryPressure, fallbackSlurryPressure),
		GasConcentration: s.series(ctx, postgres.TableGasConcentration, fallbackGasConcentration),
	}
}

func (s *DashboardService) series(ctx context.Context, table string, fallback func() []domain.SeriesPoint) []domain.SeriesPoint {
	if s.repo != nil {
		if points, err := s.repo.Series(ctx, table, 300); err == nil && len(points) > 0 {
			return points
		} else if err != nil {
			s.logger.Warn("series degraded to demo data",
				zap.String("table", table), zap.Error(err))
		}
	}
	return fallback()
}
