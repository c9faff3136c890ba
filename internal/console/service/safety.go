package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
)

type SafetyService struct {
	repo   TelemetryRepository
	logger *zap.Logger
}

func NewSafetyService(repo TelemetryRepository, logger *zap.Logger) *SafetyService {
	return &SafetyService{repo: repo, logger: logger.Named("safety-service")}
}

func (s *SafetyService) Risks(ctx context.Context) []domain.RiskItem {
	if s.repo != nil {
		if rows, err := s.repo.ListRisks(ctx, 100); err == nil && len(rows) > 0 {
			return rows
		} else if err != nil {
			s.logger.Warn("risks degraded to demo data", zap.Error(err))
		}
	}
	return fallbackRisks()
}

func (s *SafetyService) Settlement(ctx context.Context) *domain.SettlementSnapshot {
	return &domain.SettlementSnapshot{
		Actual:  s.series(ctx, postgres.TableSettlementActual, fallbackSettlementActual),
		Predict: s.series(ctx, postgres.TableSettlementPred, fallbackSettlementPredict),
	}
}

// Score — интегральный балл безопасности. Методика расчета живет
// в отдельной модели, здесь фиксированное значение стенда.
func (s *SafetyService) Score(ctx context.Context) int {
	return 96
}

func (s *SafetyService) AlarmTrend(ctx context.Context) []domain.SeriesPoint {
	return s.series(ctx, postgres.TableAlarmTrend, fallbackAlarmTrend)
}

func (s *SafetyService) series(ctx context.Context, table string, fallback func() []domain.SeriesPoint) []domain.SeriesPoint {
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
