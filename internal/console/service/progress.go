package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
)

type ProgressService struct {
	repo   TelemetryRepository
	logger *zap.Logger
}

func NewProgressService(repo TelemetryRepository, logger *zap.Logger) *ProgressService {
	return &ProgressService{repo: repo, logger: logger.Named("progress-service")}
}

func (s *ProgressService) Stats(ctx context.Context) *domain.ProgressStats {
	if s.repo != nil {
		if stats, err := s.repo.LatestProgressStats(ctx); err == nil {
			return stats
		} else if !errors.Is(err, postgres.ErrNoRows) {
			s.logger.Warn("progress stats degraded to demo data", zap.Error(err))
		}
	}
	return fallbackProgressStats()
}

// Gantt — план работ ведется в внешнем календарном графике,
// на стенде отдаем фиксированный срез.
func (s *ProgressService) Gantt(ctx context.Context) []domain.GanttTask {
	return fallbackGantt()
}

func (s *ProgressService) DailyRings(ctx context.Context) []domain.SeriesPoint {
	if s.repo != nil {
		if points, err := s.repo.Series(ctx, postgres.TableDailyRings, 300); err == nil && len(points) > 0 {
			return points
		} else if err != nil {
			s.logger.Warn("daily rings degraded to demo data", zap.Error(err))
		}
	}
	return fallbackDailyRings()
}
