package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xela07ax/tunnelops-console/internal/domain"
	"github.com/xela07ax/tunnelops-console/internal/repository/postgres"
)

type PersonnelService struct {
	repo   TelemetryRepository
	logger *zap.Logger
}

func NewPersonnelService(repo TelemetryRepository, logger *zap.Logger) *PersonnelService {
	return &PersonnelService{repo: repo, logger: logger.Named("personnel-service")}
}

func (s *PersonnelService) Stats(ctx context.Context) *domain.PersonnelStats {
	if s.repo != nil {
		if stats, err := s.repo.LatestPersonnelStats(ctx); err == nil {
			return stats
		} else if !errors.Is(err, postgres.ErrNoRows) {
			s.logger.Warn("personnel stats degraded to demo data", zap.Error(err))
		}
	}
	return fallbackPersonnelStats()
}

// Distribution и List — статичные справочники: в проде их держит
// кадровая система, интеграции с которой на стенде нет.
func (s *PersonnelService) Distribution(ctx context.Context) []domain.TeamShare {
	return fallbackDistribution()
}

func (s *PersonnelService) List(ctx context.Context) []domain.Worker {
	return fallbackWorkers()
}

func (s *PersonnelService) AttendanceTrend(ctx context.Context) []domain.SeriesPoint {
	if s.repo != nil {
		if points, err := s.repo.Series(ctx, postgres.TableAttendanceTrend, 300); err == nil && len(points) > 0 {
			return points
		} else if err != nil {
			s.logger.Warn("attendance trend degraded to demo data", zap.Error(err))
		}
	}
	return fallbackAttendanceTrend()
}
