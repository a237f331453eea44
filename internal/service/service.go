package service

import (
	"go.uber.org/zap"

	"save-serve/backend/config"
	"save-serve/backend/internal/repository"
	"save-serve/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Participation ParticipationService
	Calendar      CalendarService
	Export        ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	partSvc := NewParticipationService(cfg, repo, rdb, logger)
	return &Service{
		Participation: partSvc,
		Calendar:      NewCalendarService(partSvc, repo, cfg.Meals.Timezone, logger),
		Export:        NewExportService(partSvc, logger),
	}
}

