package usecase

import (
	"context"

	"github.com/garagehub/parts-service/internal/audit"
	"github.com/garagehub/parts-service/internal/audit/dto"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/pkg/logger"
)

type auditUseCase struct {
	repo   audit.Repository
	logger logger.ZapLogger
}

func NewAuditUseCase(repo audit.Repository, log logger.ZapLogger) audit.UseCase {
	return &auditUseCase{repo: repo, logger: log}
}

func (uc *auditUseCase) ListHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.StockUpdateHistory, int, error) {
	return uc.repo.FindAll(ctx, filters)
}
