package audit

import (
	"context"

	"github.com/garagehub/parts-service/internal/audit/dto"
	"github.com/garagehub/parts-service/internal/model"
)

type UseCase interface {
	ListHistory(ctx context.Context, filters *dto.HistoryFilters) ([]model.StockUpdateHistory, int, error)
}
