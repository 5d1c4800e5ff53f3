package audit

import (
	"context"

	"github.com/garagehub/parts-service/internal/audit/dto"
	"github.com/garagehub/parts-service/internal/model"
)

// Repository is read-only on purpose: history rows are inserted by the part
// repository inside the same transaction as the ledger write, and nothing
// ever updates or deletes them.
type Repository interface {
	FindAll(ctx context.Context, filters *dto.HistoryFilters) ([]model.StockUpdateHistory, int, error)
}
