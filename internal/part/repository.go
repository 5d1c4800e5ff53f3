package part

import (
	"context"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part/dto"
)

// StockAdjustment is one ledger mutation plus the audit context recorded with
// it. Quantity is always positive; Movement gives the direction.
type StockAdjustment struct {
	PartRef       string
	Quantity      int
	Movement      string
	JobCardID     *string
	JobCardNumber *string
	CustomerName  *string
	EngineerName  *string
	UpdatedBy     *string
	Reason        string
}

type Repository interface {
	Create(ctx context.Context, p *model.Part) error
	FindByID(ctx context.Context, id string) (*model.Part, error)
	FindByPartID(ctx context.Context, partID string) (*model.Part, error)
	FindByBusinessKey(ctx context.Context, partID, partNumber, partName string) (*model.Part, error)
	FindAll(ctx context.Context, filters *dto.PartFilters) ([]model.Part, int, error)
	Update(ctx context.Context, p *model.Part) error

	// AdjustStockWithHistory applies every adjustment and writes one audit row
	// per adjustment in a single transaction. A decrease that would take a part
	// below zero aborts the whole transaction; no partial state survives.
	// A non-nil post callback runs inside the same transaction, so a caller can
	// commit its own state change atomically with the stock movement; a post
	// failure rolls everything back.
	AdjustStockWithHistory(ctx context.Context, adjs []StockAdjustment, post func(ctx context.Context) error) ([]model.Part, error)

	// ImportBatch commits a bulk import in one transaction: freshly created
	// parts plus merge increments into existing records.
	ImportBatch(ctx context.Context, created []*model.Part, merged []StockAdjustment) error
}
