package purchaseorder

import (
	"context"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/purchaseorder/dto"
)

type Repository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id string) (*model.PurchaseOrder, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.PurchaseOrder, int, error)
	// Update persists order columns and per-item decision/issuance columns in
	// one transaction.
	Update(ctx context.Context, po *model.PurchaseOrder) error
}
