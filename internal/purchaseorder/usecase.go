package purchaseorder

import (
	"context"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/purchaseorder/dto"
)

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.PurchaseOrder, error)
	ApproveOrder(ctx context.Context, input *dto.ApproveOrderInput) (*model.PurchaseOrder, error)
	RejectOrder(ctx context.Context, input *dto.RejectOrderInput) (*model.PurchaseOrder, error)
	IssueParts(ctx context.Context, input *dto.IssuePartsInput) (*model.PurchaseOrder, error)
	GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.PurchaseOrder, int, error)
}
