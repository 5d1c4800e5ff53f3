package request

import (
	"context"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/request/dto"
)

type Repository interface {
	Create(ctx context.Context, r *model.PartsRequest) error
	FindByID(ctx context.Context, id string) (*model.PartsRequest, error)
	FindAll(ctx context.Context, filters *dto.RequestFilters) ([]model.PartsRequest, int, error)
	Update(ctx context.Context, r *model.PartsRequest) error
}
