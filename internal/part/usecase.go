package part

import (
	"context"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part/dto"
)

type UseCase interface {
	CreatePart(ctx context.Context, input *dto.CreatePartInput) (*dto.PartResult, error)
	BulkCreateParts(ctx context.Context, rows []dto.CreatePartInput) (*dto.BulkCreateResult, error)
	GetPart(ctx context.Context, id string) (*model.Part, error)
	ListParts(ctx context.Context, filters *dto.PartFilters) ([]model.Part, int, error)
	UpdatePart(ctx context.Context, input *dto.UpdatePartInput) (*model.Part, error)
	UpdateStock(ctx context.Context, input *dto.UpdateStockInput) (*model.Part, error)
}
