package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part"
	"github.com/garagehub/parts-service/internal/part/dto"
	"github.com/garagehub/parts-service/internal/part/repository/memory"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUseCase(t *testing.T) (part.UseCase, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{Level: "error", Encoding: "json"})
	return NewPartUseCase(repo, nil, log), repo
}

func TestCreatePart(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	result, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartID:        "BRK-001",
		PartNumber:    "BP-FR-01",
		PartName:      "Brake Pad Front",
		StockQuantity: 3,
		Price:         100,
		GSTRate:       18,
	})
	require.NoError(t, err)
	assert.False(t, result.Merged)
	assert.Equal(t, 3, result.Part.StockQuantity)
	assert.Equal(t, 118.0, result.Part.PriceWithGST)
	assert.NotEmpty(t, result.Part.ID)
}

func TestCreatePartRequiresName(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	_, err := uc.CreatePart(ctx, &dto.CreatePartInput{PartName: "   "})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "part_name", verr.Field)
}

func TestCreatePartMergesDuplicateTriple(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCase(t)

	first, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartID:        "BRK-001",
		PartNumber:    "BP-FR-01",
		PartName:      "Brake Pad Front",
		StockQuantity: 3,
	})
	require.NoError(t, err)

	// Same triple, different name casing: merges instead of duplicating.
	second, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartID:        "BRK-001",
		PartNumber:    "BP-FR-01",
		PartName:      "brake pad front",
		StockQuantity: 4,
	})
	require.NoError(t, err)
	assert.True(t, second.Merged)
	assert.Equal(t, first.Part.ID, second.Part.ID)
	assert.Equal(t, 7, second.Part.StockQuantity)

	history := repo.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementIncrease, history[0].Movement)
	assert.Equal(t, 4, history[0].Quantity)
	assert.Equal(t, 3, history[0].PreviousStock)
	assert.Equal(t, 7, history[0].NewStock)
	assert.Equal(t, "Merged duplicate part entry", history[0].Reason)
}

func TestCreatePartDifferentNumberIsNotMerged(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	_, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartID: "BRK-001", PartNumber: "BP-FR-01", PartName: "Brake Pad Front", StockQuantity: 3,
	})
	require.NoError(t, err)

	result, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartID: "BRK-001", PartNumber: "BP-FR-02", PartName: "Brake Pad Front", StockQuantity: 4,
	})
	require.NoError(t, err)
	assert.False(t, result.Merged)
	assert.Equal(t, 4, result.Part.StockQuantity)
}

func TestBulkCreateParts(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCase(t)

	// Pre-existing ledger record the second row merges into.
	existing, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartID: "OIL-001", PartNumber: "OF-01", PartName: "Oil Filter", StockQuantity: 5,
	})
	require.NoError(t, err)

	result, err := uc.BulkCreateParts(ctx, []dto.CreatePartInput{
		{PartID: "BRK-001", PartNumber: "BP-01", PartName: "Brake Pad", StockQuantity: 2},
		{PartID: "OIL-001", PartNumber: "OF-01", PartName: "Oil Filter", StockQuantity: 3},
		{PartName: "", StockQuantity: 1},
		{PartID: "BRK-001", PartNumber: "BP-01", PartName: "brake pad", StockQuantity: 6},
		{PartID: "CLN-001", PartNumber: "CL-01", PartName: "Coolant", StockQuantity: -2},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Errors, 2)

	merged, err := repo.FindByID(ctx, existing.Part.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, merged.StockQuantity)

	// In-batch duplicate collapsed into a single record with summed stock.
	created, err := repo.FindByPartID(ctx, "BRK-001")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, 8, created.StockQuantity)
}

func TestUpdateStockAdd(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCase(t)

	created, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartName: "Air Filter", StockQuantity: 10,
	})
	require.NoError(t, err)

	updated, err := uc.UpdateStock(ctx, &dto.UpdateStockInput{
		ID:        created.Part.ID,
		Quantity:  5,
		Operation: dto.StockOpAdd,
		Reason:    "Restock delivery",
		UpdatedBy: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.StockQuantity)

	history := repo.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementIncrease, history[0].Movement)
	assert.Equal(t, 10, history[0].PreviousStock)
	assert.Equal(t, 15, history[0].NewStock)
	require.NotNil(t, history[0].UpdatedBy)
	assert.Equal(t, "user-1", *history[0].UpdatedBy)
}

func TestUpdateStockSubtractInsufficient(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCase(t)

	created, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartName: "Air Filter", StockQuantity: 5,
	})
	require.NoError(t, err)

	_, err = uc.UpdateStock(ctx, &dto.UpdateStockInput{
		ID:        created.Part.ID,
		Quantity:  8,
		Operation: dto.StockOpSubtract,
	})
	var ise *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Len(t, ise.Items, 1)
	assert.Equal(t, 8, ise.Items[0].Requested)
	assert.Equal(t, 5, ise.Items[0].Available)

	// The failed subtraction leaves no trace: stock and audit log untouched.
	p, err := repo.FindByID(ctx, created.Part.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockQuantity)
	assert.Empty(t, repo.History())
}

func TestUpdateStockRejectsUnknownOperation(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	_, err := uc.UpdateStock(ctx, &dto.UpdateStockInput{ID: "x", Quantity: 1, Operation: "set"})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "operation", verr.Field)
}

func TestUpdatePartPartial(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	created, err := uc.CreatePart(ctx, &dto.CreatePartInput{
		PartName:      "Spark Plug",
		StockQuantity: 4,
		MinStockLevel: 2,
		Price:         200,
		GSTRate:       18,
		Unit:          "pcs",
	})
	require.NoError(t, err)

	price := 250.0
	updated, err := uc.UpdatePart(ctx, &dto.UpdatePartInput{
		ID:    created.Part.ID,
		Price: &price,
	})
	require.NoError(t, err)

	// Only the provided field moves; everything omitted stays put.
	assert.Equal(t, 250.0, updated.Price)
	assert.Equal(t, 295.0, updated.PriceWithGST)
	assert.Equal(t, "Spark Plug", updated.PartName)
	assert.Equal(t, 2, updated.MinStockLevel)
	assert.Equal(t, "pcs", updated.Unit)
	assert.Equal(t, 4, updated.StockQuantity)
}

func TestUpdatePartRejectsEmptyName(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	created, err := uc.CreatePart(ctx, &dto.CreatePartInput{PartName: "Spark Plug"})
	require.NoError(t, err)

	empty := "  "
	_, err = uc.UpdatePart(ctx, &dto.UpdatePartInput{ID: created.Part.ID, PartName: &empty})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGetPartNotFound(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t)

	_, err := uc.GetPart(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
