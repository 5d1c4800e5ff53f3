package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part"
	"github.com/garagehub/parts-service/internal/part/dto"
	"github.com/garagehub/parts-service/pkg/cache"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const listCacheTTL = 2 * time.Minute

type partUseCase struct {
	repo   part.Repository
	cache  cache.Cache
	logger logger.ZapLogger
}

func NewPartUseCase(repo part.Repository, cache cache.Cache, log logger.ZapLogger) part.UseCase {
	return &partUseCase{
		repo:   repo,
		cache:  cache,
		logger: log,
	}
}

func (uc *partUseCase) CreatePart(ctx context.Context, input *dto.CreatePartInput) (*dto.PartResult, error) {
	input.PartName = strings.TrimSpace(input.PartName)
	if input.PartName == "" {
		return nil, apperrors.NewValidation("part_name", "part name is required")
	}
	if input.StockQuantity < 0 {
		return nil, apperrors.NewValidation("stock_quantity", "must not be negative")
	}

	if input.PartID == "" {
		input.PartID = newBusinessKey("PT")
	}
	if input.PartNumber == "" {
		input.PartNumber = input.PartID
	}

	release, err := uc.acquireLock(ctx, fmt.Sprintf("lock:part:%s:%s:%s",
		input.PartID, input.PartNumber, strings.ToLower(input.PartName)))
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := uc.repo.FindByBusinessKey(ctx, input.PartID, input.PartNumber, input.PartName)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		merged, err := uc.mergeIntoExisting(ctx, existing, input)
		if err != nil {
			return nil, err
		}
		uc.invalidateListCache(ctx)
		return &dto.PartResult{Part: merged, Merged: true}, nil
	}

	now := time.Now()
	p := &model.Part{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		PartID:        input.PartID,
		PartNumber:    input.PartNumber,
		PartName:      input.PartName,
		StockQuantity: input.StockQuantity,
		MinStockLevel: input.MinStockLevel,
		Price:         input.Price,
		GSTRate:       input.GSTRate,
		PriceWithGST:  priceWithGST(input.Price, input.GSTRate),
		Unit:          input.Unit,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.invalidateListCache(ctx)
	return &dto.PartResult{Part: p, Merged: false}, nil
}

// mergeIntoExisting folds a duplicate entry into the record it matched,
// summing stock through the audited adjustment path.
func (uc *partUseCase) mergeIntoExisting(ctx context.Context, existing *model.Part, input *dto.CreatePartInput) (*model.Part, error) {
	if input.StockQuantity == 0 {
		return existing, nil
	}

	reason := input.Reason
	if reason == "" {
		reason = "Merged duplicate part entry"
	}
	var updatedBy *string
	if input.CreatedBy != "" {
		updatedBy = &input.CreatedBy
	}

	updated, err := uc.repo.AdjustStockWithHistory(ctx, []part.StockAdjustment{{
		PartRef:   existing.ID,
		Quantity:  input.StockQuantity,
		Movement:  model.MovementIncrease,
		UpdatedBy: updatedBy,
		Reason:    reason,
	}}, nil)
	if err != nil {
		return nil, err
	}
	return &updated[0], nil
}

func (uc *partUseCase) BulkCreateParts(ctx context.Context, rows []dto.CreatePartInput) (*dto.BulkCreateResult, error) {
	result := &dto.BulkCreateResult{Errors: []string{}}

	type staged struct {
		part *model.Part
	}
	// Key every row by its business triple so duplicates within the batch
	// collapse into one record, same as duplicates against the ledger.
	stagedByKey := map[string]*staged{}
	var created []*model.Part
	mergeQty := map[string]int{}
	mergeTarget := map[string]*model.Part{}
	var mergeOrder []string
	now := time.Now()

	for i, row := range rows {
		row.PartName = strings.TrimSpace(row.PartName)
		if row.PartName == "" {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: part name is required", i+1))
			continue
		}
		if row.StockQuantity < 0 {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: stock quantity must not be negative", i+1))
			continue
		}
		if row.PartID == "" {
			row.PartID = newBusinessKey("PT")
		}
		if row.PartNumber == "" {
			row.PartNumber = row.PartID
		}

		key := row.PartID + "|" + row.PartNumber + "|" + strings.ToLower(row.PartName)

		if s, ok := stagedByKey[key]; ok {
			s.part.StockQuantity += row.StockQuantity
			result.Merged++
			continue
		}
		if _, ok := mergeTarget[key]; ok {
			mergeQty[key] += row.StockQuantity
			result.Merged++
			continue
		}

		existing, err := uc.repo.FindByBusinessKey(ctx, row.PartID, row.PartNumber, row.PartName)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			mergeTarget[key] = existing
			mergeQty[key] = row.StockQuantity
			mergeOrder = append(mergeOrder, key)
			result.Merged++
			continue
		}

		p := &model.Part{
			BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			PartID:        row.PartID,
			PartNumber:    row.PartNumber,
			PartName:      row.PartName,
			StockQuantity: row.StockQuantity,
			MinStockLevel: row.MinStockLevel,
			Price:         row.Price,
			GSTRate:       row.GSTRate,
			PriceWithGST:  priceWithGST(row.Price, row.GSTRate),
			Unit:          row.Unit,
		}
		stagedByKey[key] = &staged{part: p}
		created = append(created, p)
		result.Success++
	}

	var merged []part.StockAdjustment
	for _, key := range mergeOrder {
		qty := mergeQty[key]
		if qty == 0 {
			continue
		}
		merged = append(merged, part.StockAdjustment{
			PartRef:  mergeTarget[key].ID,
			Quantity: qty,
			Movement: model.MovementIncrease,
			Reason:   "Merged duplicate part entry (bulk import)",
		})
	}

	if len(created) > 0 || len(merged) > 0 {
		if err := uc.repo.ImportBatch(ctx, created, merged); err != nil {
			return nil, err
		}
		uc.invalidateListCache(ctx)
	}

	uc.logger.Info("bulk part import committed",
		zap.Int("success", result.Success),
		zap.Int("merged", result.Merged),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (uc *partUseCase) GetPart(ctx context.Context, id string) (*model.Part, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("part %s: %w", id, apperrors.ErrNotFound)
	}
	return p, nil
}

func (uc *partUseCase) ListParts(ctx context.Context, filters *dto.PartFilters) ([]model.Part, int, error) {
	cacheKey, keyErr := uc.listCacheKey(ctx, filters)
	if keyErr == nil {
		if val, err := uc.cache.Get(ctx, cacheKey); err == nil {
			var cached struct {
				Parts []model.Part
				Count int
			}
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached.Parts, cached.Count, nil
			}
		}
	}

	items, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if keyErr == nil {
		payload, err := json.Marshal(struct {
			Parts []model.Part
			Count int
		}{items, count})
		if err == nil {
			if err := uc.cache.Set(ctx, cacheKey, payload, listCacheTTL); err != nil {
				uc.logger.Warn("failed to cache part list", zap.Error(err))
			}
		}
	}

	return items, count, nil
}

func (uc *partUseCase) UpdatePart(ctx context.Context, input *dto.UpdatePartInput) (*model.Part, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("part %s: %w", input.ID, apperrors.ErrNotFound)
	}

	if input.PartNumber != nil {
		p.PartNumber = *input.PartNumber
	}
	if input.PartName != nil {
		name := strings.TrimSpace(*input.PartName)
		if name == "" {
			return nil, apperrors.NewValidation("part_name", "part name must not be empty")
		}
		p.PartName = name
	}
	if input.MinStockLevel != nil {
		p.MinStockLevel = *input.MinStockLevel
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.GSTRate != nil {
		p.GSTRate = *input.GSTRate
	}
	if input.Price != nil || input.GSTRate != nil {
		p.PriceWithGST = priceWithGST(p.Price, p.GSTRate)
	}
	if input.Unit != nil {
		p.Unit = *input.Unit
	}
	p.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	uc.invalidateListCache(ctx)
	return p, nil
}

func (uc *partUseCase) UpdateStock(ctx context.Context, input *dto.UpdateStockInput) (*model.Part, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.NewValidation("quantity", "must be greater than zero")
	}

	var movement string
	switch input.Operation {
	case dto.StockOpAdd:
		movement = model.MovementIncrease
	case dto.StockOpSubtract:
		movement = model.MovementDecrease
	default:
		return nil, apperrors.NewValidation("operation", "must be 'add' or 'subtract'")
	}

	release, err := uc.acquireLock(ctx, "lock:part:"+input.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	reason := input.Reason
	if reason == "" {
		reason = "Manual stock update"
	}
	var updatedBy *string
	if input.UpdatedBy != "" {
		updatedBy = &input.UpdatedBy
	}

	updated, err := uc.repo.AdjustStockWithHistory(ctx, []part.StockAdjustment{{
		PartRef:   input.ID,
		Quantity:  input.Quantity,
		Movement:  movement,
		UpdatedBy: updatedBy,
		Reason:    reason,
	}}, nil)
	if err != nil {
		return nil, err
	}

	uc.invalidateListCache(ctx)
	return &updated[0], nil
}

// acquireLock serializes read-modify-write per entity. Returns a release func;
// callers without a cache (tests) proceed unlocked.
func (uc *partUseCase) acquireLock(ctx context.Context, key string) (func(), error) {
	if uc.cache == nil {
		return func() {}, nil
	}

	token := uuid.New().String()
	for i := 0; i < 3; i++ {
		ok, err := uc.cache.AcquireLock(ctx, key, token, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire lock", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return func() {
				if err := uc.cache.ReleaseLock(ctx, key, token); err != nil {
					uc.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, errors.New("system busy, please try again later (lock)")
}

func (uc *partUseCase) listCacheKey(ctx context.Context, filters *dto.PartFilters) (string, error) {
	if uc.cache == nil {
		return "", errors.New("cache disabled")
	}
	ver, err := uc.cache.Get(ctx, "parts:list:ver")
	if err != nil {
		ver = "0"
	}
	raw, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("parts:list:v%s:%x", ver, md5.Sum(raw)), nil
}

// invalidateListCache bumps the version key so stale list entries expire out.
func (uc *partUseCase) invalidateListCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Incr(ctx, "parts:list:ver"); err != nil {
		uc.logger.Warn("failed to invalidate part list cache", zap.Error(err))
	}
}

func priceWithGST(price, gstRate float64) float64 {
	return price + price*gstRate/100
}

func newBusinessKey(prefix string) string {
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
