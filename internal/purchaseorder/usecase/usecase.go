package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part"
	partdto "github.com/garagehub/parts-service/internal/part/dto"
	"github.com/garagehub/parts-service/internal/purchaseorder"
	"github.com/garagehub/parts-service/internal/purchaseorder/dto"
	"github.com/garagehub/parts-service/pkg/cache"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type poUseCase struct {
	repo   purchaseorder.Repository
	parts  part.UseCase
	locker cache.Locker
	logger logger.ZapLogger
}

func NewPurchaseOrderUseCase(
	repo purchaseorder.Repository,
	parts part.UseCase,
	locker cache.Locker,
	log logger.ZapLogger,
) purchaseorder.UseCase {
	return &poUseCase{
		repo:   repo,
		parts:  parts,
		locker: locker,
		logger: log,
	}
}

func (uc *poUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.PurchaseOrder, error) {
	if strings.TrimSpace(input.ServiceCenterID) == "" {
		return nil, apperrors.NewValidation("service_center_id", "service center is required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.NewValidation("items", "at least one line item is required")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.PartName) == "" {
			return nil, apperrors.NewValidation("items", fmt.Sprintf("item %d: part name is required", i+1))
		}
		if item.RequestedQty < 1 {
			return nil, apperrors.NewValidation("items", fmt.Sprintf("item %d: requested quantity must be at least 1", i+1))
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = model.POPriorityNormal
	}
	switch priority {
	case model.POPriorityLow, model.POPriorityNormal, model.POPriorityHigh, model.POPriorityUrgent:
	default:
		return nil, apperrors.NewValidation("priority", "unknown priority "+priority)
	}

	now := time.Now()
	po := &model.PurchaseOrder{
		BaseModel:       model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		PONumber:        newPONumber(now),
		ServiceCenterID: input.ServiceCenterID,
		RequestedBy:     input.RequestedBy,
		Priority:        priority,
		Status:          model.POStatusPending,
	}
	if input.Notes != "" {
		po.Notes = &input.Notes
	}

	po.Items = make([]model.PurchaseOrderItem, len(input.Items))
	for i, item := range input.Items {
		po.Items[i] = model.PurchaseOrderItem{
			ID:           uuid.New().String(),
			POID:         po.ID,
			PartID:       item.PartID,
			PartNumber:   item.PartNumber,
			PartName:     item.PartName,
			RequestedQty: item.RequestedQty,
			UnitPrice:    item.UnitPrice,
			Status:       model.POItemStatusPending,
			Position:     i,
		}
	}

	if err := uc.repo.Create(ctx, po); err != nil {
		return nil, err
	}

	uc.logger.Info("purchase order created",
		zap.String("po_number", po.PONumber),
		zap.String("service_center_id", po.ServiceCenterID),
		zap.Int("items", len(po.Items)),
	)
	return po, nil
}

func (uc *poUseCase) ApproveOrder(ctx context.Context, input *dto.ApproveOrderInput) (*model.PurchaseOrder, error) {
	if strings.TrimSpace(input.Approver) == "" {
		return nil, apperrors.NewValidation("approver", "approver is required")
	}

	release, err := uc.acquireLock(ctx, "lock:purchaseorder:"+input.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	po, err := uc.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusPending {
		return nil, fmt.Errorf("%w: cannot approve a %s purchase order", apperrors.ErrSequenceViolation, po.Status)
	}

	decisions := map[string]int{}
	for _, d := range input.Items {
		decisions[d.ItemID] = d.ApprovedQty
	}

	approvedAny := false
	for i := range po.Items {
		item := &po.Items[i]
		qty, decided := decisions[item.ID]
		if !decided {
			qty = item.RequestedQty
		}
		if qty < 0 || qty > item.RequestedQty {
			return nil, apperrors.NewValidation("items",
				fmt.Sprintf("item %s: approved quantity must be between 0 and %d", item.ID, item.RequestedQty))
		}
		if qty == 0 {
			item.Status = model.POItemStatusRejected
			item.ApprovedQty = nil
			continue
		}
		approved := qty
		item.ApprovedQty = &approved
		item.Status = model.POItemStatusApproved
		approvedAny = true
	}
	if !approvedAny {
		return nil, apperrors.NewValidation("items", "every line was zeroed out; reject the order instead")
	}

	now := time.Now()
	po.Status = model.POStatusApproved
	po.ApprovedBy = &input.Approver
	po.ApprovedAt = &now
	po.UpdatedAt = now

	if err := uc.repo.Update(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

func (uc *poUseCase) RejectOrder(ctx context.Context, input *dto.RejectOrderInput) (*model.PurchaseOrder, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewValidation("reason", "rejection reason is required")
	}

	release, err := uc.acquireLock(ctx, "lock:purchaseorder:"+input.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	po, err := uc.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if po.Status != model.POStatusPending {
		return nil, fmt.Errorf("%w: cannot reject a %s purchase order", apperrors.ErrSequenceViolation, po.Status)
	}

	now := time.Now()
	po.Status = model.POStatusRejected
	po.RejectedBy = &input.Approver
	po.RejectedAt = &now
	po.RejectionReason = &input.Reason
	po.UpdatedAt = now
	for i := range po.Items {
		po.Items[i].Status = model.POItemStatusRejected
	}

	if err := uc.repo.Update(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// IssueParts feeds approved quantities into the ledger. Each issued line goes
// through the part create/merge path, so receiving a part the center has
// never stocked creates its ledger record, and every increment writes an
// audit row reasoned with the PO number.
func (uc *poUseCase) IssueParts(ctx context.Context, input *dto.IssuePartsInput) (*model.PurchaseOrder, error) {
	if len(input.Items) == 0 {
		return nil, apperrors.NewValidation("items", "at least one issue line is required")
	}

	release, err := uc.acquireLock(ctx, "lock:purchaseorder:"+input.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	po, err := uc.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	switch po.Status {
	case model.POStatusApproved, model.POStatusPartiallyFulfilled:
	default:
		return nil, fmt.Errorf("%w: cannot issue parts on a %s purchase order", apperrors.ErrSequenceViolation, po.Status)
	}

	itemsByID := map[string]*model.PurchaseOrderItem{}
	for i := range po.Items {
		itemsByID[po.Items[i].ID] = &po.Items[i]
	}

	// Validate the whole issue set before touching the ledger. Quantities are
	// summed per item so duplicate lines cannot each pass against the stored
	// issued quantity and overshoot the approval.
	requested := map[string]int{}
	for _, line := range input.Items {
		item, ok := itemsByID[line.ItemID]
		if !ok {
			return nil, fmt.Errorf("purchase order item %s: %w", line.ItemID, apperrors.ErrNotFound)
		}
		if item.Status != model.POItemStatusApproved {
			return nil, apperrors.NewValidation("items",
				fmt.Sprintf("item %s was not approved", line.ItemID))
		}
		if line.Quantity < 1 {
			return nil, apperrors.NewValidation("items",
				fmt.Sprintf("item %s: issue quantity must be at least 1", line.ItemID))
		}
		requested[line.ItemID] += line.Quantity
		if item.IssuedQty+requested[line.ItemID] > *item.ApprovedQty {
			return nil, apperrors.NewValidation("items",
				fmt.Sprintf("item %s: issuing %d exceeds approved quantity %d (already issued %d)",
					line.ItemID, requested[line.ItemID], *item.ApprovedQty, item.IssuedQty))
		}
	}

	for _, line := range input.Items {
		item := itemsByID[line.ItemID]
		_, err := uc.parts.CreatePart(ctx, &partdto.CreatePartInput{
			PartID:        item.PartID,
			PartNumber:    item.PartNumber,
			PartName:      item.PartName,
			StockQuantity: line.Quantity,
			Price:         item.UnitPrice,
			CreatedBy:     input.IssuedBy,
			Reason:        "Stock issued against " + po.PONumber,
		})
		if err != nil {
			// Persist what already reached the ledger before surfacing the
			// failure, so issued quantities and stock stay in agreement.
			po.Status = deriveOrderStatus(po)
			po.UpdatedAt = time.Now()
			if uerr := uc.repo.Update(ctx, po); uerr != nil {
				uc.logger.Error("failed to persist partial issuance", zap.String("po_number", po.PONumber), zap.Error(uerr))
			}
			return nil, err
		}
		item.IssuedQty += line.Quantity
	}

	po.Status = deriveOrderStatus(po)
	po.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, po); err != nil {
		return nil, err
	}

	uc.logger.Info("purchase order issuance recorded",
		zap.String("po_number", po.PONumber),
		zap.String("status", po.Status),
	)
	return po, nil
}

func (uc *poUseCase) GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	return uc.load(ctx, id)
}

func (uc *poUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.PurchaseOrder, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *poUseCase) load(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	po, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if po == nil {
		return nil, fmt.Errorf("purchase order %s: %w", id, apperrors.ErrNotFound)
	}
	return po, nil
}

// deriveOrderStatus recomputes the order-level status from item decisions and
// issuance progress.
func deriveOrderStatus(po *model.PurchaseOrder) string {
	allIssued := true
	anyIssued := false
	for _, item := range po.Items {
		if item.Status != model.POItemStatusApproved {
			continue
		}
		if item.IssuedQty > 0 {
			anyIssued = true
		}
		if item.ApprovedQty == nil || item.IssuedQty < *item.ApprovedQty {
			allIssued = false
		}
	}
	switch {
	case allIssued && anyIssued:
		return model.POStatusFulfilled
	case anyIssued:
		return model.POStatusPartiallyFulfilled
	default:
		return model.POStatusApproved
	}
}

func (uc *poUseCase) acquireLock(ctx context.Context, key string) (func(), error) {
	if uc.locker == nil {
		return func() {}, nil
	}

	token := uuid.New().String()
	for i := 0; i < 3; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, token, 5*time.Second)
		if err != nil {
			uc.logger.Error("failed to acquire lock", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return func() {
				if err := uc.locker.ReleaseLock(ctx, key, token); err != nil {
					uc.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, errors.New("system busy, please try again later (lock)")
}

func newPONumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:4])
	return "PO-" + now.Format("20060102") + "-" + suffix
}
