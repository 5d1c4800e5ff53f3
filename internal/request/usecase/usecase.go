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
	"github.com/garagehub/parts-service/internal/request"
	"github.com/garagehub/parts-service/internal/request/dto"
	"github.com/garagehub/parts-service/pkg/cache"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type requestUseCase struct {
	repo      request.Repository
	partRepo  part.Repository
	publisher request.EventPublisher
	locker    cache.Locker
	logger    logger.ZapLogger
}

func NewRequestUseCase(
	repo request.Repository,
	partRepo part.Repository,
	publisher request.EventPublisher,
	locker cache.Locker,
	log logger.ZapLogger,
) request.UseCase {
	return &requestUseCase{
		repo:      repo,
		partRepo:  partRepo,
		publisher: publisher,
		locker:    locker,
		logger:    log,
	}
}

func (uc *requestUseCase) Submit(ctx context.Context, input *dto.SubmitRequestInput) (*model.PartsRequest, error) {
	if strings.TrimSpace(input.JobCardID) == "" {
		return nil, apperrors.NewValidation("job_card_id", "job card is required")
	}
	if strings.TrimSpace(input.RequestedBy) == "" {
		return nil, apperrors.NewValidation("requested_by", "requester is required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.NewValidation("items", "at least one line item is required")
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.PartName) == "" {
			return nil, apperrors.NewValidation("items", fmt.Sprintf("item %d: part name is required", i+1))
		}
		if item.Quantity < 1 {
			return nil, apperrors.NewValidation("items", fmt.Sprintf("item %d: quantity must be at least 1", i+1))
		}
	}

	now := time.Now()
	req := &model.PartsRequest{
		BaseModel:     model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		JobCardID:     input.JobCardID,
		JobCardNumber: input.JobCardNumber,
		CustomerName:  input.CustomerName,
		RequestedBy:   input.RequestedBy,
		RequestedAt:   now,
		Status:        model.RequestStatusPending,
	}
	if input.VehicleID != "" {
		req.VehicleID = &input.VehicleID
	}

	req.Items = make([]model.PartsRequestItem, len(input.Items))
	for i, item := range input.Items {
		req.Items[i] = model.PartsRequestItem{
			ID:         uuid.New().String(),
			RequestID:  req.ID,
			PartID:     item.PartID,
			PartName:   item.PartName,
			Quantity:   item.Quantity,
			IsWarranty: item.IsWarranty,
			Position:   i,
		}
		if item.SerialNumber != "" {
			req.Items[i].SerialNumber = &input.Items[i].SerialNumber
		}
	}

	if err := uc.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	uc.logger.Info("parts request submitted",
		zap.String("request_id", req.ID),
		zap.String("job_card_id", req.JobCardID),
		zap.Int("items", len(req.Items)),
	)
	return req, nil
}

func (uc *requestUseCase) ApproveBySCManager(ctx context.Context, input *dto.ApproveInput) (*model.PartsRequest, error) {
	if strings.TrimSpace(input.Approver) == "" {
		return nil, apperrors.NewValidation("approver", "approver is required")
	}

	release, err := uc.acquireLock(ctx, "lock:partsrequest:"+input.RequestID)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := uc.load(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.RequestStatusSCApproved:
		// Re-approval is a no-op: the original stamps stay untouched.
		return req, nil
	case model.RequestStatusPending:
	default:
		return nil, fmt.Errorf("%w: cannot approve a %s request", apperrors.ErrSequenceViolation, req.Status)
	}

	now := time.Now()
	req.Status = model.RequestStatusSCApproved
	req.SCManagerApproved = true
	req.SCApprovedBy = &input.Approver
	req.SCApprovedAt = &now
	if input.Notes != "" {
		req.SCApprovalNotes = &input.Notes
	}
	req.UpdatedAt = now

	if err := uc.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (uc *requestUseCase) Reject(ctx context.Context, input *dto.RejectInput) (*model.PartsRequest, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, apperrors.NewValidation("reason", "rejection reason is required")
	}

	release, err := uc.acquireLock(ctx, "lock:partsrequest:"+input.RequestID)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := uc.load(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.RequestStatusPending, model.RequestStatusSCApproved:
	default:
		return nil, fmt.Errorf("%w: cannot reject a %s request", apperrors.ErrSequenceViolation, req.Status)
	}

	now := time.Now()
	req.Status = model.RequestStatusRejected
	req.RejectedBy = &input.Actor
	req.RejectedAt = &now
	req.RejectionReason = &input.Reason
	req.UpdatedAt = now

	if err := uc.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (uc *requestUseCase) AssignByInventoryManager(ctx context.Context, input *dto.AssignInput) (*model.PartsRequest, error) {
	if strings.TrimSpace(input.Engineer) == "" {
		return nil, apperrors.NewValidation("engineer", "assigned engineer is required")
	}

	release, err := uc.acquireLock(ctx, "lock:partsrequest:"+input.RequestID)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := uc.load(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case model.RequestStatusPending:
		return nil, fmt.Errorf("%w: request requires service center manager approval before stock assignment",
			apperrors.ErrSequenceViolation)
	case model.RequestStatusSCApproved:
	default:
		return nil, fmt.Errorf("%w: cannot assign stock on a %s request", apperrors.ErrSequenceViolation, req.Status)
	}

	// Resolve line items against the ledger. Lines that do not resolve are
	// manually typed work items: they stay on the request but move no stock.
	resolved := map[int]*model.Part{}
	required := map[string]int{}
	partsByRef := map[string]*model.Part{}
	for i := range req.Items {
		item := &req.Items[i]
		if item.PartID == "" {
			continue
		}
		p, err := uc.partRepo.FindByPartID(ctx, item.PartID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		resolved[i] = p
		partsByRef[p.ID] = p
		required[p.ID] += item.Quantity
	}

	// Availability pre-check across the whole request so the caller sees
	// every offending line, not just the first.
	var offending []apperrors.InsufficientStockItem
	for ref, qty := range required {
		p := partsByRef[ref]
		if qty > p.StockQuantity {
			offending = append(offending, apperrors.InsufficientStockItem{
				PartID:    p.PartID,
				PartName:  p.PartName,
				Requested: qty,
				Available: p.StockQuantity,
			})
		}
	}
	if len(offending) > 0 {
		return nil, &apperrors.InsufficientStockError{Items: offending}
	}

	now := time.Now()
	var assigner *string
	if input.Assigner != "" {
		assigner = &input.Assigner
	}
	jobCardID := req.JobCardID
	jobCardNumber := req.JobCardNumber
	customer := req.CustomerName

	var adjustments []part.StockAdjustment
	for i := range req.Items {
		p, ok := resolved[i]
		if !ok {
			continue
		}
		req.Items[i].PartRef = &p.ID
		adjustments = append(adjustments, part.StockAdjustment{
			PartRef:       p.ID,
			Quantity:      req.Items[i].Quantity,
			Movement:      model.MovementDecrease,
			JobCardID:     &jobCardID,
			JobCardNumber: &jobCardNumber,
			CustomerName:  &customer,
			EngineerName:  &input.Engineer,
			UpdatedBy:     assigner,
			Reason:        "Parts assigned to job card " + req.JobCardNumber,
		})
	}

	req.Status = model.RequestStatusApproved
	req.InventoryManagerAssigned = true
	req.AssignedBy = assigner
	req.AssignedAt = &now
	req.AssignedEngineer = &input.Engineer
	if input.Notes != "" {
		req.AssignmentNotes = &input.Notes
	}
	req.UpdatedAt = now

	// The decrement, its audit rows and the status flip commit together: the
	// request update runs inside the stock transaction.
	if len(adjustments) > 0 {
		if _, err := uc.partRepo.AdjustStockWithHistory(ctx, adjustments, func(ctx context.Context) error {
			return uc.repo.Update(ctx, req)
		}); err != nil {
			return nil, err
		}
	} else {
		if err := uc.repo.Update(ctx, req); err != nil {
			return nil, err
		}
	}

	uc.publishPartsAssigned(ctx, req, input.Engineer)
	uc.logger.Info("parts request assigned",
		zap.String("request_id", req.ID),
		zap.String("job_card_id", req.JobCardID),
		zap.Int("stock_lines", len(adjustments)),
	)
	return req, nil
}

func (uc *requestUseCase) NotifyWorkCompletion(ctx context.Context, requestID string) (*model.PartsRequest, error) {
	release, err := uc.acquireLock(ctx, "lock:partsrequest:"+requestID)
	if err != nil {
		return nil, err
	}
	defer release()

	req, err := uc.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if req.Status != model.RequestStatusApproved {
		return nil, fmt.Errorf("%w: work completion requires an assigned request", apperrors.ErrSequenceViolation)
	}
	if req.WorkCompleted {
		return req, nil
	}

	now := time.Now()
	req.WorkCompleted = true
	req.WorkCompletedAt = &now
	req.UpdatedAt = now

	if err := uc.repo.Update(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// CompleteByJobCard marks every assigned request of a job card completed.
// Driven by the job-card event listener.
func (uc *requestUseCase) CompleteByJobCard(ctx context.Context, jobCardID string) error {
	requests, _, err := uc.repo.FindAll(ctx, &dto.RequestFilters{
		JobCardID: jobCardID,
		Status:    model.RequestStatusApproved,
	})
	if err != nil {
		return err
	}

	for _, req := range requests {
		if _, err := uc.NotifyWorkCompletion(ctx, req.ID); err != nil {
			if errors.Is(err, apperrors.ErrSequenceViolation) {
				continue
			}
			return err
		}
	}
	return nil
}

func (uc *requestUseCase) GetRequest(ctx context.Context, id string) (*model.PartsRequest, error) {
	return uc.load(ctx, id)
}

func (uc *requestUseCase) ListRequests(ctx context.Context, filters *dto.RequestFilters) ([]model.PartsRequest, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *requestUseCase) load(ctx context.Context, id string) (*model.PartsRequest, error) {
	req, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("parts request %s: %w", id, apperrors.ErrNotFound)
	}
	return req, nil
}

func (uc *requestUseCase) publishPartsAssigned(ctx context.Context, req *model.PartsRequest, engineer string) {
	if uc.publisher == nil {
		return
	}

	items := make([]dto.AssignedItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = dto.AssignedItem{PartID: item.PartID, PartName: item.PartName, Quantity: item.Quantity}
	}

	event := &dto.PartsAssignedEvent{
		EventID:   uuid.New().String(),
		EventType: dto.EventTypePartsAssigned,
		Payload: dto.PartsAssignedPayload{
			RequestID:     req.ID,
			JobCardID:     req.JobCardID,
			JobCardNumber: req.JobCardNumber,
			Engineer:      engineer,
			Items:         items,
		},
		Timestamp: time.Now(),
	}

	if err := uc.publisher.PartsAssigned(ctx, event); err != nil {
		uc.logger.Error("failed to publish parts assigned event",
			zap.String("request_id", req.ID),
			zap.Error(err),
		)
	}
}

func (uc *requestUseCase) acquireLock(ctx context.Context, key string) (func(), error) {
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
