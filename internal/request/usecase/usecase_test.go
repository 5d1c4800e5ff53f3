package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garagehub/parts-service/internal/apperrors"
	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/part/repository/memory"
	"github.com/garagehub/parts-service/internal/request"
	"github.com/garagehub/parts-service/internal/request/dto"
	"github.com/garagehub/parts-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRequestRepo keeps requests in a map, handing out copies like the
// Postgres repository does. updateErr makes the next writes fail.
type fakeRequestRepo struct {
	requests  map[string]*model.PartsRequest
	updateErr error
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[string]*model.PartsRequest{}}
}

func (r *fakeRequestRepo) Create(ctx context.Context, req *model.PartsRequest) error {
	cp := *req
	cp.Items = append([]model.PartsRequestItem(nil), req.Items...)
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id string) (*model.PartsRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	cp.Items = append([]model.PartsRequestItem(nil), req.Items...)
	return &cp, nil
}

func (r *fakeRequestRepo) FindAll(ctx context.Context, f *dto.RequestFilters) ([]model.PartsRequest, int, error) {
	var out []model.PartsRequest
	for _, req := range r.requests {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.JobCardID != "" && req.JobCardID != f.JobCardID {
			continue
		}
		cp := *req
		cp.Items = append([]model.PartsRequestItem(nil), req.Items...)
		out = append(out, cp)
	}
	return out, len(out), nil
}

func (r *fakeRequestRepo) Update(ctx context.Context, req *model.PartsRequest) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	cp := *req
	cp.Items = append([]model.PartsRequestItem(nil), req.Items...)
	r.requests[req.ID] = &cp
	return nil
}

type fakePublisher struct {
	events []*dto.PartsAssignedEvent
}

func (p *fakePublisher) PartsAssigned(ctx context.Context, event *dto.PartsAssignedEvent) error {
	p.events = append(p.events, event)
	return nil
}

type workflowFixture struct {
	uc        request.UseCase
	repo      *fakeRequestRepo
	partRepo  *memory.Repository
	publisher *fakePublisher
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	repo := newFakeRequestRepo()
	partRepo := memory.NewRepository()
	publisher := &fakePublisher{}
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{Level: "error", Encoding: "json"})
	return &workflowFixture{
		uc:        NewRequestUseCase(repo, partRepo, publisher, nil, log),
		repo:      repo,
		partRepo:  partRepo,
		publisher: publisher,
	}
}

func (f *workflowFixture) seedPart(t *testing.T, partID, name string, stock int) *model.Part {
	t.Helper()
	p := &model.Part{
		BaseModel:     model.BaseModel{ID: "ref-" + partID},
		PartID:        partID,
		PartNumber:    partID,
		PartName:      name,
		StockQuantity: stock,
	}
	require.NoError(t, f.partRepo.Create(context.Background(), p))
	return p
}

func (f *workflowFixture) submit(t *testing.T, items []dto.RequestItemInput) *model.PartsRequest {
	t.Helper()
	req, err := f.uc.Submit(context.Background(), &dto.SubmitRequestInput{
		JobCardID:     "jc-1",
		JobCardNumber: "JC-2026-001",
		CustomerName:  "A. Sharma",
		RequestedBy:   "engineer-1",
		Items:         items,
	})
	require.NoError(t, err)
	return req
}

func TestSubmitValidations(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	_, err := f.uc.Submit(ctx, &dto.SubmitRequestInput{RequestedBy: "x", Items: []dto.RequestItemInput{{PartName: "p", Quantity: 1}}})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "job_card_id", verr.Field)

	_, err = f.uc.Submit(ctx, &dto.SubmitRequestInput{JobCardID: "jc", RequestedBy: "x"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)

	_, err = f.uc.Submit(ctx, &dto.SubmitRequestInput{
		JobCardID:   "jc",
		RequestedBy: "x",
		Items:       []dto.RequestItemInput{{PartName: "p", Quantity: 0}},
	})
	require.ErrorAs(t, err, &verr)
}

func TestAssignBeforeApprovalIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.seedPart(t, "BRK-001", "Brake Pad", 10)

	req := f.submit(t, []dto.RequestItemInput{{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 2}})

	_, err := f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: req.ID,
		Assigner:  "inv-mgr",
		Engineer:  "engineer-1",
	})
	require.ErrorIs(t, err, apperrors.ErrSequenceViolation)

	// The short-circuit happens before any ledger access: no stock moved, no
	// audit rows written.
	p, _ := f.partRepo.FindByPartID(ctx, "BRK-001")
	assert.Equal(t, 10, p.StockQuantity)
	assert.Empty(t, f.partRepo.History())

	stored, _ := f.repo.FindByID(ctx, req.ID)
	assert.Equal(t, model.RequestStatusPending, stored.Status)
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	req := f.submit(t, []dto.RequestItemInput{{PartName: "Brake Pad", Quantity: 1}})

	first, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr", Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusSCApproved, first.Status)
	require.NotNil(t, first.SCApprovedAt)

	second, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "someone-else"})
	require.NoError(t, err)
	assert.Equal(t, "sc-mgr", *second.SCApprovedBy)
	assert.Equal(t, first.SCApprovedAt.Unix(), second.SCApprovedAt.Unix())
}

func TestApproveTerminalStateIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	req := f.submit(t, []dto.RequestItemInput{{PartName: "Brake Pad", Quantity: 1}})

	_, err := f.uc.Reject(ctx, &dto.RejectInput{RequestID: req.ID, Actor: "sc-mgr", Reason: "duplicate"})
	require.NoError(t, err)

	_, err = f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.ErrorIs(t, err, apperrors.ErrSequenceViolation)
}

func TestRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	req := f.submit(t, []dto.RequestItemInput{{PartName: "Brake Pad", Quantity: 1}})

	_, err := f.uc.Reject(ctx, &dto.RejectInput{RequestID: req.ID, Actor: "sc-mgr", Reason: "  "})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)

	stored, _ := f.repo.FindByID(ctx, req.ID)
	assert.Equal(t, model.RequestStatusPending, stored.Status)
}

func TestAssignInsufficientStockListsEveryOffender(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.seedPart(t, "BRK-001", "Brake Pad", 5)
	f.seedPart(t, "OIL-001", "Oil Filter", 2)
	f.seedPart(t, "AIR-001", "Air Filter", 20)

	req := f.submit(t, []dto.RequestItemInput{
		{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 8},
		{PartID: "OIL-001", PartName: "Oil Filter", Quantity: 3},
		{PartID: "AIR-001", PartName: "Air Filter", Quantity: 4},
	})
	_, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)

	_, err = f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: req.ID,
		Assigner:  "inv-mgr",
		Engineer:  "engineer-1",
	})
	var ise *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	require.Len(t, ise.Items, 2)

	offenders := map[string]apperrors.InsufficientStockItem{}
	for _, item := range ise.Items {
		offenders[item.PartID] = item
	}
	assert.Equal(t, 8, offenders["BRK-001"].Requested)
	assert.Equal(t, 5, offenders["BRK-001"].Available)
	assert.Equal(t, 3, offenders["OIL-001"].Requested)
	assert.Equal(t, 2, offenders["OIL-001"].Available)

	// Nothing was decremented, not even the line that had enough stock.
	p, _ := f.partRepo.FindByPartID(ctx, "AIR-001")
	assert.Equal(t, 20, p.StockQuantity)
	assert.Empty(t, f.partRepo.History())

	stored, _ := f.repo.FindByID(ctx, req.ID)
	assert.Equal(t, model.RequestStatusSCApproved, stored.Status)
}

func TestAssignDecrementsStockAndWritesAudit(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	seeded := f.seedPart(t, "BRK-001", "Brake Pad", 10)

	req := f.submit(t, []dto.RequestItemInput{{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 4}})
	_, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)

	assigned, err := f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: req.ID,
		Assigner:  "inv-mgr",
		Engineer:  "engineer-2",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, assigned.Status)
	require.NotNil(t, assigned.Items[0].PartRef)
	assert.Equal(t, seeded.ID, *assigned.Items[0].PartRef)

	p, _ := f.partRepo.FindByPartID(ctx, "BRK-001")
	assert.Equal(t, 6, p.StockQuantity)

	history := f.partRepo.History()
	require.Len(t, history, 1)
	assert.Equal(t, model.MovementDecrease, history[0].Movement)
	assert.Equal(t, 4, history[0].Quantity)
	assert.Equal(t, 10, history[0].PreviousStock)
	assert.Equal(t, 6, history[0].NewStock)
	require.NotNil(t, history[0].JobCardID)
	assert.Equal(t, "jc-1", *history[0].JobCardID)
	require.NotNil(t, history[0].EngineerName)
	assert.Equal(t, "engineer-2", *history[0].EngineerName)
	require.NotNil(t, history[0].CustomerName)
	assert.Equal(t, "A. Sharma", *history[0].CustomerName)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, dto.EventTypePartsAssigned, event.EventType)
	assert.Equal(t, req.ID, event.Payload.RequestID)
	assert.Equal(t, "engineer-2", event.Payload.Engineer)
	require.Len(t, event.Payload.Items, 1)
	assert.Equal(t, 4, event.Payload.Items[0].Quantity)
}

func TestAssignSkipsUnresolvedWorkItems(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.seedPart(t, "BRK-001", "Brake Pad", 10)

	req := f.submit(t, []dto.RequestItemInput{
		{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 2},
		{PartName: "Custom bracket fabrication", Quantity: 1},
		{PartID: "UNKNOWN-99", PartName: "Mystery part", Quantity: 1},
	})
	_, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)

	assigned, err := f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: req.ID,
		Assigner:  "inv-mgr",
		Engineer:  "engineer-1",
	})
	require.NoError(t, err)

	// Only the resolved line moved stock; the untracked lines stay on the
	// request without a ledger reference.
	require.Len(t, f.partRepo.History(), 1)
	assert.NotNil(t, assigned.Items[0].PartRef)
	assert.Nil(t, assigned.Items[1].PartRef)
	assert.Nil(t, assigned.Items[2].PartRef)
	assert.Len(t, assigned.Items, 3)
}

func TestWorkCompletion(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.seedPart(t, "BRK-001", "Brake Pad", 10)

	req := f.submit(t, []dto.RequestItemInput{{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 2}})

	_, err := f.uc.NotifyWorkCompletion(ctx, req.ID)
	require.ErrorIs(t, err, apperrors.ErrSequenceViolation)

	_, err = f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)
	_, err = f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{RequestID: req.ID, Assigner: "inv-mgr", Engineer: "eng"})
	require.NoError(t, err)

	done, err := f.uc.NotifyWorkCompletion(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, done.WorkCompleted)
	require.NotNil(t, done.WorkCompletedAt)

	again, err := f.uc.NotifyWorkCompletion(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, done.WorkCompletedAt.Unix(), again.WorkCompletedAt.Unix())
}

func TestCompleteByJobCard(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.seedPart(t, "BRK-001", "Brake Pad", 10)

	req := f.submit(t, []dto.RequestItemInput{{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 2}})
	_, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)
	_, err = f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{RequestID: req.ID, Assigner: "inv-mgr", Engineer: "eng"})
	require.NoError(t, err)

	require.NoError(t, f.uc.CompleteByJobCard(ctx, "jc-1"))

	stored, _ := f.repo.FindByID(ctx, req.ID)
	assert.True(t, stored.WorkCompleted)
}

func TestAssignRollsBackStockWhenRequestWriteFails(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)
	f.seedPart(t, "BRK-001", "Brake Pad", 10)

	req := f.submit(t, []dto.RequestItemInput{{PartID: "BRK-001", PartName: "Brake Pad", Quantity: 4}})
	_, err := f.uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)

	f.repo.updateErr = errors.New("connection reset")
	_, err = f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: req.ID,
		Assigner:  "inv-mgr",
		Engineer:  "engineer-1",
	})
	require.Error(t, err)

	// The request write failed inside the stock transaction, so the decrement
	// and its audit row rolled back with it.
	p, _ := f.partRepo.FindByPartID(ctx, "BRK-001")
	assert.Equal(t, 10, p.StockQuantity)
	assert.Empty(t, f.partRepo.History())
	assert.Empty(t, f.publisher.events)

	stored, _ := f.repo.FindByID(ctx, req.ID)
	assert.Equal(t, model.RequestStatusSCApproved, stored.Status)

	// Once the store recovers the same assignment goes through.
	f.repo.updateErr = nil
	assigned, err := f.uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: req.ID,
		Assigner:  "inv-mgr",
		Engineer:  "engineer-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, assigned.Status)

	p, _ = f.partRepo.FindByPartID(ctx, "BRK-001")
	assert.Equal(t, 6, p.StockQuantity)
	require.Len(t, f.partRepo.History(), 1)
}

// fakeLocker hands out every lock immediately and records acquire/release
// pairs so tests can assert the token always comes back.
type fakeLocker struct {
	acquired map[string]string
	released map[string]string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{acquired: map[string]string{}, released: map[string]string{}}
}

func (l *fakeLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	l.acquired[key] = value
	return true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, key, value string) error {
	l.released[key] = value
	return nil
}

func TestLockReleasedOnSuccessAndError(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRequestRepo()
	partRepo := memory.NewRepository()
	locker := newFakeLocker()
	log := logger.NewZapLogger(&logger.ZapLoggerConfig{Level: "error", Encoding: "json"})
	uc := NewRequestUseCase(repo, partRepo, nil, locker, log)

	req, err := uc.Submit(ctx, &dto.SubmitRequestInput{
		JobCardID:   "jc-1",
		RequestedBy: "engineer-1",
		Items:       []dto.RequestItemInput{{PartName: "Brake Pad", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = uc.ApproveBySCManager(ctx, &dto.ApproveInput{RequestID: req.ID, Approver: "sc-mgr"})
	require.NoError(t, err)

	// Error path: assigning an unknown request fails after the lock is held.
	_, err = uc.AssignByInventoryManager(ctx, &dto.AssignInput{
		RequestID: "missing",
		Assigner:  "inv-mgr",
		Engineer:  "engineer-1",
	})
	require.Error(t, err)

	require.Len(t, locker.acquired, 2)
	require.Len(t, locker.released, 2)
	for key, token := range locker.acquired {
		assert.Equal(t, token, locker.released[key], "lock %s released with a different token", key)
	}
}

func TestGetRequestNotFound(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture(t)

	_, err := f.uc.GetRequest(ctx, "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
