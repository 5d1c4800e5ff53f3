package request

import (
	"context"

	"github.com/garagehub/parts-service/internal/model"
	"github.com/garagehub/parts-service/internal/request/dto"
)

type UseCase interface {
	Submit(ctx context.Context, input *dto.SubmitRequestInput) (*model.PartsRequest, error)
	ApproveBySCManager(ctx context.Context, input *dto.ApproveInput) (*model.PartsRequest, error)
	Reject(ctx context.Context, input *dto.RejectInput) (*model.PartsRequest, error)
	AssignByInventoryManager(ctx context.Context, input *dto.AssignInput) (*model.PartsRequest, error)
	NotifyWorkCompletion(ctx context.Context, requestID string) (*model.PartsRequest, error)
	CompleteByJobCard(ctx context.Context, jobCardID string) error
	GetRequest(ctx context.Context, id string) (*model.PartsRequest, error)
	ListRequests(ctx context.Context, filters *dto.RequestFilters) ([]model.PartsRequest, int, error)
}

// EventPublisher hands workflow effects to the job-card subsystem. The
// transport (Kafka) lives in the events package; tests plug in a recorder.
type EventPublisher interface {
	PartsAssigned(ctx context.Context, event *dto.PartsAssignedEvent) error
}
