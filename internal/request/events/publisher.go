package events

import (
	"context"
	"encoding/json"

	"github.com/garagehub/parts-service/internal/request"
	"github.com/garagehub/parts-service/internal/request/dto"
	"github.com/garagehub/parts-service/pkg/broker"
)

// KafkaPublisher writes workflow events to the job-card topic, keyed by job
// card so consumers see per-card ordering.
type KafkaPublisher struct {
	producer *broker.KafkaProducer
}

var _ request.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer *broker.KafkaProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) PartsAssigned(ctx context.Context, event *dto.PartsAssignedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, []byte(event.Payload.JobCardID), value)
}
