package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/garagehub/parts-service/internal/request"
	"github.com/garagehub/parts-service/pkg/broker"
	"github.com/garagehub/parts-service/pkg/logger"
	"go.uber.org/zap"
)

// JobCardListener consumes job-card lifecycle events and folds them back into
// the request workflow: a completed job card marks its assigned requests'
// work-completion annotation.
type JobCardListener struct {
	consumer *broker.KafkaConsumer
	uc       request.UseCase
	logger   logger.ZapLogger
}

func NewJobCardListener(consumer *broker.KafkaConsumer, uc request.UseCase, log logger.ZapLogger) *JobCardListener {
	return &JobCardListener{
		consumer: consumer,
		uc:       uc,
		logger:   log,
	}
}

func (l *JobCardListener) Start(ctx context.Context) {
	l.logger.Info("starting job card listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("stopping job card listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type JobCardEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   JobCardPayload `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type JobCardPayload struct {
	JobCardID string `json:"job_card_id"`
}

func (l *JobCardListener) processMessage(ctx context.Context, value []byte) {
	var event JobCardEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("failed to unmarshal job card event", zap.Error(err))
		return
	}

	if event.EventType != "JobCardCompleted" {
		return
	}

	l.logger.Info("processing JobCardCompleted event", zap.String("job_card_id", event.Payload.JobCardID))

	if err := l.uc.CompleteByJobCard(ctx, event.Payload.JobCardID); err != nil {
		l.logger.Error("failed to apply job card completion",
			zap.String("job_card_id", event.Payload.JobCardID),
			zap.Error(err),
		)
	}
}
