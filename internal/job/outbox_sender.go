package job

import (
	"context"
	"time"

	"nexos/internal/config"
	"nexos/internal/infrastructure/metrics"
	"nexos/internal/model"
	"nexos/internal/repository"
	"nexos/pkg/logger"

	"gorm.io/gorm"
)

type Publisher interface {
	Publish(topic, key, value string) error
}

// OutboxSender relays pending outbox rows to Kafka in id order.
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     Publisher
	maxRetryCount int
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config, publisher Publisher) *OutboxSender {
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		maxRetryCount: cfg.Business.MaxRetryCount,
		stopCh:        make(chan struct{}),
		interval:      100 * time.Millisecond,
		batchSize:     100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	logger.Info("outbox sender started", nil)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox sender stopped", logger.Fields{"reason": "context done"})
			return
		case <-s.stopCh:
			logger.Info("outbox sender stopped", nil)
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// Flush sends one batch of pending messages.
func (s *OutboxSender) Flush(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		logger.Error("load pending outbox messages failed", logger.Fields{"error": err.Error()})
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		metrics.OutboxSentTotal.WithLabelValues(metrics.ResultOK).Inc()
		if err := s.outboxRepo.MarkSent(ctx, msg.ID); err != nil {
			logger.Error("mark outbox message sent failed", logger.Fields{"id": msg.ID, "error": err.Error()})
		}
		return
	}

	metrics.OutboxSentTotal.WithLabelValues(metrics.ResultFailed).Inc()
	logger.Warn("publish outbox message failed", logger.Fields{
		"id":    msg.ID,
		"topic": msg.Topic,
		"event": msg.EventType,
		"error": err.Error(),
	})

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		logger.Error("increment outbox retry count failed", logger.Fields{"id": msg.ID, "error": err.Error()})
	}

	if msg.RetryCount+1 >= s.maxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			logger.Error("mark outbox message failed failed", logger.Fields{"id": msg.ID, "error": err.Error()})
			return
		}
		logger.Error("outbox message exceeded max retries", logger.Fields{"id": msg.ID, "retries": msg.RetryCount + 1})
	}
}
