package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.BatchSize <= 0:
		return errors.New("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be greater than 0")
	case c.RetryAttempts <= 0:
		return errors.New("retry attempts must be greater than 0")
	case c.RetryDelay < 0:
		return errors.New("retry delay cannot be negative")
	}
	return nil
}

// OutboxProcessor publishes ledger events recorded in the outbox to the broker,
// using each event type as the topic.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor",
		"batch_size", p.config.BatchSize,
		"poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessOnce publishes one batch and returns how many events went out.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	published, err := p.repo.ProcessPending(ctx, p.config.BatchSize, func(event *model.OutboxEvent) error {
		return p.publish(ctx, event)
	})
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("process_outbox", "error").Inc()
		return published, fmt.Errorf("failed to process pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("process_outbox", "success").Inc()

	if published > 0 {
		p.logger.Debug("Published outbox events", "count", published)
	}
	return published, nil
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	attempt := 0
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		attempt++
		return p.broker.Publish(ctx, event.EventType, event.Payload)
	})
	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		p.logger.Error(err, "Failed to publish event",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"retry_count", event.RetryCount)
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	return nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
