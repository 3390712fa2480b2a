package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/events"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/jobs"
)

// Job types handled by the event queue.
const (
	JobPaymentRecorded   = "payment.recorded"
	JobEnrollmentDecided = "enrollment.decided"
)

// EventTopics names the broker topics per event kind.
type EventTopics struct {
	Payment  string
	Approval string
}

// EventService publishes domain events asynchronously through a job queue so
// request handlers never wait on the broker.
type EventService struct {
	publisher events.Publisher
	topics    EventTopics
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventService wires the publisher behind a retrying queue.
func NewEventService(publisher events.Publisher, topics EventTopics, cfg jobs.QueueConfig, metrics *MetricsService, logger *zap.Logger) *EventService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EventService{publisher: publisher, topics: topics, metrics: metrics, logger: logger}
	cfg.Logger = logger
	cfg.OnDiscard = func(job jobs.Job, _ error) { metrics.RecordEventDropped(job.Type) }

	mux := jobs.NewMux()
	mux.Handle(JobPaymentRecorded, svc.publishPayment)
	mux.Handle(JobEnrollmentDecided, svc.publishDecision)
	svc.queue = jobs.NewQueue("events", mux.Dispatch, cfg)
	return svc
}

// Start launches the publishing workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers and closes the publisher.
func (s *EventService) Stop() {
	s.queue.Stop()
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("close event publisher", zap.Error(err))
	}
}

// PaymentRecorded queues a payment event.
func (s *EventService) PaymentRecorded(ctx context.Context, event models.PaymentRecordedEvent) {
	s.enqueue(ctx, JobPaymentRecorded, event)
}

// EnrollmentDecided queues an approval or rejection event.
func (s *EventService) EnrollmentDecided(ctx context.Context, event models.EnrollmentDecidedEvent) {
	s.enqueue(ctx, JobEnrollmentDecided, event)
}

func (s *EventService) enqueue(_ context.Context, jobType string, payload interface{}) {
	if s == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: payload}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordEventDropped(jobType)
		s.logger.Warn("event dropped", zap.String("type", jobType), zap.Error(err))
	}
}

func (s *EventService) publishPayment(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.PaymentRecordedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	return s.publish(ctx, s.topics.Payment, event.RecordID, event)
}

func (s *EventService) publishDecision(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.EnrollmentDecidedEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	return s.publish(ctx, s.topics.Approval, event.EnrollmentID, event)
}

func (s *EventService) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := s.publisher.Publish(ctx, topic, key, event)
	s.metrics.RecordEventPublished(topic, err)
	return err
}
