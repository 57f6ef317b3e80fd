package worker

import (
	"context"
	"fmt"

	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// Publisher enqueues dial jobs for asynchronous processing.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("worker: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueDial publishes a dial job for a lead.
func (p *Publisher) EnqueueDial(ctx context.Context, leadID, phone string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	job, body, err := encodeDialJob(DialJob{LeadID: leadID, Phone: phone})
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("worker: failed to enqueue dial job: %w", err)
	}

	p.logger.Debug("dial job enqueued", "job_id", job.ID, "lead_id", leadID)
	return nil
}
