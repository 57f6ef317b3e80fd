// Package worker consumes dial jobs from a queue and places outbound
// qualification calls.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// DialJob asks the dialer to call one lead.
type DialJob struct {
	ID     string `json:"id"`
	LeadID string `json:"lead_id"`
	Phone  string `json:"phone"`
}

func encodeDialJob(job DialJob) (DialJob, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return DialJob{}, "", fmt.Errorf("worker: failed to encode dial job: %w", err)
	}

	return job, string(body), nil
}
