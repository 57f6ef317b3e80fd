package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/premierdental/nova-voice-ai/internal/leads"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// CallPlacer starts an outbound call and returns the provider call SID.
type CallPlacer interface {
	InitiateQualificationCall(ctx context.Context, toNumber, leadID string) (string, error)
}

// DNCChecker reports whether a phone number is on the do-not-call list.
type DNCChecker interface {
	Contains(ctx context.Context, phone string) (bool, error)
}

// Dialer consumes dial jobs from the queue and places calls.
type Dialer struct {
	queue  queueClient
	caller CallPlacer
	dnc    DNCChecker
	repo   leads.Repository
	logger *logging.Logger

	cfg dialerConfig
	wg  sync.WaitGroup
}

type dialerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// DialerOption customizes dialer behavior.
type DialerOption func(*dialerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) DialerOption {
	return func(cfg *dialerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) DialerOption {
	return func(cfg *dialerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) DialerOption {
	return func(cfg *dialerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// NewDialer constructs a queue consumer that places outbound calls.
func NewDialer(queue queueClient, caller CallPlacer, dnc DNCChecker, repo leads.Repository, logger *logging.Logger, opts ...DialerOption) *Dialer {
	if queue == nil {
		panic("worker: queue cannot be nil")
	}
	if caller == nil {
		panic("worker: call placer cannot be nil")
	}
	if repo == nil {
		panic("worker: leads repository cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := dialerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Dialer{
		queue:  queue,
		caller: caller,
		dnc:    dnc,
		repo:   repo,
		logger: logger,
		cfg:    cfg,
	}
}

// Start launches dialer goroutines until ctx is cancelled.
func (d *Dialer) Start(ctx context.Context) {
	for i := 0; i < d.cfg.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i+1)
	}
}

// Wait blocks until all dialer goroutines exit.
func (d *Dialer) Wait() {
	d.wg.Wait()
}

func (d *Dialer) run(ctx context.Context, workerID int) {
	defer d.wg.Done()
	d.logger.Debug("dialer started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("dialer stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := d.queue.Receive(ctx, d.cfg.receiveBatchSize, d.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("failed to receive dial jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			d.handleMessage(ctx, msg)
		}
	}
}

func (d *Dialer) handleMessage(ctx context.Context, msg queueMessage) {
	var job DialJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		d.logger.Error("failed to decode dial job", "error", err)
		d.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	d.logger.Info("processing dial job", "job_id", job.ID, "lead_id", job.LeadID)
	d.dial(ctx, job)
	d.deleteMessage(context.Background(), msg.ReceiptHandle)
}

// dial re-checks the do-not-call list at dial time. A failed check
// counts as listed: when in doubt, the number is not called.
func (d *Dialer) dial(ctx context.Context, job DialJob) {
	if d.dnc != nil {
		listed, err := d.dnc.Contains(ctx, job.Phone)
		if err != nil {
			d.logger.Error("dnc check failed, treating number as listed", "error", err, "lead_id", job.LeadID)
			listed = true
		}
		if listed {
			d.logger.Info("skipping dial: number on do-not-call list", "job_id", job.ID, "lead_id", job.LeadID)
			d.markStatus(ctx, job.LeadID, "", leads.CallStatusFailed)
			return
		}
	}

	callSID, err := d.caller.InitiateQualificationCall(ctx, job.Phone, job.LeadID)
	if err != nil {
		d.logger.Error("failed to initiate call", "error", err, "job_id", job.ID, "lead_id", job.LeadID)
		d.markStatus(ctx, job.LeadID, "", leads.CallStatusFailed)
		return
	}

	d.logger.Info("call placed", "job_id", job.ID, "lead_id", job.LeadID, "call_sid", callSID)
	d.markStatus(ctx, job.LeadID, callSID, leads.CallStatusInitiated)
}

func (d *Dialer) markStatus(ctx context.Context, leadID, callSID, status string) {
	if err := d.repo.UpdateCallStatus(ctx, leadID, callSID, status); err != nil {
		d.logger.Error("failed to update lead call status", "error", err, "lead_id", leadID, "status", status)
	}
}

func (d *Dialer) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := d.queue.Delete(deleteCtx, receiptHandle); err != nil {
		d.logger.Error("failed to delete dial job", "error", err)
	}
}
