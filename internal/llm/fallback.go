package llm

import (
	"context"
	"math/rand"
	"time"

	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

const retryBaseDelay = 200 * time.Millisecond

// FallbackClient wraps a primary client with bounded retries and an optional
// fallback provider. The primary is retried up to maxRetries times with a
// jittered delay before the fallback is consulted.
type FallbackClient struct {
	primary    Client
	fallback   Client
	maxRetries int
	logger     *logging.Logger

	// sleep is swappable in tests.
	sleep func(context.Context, time.Duration) error
}

// NewFallbackClient creates a fallback-enabled client. If fallback is nil the
// client only retries the primary provider.
func NewFallbackClient(primary, fallback Client, maxRetries int, logger *logging.Logger) *FallbackClient {
	if primary == nil {
		panic("llm: primary client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &FallbackClient{
		primary:    primary,
		fallback:   fallback,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Complete tries the primary provider, retrying transient failures, then
// switches to the fallback provider for a final attempt.
func (c *FallbackClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		c.logger.Warn("primary LLM failed, retrying",
			"error", err.Error(),
			"attempt", attempt,
		)
		delay := retryBaseDelay + time.Duration(rand.Int63n(int64(retryBaseDelay)))
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return Response{}, sleepErr
		}

		resp, err = c.primary.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
	}

	if c.fallback == nil {
		return Response{}, err
	}

	c.logger.Warn("primary LLM exhausted, attempting fallback", "error", err.Error())

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return Response{}, fallbackErr
	}

	c.logger.Info("fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
