package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/observability/metrics"
	"live-interview-service/internal/service/segment"
)

// DefaultPollInterval is the wait between job status polls.
const DefaultPollInterval = 3 * time.Second

// Client executes the upload → submit → poll protocol for one segment at a
// time. A Client is safe for concurrent use; each Transcribe call is
// independent of every other.
type Client struct {
	adapter      Adapter
	pollInterval time.Duration
	metrics      *metrics.Metrics
}

// NewClient creates a Client. A non-positive pollInterval selects the default.
func NewClient(adapter Adapter, pollInterval time.Duration) *Client {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Client{
		adapter:      adapter,
		pollInterval: pollInterval,
		metrics:      metrics.DefaultMetrics,
	}
}

// Provider returns the adapter name.
func (c *Client) Provider() string {
	return c.adapter.Name()
}

// Transcribe runs the protocol for a segment and returns its text.
//
// The lifecycle is advanced through UPLOADED and SUBMITTED; the caller owns
// the terminal transition. ctx is checked before every step: when it is done
// Transcribe stops at once and returns ctx.Err() unwrapped, so the caller can
// tell cancellation apart from a *TranscriptionError. Polling has no attempt
// bound other than ctx.
func (c *Client) Transcribe(ctx context.Context, sessionId string, lc *segment.Lifecycle, audio []byte) (string, error) {
	logger := logging.WithSegment("stt", sessionId, lc.Index(), lc.IsFinal())
	provider := c.adapter.Name()
	index := lc.Index()

	c.metrics.TranscriptionInFlight.Inc()
	defer c.metrics.TranscriptionInFlight.Dec()

	// 1. Upload
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := time.Now()
	uploadRef, err := c.adapter.Upload(ctx, audio)
	c.metrics.RecordStage(provider, string(StageUpload), time.Since(start).Seconds())
	if err != nil {
		return "", c.fail(ctx, StageUpload, index, err)
	}
	if err := lc.MarkUploaded(); err != nil {
		return "", err
	}
	logger.Debug().Int("bytes", len(audio)).Msg("Segment uploaded")

	// 2. Submit
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start = time.Now()
	jobID, err := c.adapter.Submit(ctx, uploadRef)
	c.metrics.RecordStage(provider, string(StageSubmit), time.Since(start).Seconds())
	if err != nil {
		return "", c.fail(ctx, StageSubmit, index, err)
	}
	if err := lc.MarkSubmitted(); err != nil {
		return "", err
	}
	logger.Debug().Str("jobId", jobID).Msg("Transcription job submitted")

	// 3. Poll
	start = time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		status, err := c.adapter.Poll(ctx, jobID)
		c.metrics.RecordPoll()
		if err != nil {
			return "", c.fail(ctx, StageJob, index, err)
		}

		switch status.State {
		case JobCompleted:
			c.metrics.RecordStage(provider, string(StageJob), time.Since(start).Seconds())
			logger.Debug().
				Str("jobId", jobID).
				Int("polls", attempt).
				Msg("Transcription job completed")
			return status.Text, nil
		case JobFailed:
			reason := status.Error
			if reason == "" {
				reason = "job reported failed"
			}
			return "", c.fail(ctx, StageJob, index, errors.New(reason))
		case JobQueued, JobProcessing:
			// keep polling
		default:
			logger.Warn().
				Str("jobId", jobID).
				Str("status", string(status.State)).
				Msg("Unknown job status, continuing to poll")
		}
	}
}

// fail wraps err as a TranscriptionError unless ctx was cancelled while the
// call was in flight, in which case the cancellation wins.
func (c *Client) fail(ctx context.Context, stage Stage, index int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.metrics.RecordTranscriptionFailure(c.adapter.Name(), string(stage))
	return newError(stage, index, fmt.Errorf("%s: %w", c.adapter.Name(), err))
}
