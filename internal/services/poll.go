package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/downcida/internal/models"
	"golang.org/x/time/rate"
)

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Status performs a single status query for handle.
func (c *Client) Status(ctx context.Context, handle models.JobHandle) (models.JobStatus, error) {
	resp, err := c.getJSON(ctx, c.StatusURL(handle.ServerName, handle.HandoffID))
	if err != nil {
		return models.JobStatus{}, requestError(ctx, "status request failed", err)
	}

	var body statusResponse
	if err := resp.Decode(&body); err != nil {
		if !resp.OK() {
			return models.JobStatus{}, NewDownloadError(TransportError, fmt.Sprintf("status query failed with status %d", resp.StatusCode)).
				WithContext("handoff", handle.HandoffID)
		}
		return models.JobStatus{}, NewDownloadErrorWithCause(MalformedResponse, "status response is not JSON", err).
			WithContext("handoff", handle.HandoffID)
	}

	// a non-2xx answer only counts when it still reports a job status
	if !resp.OK() && body.Status == "" {
		return models.JobStatus{}, NewDownloadError(TransportError, fmt.Sprintf("status query failed with status %d", resp.StatusCode)).
			WithContext("handoff", handle.HandoffID)
	}

	return models.ParseJobStatus(body.Status, body.Message), nil
}

// WaitForCompletion polls the job until it completes, fails, or the wait is abandoned.
//
// The first query is sent immediately and later query starts are spaced by the poll interval.
// onProgress receives one [EventPending] per query that found the job still running.
func (c *Client) WaitForCompletion(ctx context.Context, handle models.JobHandle, onProgress ProgressFunc) error {
	parent := ctx
	if c.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.maxWait)
		defer cancel()
	}

	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)

	for attempt := 1; ; attempt++ {
		if err := pace(ctx, limiter); err != nil {
			return c.waitError(parent, handle, err)
		}

		status, err := c.Status(ctx, handle)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
				return c.waitError(parent, handle, err)
			}
			return err
		}

		switch status.State {
		case models.JobCompleted:
			c.logger.Debug("job completed", "handoff", handle.HandoffID, "polls", attempt)
			return nil
		case models.JobFailed:
			return NewDownloadError(JobFailed, status.Message).WithContext("handoff", handle.HandoffID)
		default:
			c.logger.Debug("job pending", "handoff", handle.HandoffID, "attempt", attempt)
			onProgress.emit(ProgressEvent{Kind: EventPending, Attempt: attempt})
		}
	}
}

// pace blocks until limiter grants the next query or ctx is done.
//
// A next slot that falls after the deadline still waits for the deadline itself, so max_wait is never cut short.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitError classifies an abandoned wait: the caller's cancellation wins, otherwise max_wait elapsed.
func (c *Client) waitError(parent context.Context, handle models.JobHandle, cause error) error {
	if err := parent.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NewDownloadErrorWithCause(Timeout, "deadline exceeded while waiting for job", err).
				WithContext("handoff", handle.HandoffID)
		}
		return NewDownloadErrorWithCause(Cancelled, "wait cancelled", err).WithContext("handoff", handle.HandoffID)
	}
	message := "deadline exceeded while waiting for job"
	if c.maxWait > 0 {
		message = fmt.Sprintf("job did not finish within %s", c.maxWait)
	}
	return NewDownloadErrorWithCause(Timeout, message, cause).WithContext("handoff", handle.HandoffID)
}
