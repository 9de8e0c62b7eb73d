package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/aodn/pipeline/pipelineerr"
)

// RetryingBroker wraps a StorageBroker with bounded exponential backoff on
// sink_transient errors (spec.md §7: "Sink transient errors are retried
// with bounded exponential backoff at the sink-client layer. After retries
// exhausted, they become sink_permanent at the publisher level."), grounded
// on the teacher's client/client.go retriable/terminal split and its use of
// github.com/cenkalti/backoff for ChunkedArtifact.pushLogChunks.
type RetryingBroker struct {
	inner      StorageBroker
	maxElapsed time.Duration
}

// NewRetryingBroker wraps inner with a bounded exponential backoff retrier.
// A maxElapsed of zero uses a 30s bound, matching the teacher's
// client.go's 15s MaxInterval scaled up for larger file transfers.
func NewRetryingBroker(inner StorageBroker, maxElapsed time.Duration) *RetryingBroker {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &RetryingBroker{inner: inner, maxElapsed: maxElapsed}
}

func (r *RetryingBroker) Scheme() string { return r.inner.Scheme() }

func (r *RetryingBroker) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = r.maxElapsed
	return b
}

// retry runs op, retrying only while op returns a sink_transient
// *pipelineerr.Error. Once retries are exhausted it rewraps the last error
// as sink_permanent, per spec.md §7.
func (r *RetryingBroker) retry(op func() error) error {
	var lastErr error
	err := backoff.Retry(func() error {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if pe, ok := lastErr.(*pipelineerr.Error); ok && pe.IsTransient() {
			return lastErr
		}
		// Not transient: stop retrying immediately.
		return backoff.Permanent(lastErr)
	}, r.newBackoff())

	if err == nil {
		return nil
	}
	if pe, ok := lastErr.(*pipelineerr.Error); ok && pe.IsTransient() {
		return pipelineerr.NewSinkPermanent("retries exhausted: %v", pe)
	}
	return lastErr
}

func (r *RetryingBroker) Put(ctx context.Context, localPath, remotePath string) error {
	return r.retry(func() error { return r.inner.Put(ctx, localPath, remotePath) })
}

func (r *RetryingBroker) Delete(ctx context.Context, remotePath string) error {
	return r.retry(func() error { return r.inner.Delete(ctx, remotePath) })
}

func (r *RetryingBroker) Exists(ctx context.Context, remotePath string) (bool, error) {
	var exists bool
	err := r.retry(func() error {
		var innerErr error
		exists, innerErr = r.inner.Exists(ctx, remotePath)
		return innerErr
	})
	return exists, err
}

var _ StorageBroker = (*RetryingBroker)(nil)
