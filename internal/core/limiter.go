package core

// limiter.go bounds concurrent upload validation.
//
// Parsing and validating a spreadsheet is CPU- and memory-bound, so the
// service caps how many uploads run at once using a semaphore. When all
// slots are busy, a request waits up to maxWait before being rejected
// with ErrTooManyUploads.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyUploads is returned when all upload slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

// Limiter defaults, used when the configured values are non-positive.
const (
	DefaultMaxConcurrentUploads = 5
	DefaultMaxWaitTime          = 30 * time.Second
)

// UploadLimiter controls concurrent upload processing.
type UploadLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewUploadLimiter creates a limiter allowing at most maxConcurrent
// simultaneous uploads.
func NewUploadLimiter(maxConcurrent int, maxWait time.Duration) *UploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &UploadLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire blocks until a slot is free, the wait times out, or ctx is
// cancelled. The caller MUST call Release after a nil return (use defer).
func (l *UploadLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
}

// Release frees a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *UploadLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of uploads currently being processed.
func (l *UploadLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}
