package core

// tracker.go tracks the progress of batch-creation operations.
//
// An operation starts in StatusProcessing with one pending item per row.
// The batch processor is the single writer for an operation: it records
// each item's outcome exactly once, and the tracker flips the operation
// to StatusCompleted when the last item lands. StatusFailed is reserved
// for batches that could not begin at all. There is no cancelled state;
// a started batch always runs to a terminal status.
//
// Get returns deep-copied snapshots, so pollers can read concurrently
// with the writing batch and still see consistent, monotonic counts.

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultOperationRetention is how long terminal operations are kept so
// a polling client can fetch the final snapshot.
const DefaultOperationRetention = 24 * time.Hour

type operation struct {
	OperationID string
	Status      OperationStatus
	Total       int
	Completed   int
	Failed      int
	Items       []ItemResult
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// OperationTracker is an in-memory registry of operation progress.
type OperationTracker struct {
	reg *registry[*operation]
	now func() time.Time
}

// NewOperationTracker creates an empty tracker using wall-clock time.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{
		reg: newRegistry[*operation](),
		now: time.Now,
	}
}

// Start registers a new operation for total items and returns its id.
// summaries carries the per-row summary snapshots shown while items are
// still pending; extra entries are ignored.
func (t *OperationTracker) Start(total int, summaries []string) string {
	op := &operation{
		OperationID: uuid.NewString(),
		Status:      StatusProcessing,
		Total:       total,
		Items:       make([]ItemResult, total),
		StartedAt:   t.now(),
	}
	for i := range op.Items {
		op.Items[i] = ItemResult{Index: i, Outcome: OutcomePending}
		if i < len(summaries) {
			op.Items[i].Summary = summaries[i]
		}
	}
	// A zero-item operation has nothing to attempt; completion would
	// otherwise never fire and the entry could never be swept.
	if total <= 0 {
		op.Status = StatusCompleted
		now := op.StartedAt
		op.CompletedAt = &now
	}
	t.reg.put(op.OperationID, op)
	return op.OperationID
}

// RecordItemResult transitions item index from pending to outcome and
// updates the counts. Each item may be recorded exactly once; recording
// a non-pending item or an unknown operation is an error.
func (t *OperationTracker) RecordItemResult(operationID string, index int, outcome ItemOutcome, ref TicketRef, errMsg string) error {
	op, ok := t.reg.get(operationID)
	if !ok {
		return ErrOperationNotFound
	}

	t.reg.mu.Lock()
	defer t.reg.mu.Unlock()

	if index < 0 || index >= len(op.Items) {
		return fmt.Errorf("item index %d out of range for operation %s", index, operationID)
	}
	item := &op.Items[index]
	if item.Outcome != OutcomePending {
		return fmt.Errorf("item %d of operation %s already recorded as %s", index, operationID, item.Outcome)
	}

	switch outcome {
	case OutcomeCreated:
		item.Outcome = OutcomeCreated
		item.TicketKey = ref.Key
		item.TicketID = ref.ID
		op.Completed++
	case OutcomeFailed:
		item.Outcome = OutcomeFailed
		item.Error = errMsg
		op.Failed++
	default:
		return fmt.Errorf("invalid item outcome %q", outcome)
	}

	// The operation completes the moment the last item is attempted,
	// even when every single item failed.
	if op.Completed+op.Failed == op.Total && op.Status == StatusProcessing {
		op.Status = StatusCompleted
		now := t.now()
		op.CompletedAt = &now
	}
	return nil
}

// Fail marks an operation that could not begin as terminally failed.
// It is a no-op for operations already in a terminal state.
func (t *OperationTracker) Fail(operationID, errMsg string) {
	op, ok := t.reg.get(operationID)
	if !ok {
		return
	}

	t.reg.mu.Lock()
	defer t.reg.mu.Unlock()

	if op.Status.Terminal() {
		return
	}
	op.Status = StatusFailed
	op.Error = errMsg
	now := t.now()
	op.CompletedAt = &now
}

// Get returns a deep-copied snapshot of the operation, or
// ErrOperationNotFound.
func (t *OperationTracker) Get(operationID string) (OperationSnapshot, error) {
	op, ok := t.reg.get(operationID)
	if !ok {
		return OperationSnapshot{}, ErrOperationNotFound
	}

	t.reg.mu.RLock()
	defer t.reg.mu.RUnlock()

	snap := OperationSnapshot{
		OperationID: op.OperationID,
		Status:      op.Status,
		Total:       op.Total,
		Completed:   op.Completed,
		Failed:      op.Failed,
		Items:       make([]ItemResult, len(op.Items)),
		Error:       op.Error,
		StartedAt:   op.StartedAt,
	}
	copy(snap.Items, op.Items)
	if op.CompletedAt != nil {
		completedAt := *op.CompletedAt
		snap.CompletedAt = &completedAt
	}
	return snap, nil
}

// Len returns the number of tracked operations.
func (t *OperationTracker) Len() int {
	return t.reg.len()
}

// SweepExpired removes operations started more than maxAge ago.
// Returns the number removed. Operations still processing are kept; a
// batch cannot be aborted, so its record must outlive the window.
func (t *OperationTracker) SweepExpired(maxAge time.Duration) int {
	cutoff := t.now().Add(-maxAge)
	removed := t.reg.sweep(func(op *operation) bool {
		return op.Status.Terminal() && op.StartedAt.Before(cutoff)
	})
	for _, op := range removed {
		slog.Info("expired operation removed",
			"operation_id", op.OperationID,
			"status", op.Status,
			"total", op.Total,
		)
	}
	return len(removed)
}
