package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestOperationTracker_Lifecycle(t *testing.T) {
	tracker := NewOperationTracker()

	id := tracker.Start(3, []string{"first", "second", "third"})
	if id == "" {
		t.Fatal("Start returned empty operation id")
	}

	snap, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Status != StatusProcessing {
		t.Errorf("initial status = %s, want %s", snap.Status, StatusProcessing)
	}
	if snap.Total != 3 || snap.Completed != 0 || snap.Failed != 0 {
		t.Errorf("initial counts = %d/%d/%d, want 3/0/0", snap.Total, snap.Completed, snap.Failed)
	}
	for i, item := range snap.Items {
		if item.Outcome != OutcomePending {
			t.Errorf("item %d outcome = %s, want pending", i, item.Outcome)
		}
	}
	if snap.Items[1].Summary != "second" {
		t.Errorf("item 1 summary = %q, want %q", snap.Items[1].Summary, "second")
	}

	// Two successes, one failure.
	if err := tracker.RecordItemResult(id, 0, OutcomeCreated, TicketRef{Key: "PROJ-1", ID: "10001"}, ""); err != nil {
		t.Fatalf("record item 0: %v", err)
	}
	if err := tracker.RecordItemResult(id, 1, OutcomeFailed, TicketRef{}, "HTTP 400: bad field"); err != nil {
		t.Fatalf("record item 1: %v", err)
	}

	snap, _ = tracker.Get(id)
	if snap.Status != StatusProcessing {
		t.Errorf("mid-batch status = %s, want still processing", snap.Status)
	}
	if snap.Completed != 1 || snap.Failed != 1 {
		t.Errorf("mid-batch counts = %d/%d, want 1/1", snap.Completed, snap.Failed)
	}

	if err := tracker.RecordItemResult(id, 2, OutcomeCreated, TicketRef{Key: "PROJ-2", ID: "10002"}, ""); err != nil {
		t.Fatalf("record item 2: %v", err)
	}

	snap, _ = tracker.Get(id)
	if snap.Status != StatusCompleted {
		t.Errorf("final status = %s, want %s", snap.Status, StatusCompleted)
	}
	if snap.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}
	if snap.Items[0].TicketKey != "PROJ-1" {
		t.Errorf("item 0 key = %q, want PROJ-1", snap.Items[0].TicketKey)
	}
	if snap.Items[1].Error != "HTTP 400: bad field" {
		t.Errorf("item 1 error = %q", snap.Items[1].Error)
	}
}

func TestOperationTracker_AllItemsFailedStillCompletes(t *testing.T) {
	tracker := NewOperationTracker()
	id := tracker.Start(2, nil)

	tracker.RecordItemResult(id, 0, OutcomeFailed, TicketRef{}, "boom")
	tracker.RecordItemResult(id, 1, OutcomeFailed, TicketRef{}, "boom")

	snap, _ := tracker.Get(id)
	if snap.Status != StatusCompleted {
		t.Errorf("status = %s, want completed even with zero successes", snap.Status)
	}
	if snap.Failed != 2 {
		t.Errorf("failed = %d, want 2", snap.Failed)
	}
}

func TestOperationTracker_ZeroTotalCompletesImmediately(t *testing.T) {
	tracker := NewOperationTracker()
	current := time.Now()
	tracker.now = func() time.Time { return current }

	id := tracker.Start(0, nil)

	snap, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("status = %s, want completed with nothing to attempt", snap.Status)
	}
	if snap.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	// Terminal from birth, so the retention sweep can remove it.
	current = current.Add(25 * time.Hour)
	if removed := tracker.SweepExpired(DefaultOperationRetention); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestOperationTracker_DoubleRecordRejected(t *testing.T) {
	tracker := NewOperationTracker()
	id := tracker.Start(1, nil)

	if err := tracker.RecordItemResult(id, 0, OutcomeCreated, TicketRef{Key: "PROJ-1"}, ""); err != nil {
		t.Fatalf("first record: %v", err)
	}
	err := tracker.RecordItemResult(id, 0, OutcomeFailed, TicketRef{}, "late")
	if err == nil {
		t.Fatal("second record of same item succeeded, want error")
	}
	if !strings.Contains(err.Error(), "already recorded") {
		t.Errorf("error = %v, want already-recorded message", err)
	}

	// Counts unchanged by the rejected write.
	snap, _ := tracker.Get(id)
	if snap.Completed != 1 || snap.Failed != 0 {
		t.Errorf("counts = %d/%d, want 1/0", snap.Completed, snap.Failed)
	}
}

func TestOperationTracker_RecordBounds(t *testing.T) {
	tracker := NewOperationTracker()
	id := tracker.Start(1, nil)

	if err := tracker.RecordItemResult(id, 5, OutcomeCreated, TicketRef{}, ""); err == nil {
		t.Error("out-of-range index accepted")
	}
	if err := tracker.RecordItemResult("nope", 0, OutcomeCreated, TicketRef{}, ""); !errors.Is(err, ErrOperationNotFound) {
		t.Errorf("unknown operation error = %v, want ErrOperationNotFound", err)
	}
}

func TestOperationTracker_Fail(t *testing.T) {
	tracker := NewOperationTracker()
	id := tracker.Start(2, nil)

	tracker.Fail(id, "jira connection failed: request timeout")

	snap, _ := tracker.Get(id)
	if snap.Status != StatusFailed {
		t.Errorf("status = %s, want %s", snap.Status, StatusFailed)
	}
	if snap.Error != "jira connection failed: request timeout" {
		t.Errorf("error = %q", snap.Error)
	}
	if snap.CompletedAt == nil {
		t.Error("CompletedAt not set on failure")
	}

	// Fail on a terminal operation is a no-op.
	tracker.Fail(id, "second failure")
	snap, _ = tracker.Get(id)
	if snap.Error != "jira connection failed: request timeout" {
		t.Errorf("terminal error overwritten: %q", snap.Error)
	}
}

func TestOperationTracker_GetNotFound(t *testing.T) {
	tracker := NewOperationTracker()
	if _, err := tracker.Get("missing"); !errors.Is(err, ErrOperationNotFound) {
		t.Errorf("error = %v, want ErrOperationNotFound", err)
	}
}

func TestOperationTracker_SnapshotIsolation(t *testing.T) {
	tracker := NewOperationTracker()
	id := tracker.Start(1, []string{"one"})

	snap, _ := tracker.Get(id)
	snap.Items[0].Summary = "mutated"

	fresh, _ := tracker.Get(id)
	if fresh.Items[0].Summary != "one" {
		t.Error("mutating a snapshot leaked into the tracker")
	}
}

func TestOperationTracker_SweepExpired(t *testing.T) {
	tracker := NewOperationTracker()
	current := time.Now()
	tracker.now = func() time.Time { return current }

	oldDone := tracker.Start(1, nil)
	tracker.RecordItemResult(oldDone, 0, OutcomeCreated, TicketRef{Key: "PROJ-1"}, "")
	stillRunning := tracker.Start(1, nil)

	// Advance past the retention window.
	current = current.Add(25 * time.Hour)
	freshDone := tracker.Start(1, nil)
	tracker.RecordItemResult(freshDone, 0, OutcomeCreated, TicketRef{Key: "PROJ-2"}, "")

	removed := tracker.SweepExpired(DefaultOperationRetention)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := tracker.Get(oldDone); !errors.Is(err, ErrOperationNotFound) {
		t.Error("expired terminal operation survived the sweep")
	}
	// Non-terminal operations survive regardless of age.
	if _, err := tracker.Get(stillRunning); err != nil {
		t.Error("processing operation was swept")
	}
	if _, err := tracker.Get(freshDone); err != nil {
		t.Error("fresh operation was swept")
	}
}
