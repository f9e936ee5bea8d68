package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// scriptedCreator fails the indices listed in failAt and succeeds the
// rest, recording the order records arrive in.
type scriptedCreator struct {
	failAt map[int]error
	calls  []string
	next   int
}

func (c *scriptedCreator) CreateTicket(ctx context.Context, rec TicketRecord) (TicketRef, error) {
	i := c.next
	c.next++
	c.calls = append(c.calls, rec.Summary)
	if err, ok := c.failAt[i]; ok {
		return TicketRef{}, err
	}
	return TicketRef{Key: fmt.Sprintf("PROJ-%d", i+1), ID: fmt.Sprintf("1000%d", i)}, nil
}

func testRecords(n int) []TicketRecord {
	recs := make([]TicketRecord, n)
	for i := range recs {
		recs[i] = TicketRecord{
			Summary:     fmt.Sprintf("ticket %d", i),
			Description: "desc",
			IssueType:   "task",
			Priority:    "medium",
		}
	}
	return recs
}

func TestBatchProcessor_CreateMany(t *testing.T) {
	creator := &scriptedCreator{failAt: map[int]error{1: errors.New("request timeout")}}
	tracker := NewOperationTracker()
	proc := NewBatchProcessor(creator, tracker, time.Millisecond)
	proc.sleep = func(time.Duration) {}

	records := testRecords(3)
	id := tracker.Start(len(records), nil)

	result := proc.CreateMany(context.Background(), id, records)

	if result.Total != 3 || result.Successful != 2 || result.Failed != 1 {
		t.Fatalf("result = %d/%d/%d, want 3/2/1", result.Total, result.Successful, result.Failed)
	}
	if result.Items[1].Error != "request timeout" {
		t.Errorf("item 1 error = %q", result.Items[1].Error)
	}
	if result.Items[2].TicketKey != "PROJ-3" {
		t.Errorf("item 2 key = %q, want PROJ-3", result.Items[2].TicketKey)
	}

	// One failure must not stop later records.
	if len(creator.calls) != 3 {
		t.Errorf("creator called %d times, want 3", len(creator.calls))
	}
	for i, summary := range creator.calls {
		if want := fmt.Sprintf("ticket %d", i); summary != want {
			t.Errorf("call %d was %q, want %q (input order)", i, summary, want)
		}
	}

	// Tracker reflects the same outcome and is terminal.
	snap, err := tracker.Get(id)
	if err != nil {
		t.Fatalf("tracker.Get: %v", err)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", snap.Status)
	}
	if snap.Completed != 2 || snap.Failed != 1 {
		t.Errorf("tracker counts = %d/%d, want 2/1", snap.Completed, snap.Failed)
	}
}

func TestBatchProcessor_ThrottlesBetweenItems(t *testing.T) {
	creator := &scriptedCreator{}
	tracker := NewOperationTracker()
	proc := NewBatchProcessor(creator, tracker, 100*time.Millisecond)

	var pauses []time.Duration
	proc.sleep = func(d time.Duration) { pauses = append(pauses, d) }

	records := testRecords(3)
	id := tracker.Start(len(records), nil)
	proc.CreateMany(context.Background(), id, records)

	// N items means N-1 pauses; no pause after the last item.
	if len(pauses) != 2 {
		t.Fatalf("got %d pauses, want 2", len(pauses))
	}
	for _, d := range pauses {
		if d != 100*time.Millisecond {
			t.Errorf("pause = %v, want 100ms", d)
		}
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	creator := &scriptedCreator{}
	tracker := NewOperationTracker()
	proc := NewBatchProcessor(creator, tracker, time.Millisecond)
	proc.sleep = func(time.Duration) {}

	id := tracker.Start(0, nil)
	result := proc.CreateMany(context.Background(), id, nil)

	if result.Total != 0 || len(result.Items) != 0 {
		t.Errorf("empty batch result = %+v", result)
	}
}

func TestNewBatchProcessor_DelayFallback(t *testing.T) {
	proc := NewBatchProcessor(&scriptedCreator{}, NewOperationTracker(), 0)
	if proc.delay != DefaultItemDelay {
		t.Errorf("delay = %v, want %v", proc.delay, DefaultItemDelay)
	}
}
