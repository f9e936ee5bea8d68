package core

import (
	"testing"
	"time"
)

func TestPreviewStore_StoreAndGet(t *testing.T) {
	store := NewPreviewStore(nil)

	rows := []Row{{"summary": "Fix login", "priority": "high"}}
	set := store.Store(rows, []string{"summary", "priority"}, []string{"row 1: something minor"})

	if set.ID == "" {
		t.Fatal("Store returned empty id")
	}
	if set.TotalRows != 1 {
		t.Errorf("TotalRows = %d, want 1", set.TotalRows)
	}

	got, ok := store.Get(set.ID)
	if !ok {
		t.Fatal("Get did not find the stored preview")
	}
	if got.Rows[0]["summary"] != "Fix login" {
		t.Errorf("round-tripped summary = %q", got.Rows[0]["summary"])
	}
	if len(got.Warnings) != 1 {
		t.Errorf("warnings = %v, want one entry", got.Warnings)
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("Get found a preview that was never stored")
	}
}

func TestPreviewStore_DistinctIDs(t *testing.T) {
	store := NewPreviewStore(nil)

	a := store.Store([]Row{{"summary": "a"}}, []string{"summary"}, nil)
	b := store.Store([]Row{{"summary": "b"}}, []string{"summary"}, nil)

	if a.ID == b.ID {
		t.Error("two uploads got the same preview id")
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
}

func TestPreviewStore_SweepExpired(t *testing.T) {
	var released []string
	store := NewPreviewStore(func(set PreviewSet) {
		released = append(released, set.ID)
	})
	current := time.Now()
	store.now = func() time.Time { return current }

	old := store.Store([]Row{{"summary": "old"}}, []string{"summary"}, nil)

	current = current.Add(2 * time.Hour)
	fresh := store.Store([]Row{{"summary": "fresh"}}, []string{"summary"}, nil)

	removed := store.SweepExpired(DefaultPreviewRetention)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := store.Get(old.ID); ok {
		t.Error("expired preview survived the sweep")
	}
	if _, ok := store.Get(fresh.ID); !ok {
		t.Error("fresh preview was swept")
	}
	if len(released) != 1 || released[0] != old.ID {
		t.Errorf("release hook calls = %v, want exactly the expired preview", released)
	}
}
