package core

// preview.go holds validated upload data between the preview step and
// batch submission.
//
// The store is per-key single-writer: an entry is written once on upload
// and never mutated, so concurrent readers only ever see a complete
// PreviewSet or nothing. The sweep is the one secondary writer; it removes
// whole entries under the write lock, atomically with respect to any read.

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultPreviewRetention is how long a preview survives without being
// submitted. Matches the upload collaborator's file retention window.
const DefaultPreviewRetention = time.Hour

// ReleaseFunc is called for each preview removed by a sweep, so the
// upload collaborator can free the backing file resource. May be nil.
type ReleaseFunc func(PreviewSet)

// PreviewStore is an in-memory registry of pending PreviewSets.
type PreviewStore struct {
	reg     *registry[*PreviewSet]
	now     func() time.Time
	release ReleaseFunc
}

// NewPreviewStore creates an empty store using wall-clock time.
func NewPreviewStore(release ReleaseFunc) *PreviewStore {
	return &PreviewStore{
		reg:     newRegistry[*PreviewSet](),
		now:     time.Now,
		release: release,
	}
}

// Store records a validated upload and returns its PreviewSet.
// The returned set (including Rows) must be treated as read-only.
func (s *PreviewStore) Store(rows []Row, columns []string, warnings []string) *PreviewSet {
	set := &PreviewSet{
		ID:        uuid.NewString(),
		Rows:      rows,
		Columns:   columns,
		TotalRows: len(rows),
		Warnings:  warnings,
		CreatedAt: s.now(),
	}
	s.reg.put(set.ID, set)
	return set
}

// Get returns the preview for id, or false if it never existed or was
// swept.
func (s *PreviewStore) Get(id string) (*PreviewSet, bool) {
	return s.reg.get(id)
}

// Len returns the number of stored previews.
func (s *PreviewStore) Len() int {
	return s.reg.len()
}

// SweepExpired removes previews older than maxAge and invokes the release
// hook for each. Returns the number removed.
func (s *PreviewStore) SweepExpired(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)
	removed := s.reg.sweep(func(set *PreviewSet) bool {
		return set.CreatedAt.Before(cutoff)
	})
	for _, set := range removed {
		if s.release != nil {
			s.release(*set)
		}
		slog.Info("expired preview removed", "preview_id", set.ID, "rows", set.TotalRows)
	}
	return len(removed)
}
