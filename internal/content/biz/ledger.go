package biz

import (
	"sync"

	"github.com/cartelera/signage-backend/internal/content/types"
	apperrors "github.com/cartelera/signage-backend/internal/pkg/errors"
)

// UploadLedger is the ordered collection of upload status entries shown
// by the monitoring UI. Pure bookkeeping: the only validation is a
// non-empty id. Entries are kept in lockstep with monitoring-stage
// mutations by the engine, but an entry may transiently exist without a
// matching record (or vice versa); Upsert reconciles on first reference.
type UploadLedger struct {
	mu      sync.Mutex
	entries []types.UploadStatusEntry
}

// NewUploadLedger creates an empty ledger
func NewUploadLedger() *UploadLedger {
	return &UploadLedger{}
}

// Upsert creates or updates the entry with entry.ID. On update, zero
// fields of the incoming entry leave the stored value unchanged
// (except Timestamp, which is always refreshed).
func (l *UploadLedger) Upsert(entry types.UploadStatusEntry) (types.UploadStatusEntry, error) {
	if entry.ID == "" {
		return types.UploadStatusEntry{}, apperrors.NewValidationError("id")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == entry.ID {
			if entry.Status != "" {
				l.entries[i].Status = entry.Status
			}
			if entry.FileName != "" {
				l.entries[i].FileName = entry.FileName
			}
			if entry.Type != "" {
				l.entries[i].Type = entry.Type
			}
			if entry.Progress > 0 {
				l.entries[i].Progress = entry.Progress
			}
			l.entries[i].Timestamp = entry.Timestamp
			return l.entries[i], nil
		}
	}

	l.entries = append(l.entries, entry)
	return entry, nil
}

// Has reports whether an entry exists for the id
func (l *UploadLedger) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			return true
		}
	}
	return false
}

// Remove deletes the entry with the given id, reporting whether it
// existed
func (l *UploadLedger) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the full ledger in insertion order
func (l *UploadLedger) List() []types.UploadStatusEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.UploadStatusEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
