// ABOUTME: Journal entry, event-kind catalog and entry-event link models.
// ABOUTME: Entries carry sync/deleted markers driving the outbox lifecycle.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Sync marker values shared by all pushable entities.
const (
	SyncPending   = 0
	SyncConfirmed = 1
)

// JournalEntry is a user-authored note. It is created locally, pushed by the
// outbox, and soft-deleted (Deleted=1, Sync=0) until the server confirms the
// deletion, at which point the row is purged.
type JournalEntry struct {
	ID         string
	Note       string
	DeviceID   string
	CreatedAt  int64 // unix millis
	ModifiedAt int64 // unix millis
	Sync       int
	Deleted    int

	// OldID holds the previous remote id across an edit flow where the
	// server re-keys the entry. Reconciliation rule when ids diverge is
	// still open with the backend team; we only record it.
	OldID string
}

// NewJournalEntry creates an unsynced entry for the given device.
func NewJournalEntry(note, deviceID string, now time.Time) *JournalEntry {
	ms := now.UnixMilli()
	return &JournalEntry{
		ID:         uuid.New().String(),
		Note:       note,
		DeviceID:   deviceID,
		CreatedAt:  ms,
		ModifiedAt: ms,
		Sync:       SyncPending,
	}
}

// JournalEvent is one kind from the predefined event catalog (e.g. exercise,
// caffeine, stress) cached from the remote service.
type JournalEvent struct {
	ID         string
	PublicName string
	IconName   string
	CreatedAt  string
	ModifiedAt string
}

// JournalEntryEvent links an entry to an event kind, optionally rated 1-5.
// Rating -1 means unrated.
type JournalEntryEvent struct {
	ID             string
	JournalEntryID string
	JournalEventID string
	Rating         int
}

// NewJournalEntryEvent creates a link row with a fresh id.
func NewJournalEntryEvent(entryID, eventID string, rating int) *JournalEntryEvent {
	return &JournalEntryEvent{
		ID:             uuid.New().String(),
		JournalEntryID: entryID,
		JournalEventID: eventID,
		Rating:         rating,
	}
}

// ResolvedJournalEntry is the store's joined view of an entry: its event
// links resolved to names, plus same-local-day scores when present.
type ResolvedJournalEntry struct {
	Entry  JournalEntry
	Events []ResolvedJournalEvent

	// Same-calendar-day scores in the entry's local timezone, NaN if the
	// store has no row for that day.
	SleepScore       float64
	CognitiveFitness float64
	SocialEngagement float64
}

// ResolvedJournalEvent is an event link with its catalog names attached.
type ResolvedJournalEvent struct {
	LinkID     string
	EventID    string
	PublicName string
	IconName   string
	Rating     int
}
