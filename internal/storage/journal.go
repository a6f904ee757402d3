// ABOUTME: Journal entry, event catalog and entry-event link CRUD, plus the
// ABOUTME: resolved view joining entries to same-local-day scores.
package storage

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/harperreed/sensing/internal/models"
)

// InsertJournalEntry stores a new entry and its event links. Entry and
// links land in one transaction so the outbox never sees half an entry.
func (s *Store) InsertJournalEntry(entry *models.JournalEntry, links []*models.JournalEntryEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO journal_entries (id, note, device_id, created, modified, sync, deleted, old_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Note, entry.DeviceID, entry.CreatedAt, entry.ModifiedAt, entry.Sync, entry.Deleted, entry.OldID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert journal entry %s: %w", entry.ID, err)
	}
	for _, l := range links {
		_, err := tx.Exec(`
			INSERT INTO journal_entry_events (id, journal_entry_id, journal_event_id, rating)
			VALUES (?, ?, ?, ?)
		`, l.ID, l.JournalEntryID, l.JournalEventID, l.Rating)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert journal entry event %s: %w", l.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateJournalEntry rewrites an edited entry's note and links, records the
// prior remote id in old_id, and resets the sync marker so the outbox pushes
// it again.
func (s *Store) UpdateJournalEntry(entry *models.JournalEntry, links []*models.JournalEntryEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("update journal entry: %w", err)
	}
	_, err = tx.Exec(`
		UPDATE journal_entries
		SET note = ?, modified = ?, sync = ?, old_id = ?
		WHERE id = ?
	`, entry.Note, entry.ModifiedAt, models.SyncPending, entry.OldID, entry.ID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update journal entry %s: %w", entry.ID, err)
	}
	if _, err := tx.Exec(`DELETE FROM journal_entry_events WHERE journal_entry_id = ?`, entry.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update journal entry %s: %w", entry.ID, err)
	}
	for _, l := range links {
		_, err := tx.Exec(`
			INSERT INTO journal_entry_events (id, journal_entry_id, journal_event_id, rating)
			VALUES (?, ?, ?, ?)
		`, l.ID, l.JournalEntryID, l.JournalEventID, l.Rating)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update journal entry %s: %w", entry.ID, err)
		}
	}
	return tx.Commit()
}

// SoftDeleteJournalEntry marks an entry deleted and unsynced. The row stays
// until the remote confirms the deletion and PurgeJournalEntry runs.
func (s *Store) SoftDeleteJournalEntry(id string) error {
	_, err := s.db.Exec(`
		UPDATE journal_entries SET deleted = 1, sync = ? WHERE id = ?
	`, models.SyncPending, id)
	if err != nil {
		return fmt.Errorf("soft delete journal entry %s: %w", id, err)
	}
	return nil
}

// PurgeJournalEntry removes a remotely-confirmed deletion and its links.
func (s *Store) PurgeJournalEntry(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("purge journal entry: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM journal_entry_events WHERE journal_entry_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("purge journal entry %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM journal_entries WHERE id = ?`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("purge journal entry %s: %w", id, err)
	}
	return tx.Commit()
}

// MarkJournalEntrySynced flips the sync marker after a confirmed push.
func (s *Store) MarkJournalEntrySynced(id string) error {
	_, err := s.db.Exec(`UPDATE journal_entries SET sync = ? WHERE id = ?`, models.SyncConfirmed, id)
	if err != nil {
		return fmt.Errorf("mark journal entry synced %s: %w", id, err)
	}
	return nil
}

// ResetJournalSyncStatus marks every live entry unsynced, forcing a full
// re-push. Used after the remote store is known to have lost state.
func (s *Store) ResetJournalSyncStatus() error {
	_, err := s.db.Exec(`UPDATE journal_entries SET sync = ? WHERE deleted = 0`, models.SyncPending)
	if err != nil {
		return fmt.Errorf("reset journal sync status: %w", err)
	}
	return nil
}

// PendingJournalEntries returns live entries awaiting push, oldest first.
func (s *Store) PendingJournalEntries() ([]*models.JournalEntry, error) {
	return s.queryJournalEntries(`
		SELECT id, note, device_id, created, modified, sync, deleted, old_id
		FROM journal_entries
		WHERE sync = 0 AND deleted = 0
		ORDER BY created ASC
	`)
}

// PendingJournalDeletes returns soft-deleted entries awaiting remote
// confirmation.
func (s *Store) PendingJournalDeletes() ([]*models.JournalEntry, error) {
	return s.queryJournalEntries(`
		SELECT id, note, device_id, created, modified, sync, deleted, old_id
		FROM journal_entries
		WHERE sync = 0 AND deleted = 1
		ORDER BY created ASC
	`)
}

// JournalEntries returns every live entry, newest first.
func (s *Store) JournalEntries() ([]*models.JournalEntry, error) {
	return s.queryJournalEntries(`
		SELECT id, note, device_id, created, modified, sync, deleted, old_id
		FROM journal_entries
		WHERE deleted = 0
		ORDER BY created DESC
	`)
}

// JournalEntry returns one entry by id, deleted or not.
func (s *Store) JournalEntry(id string) (*models.JournalEntry, error) {
	var e models.JournalEntry
	err := s.db.QueryRow(`
		SELECT id, note, device_id, created, modified, sync, deleted, old_id
		FROM journal_entries WHERE id = ?
	`, id).Scan(&e.ID, &e.Note, &e.DeviceID, &e.CreatedAt, &e.ModifiedAt, &e.Sync, &e.Deleted, &e.OldID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry %s: %w", id, err)
	}
	return &e, nil
}

func (s *Store) queryJournalEntries(query string, args ...any) ([]*models.JournalEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	var out []*models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		err := rows.Scan(&e.ID, &e.Note, &e.DeviceID, &e.CreatedAt, &e.ModifiedAt, &e.Sync, &e.Deleted, &e.OldID)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ReplaceJournalEvents swaps the cached event-kind catalog for a fresh one.
func (s *Store) ReplaceJournalEvents(events []*models.JournalEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace journal events: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM journal_events`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("replace journal events: %w", err)
	}
	for _, ev := range events {
		_, err := tx.Exec(`
			INSERT INTO journal_events (id, public_name, icon_name, created, modified)
			VALUES (?, ?, ?, ?, ?)
		`, ev.ID, ev.PublicName, ev.IconName, ev.CreatedAt, ev.ModifiedAt)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert journal event %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

// JournalEvents returns the cached event-kind catalog.
func (s *Store) JournalEvents() ([]*models.JournalEvent, error) {
	rows, err := s.db.Query(`
		SELECT id, public_name, icon_name, created, modified
		FROM journal_events ORDER BY public_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query journal events: %w", err)
	}
	defer rows.Close()

	var out []*models.JournalEvent
	for rows.Next() {
		var ev models.JournalEvent
		if err := rows.Scan(&ev.ID, &ev.PublicName, &ev.IconName, &ev.CreatedAt, &ev.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// EventsForEntry returns an entry's links resolved against the catalog.
func (s *Store) EventsForEntry(entryID string) ([]models.ResolvedJournalEvent, error) {
	rows, err := s.db.Query(`
		SELECT l.id, l.journal_event_id, e.public_name, e.icon_name, l.rating
		FROM journal_entry_events l
		JOIN journal_events e ON e.id = l.journal_event_id
		WHERE l.journal_entry_id = ?
	`, entryID)
	if err != nil {
		return nil, fmt.Errorf("query entry events: %w", err)
	}
	defer rows.Close()

	var out []models.ResolvedJournalEvent
	for rows.Next() {
		var ev models.ResolvedJournalEvent
		if err := rows.Scan(&ev.LinkID, &ev.EventID, &ev.PublicName, &ev.IconName, &ev.Rating); err != nil {
			return nil, fmt.Errorf("scan entry event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// ResolvedJournal returns live entries with their event links and the three
// scores from the same local calendar day. Local-day matching cannot be
// pushed into SQLite because score rows carry per-row IANA zones, so the
// join happens here: each entry's creation instant and each score row's
// timestamp are reduced to a civil date in the score row's zone.
func (s *Store) ResolvedJournal() ([]*models.ResolvedJournalEntry, error) {
	entries, err := s.JournalEntries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	lo := entries[len(entries)-1].CreatedAt/1000 - 2*86400
	hi := entries[0].CreatedAt/1000 + 2*86400
	scoreCodes := map[models.MetricCode]func(*models.ResolvedJournalEntry, float64){
		models.MetricSleepScore:       func(r *models.ResolvedJournalEntry, v float64) { r.SleepScore = v },
		models.MetricCognitiveFitness: func(r *models.ResolvedJournalEntry, v float64) { r.CognitiveFitness = v },
		models.MetricSocialEngagement: func(r *models.ResolvedJournalEntry, v float64) { r.SocialEngagement = v },
	}

	out := make([]*models.ResolvedJournalEntry, 0, len(entries))
	resolved := make(map[string]*models.ResolvedJournalEntry, len(entries))
	for _, e := range entries {
		events, err := s.EventsForEntry(e.ID)
		if err != nil {
			return nil, err
		}
		r := &models.ResolvedJournalEntry{
			Entry:            *e,
			Events:           events,
			SleepScore:       math.NaN(),
			CognitiveFitness: math.NaN(),
			SocialEngagement: math.NaN(),
		}
		resolved[e.ID] = r
		out = append(out, r)
	}

	for code, set := range scoreCodes {
		records, err := s.MetricsBetween(code, lo, hi)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			for _, rec := range records {
				if sameLocalDay(e.CreatedAt, rec.Timestamp, rec.Timezone) {
					set(resolved[e.ID], rec.Value)
					break // records are newest-first; first match wins
				}
			}
		}
	}
	return out, nil
}

// sameLocalDay reports whether an entry instant (unix millis) and a score
// instant (unix seconds) fall on the same civil date in the score's zone.
func sameLocalDay(entryMillis, scoreSecs int64, zone string) bool {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	ey, em, ed := time.UnixMilli(entryMillis).In(loc).Date()
	sy, sm, sd := time.Unix(scoreSecs, 0).In(loc).Date()
	return ey == sy && em == sm && ed == sd
}
