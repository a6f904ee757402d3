// ABOUTME: CLI commands for the journal: add a note with event links, list
// ABOUTME: resolved entries with same-day scores, delete via the outbox.
package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/models"
	"github.com/harperreed/sensing/internal/outbox"
)

var journalEvents []string

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Write and read journal entries",
	Long: `Journal entries are stored locally first and pushed on the next
sync. Deletes are two-phase: the entry disappears from listings right
away but is only purged once the server confirms.`,
}

var journalAddCmd = &cobra.Command{
	Use:   "add <note>",
	Short: "Add a journal entry",
	Long: `Add a journal entry, optionally tagged with events from the
catalog. Events take an optional 1-5 rating after a colon.

Examples:
  sensing journal add "slept badly, long run anyway"
  sensing journal add "espresso at 4pm" --event caffeine:4 --event stress`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry := models.NewJournalEntry(args[0], creds.DeviceID(), time.Now())

		links, err := resolveEventFlags(entry.ID, journalEvents)
		if err != nil {
			return err
		}
		if err := store.InsertJournalEntry(entry, links); err != nil {
			return fmt.Errorf("failed to save entry: %w", err)
		}

		color.Green("✓ Entry saved")
		fmt.Println(color.New(color.Faint).Sprint("  pushes on next sync"))
		return nil
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries with same-day scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := store.ResolvedJournal()
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		if len(resolved) == 0 {
			fmt.Println("No journal entries yet. Add one with 'sensing journal add'.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, r := range resolved {
			day := time.UnixMilli(r.Entry.CreatedAt).Format("Mon Jan 02 15:04")
			marker := ""
			if r.Entry.Sync == models.SyncPending {
				marker = faint.Sprint(" (pending)")
			}
			fmt.Printf("%s%s\n", color.New(color.Bold).Sprint(day), marker)
			fmt.Printf("  %s\n", r.Entry.Note)
			for _, ev := range r.Events {
				if ev.Rating >= 0 {
					fmt.Printf("  %s %s (%d/5)\n", faint.Sprint("·"), ev.PublicName, ev.Rating)
				} else {
					fmt.Printf("  %s %s\n", faint.Sprint("·"), ev.PublicName)
				}
			}
			if scores := formatScores(r); scores != "" {
				fmt.Printf("  %s\n", faint.Sprint(scores))
			}
			fmt.Printf("  %s\n", faint.Sprint("id: "+r.Entry.ID))
			fmt.Println()
		}
		return nil
	},
}

var journalEditCmd = &cobra.Command{
	Use:   "edit <entry-id> <note>",
	Short: "Rewrite a journal entry",
	Long: `Rewrite a journal entry's note and event links. The entry goes back
to pending and resubmits on the next sync; if the server re-keys it, the
previous id is kept alongside the new one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := store.JournalEntry(args[0])
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry with id %s", args[0])
		}

		entry.Note = args[1]
		entry.ModifiedAt = time.Now().UnixMilli()
		if entry.Sync == models.SyncConfirmed {
			// The server knows this entry under its current id; keep it
			// so a re-keyed resubmission stays traceable.
			entry.OldID = entry.ID
		}

		var links []*models.JournalEntryEvent
		if len(journalEvents) > 0 {
			links, err = resolveEventFlags(entry.ID, journalEvents)
		} else {
			// No --event flags: keep the existing links.
			links, err = existingLinks(entry.ID)
		}
		if err != nil {
			return err
		}
		if err := store.UpdateJournalEntry(entry, links); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		color.Green("✓ Entry updated")
		fmt.Println(color.New(color.Faint).Sprint("  resubmits on next sync"))
		return nil
	},
}

var journalDeleteCmd = &cobra.Command{
	Use:   "delete <entry-id>",
	Short: "Delete a journal entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := store.JournalEntry(args[0])
		if err != nil {
			return err
		}
		if entry == nil {
			return fmt.Errorf("no entry with id %s", args[0])
		}
		if err := store.SoftDeleteJournalEntry(entry.ID); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		// Best effort: confirm the delete with the server now, one
		// attempt only. If it fails the tombstone is picked up by the
		// next sync.
		scheduler := outbox.NewScheduler(logger, outbox.WithMaxAttempts(1))
		scheduler.Enqueue(cmd.Context(), &outbox.JournalDeleteJob{
			Store: store, Client: client, Logger: logger,
		}, 0)
		scheduler.Wait()

		color.Green("✓ Entry deleted")
		return nil
	},
}

// resolveEventFlags turns --event name[:rating] flags into link rows,
// matching names against the cached catalog case-insensitively.
func resolveEventFlags(entryID string, flags []string) ([]*models.JournalEntryEvent, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	catalog, err := store.JournalEvents()
	if err != nil {
		return nil, fmt.Errorf("failed to read event catalog: %w", err)
	}

	links := make([]*models.JournalEntryEvent, 0, len(flags))
	for _, flag := range flags {
		name, ratingStr, hasRating := strings.Cut(flag, ":")
		rating := -1
		if hasRating {
			rating, err = strconv.Atoi(ratingStr)
			if err != nil || rating < 1 || rating > 5 {
				return nil, fmt.Errorf("rating in %q must be 1-5", flag)
			}
		}

		var match *models.JournalEvent
		for _, ev := range catalog {
			if strings.EqualFold(ev.PublicName, name) || ev.ID == name {
				match = ev
				break
			}
		}
		if match == nil {
			return nil, fmt.Errorf("unknown event %q; run 'sensing sync' to refresh the catalog", name)
		}
		links = append(links, models.NewJournalEntryEvent(entryID, match.ID, rating))
	}
	return links, nil
}

func existingLinks(entryID string) ([]*models.JournalEntryEvent, error) {
	resolved, err := store.EventsForEntry(entryID)
	if err != nil {
		return nil, err
	}
	links := make([]*models.JournalEntryEvent, 0, len(resolved))
	for _, ev := range resolved {
		links = append(links, &models.JournalEntryEvent{
			ID:             ev.LinkID,
			JournalEntryID: entryID,
			JournalEventID: ev.EventID,
			Rating:         ev.Rating,
		})
	}
	return links, nil
}

func formatScores(r *models.ResolvedJournalEntry) string {
	var parts []string
	if !math.IsNaN(r.SleepScore) {
		parts = append(parts, fmt.Sprintf("sleep %.0f", r.SleepScore))
	}
	if !math.IsNaN(r.CognitiveFitness) {
		parts = append(parts, fmt.Sprintf("cognitive %.0f", r.CognitiveFitness))
	}
	if !math.IsNaN(r.SocialEngagement) {
		parts = append(parts, fmt.Sprintf("social %.0f", r.SocialEngagement))
	}
	return strings.Join(parts, "  ")
}

func init() {
	journalAddCmd.Flags().StringArrayVar(&journalEvents, "event", nil, "event link as name[:rating]")
	journalEditCmd.Flags().StringArrayVar(&journalEvents, "event", nil, "event link as name[:rating]")
	journalCmd.AddCommand(journalAddCmd, journalEditCmd, journalListCmd, journalDeleteCmd)
	rootCmd.AddCommand(journalCmd)
}
