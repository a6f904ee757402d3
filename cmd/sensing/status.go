// ABOUTME: CLI status command: identity, store health and per-queue
// ABOUTME: pending counts so a glance shows what the next sync will push.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show identity, store and outbox state",
	RunE: func(cmd *cobra.Command, args []string) error {
		faint := color.New(color.Faint)

		if id := creds.IdentityID(); id != "" {
			color.Green("✓ Registered as %s", id)
			fmt.Printf("  device  %s\n", creds.DeviceID())
			if pid := creds.ParticipationID(); pid != "" {
				fmt.Printf("  participation  %s\n", pid)
			}
		} else {
			fmt.Println(faint.Sprint("Not registered. Run 'sensing register <identity-id>'."))
		}

		version, err := store.SchemaVersion()
		if err != nil {
			return err
		}
		fmt.Printf("\nStore %s (schema v%d)\n", cfg.GetDBPath(), version)

		cohorts, err := store.Cohorts()
		if err != nil {
			return err
		}
		if len(cohorts) > 0 {
			fmt.Printf("Enrolled in %d cohort(s)\n", len(cohorts))
		}

		counts, err := pendingCounts()
		if err != nil {
			return err
		}
		total := 0
		for _, c := range counts {
			total += c.n
		}
		if total == 0 {
			fmt.Println("\nOutbox empty; nothing to push.")
			return nil
		}
		fmt.Printf("\n%d record(s) waiting for the next sync:\n", total)
		for _, c := range counts {
			if c.n > 0 {
				fmt.Printf("  %-16s %d\n", c.name, c.n)
			}
		}
		return nil
	},
}

type queueCount struct {
	name string
	n    int
}

func pendingCounts() ([]queueCount, error) {
	entries, err := store.PendingJournalEntries()
	if err != nil {
		return nil, err
	}
	deletes, err := store.PendingJournalDeletes()
	if err != nil {
		return nil, err
	}
	responses, err := store.PendingQuestionnaireResponses()
	if err != nil {
		return nil, err
	}
	cognitive, err := store.PendingCognitiveTestResults()
	if err != nil {
		return nil, err
	}
	taps, err := store.PendingTapSessions(0)
	if err != nil {
		return nil, err
	}
	health, err := store.PendingDeviceHealth()
	if err != nil {
		return nil, err
	}
	activity, err := store.PendingActivityTransitions()
	if err != nil {
		return nil, err
	}
	appCodes, err := store.PendingAppCodes()
	if err != nil {
		return nil, err
	}
	return []queueCount{
		{"journal", len(entries)},
		{"deletes", len(deletes)},
		{"questionnaires", len(responses)},
		{"cognitive", len(cognitive)},
		{"tap sessions", len(taps)},
		{"device health", len(health)},
		{"activity", len(activity)},
		{"app codes", len(appCodes)},
	}, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
