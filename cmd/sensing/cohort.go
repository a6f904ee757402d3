// ABOUTME: CLI commands for cohort enrollment, withdrawal and listing.
// ABOUTME: Enrollment runs through the outbox for dedup and retry.
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/outbox"
)

var cohortCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Manage study enrollment",
	Long: `Join, leave and list the studies (cohorts) this device records for.

Enrollment caches the cohort definition and its questionnaire catalog
locally so they stay available offline.`,
}

var cohortJoinCmd = &cobra.Command{
	Use:   "join <cohort-id>",
	Short: "Enroll in a cohort",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if creds.IdentityID() == "" {
			return fmt.Errorf("not registered: run 'sensing register' first")
		}
		// Interactive command: two quick attempts rather than the full
		// backoff curve.
		scheduler := outbox.NewScheduler(logger, outbox.WithMaxAttempts(2))
		job := &outbox.CohortSignupJob{
			Store: store, Client: client, Logger: logger,
			CohortID: args[0], IdentityID: creds.IdentityID(),
		}
		scheduler.Enqueue(cmd.Context(), job, 0)
		scheduler.Wait()

		cohort, err := store.Cohort(args[0])
		if err != nil {
			return err
		}
		if cohort == nil {
			return fmt.Errorf("enrollment did not complete; check connectivity and try again")
		}
		color.Green("✓ Joined %s", cohort.Title)
		return nil
	},
}

var cohortLeaveCmd = &cobra.Command{
	Use:   "leave <cohort-id>",
	Short: "Withdraw from a cohort",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if creds.IdentityID() == "" {
			return fmt.Errorf("not registered: run 'sensing register' first")
		}
		cohort, err := store.Cohort(args[0])
		if err != nil {
			return err
		}
		if cohort != nil && !cohort.CanWithdraw {
			return fmt.Errorf("cohort %s does not allow withdrawal", args[0])
		}

		scheduler := outbox.NewScheduler(logger, outbox.WithMaxAttempts(2))
		job := &outbox.CohortWithdrawJob{
			Store: store, Client: client, Logger: logger,
			CohortID: args[0], IdentityID: creds.IdentityID(),
		}
		scheduler.Enqueue(cmd.Context(), job, 0)
		scheduler.Wait()

		if remaining, err := store.Cohort(args[0]); err != nil {
			return err
		} else if remaining != nil {
			return fmt.Errorf("withdrawal did not complete; check connectivity and try again")
		}
		color.Green("✓ Left cohort %s", args[0])
		return nil
	},
}

var cohortListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List enrolled cohorts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cohorts, err := store.Cohorts()
		if err != nil {
			return err
		}
		if len(cohorts) == 0 {
			fmt.Println("No cohorts. Join one with 'sensing cohort join <id>'.")
			return nil
		}
		for _, c := range cohorts {
			fmt.Printf("%s  %s", color.New(color.Bold).Sprint(c.Title), color.New(color.Faint).Sprint(c.ID))
			if c.EnableCognitiveTest {
				fmt.Printf("  %s", color.CyanString("[cognitive tests]"))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	cohortCmd.AddCommand(cohortJoinCmd, cohortLeaveCmd, cohortListCmd)
	rootCmd.AddCommand(cohortCmd)
}
