// ABOUTME: CLI command listing recent sleep episodes with interruption
// ABOUTME: counts, reconciled stale-while-revalidate like metrics.
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/models"
	"github.com/harperreed/sensing/internal/recon"
	"github.com/harperreed/sensing/internal/timeseries"
)

var (
	sleepDays  int
	sleepForce bool
)

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "List recent sleep episodes",
	Long: `List recent sleep episodes: start, end, duration and how often
sleep was interrupted. Times print in each episode's own timezone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := timeseries.System().Now()
		engine := recon.NewEngine(logger,
			recon.WithStaleness(cfg.GetStaleness()),
			recon.WithReadiness(ready),
		)
		kind := &recon.SleepKind{Store: store, Client: client}
		states := recon.Read(cmd.Context(), engine, kind, recon.Query{
			From: now.AddDate(0, 0, -sleepDays).Unix(), To: now.Unix(),
			Force:      sleepForce,
			Identified: creds.IdentityID() != "",
		})

		var episodes []*models.SleepSummaryRecord
		for state := range states {
			if state.Kind == recon.Available {
				episodes = state.Data
			}
		}
		if len(episodes) == 0 {
			fmt.Println("No sleep data yet. Data appears after the first sync.")
			return nil
		}

		faint := color.New(color.Faint)
		for _, ep := range episodes {
			zone, err := time.LoadLocation(ep.TimezoneID)
			if err != nil {
				zone = time.UTC
			}
			start := time.UnixMilli(ep.SleepStart).In(zone)
			end := time.UnixMilli(ep.SleepEnd).In(zone)
			fmt.Printf("%s  %s - %s  %s",
				color.New(color.Bold).Sprint(start.Format("Mon Jan 02")),
				start.Format("15:04"), end.Format("15:04"),
				ep.Duration().Round(time.Minute))
			if n := len(ep.InterruptionStarts); n > 0 {
				fmt.Printf("  %s", faint.Sprintf("%d interruption(s)", n))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	sleepCmd.Flags().IntVar(&sleepDays, "days", 14, "days of history")
	sleepCmd.Flags().BoolVar(&sleepForce, "force", false, "refresh full history from the server")
	rootCmd.AddCommand(sleepCmd)
}
