// ABOUTME: CLI command for reading metrics: today's reset-hour value plus
// ABOUTME: the gap-filled recent history, refreshed stale-while-revalidate.
package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/models"
	"github.com/harperreed/sensing/internal/recon"
	"github.com/harperreed/sensing/internal/timeseries"
)

// metricAliases maps friendly names to metric codes.
var metricAliases = map[string]models.MetricCode{
	"cognitive":   models.MetricCognitiveFitness,
	"sleep":       models.MetricSleepScore,
	"social":      models.MetricSocialEngagement,
	"typing":      models.MetricTypingSpeed,
	"sleeplength": models.MetricSleepLength,
	"taps":        models.MetricSocialTaps,
}

var (
	metricDays    int
	metricWeekly  bool
	metricMonthly bool
	metricForce   bool
)

var metricCmd = &cobra.Command{
	Use:   "metric",
	Short: "Read cached behavioral metrics",
}

var metricGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show today's value and recent history for a metric",
	Long: `Show a metric: today's value (selected by the device's current UTC
offset) and the recent gap-filled daily history.

The cached value prints immediately; if the cache is stale the remote
service is consulted and the refreshed value printed after.

Names: cognitive, sleep, social, typing, sleeplength, taps

Examples:
  sensing metric get sleep
  sensing metric get typing --days 30 --weekly
  sensing metric get cognitive --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, ok := metricAliases[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown metric %q (try: cognitive, sleep, social, typing, sleeplength, taps)", args[0])
		}

		clock := timeseries.System()
		now := clock.Now()
		from := now.AddDate(0, 0, -metricDays).Unix()

		engine := recon.NewEngine(logger,
			recon.WithStaleness(cfg.GetStaleness()),
			recon.WithReadiness(ready),
		)
		kind := &recon.MetricKind{Store: store, Client: client, Code: code}
		states := recon.Read(cmd.Context(), engine, kind, recon.Query{
			From: from, To: now.Unix(),
			Force:      metricForce,
			Identified: creds.IdentityID() != "",
		})

		shown := false
		for state := range states {
			if state.Kind != recon.Available {
				continue
			}
			if shown {
				fmt.Println(color.New(color.Faint).Sprint("(refreshed)"))
			}
			printMetric(state.Data, clock)
			shown = true
		}
		if !shown {
			fmt.Println("No data yet. Data appears after the first sync.")
		}
		return nil
	},
}

var metricTrendCmd = &cobra.Command{
	Use:   "trend <name>",
	Short: "Show the latest trend statistics for a metric",
	Long: `Show the most recent derived trend for a metric: the difference
over 2-week, 6-week and 1-year lookback windows with significance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, ok := metricAliases[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("unknown metric %q (try: cognitive, sleep, social, typing, sleeplength, taps)", args[0])
		}

		now := timeseries.System().Now()
		engine := recon.NewEngine(logger,
			recon.WithStaleness(cfg.GetStaleness()),
			recon.WithReadiness(ready),
		)
		kind := &recon.TrendKind{Store: store, Client: client, Code: code}
		states := recon.Read(cmd.Context(), engine, kind, recon.Query{
			From: now.AddDate(0, 0, -metricDays).Unix(), To: now.Unix(),
			Force:      metricForce,
			Identified: creds.IdentityID() != "",
		})

		var latest *models.TrendRecord
		for state := range states {
			if state.Kind == recon.Available && len(state.Data) > 0 {
				latest = state.Data[0] // newest first
			}
		}
		if latest == nil {
			fmt.Println("No trend data yet. Data appears after the first sync.")
			return nil
		}

		printTrendWindow("2 weeks", latest.ShortTerm)
		printTrendWindow("6 weeks", latest.MediumTerm)
		printTrendWindow("1 year ", latest.LongTerm)
		return nil
	},
}

func printTrendWindow(label string, p models.TrendPoint) {
	line := fmt.Sprintf("  %s  %+.2f (p=%.3f)", label, p.Difference, p.Significance)
	if p.Significance <= 0.05 {
		color.Green("%s", line)
		return
	}
	fmt.Println(line)
}

func printMetric(records []*models.MetricRecord, clock timeseries.Clock) {
	resetHour := timeseries.CurrentResetHour(clock)
	if today := timeseries.SelectToday(records, resetHour); today != nil {
		color.Green("today  %.1f", today.Value)
	} else {
		fmt.Println(color.New(color.Faint).Sprint("today  no value yet"))
	}

	series := timeseries.FromMetricRecords(timeseries.FilterByResetHour(records, resetHour))
	filled := series.FillMissingDays(metricDays, clock)
	switch {
	case metricWeekly:
		filled = filled.WeeklyAverages()
	case metricMonthly:
		filled = filled.MonthlyAverages()
	}

	for i := range filled.Values {
		day := filled.Timestamps[i].Format("Jan 02")
		if math.IsNaN(filled.Values[i]) {
			fmt.Printf("  %s  %s\n", day, color.New(color.Faint).Sprint("–"))
			continue
		}
		fmt.Printf("  %s  %.1f\n", day, filled.Values[i])
	}
}

func init() {
	metricGetCmd.Flags().IntVar(&metricDays, "days", 14, "days of history")
	metricGetCmd.Flags().BoolVar(&metricWeekly, "weekly", false, "average into calendar weeks")
	metricGetCmd.Flags().BoolVar(&metricMonthly, "monthly", false, "average into calendar months")
	metricGetCmd.Flags().BoolVar(&metricForce, "force", false, "refresh full history from the server")
	metricTrendCmd.Flags().BoolVar(&metricForce, "force", false, "refresh full history from the server")
	metricCmd.AddCommand(metricGetCmd, metricTrendCmd)
	rootCmd.AddCommand(metricCmd)
}
