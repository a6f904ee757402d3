// ABOUTME: CLI sync command: one pass over every outbox job, or a daemon
// ABOUTME: loop with rotating file logs for unattended devices.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/outbox"
)

var (
	syncDaemon        bool
	syncInterval      time.Duration
	syncResyncJournal bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending records and refresh cached catalogs",
	Long: `Run every outbox job once: pending journal entries and deletes,
questionnaire responses, cognitive test results, tap sessions, device
health, activity transitions, app codes and hourly typing aggregates.
Also refreshes the journal event catalog.

With --daemon the sync loop keeps running at the given interval and
logs to a rotating file under the data directory instead of stderr.

Examples:
  sensing sync
  sensing sync --daemon --interval 15m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if creds.IdentityID() == "" {
			return fmt.Errorf("not registered: run 'sensing register' first")
		}

		if syncResyncJournal {
			// Maintenance op: mark every live entry pending again so the
			// next pass resubmits the whole journal.
			if err := store.ResetJournalSyncStatus(); err != nil {
				return fmt.Errorf("reset journal sync status: %w", err)
			}
		}

		if !syncDaemon {
			runSyncPass(cmd.Context(), logger)
			color.Green("✓ Sync complete")
			return nil
		}

		// Daemon logs go to a rotating file so long-running devices
		// don't fill the disk or lose history on restart.
		fileLogger := log.NewWithOptions(&lumberjack.Logger{
			Filename:   filepath.Join(cfg.GetDataDir(), "sync.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}, log.Options{ReportTimestamp: true})
		fileLogger.SetLevel(logger.GetLevel())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Syncing every %s. Ctrl-C to stop.\n", syncInterval)
		fileLogger.Info("sync daemon started", "interval", syncInterval)

		ticker := time.NewTicker(syncInterval)
		defer ticker.Stop()
		for {
			runSyncPass(ctx, fileLogger)
			select {
			case <-ctx.Done():
				fileLogger.Info("sync daemon stopping")
				return nil
			case <-ticker.C:
			}
		}
	},
}

// runSyncPass enqueues every job once and waits for the batch to settle.
// The scheduler handles per-job retries and backoff within the pass.
func runSyncPass(ctx context.Context, lg *log.Logger) {
	scheduler := outbox.NewScheduler(lg)
	jobs := []outbox.Job{
		&outbox.JournalPushJob{Store: store, Client: client, Logger: lg},
		&outbox.JournalDeleteJob{Store: store, Client: client, Logger: lg},
		&outbox.JournalEventsRefreshJob{Store: store, Client: client, Logger: lg},
		&outbox.QuestionnaireJob{Store: store, Client: client, Logger: lg},
		&outbox.CognitiveJob{Store: store, Client: client, Logger: lg},
		&outbox.TapSessionJob{Store: store, Client: client, Logger: lg},
		&outbox.DeviceHealthJob{Store: store, Client: client, Logger: lg},
		&outbox.ActivityJob{Store: store, Client: client, Logger: lg},
		&outbox.AppCodeJob{Store: store, Client: client, Logger: lg},
		&outbox.HourlyStatsJob{Store: store, Client: client, Logger: lg, Now: time.Now},
		&outbox.DeviceUpdateJob{Client: client, Logger: lg, Info: currentDeviceInfo()},
		&outbox.ParticipationRefreshJob{
			Store: store, Client: client, Logger: lg,
			Creds: creds, IdentityID: creds.IdentityID(),
		},
	}
	for _, job := range jobs {
		scheduler.Enqueue(ctx, job, 0)
	}
	scheduler.Wait()
}

// currentDeviceInfo snapshots what the device-update worker reports each
// sync round.
func currentDeviceInfo() api.DeviceInfo {
	tz, _ := time.Now().Zone()
	return api.DeviceInfo{
		DeviceID:   creds.DeviceID(),
		Model:      runtime.GOOS + "/" + runtime.GOARCH,
		AppVersion: version,
		Timezone:   tz,
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncDaemon, "daemon", false, "keep syncing on an interval")
	syncCmd.Flags().DurationVar(&syncInterval, "interval", 15*time.Minute, "daemon sync interval")
	syncCmd.Flags().BoolVar(&syncResyncJournal, "resync-journal", false, "resubmit all journal entries")
	rootCmd.AddCommand(syncCmd)
}
