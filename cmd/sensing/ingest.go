// ABOUTME: CLI command loading captured telemetry batches into the store.
// ABOUTME: The instrumentation layer exports these as JSON envelopes.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/models"
)

// telemetryEnvelope is the export format of the capture layer. Array-valued
// fields stay raw JSON; the store persists them as written.
type telemetryEnvelope struct {
	TapSessions []struct {
		Taps         json.RawMessage `json:"taps"`
		Start        int64           `json:"start"`
		Stop         int64           `json:"stop"`
		Orientations json.RawMessage `json:"orientations"`
		AppIDs       json.RawMessage `json:"appIds"`
		Timezone     string          `json:"timezone"`
		InCharge     int             `json:"inCharge"`
	} `json:"tapSessions"`
	DeviceHealth []struct {
		Timestamps json.RawMessage `json:"timestamps"`
		Charge     json.RawMessage `json:"charge"`
		Events     json.RawMessage `json:"events"`
		Start      int64           `json:"start"`
		Stop       int64           `json:"stop"`
	} `json:"deviceHealth"`
	ActivityTransitions []struct {
		Timestamp  int64  `json:"timestamp"`
		Action     string `json:"action"`
		Transition string `json:"transition"`
	} `json:"activityTransitions"`
	Apps       []string `json:"apps"`
	HourlyTaps []struct {
		Date  string  `json:"date"`
		Hour  int     `json:"hour"`
		Taps  int64   `json:"taps"`
		Speed float64 `json:"speed"`
	} `json:"hourlyTaps"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Load a telemetry export into the local store",
	Long: `Load a telemetry envelope exported by the capture layer: tap
sessions, device health samples, activity transitions, installed apps and
hourly typing aggregates. Everything queues for the next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var env telemetryEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("parse telemetry envelope: %w", err)
		}

		for _, ts := range env.TapSessions {
			var taps []int64
			if err := json.Unmarshal(ts.Taps, &taps); err != nil {
				return fmt.Errorf("tap session at %d: %w", ts.Start, err)
			}
			rec := &models.TapSessionRecord{
				Taps:         string(ts.Taps),
				Start:        ts.Start,
				Stop:         ts.Stop,
				Orientations: string(ts.Orientations),
				AppIDs:       string(ts.AppIDs),
				TapsTotal:    int64(len(taps)),
				Length:       ts.Stop - ts.Start,
				Timezone:     ts.Timezone,
				InCharge:     ts.InCharge,
			}
			if err := store.InsertTapSession(rec); err != nil {
				return fmt.Errorf("queue tap session: %w", err)
			}
		}

		for _, dh := range env.DeviceHealth {
			rec := &models.DeviceHealthRecord{
				Timestamps: string(dh.Timestamps),
				Charge:     string(dh.Charge),
				Events:     string(dh.Events),
				Start:      dh.Start,
				Stop:       dh.Stop,
			}
			if err := store.InsertDeviceHealth(rec); err != nil {
				return fmt.Errorf("queue device health: %w", err)
			}
		}

		for _, at := range env.ActivityTransitions {
			rec := &models.ActivityTransitionRecord{
				Timestamp:  at.Timestamp,
				Action:     at.Action,
				Transition: at.Transition,
			}
			if err := store.InsertActivityTransition(rec); err != nil {
				return fmt.Errorf("queue activity transition: %w", err)
			}
		}

		for _, name := range env.Apps {
			if _, err := store.EnsureAppCode(name); err != nil {
				return fmt.Errorf("register app %q: %w", name, err)
			}
		}

		for _, ht := range env.HourlyTaps {
			if err := store.RecordHourlyTaps(ht.Date, ht.Hour, ht.Taps, ht.Speed); err != nil {
				return fmt.Errorf("record hourly taps: %w", err)
			}
		}

		color.Green("✓ Ingested %d session(s), %d health batch(es), %d transition(s), %d app(s)",
			len(env.TapSessions), len(env.DeviceHealth), len(env.ActivityTransitions), len(env.Apps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
