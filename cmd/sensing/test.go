// ABOUTME: CLI commands recording completed cognitive test sessions.
// ABOUTME: Results land in the local store and push on the next sync.
package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/models"
)

var (
	pvtLapses      int
	pvtFalseStarts int
	dotGridSize    int
	dotCorrect     []int
	dotDurations   []int
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Record cognitive test results",
	Long: `Record the outcome of a completed cognitive mini-game. Results are
stored locally and pushed as a batch on the next sync.`,
}

var testPvtCmd = &cobra.Command{
	Use:   "pvt <latencies-ms>",
	Short: "Record a reaction-time (PVT) session",
	Long: `Record a psychomotor vigilance task session from its comma-separated
response latencies in milliseconds.

Example:
  sensing test pvt 231,245,198,310 --lapses 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		latencies, err := parseInt64List(args[0])
		if err != nil {
			return fmt.Errorf("latencies must be comma-separated integers: %w", err)
		}
		if len(latencies) == 0 {
			return fmt.Errorf("at least one latency is required")
		}
		payload := models.ReactionTimeResult{
			LatenciesMillis: latencies,
			Lapses:          pvtLapses,
			FalseStarts:     pvtFalseStarts,
		}
		return recordTestResult(models.TestReactionTime, payload)
	},
}

var testDotCmd = &cobra.Command{
	Use:   "dot-memory",
	Short: "Record a spatial-memory (dot grid) session",
	Long: `Record a dot-memory session: per-round correct dot counts and round
durations in milliseconds.

Example:
  sensing test dot-memory --grid 5 --correct 3,4,4 --durations 2100,1800,2400`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(dotCorrect) == 0 {
			return fmt.Errorf("--correct is required")
		}
		if len(dotDurations) != len(dotCorrect) {
			return fmt.Errorf("--durations must have one value per round")
		}
		payload := models.SpatialMemoryResult{
			GridSize:    dotGridSize,
			Rounds:      len(dotCorrect),
			CorrectDots: dotCorrect,
			DurationsMs: dotDurations,
		}
		return recordTestResult(models.TestSpatialMemory, payload)
	},
}

func recordTestResult(testType models.CognitiveTestType, payload any) error {
	now := time.Now()
	result, err := models.NewCognitiveTestResult(testType, payload, now.UnixMilli(), now.Format(time.RFC3339))
	if err != nil {
		return err
	}
	if err := store.InsertCognitiveTestResult(result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	color.Green("✓ %s result recorded", testType)
	fmt.Println(color.New(color.Faint).Sprint("  pushes on next sync"))
	return nil
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func init() {
	testPvtCmd.Flags().IntVar(&pvtLapses, "lapses", 0, "responses slower than the lapse threshold")
	testPvtCmd.Flags().IntVar(&pvtFalseStarts, "false-starts", 0, "responses before the stimulus")
	testDotCmd.Flags().IntVar(&dotGridSize, "grid", 5, "grid edge length")
	testDotCmd.Flags().IntSliceVar(&dotCorrect, "correct", nil, "correct dots per round")
	testDotCmd.Flags().IntSliceVar(&dotDurations, "durations", nil, "round durations in ms")
	testCmd.AddCommand(testPvtCmd, testDotCmd)
	rootCmd.AddCommand(testCmd)
}
