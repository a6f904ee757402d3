// ABOUTME: CLI commands for the cached questionnaire catalog and for
// ABOUTME: queueing completed responses, pushed fire-and-forget by sync.
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/models"
)

var questionnaireAnswers string

var questionnaireCmd = &cobra.Command{
	Use:     "questionnaire",
	Aliases: []string{"q"},
	Short:   "Browse and answer cohort questionnaires",
}

var questionnaireListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached questionnaires",
	RunE: func(cmd *cobra.Command, args []string) error {
		qs, err := store.Questionnaires()
		if err != nil {
			return err
		}
		if len(qs) == 0 {
			fmt.Println("No questionnaires cached. Join a cohort and sync first.")
			return nil
		}
		faint := color.New(color.Faint)
		for _, q := range qs {
			fmt.Printf("%s  %s\n", color.New(color.Bold).Sprint(q.Name), faint.Sprint(q.ID))
			if q.Description != "" {
				fmt.Printf("  %s\n", q.Description)
			}
			if q.CompletionMinutes > 0 {
				fmt.Printf("  %s\n", faint.Sprintf("~%d min", q.CompletionMinutes))
			}
		}
		return nil
	},
}

var questionnaireAnswerCmd = &cobra.Command{
	Use:   "answer <full-id>",
	Short: "Queue a completed questionnaire response",
	Long: `Queue a completed questionnaire response for the next sync. The
response body is the answers as JSON, from --answers.

Example:
  sensing questionnaire answer study-1:phq9 --answers '{"q1":2,"q2":0}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if questionnaireAnswers == "" {
			return fmt.Errorf("no answers given: use --answers")
		}
		if !json.Valid([]byte(questionnaireAnswers)) {
			return fmt.Errorf("answers must be valid JSON")
		}

		q, err := questionnaireByID(args[0])
		if err != nil {
			return err
		}
		response := &models.QuestionnaireResponse{
			FullID:    q.ID,
			Name:      q.Name,
			Code:      q.Code,
			CreatedAt: time.Now().UnixMilli(),
			Response:  questionnaireAnswers,
		}
		if err := store.InsertQuestionnaireResponse(response); err != nil {
			return fmt.Errorf("failed to queue response: %w", err)
		}
		color.Green("✓ Response queued")
		fmt.Println(color.New(color.Faint).Sprint("  pushes on next sync"))
		return nil
	},
}

func questionnaireByID(fullID string) (*models.Questionnaire, error) {
	qs, err := store.Questionnaires()
	if err != nil {
		return nil, err
	}
	for _, q := range qs {
		if q.ID == fullID {
			return q, nil
		}
	}
	return nil, fmt.Errorf("no questionnaire %s; run 'sensing questionnaire list'", fullID)
}

func init() {
	questionnaireAnswerCmd.Flags().StringVar(&questionnaireAnswers, "answers", "", "answers as JSON")
	questionnaireCmd.AddCommand(questionnaireListCmd, questionnaireAnswerCmd)
	rootCmd.AddCommand(questionnaireCmd)
}
