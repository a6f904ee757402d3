// ABOUTME: CLI command rotating the identity password on the remote
// ABOUTME: service and in the local credential file.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var passwdNew string

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Rotate the identity password",
	Long: `Rotate the identity password on the remote service. The local
credential file is updated only after the server accepts the change, so a
failed rotation leaves the working password in place.

The new password comes from --new-password or SENSING_NEW_PASSWORD.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if creds.IdentityID() == "" {
			return fmt.Errorf("not registered: run 'sensing register' first")
		}
		newPassword := passwdNew
		if newPassword == "" {
			newPassword = os.Getenv("SENSING_NEW_PASSWORD")
		}
		if newPassword == "" {
			return fmt.Errorf("no password given: use --new-password or SENSING_NEW_PASSWORD")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := client.UpdatePassword(ctx, creds.IdentityID(), newPassword); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		creds.SetPassword(newPassword)
		if err := creds.Save(); err != nil {
			return err
		}
		color.Green("✓ Password updated")
		return nil
	},
}

func init() {
	passwdCmd.Flags().StringVar(&passwdNew, "new-password", "", "replacement password")
	rootCmd.AddCommand(passwdCmd)
}
