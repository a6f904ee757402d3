// ABOUTME: CLI command for configuring identity and registering the device.
// ABOUTME: Generates the device id and runs the first session repair.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/auth"
)

var registerPassword string

var registerCmd = &cobra.Command{
	Use:   "register <identity-id>",
	Short: "Configure identity and register this device",
	Long: `Configure the identity this device records data for, then register
the credentials and device with the remote service.

The password can come from --password or the SENSING_PASSWORD environment
variable. Registration is idempotent: re-running with the same identity is
safe.

Example:
  sensing register participant-4711 --password s3cret`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		identityID := args[0]
		password := registerPassword
		if password == "" {
			password = os.Getenv("SENSING_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("no password given: use --password or SENSING_PASSWORD")
		}

		deviceID := creds.DeviceID()
		if deviceID == "" {
			deviceID = uuid.New().String()
		}
		creds.Configure(identityID, password, deviceID)
		if err := creds.Save(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()

		// The repair sequence performs registration, oauth activation and
		// the first login in one pass.
		authenticator := auth.NewAuthenticator(creds, client, logger)
		if _, err := authenticator.Repair(ctx); err != nil {
			return fmt.Errorf("register identity: %w", err)
		}

		tz, _ := time.Now().Zone()
		err := client.RegisterDevice(ctx, identityID, api.DeviceInfo{
			DeviceID: deviceID,
			Model:    runtime.GOOS + "/" + runtime.GOARCH,
			Timezone: tz,
		})
		if err != nil && !api.IsConflict(err) {
			return fmt.Errorf("register device: %w", err)
		}

		color.Green("✓ Registered %s", identityID)
		fmt.Printf("  device %s\n", color.New(color.Faint).Sprint(deviceID))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the cached session tokens",
	Long: `Drop the cached access and refresh tokens. The identity, device id
and local data stay; the next authenticated call repairs the session by
logging in again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds.ClearTokens()
		if err := creds.Save(); err != nil {
			return err
		}
		color.Green("✓ Session tokens cleared")
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "identity password")
	rootCmd.AddCommand(registerCmd, logoutCmd)
}
