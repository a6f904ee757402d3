// ABOUTME: Root Cobra command for the sensing CLI.
// ABOUTME: Wires config, store, credentials and API client per invocation.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/harperreed/sensing/internal/api"
	"github.com/harperreed/sensing/internal/auth"
	"github.com/harperreed/sensing/internal/config"
	"github.com/harperreed/sensing/internal/recon"
	"github.com/harperreed/sensing/internal/storage"
)

var (
	cfg    *config.Config
	store  *storage.Store
	creds  *auth.Credentials
	client *api.Client
	logger *log.Logger
	ready  *recon.Readiness
)

var rootCmd = &cobra.Command{
	Use:   "sensing",
	Short: "Offline-first behavioral sensing data layer",
	Long: `Sensing keeps a durable on-device record of behavioral metrics
(typing speed, sleep, screen time, cognitive tests, journal entries) and
reconciles it with the remote service under intermittent connectivity.

QUICK START:

  $ sensing register my-identity-id    # Configure identity and device
  $ sensing cohort join <cohort-id>    # Enroll in a study
  $ sensing metric get sleep           # Today's sleep score plus history
  $ sensing journal add "long run"     # Write a journal note
  $ sensing sync                       # Push pending records, pull fresh data

Reads serve cached data immediately and refresh in the background when the
cache is stale. Writes queue locally and retry until the server confirms,
so nothing is lost to a dead spot.

DATA STORAGE:

  The local store lives at ~/.local/share/sensing/sensing.db; credentials
  at ~/.config/sensing/credentials.json. Both respect XDG overrides.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
		if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
			logger.SetLevel(lvl)
		}

		store, err = storage.Open(cfg.GetDBPath())
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		creds, err = auth.LoadCredentials(auth.CredentialsPath())
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}

		client = api.NewClient(cfg.GetAPIBaseURL(), cfg.APIKey, creds, api.WithLogger(logger))

		ready = recon.NewReadiness()
		authenticator := auth.NewAuthenticator(creds, client, logger)
		authenticator.OnSession = ready.Signal
		client.SetRepairer(authenticator)
		if creds.AccessToken() != "" {
			// A prior run already resolved the session.
			ready.Signal()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
