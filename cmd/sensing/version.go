// ABOUTME: CLI version command.
// ABOUTME: Version is stamped at build time via -ldflags.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time:
//
//	go build -ldflags "-X main.version=1.2.3"
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sensing %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
