// alertd runs the deadline alert daemon: the periodic classification
// pass, notification dispatch, and the HTTP API used by the web
// application.
//
// Usage:
//
//	alertd serve                 start the HTTP API and the alert loop
//	alertd run                   execute a single alert pass and exit
//	alertd credential set <key>  store a secret in the system keyring
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/model"
)

var (
	version    = "dev"
	configPath string
	debug      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "alertd",
		Short:   "Deadline alert daemon for legal practice management",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(credentialCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
