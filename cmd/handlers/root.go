// Package handlers wires the CLI commands: running briefs, serving the
// HTTP API, and managing database migrations.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"briefme/internal/config"
	"briefme/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "briefme",
		Short: "BriefMe generates daily client briefs from tracked social voices",
		Long: `BriefMe ingests recent posts from the voices a workspace tracks,
scores them against each client's positioning and narrative guidance,
and composes a daily plain-text brief per client. Briefs are stored as
digests and delivered by email to the workspace owner and to clients
that opted in.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.briefme.yaml)")

	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewMigrateCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.App.LogLevel)
}
