// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubrecon CLI. pubrecon reconciles
// each researcher's publications from the ORCID registry and an academic
// aggregator into one deduplicated CSV report, with a checkpoint that lets
// an interrupted run resume where it stopped.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit codes beyond the default failure code 1.
const exitInterrupted = 130

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// rootCmd is the base command for the pubrecon CLI.
var rootCmd = &cobra.Command{
	Use:   "pubrecon",
	Short: "Reconcile researcher publications across ORCID and an aggregator",
	Long: `pubrecon reads a roster of researchers, fetches each one's works from the
ORCID registry and then from an aggregator (Google Scholar or OpenAlex),
drops duplicates across the two, and writes one CSV report plus a JSON
progress summary.

Progress is checkpointed after every researcher. Re-running the same roster
resumes an interrupted run; use --fresh or 'pubrecon reset' to start over.

Configuration precedence (highest to lowest):
  1. CLI flags
  2. Environment variables (PUBRECON_*, nested keys joined by _)
  3. Config file (pubrecon.yaml)
  4. Built-in defaults

Registry credentials are read from ORCID_CLIENT_ID and ORCID_CLIENT_SECRET,
a .env file, or .secrets/orcid-client-id and .secrets/orcid-client-secret.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pubrecon.yaml or ~/.config/pubrecon/pubrecon.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubrecon")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubrecon"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("PUBRECON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
