// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubrecon/pkg/types"
)

// setDefaults registers every configuration key with its default so that
// environment variables are honored for all of them.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("summary", d.Summary)
	v.SetDefault("split_by_source", d.SplitBySource)
	v.SetDefault("metrics_file", d.MetricsFile)
	v.SetDefault("secrets_dir", d.SecretsDir)
	v.SetDefault("env_file", d.EnvFile)
	v.SetDefault("concurrency", d.Concurrency)

	http := func(prefix string, h types.HTTPConfig) {
		v.SetDefault(prefix+".timeout", h.Timeout)
		v.SetDefault(prefix+".user_agent", h.UserAgent)
		v.SetDefault(prefix+".rate_limit", h.RateLimit)
		v.SetDefault(prefix+".rate_limit_retries", h.RateLimitRetries)
	}
	http("registry", d.Registry.HTTPConfig)
	v.SetDefault("registry.token_url", d.Registry.TokenURL)
	v.SetDefault("registry.api_base_url", d.Registry.APIBaseURL)

	http("aggregator", d.Aggregator.HTTPConfig)
	v.SetDefault("aggregator.backend", string(d.Aggregator.Backend))
	v.SetDefault("aggregator.base_url", d.Aggregator.BaseURL)
	v.SetDefault("aggregator.email", d.Aggregator.Email)
	v.SetDefault("aggregator.max_pages", d.Aggregator.MaxPages)

	v.SetDefault("match.threshold", d.Match.Threshold)
	v.SetDefault("match.algorithm", d.Match.Algorithm)

	v.SetDefault("checkpoint.backend", string(d.Checkpoint.Backend))
	v.SetDefault("checkpoint.path", d.Checkpoint.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.rotate", d.Log.Rotate)
}

// loadConfig decodes the merged flag, environment, file, and default
// settings into a Config.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.Concurrency < 1 {
		return types.Config{}, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	switch cfg.Aggregator.Backend {
	case types.AggregatorScholar, types.AggregatorOpenAlex, types.AggregatorNone:
	default:
		return types.Config{}, fmt.Errorf("unknown aggregator backend %q (want scholar, openalex, or none)", cfg.Aggregator.Backend)
	}
	return cfg, nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to pubrecon.yaml",
	Long: `Init writes the configuration currently in effect (defaults merged with
any environment overrides) as YAML. Credentials are never written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		if err := writeConfig(path, cfg, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

// writeConfig writes cfg to path as YAML. It refuses to replace an
// existing file unless force is set.
func writeConfig(path string, cfg types.Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func init() {
	configInitCmd.Flags().String("path", "pubrecon.yaml", "file to write")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
