/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/baseband/pkg/config"
	"github.com/ssargent/baseband/pkg/di"
	"github.com/ssargent/baseband/pkg/logging"
	"github.com/ssargent/baseband/pkg/stream"
)

var container *di.Container

// SetContainer injects the dependency container
func SetContainer(c *di.Container) {
	container = c
}

func getContainer() *di.Container {
	if container == nil {
		container = di.NewContainer()
	}
	return container
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "m5b",
	Short: "m5b - Mark 5B baseband file tool",
	Long: `m5b inspects, checks, decodes and rewrites Mark 5B VLBI baseband
recordings. Mark 5B headers carry neither the channel count nor the sample
rate, so both come from the configuration file or flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		logging.SetLevel(level)
		getContainer().SetConfig(cfg)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if err := getContainer().ExportMetrics(); err != nil {
			return fmt.Errorf("failed to export metrics: %w", err)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file (default "+config.GetDefaultConfigPath()+")")
	flags.Int("channels", 0, "Number of channels")
	flags.Int("bits", 0, "Bits per sample (1 or 2)")
	flags.Float64("sample-rate", 0, "Samples per second per channel")
	flags.String("ref-time", "", "RFC 3339 time within 500 days of the recording")
	flags.Bool("verify", false, "Check CRC and time of every frame read")
	flags.String("log-level", "", "Log level (quiet, info, debug)")
	flags.String("catalog-dir", "", "Scan catalog directory")
}

// loadConfig reads the configuration file, if there is one, and applies the
// flags the user set on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if explicit || config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flags.Changed("channels") {
		cfg.Format.Channels, _ = flags.GetInt("channels")
	}
	if flags.Changed("bits") {
		cfg.Format.BitsPerSample, _ = flags.GetInt("bits")
	}
	if flags.Changed("sample-rate") {
		cfg.Format.SampleRate, _ = flags.GetFloat64("sample-rate")
	}
	if flags.Changed("ref-time") {
		cfg.Format.RefTime, _ = flags.GetString("ref-time")
	}
	if flags.Changed("verify") {
		cfg.Stream.Verify, _ = flags.GetBool("verify")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("catalog-dir") {
		cfg.Catalog.Dir, _ = flags.GetString("catalog-dir")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openReader opens path with the active configuration.
func openReader(path string) (*stream.Reader, error) {
	c := getContainer()
	rc, err := c.GetConfig().ReaderConfig(path, c.GetMetrics())
	if err != nil {
		return nil, err
	}
	return openWith(rc)
}

func openWith(rc stream.ReaderConfig) (*stream.Reader, error) {
	r, err := stream.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", rc.FilePath, err)
	}
	return r, nil
}
