// Package cmd provides the sitecast command-line interface.
//
// Configuration is resolved from multiple sources with clear precedence:
//  1. Command-line flags (--config, --port) - highest priority
//  2. SITECAST_CONFIG_FILE environment variable - custom config path
//  3. Individual environment variables (SITECAST_SERVER_PORT, etc.)
//  4. Configuration file (.sitecast.yml) - lowest priority
//
// Environment variables follow the SITECAST_<SECTION>_<OPTION> pattern:
// SITECAST_SERVER_PORT, SITECAST_STORE_URI, SITECAST_SITE_OUTPUT_DIR
// and so on.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/errors"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "sitecast",
	Short: "Content management backend and static site generator",
	Long: `Sitecast stores per-project key/value content and generates static
client sites from HTML templates.

Quick Start:
  sitecast serve                  Start the content API server
  sitecast generate <projectId>   Generate a project's static site
  sitecast projects               List stored projects
  sitecast version                Print version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .sitecast.yml, can also use SITECAST_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig wires viper to the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SITECAST_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sitecast")
	}

	viper.SetEnvPrefix("SITECAST")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())

	// A missing config file is fine; defaults and environment cover it.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Store.Timeout)
		defer cancel()
		return store.NewMongoStore(connectCtx, cfg.Store.URI, cfg.Store.Database)
	default:
		return nil, errors.Config("unknown_backend", "unknown store backend").
			WithContext("backend", cfg.Store.Backend)
	}
}
