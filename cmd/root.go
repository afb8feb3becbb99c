// Package cmd implements the phone-advisor command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mspro-labs/phone-advisor/internal/config"
	"mspro-labs/phone-advisor/internal/logger"
)

var (
	debug bool

	appCfg  config.AppConfig
	siteCfg *config.SiteConfig
	log     logger.Logger = logger.NewNop()

	rootCmd = &cobra.Command{
		Use:   "phone-advisor",
		Short: "Scrape phone listings and get AI-backed recommendations",
		Long: `phone-advisor scrapes smartphone listings from Flipkart into a local
SQLite database, ranks them for your priorities and answers questions about
them with Google Gemini. Run "phone-advisor serve" for the web UI.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}
)

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// setup loads the env files, both configs and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	var err error
	if appCfg, err = config.GetAppConfig(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if debug {
		appCfg.Debug = true
		appCfg.LogLevel = "debug"
	}
	if log, err = logger.New(logger.Config{Level: appCfg.LogLevel, Development: appCfg.Debug}); err != nil {
		return err
	}
	if siteCfg, err = config.LoadSiteConfig(appCfg.ConfigPath); err != nil {
		return fmt.Errorf("failed to load site config: %w", err)
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return nil
}
