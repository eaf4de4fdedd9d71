package main

import (
	"fmt"
	"io"

	"github.com/pevans/newsscraper/config"
	"github.com/pevans/newsscraper/logging"
	"github.com/spf13/cobra"
)

// cli carries state from the root command into its subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	logCloser  io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "newsscraper",
		Short:         "Scrape news websites and browse the collected articles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close()
			}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&c.configPath, "config", "",
		"config file (default $"+config.ConfigPathEnv+" or ~/.newsscraper/config.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newScrapeCmd(c),
		newExportCmd(c),
		newWebsitesCmd(c),
	)

	return root
}

// open opens the application on the loaded configuration.
func (c *cli) open() (*app, error) {
	return openApp(c.cfg)
}
