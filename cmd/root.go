/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"newsbot/config"
	"newsbot/db"
	"newsbot/feeds"

	"github.com/urfave/cli/v2"
)

// Version is set at build time with -ldflags "-X newsbot/cmd.Version=..."
var Version = "dev"

func RootApp() *cli.App {
	return &cli.App{
		Name:    "newsbot",
		Usage:   "Deliver new RSS items to Telegram chats",
		Version: Version,
		Description: `A Telegram bot that watches RSS feeds and posts the items it
		has not delivered before.

		Every site in the configuration is fetched on a fixed interval. Items
		are checked against a dedup store (Redis, SQLite, PostgreSQL or memory)
		and the new ones are sent as one message per site to the site's chats.
		Delivered items stay suppressed for the site's expire_delay.

		Flags can generally be set via environment variables, e.g.:

		--config => NEWSBOT_CONFIG=/opt/rss.yaml
		--token => NEWSBOT_TOKEN=123:abc
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "/opt/rss.yaml",
				Usage:   "Path to the YAML or TOML configuration file",
				EnvVars: []string{"NEWSBOT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level, overrides the configured one",
				EnvVars: []string{"NEWSBOT_LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			newsCmd(),
			tidyCmd(),
			migrateCmd(),
			rollbackCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// loadConfig reads the configuration and sets up logging from it
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, err
	}

	logConfig := cfg.Log
	if level := ctx.String("log-level"); level != "" {
		logConfig.Level = level
	}
	if err := configureLogging(logConfig); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openPipeline connects the dedup store and builds the pipeline on top of it.
// The caller closes the returned store.
func openPipeline(ctx context.Context, cfg *config.Config) (*feeds.Pipeline, *db.Dedup, error) {
	backend, err := db.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("open dedup store: %w", err)
	}

	dedup := db.NewDedup(backend, nil)
	fetcher := feeds.NewFetcher(cfg.FetcherConfig("newsbot/" + Version))
	return feeds.NewPipeline(fetcher, dedup, cfg.MessageLimit), dedup, nil
}
