/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"newsbot/db"

	"github.com/urfave/cli/v2"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured SQLite or PostgreSQL store. Will create the database if it does not exist.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			opts := cfg.StoreOptions()
			fmt.Printf("Database configured: %s\n", describeStore(opts))
			return db.Migrate(opts)
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			opts := cfg.StoreOptions()
			fmt.Printf("Database configured: %s\n", describeStore(opts))
			return db.Rollback(opts)
		},
	}
}

func describeStore(opts db.Options) string {
	if opts.Backend == db.BackendSQLite {
		return opts.Backend + " " + opts.Database
	}
	return opts.Backend
}
