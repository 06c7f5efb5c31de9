/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func tidyCmd() *cli.Command {
	return &cli.Command{
		Name:  "tidy",
		Usage: "Tidy up the dedup store",
		Description: `Tidy up the dedup store by removing expired records.

		Records whose expiry has passed no longer suppress anything, this
		keeps the store size down. The serve command does the same on every
		cleanup_interval.`,
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			_, dedup, err := openPipeline(ctx.Context, cfg)
			if err != nil {
				return err
			}
			defer dedup.Close()

			count, err := dedup.PurgeExpired(ctx.Context)
			if err != nil {
				return err
			}
			fmt.Println("Removed expired records: ", count)
			return nil
		},
	}
}
