package cmd

import (
	"fmt"
	"newsbot/models"
	"newsbot/scheduler"

	"github.com/urfave/cli/v2"
)

func newsCmd() *cli.Command {
	return &cli.Command{
		Name:  "news",
		Usage: "Print the news of every site, or of one",
		Description: `Runs the pipeline once and prints the composed messages to stdout.

Printed items are recorded in the dedup store just like delivered ones, so
they will not be sent by the scheduler afterwards.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "site",
				Aliases: []string{"s"},
				Usage:   "Only run the site with this id",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			pipeline, dedup, err := openPipeline(ctx.Context, cfg)
			if err != nil {
				return err
			}
			defer dedup.Close()

			trigger := scheduler.NewTrigger(cfg.SiteList(), pipeline)

			if id := ctx.String("site"); id != "" {
				result, err := trigger.Site(ctx.Context, id)
				if err != nil {
					return err
				}
				printResult(result)
				return nil
			}

			for _, r := range trigger.All(ctx.Context) {
				if r.Err != nil {
					fmt.Printf("# %s: %v\n", r.Result.Site, r.Err)
					continue
				}
				printResult(r.Result)
			}
			return nil
		},
	}
}

func printResult(result models.PipelineResult) {
	if result.Empty() {
		fmt.Printf("# %s: no news\n", result.Site)
		return
	}
	fmt.Printf("# %s\n%s", result.Site, result.Message)
}
