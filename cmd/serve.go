/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"newsbot/bot"
	"newsbot/scheduler"
	"newsbot/server"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Deliver news on schedule and answer bot commands",
		Description: `Starts the scheduler, the dedup store cleanup and the Telegram
command loop. When a listen address is configured an HTTP server exposes
/health, /news and /metrics as well.

Stops gracefully on SIGINT or SIGTERM. A pass over the sites that has
already started is finished first.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "token",
				Aliases:  []string{"t"},
				Usage:    "Telegram bot token",
				EnvVars:  []string{"NEWSBOT_TOKEN", "TELOXIDE_TOKEN"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "HTTP listen address, overrides the configured one",
				EnvVars: []string{"NEWSBOT_LISTEN"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline, dedup, err := openPipeline(sigCtx, cfg)
			if err != nil {
				return err
			}
			defer dedup.Close()

			api, err := bot.Connect(ctx.String("token"))
			if err != nil {
				return err
			}
			client := bot.NewClient(api)

			sites := cfg.SiteList()
			trigger := scheduler.NewTrigger(sites, pipeline)
			sched := scheduler.New(sites, pipeline, client, cfg.Interval())

			g, gctx := errgroup.WithContext(sigCtx)

			g.Go(func() error {
				return sched.Run(gctx)
			})

			g.Go(func() error {
				return scheduler.Cleanup(gctx, dedup, cfg.Cleanup())
			})

			updateConfig := tgbotapi.NewUpdate(0)
			updateConfig.Timeout = 60
			updates := api.GetUpdatesChan(updateConfig)

			g.Go(func() error {
				return client.Listen(gctx, updates, trigger)
			})

			g.Go(func() error {
				<-gctx.Done()
				api.StopReceivingUpdates()
				return nil
			})

			listen := cfg.Listen
			if ctx.IsSet("listen") {
				listen = ctx.String("listen")
			}

			if listen != "" {
				app := server.Server(&server.ServerConfig{
					Trigger: trigger,
					Version: Version,
				})

				g.Go(func() error {
					log.WithField("address", listen).Info("Starting server")
					return app.Listen(listen)
				})

				g.Go(func() error {
					<-gctx.Done()
					return app.ShutdownWithTimeout(60 * time.Second)
				})
			}

			err = g.Wait()
			log.Info("Done!")
			return err
		},
	}
}
