// Package scheduler runs the feed pipeline for every configured site on a
// fixed interval and on demand.
package scheduler

import (
	"context"
	"newsbot/models"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_deliveries_total",
		Help: "Composed messages handed to the notifier, by site and outcome",
	}, []string{"site", "outcome"})

	lastTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsbot_scheduler_last_tick_timestamp_seconds",
		Help: "Unix time the last scheduled pass over all sites finished",
	})
)

// Runner executes one pipeline run for a site
type Runner interface {
	Run(ctx context.Context, site models.Site) (models.PipelineResult, error)
}

// Notifier delivers a composed message to a set of chats
type Notifier interface {
	Deliver(ctx context.Context, chats []int64, text string) error
}

// Purger removes expired dedup records
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Scheduler struct {
	sites    []models.Site
	runner   Runner
	notifier Notifier
	interval time.Duration
}

func New(sites []models.Site, runner Runner, notifier Notifier, interval time.Duration) *Scheduler {
	return &Scheduler{
		sites:    sites,
		runner:   runner,
		notifier: notifier,
		interval: interval,
	}
}

// Tick runs the pipeline for every site in order and delivers non-empty
// results. A failing site is logged and never blocks the others.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, site := range s.sites {
		result, err := s.runner.Run(ctx, site)
		if err != nil {
			log.WithFields(log.Fields{
				"site":  site.Id,
				"error": err,
			}).Error("Pipeline run failed")
			continue
		}

		if result.Empty() {
			continue
		}

		if err := s.notifier.Deliver(ctx, site.Chats, result.Message); err != nil {
			deliveries.WithLabelValues(site.Id, "error").Inc()
			log.WithFields(log.Fields{
				"site":  site.Id,
				"error": err,
			}).Error("Failed to deliver news")
			continue
		}

		deliveries.WithLabelValues(site.Id, "ok").Inc()
		log.WithFields(log.Fields{
			"site":  site.Id,
			"items": len(result.Accepted),
			"chats": len(site.Chats),
		}).Info("Delivered news")
	}
	lastTick.SetToCurrentTime()
}

// Run ticks, sleeps for the interval and repeats until ctx is cancelled. A
// tick that has started always runs to completion.
func (s *Scheduler) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"sites":    len(s.sites),
		"interval": s.interval,
	}).Info("Starting scheduler")

	for {
		s.Tick(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			log.Info("Stopping scheduler")
			return nil
		case <-time.After(s.interval):
		}
	}
}

// Cleanup purges expired dedup records immediately and then on every
// interval until ctx is cancelled
func Cleanup(ctx context.Context, purger Purger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := purger.PurgeExpired(ctx); err != nil {
			log.WithError(err).Error("Error tidying dedup store")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
