// Package feeds fetches RSS feeds, filters out items that were already
// delivered and composes size bounded notification messages.
package feeds

import (
	"context"
	"newsbot/models"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	pipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_pipeline_runs_total",
		Help: "Pipeline runs by site and outcome",
	}, []string{"site", "outcome"})

	itemsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_items_accepted_total",
		Help: "Feed items accepted as new",
	}, []string{"site"})

	commitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbot_commit_errors_total",
		Help: "Accepted items whose dedup record could not be written",
	}, []string{"site"})

	pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsbot_pipeline_duration_seconds",
		Help:    "Duration of pipeline runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"site"})
)

// Source returns the raw document behind a feed URL
type Source interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DedupStore decides item novelty and remembers delivered items
type DedupStore interface {
	IsNew(ctx context.Context, title string) bool
	Record(ctx context.Context, title string, delay int) error
}

// Pipeline runs fetch, parse, compose and commit for one site at a time. It
// holds no state between runs and is safe for concurrent use.
type Pipeline struct {
	source Source
	store  DedupStore
	limit  int
}

// NewPipeline creates a pipeline. limit is the default message budget for
// sites that do not set their own.
func NewPipeline(source Source, store DedupStore, limit int) *Pipeline {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return &Pipeline{source: source, store: store, limit: limit}
}

// Run executes one pipeline run. Fetch and parse failures abort the run
// before the store is touched. Failed record writes are logged and skipped;
// the result is returned either way.
func (p *Pipeline) Run(ctx context.Context, site models.Site) (models.PipelineResult, error) {
	start := time.Now()
	defer func() {
		pipelineDuration.WithLabelValues(site.Id).Observe(time.Since(start).Seconds())
	}()

	logger := log.WithFields(log.Fields{
		"site":  site.Id,
		"runId": uuid.NewString(),
	})
	result := models.PipelineResult{Site: site.Id}

	data, err := p.source.Fetch(ctx, site.Url)
	if err != nil {
		pipelineRuns.WithLabelValues(site.Id, "fetch_error").Inc()
		logger.WithError(err).Error("Failed to fetch feed")
		return result, err
	}

	items, err := Parse(data)
	if err != nil {
		pipelineRuns.WithLabelValues(site.Id, "parse_error").Inc()
		logger.WithError(err).Error("Failed to parse feed")
		return result, err
	}

	limit := p.limit
	if site.MessageLimit > 0 {
		limit = site.MessageLimit
	}

	result.Message, result.Accepted = Compose(items, limit, func(title string) bool {
		return p.store.IsNew(ctx, title)
	})

	for _, title := range result.Accepted {
		if err := p.store.Record(ctx, title, site.ExpireDelay); err != nil {
			commitErrors.WithLabelValues(site.Id).Inc()
			logger.WithFields(log.Fields{
				"title": title,
				"error": err,
			}).Error("Failed to record item")
		}
	}

	itemsAccepted.WithLabelValues(site.Id).Add(float64(len(result.Accepted)))
	pipelineRuns.WithLabelValues(site.Id, "ok").Inc()
	logger.WithFields(log.Fields{
		"items":    len(items),
		"accepted": len(result.Accepted),
		"duration": time.Since(start),
	}).Info("Pipeline run complete")

	return result, nil
}
