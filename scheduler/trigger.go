package scheduler

import (
	"context"
	"errors"
	"fmt"
	"newsbot/models"

	"github.com/samber/lo"
)

var ErrUnknownSite = errors.New("unknown site")

// Trigger runs the pipeline outside the scheduler's cadence and hands the
// result back to the caller. Accepted items are committed exactly as on the
// scheduled path, so an item is never delivered by both.
type Trigger struct {
	sites  []models.Site
	runner Runner
}

func NewTrigger(sites []models.Site, runner Runner) *Trigger {
	return &Trigger{sites: sites, runner: runner}
}

// Site runs the pipeline for the site with the given id
func (t *Trigger) Site(ctx context.Context, id string) (models.PipelineResult, error) {
	site, ok := lo.Find(t.sites, func(s models.Site) bool {
		return s.Id == id
	})
	if !ok {
		return models.PipelineResult{Site: id}, fmt.Errorf("%w: %s", ErrUnknownSite, id)
	}
	return t.runner.Run(ctx, site)
}

// All runs the pipeline for every site in configuration order
func (t *Trigger) All(ctx context.Context) []models.SiteResult {
	results := make([]models.SiteResult, 0, len(t.sites))
	for _, site := range t.sites {
		result, err := t.runner.Run(ctx, site)
		result.Site = site.Id
		results = append(results, models.SiteResult{Result: result, Err: err})
	}
	return results
}
