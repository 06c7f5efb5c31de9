package scheduler_test

import (
	"context"
	"errors"
	"newsbot/db"
	"newsbot/feeds"
	"newsbot/models"
	"newsbot/scheduler"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	chats []int64
	text  string
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (f *fakeNotifier) Deliver(_ context.Context, chats []int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, delivery{chats: chats, text: text})
	return f.err
}

// fakeRunner returns canned results per site id
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]models.PipelineResult
	errs    map[string]error
	runs    []string
}

func (f *fakeRunner) Run(_ context.Context, site models.Site) (models.PipelineResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, site.Id)
	return f.results[site.Id], f.errs[site.Id]
}

func (f *fakeRunner) Runs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.runs...)
}

type fakePurger struct {
	mu    sync.Mutex
	calls int
}

func (f *fakePurger) PurgeExpired(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return 0, nil
}

func (f *fakePurger) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var sites = []models.Site{
	{Id: "broken", Chats: []int64{1}},
	{Id: "quiet", Chats: []int64{2}},
	{Id: "busy", Chats: []int64{3, 4}},
}

func TestTickDeliversOnlyNonEmptyResults(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]models.PipelineResult{
			"busy": {Site: "busy", Message: "news\n", Accepted: []string{"news"}},
		},
		errs: map[string]error{
			"broken": &feeds.FetchError{URL: "http://broken", Cause: errors.New("refused")},
		},
	}
	notifier := &fakeNotifier{}

	scheduler.New(sites, runner, notifier, time.Minute).Tick(context.Background())

	assert.Equal(t, []string{"broken", "quiet", "busy"}, runner.Runs())
	require.Len(t, notifier.deliveries, 1)
	assert.Equal(t, []int64{3, 4}, notifier.deliveries[0].chats)
	assert.Equal(t, "news\n", notifier.deliveries[0].text)
}

func TestTickContinuesAfterDeliveryError(t *testing.T) {
	runner := &fakeRunner{results: map[string]models.PipelineResult{
		"broken": {Message: "a\n", Accepted: []string{"a"}},
		"busy":   {Message: "b\n", Accepted: []string{"b"}},
	}}
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	scheduler.New(sites, runner, notifier, time.Minute).Tick(context.Background())

	assert.Len(t, notifier.deliveries, 2)
}

func TestScheduledRunsNeverRedeliver(t *testing.T) {
	backend := db.NewMemoryBackend()
	dedup := db.NewDedup(backend, nil)
	doc := []byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>One</title><link>https://example.com/1</link></item>
<item><title>Two</title><link>https://example.com/2</link></item>
</channel></rss>`)
	pipeline := feeds.NewPipeline(staticSource(doc), dedup, 0)
	notifier := &fakeNotifier{}
	site := []models.Site{{Id: "s", ExpireDelay: 600, Chats: []int64{9}}}

	s := scheduler.New(site, pipeline, notifier, time.Minute)
	s.Tick(context.Background())
	s.Tick(context.Background())

	require.Len(t, notifier.deliveries, 1)
	assert.Equal(t, 2, backend.Len())

	// The on-demand path shares the same records
	result, err := scheduler.NewTrigger(site, pipeline).Site(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestRunStopsOnCancel(t *testing.T) {
	runner := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- scheduler.New(sites, runner, &fakeNotifier{}, 10*time.Millisecond).Run(ctx)
	}()

	assert.Eventually(t, func() bool { return len(runner.Runs()) >= 2*len(sites) }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestCleanupRunsImmediatelyAndOnInterval(t *testing.T) {
	purger := &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go scheduler.Cleanup(ctx, purger, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return purger.Calls() >= 3 }, time.Second, 5*time.Millisecond)
}

type staticSource []byte

func (s staticSource) Fetch(context.Context, string) ([]byte, error) {
	return s, nil
}
