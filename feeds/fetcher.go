package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	fetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbot_fetch_attempts_total",
		Help: "The total number of feed fetch attempts",
	})

	fetchAttemptErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbot_fetch_attempt_errors_total",
		Help: "The total number of feed fetch attempts that failed",
	})
)

const (
	DefaultRetries      = 3
	DefaultFetchTimeout = 30 * time.Second
	maxFeedSize         = 16 << 20
)

// FetchError is returned once every attempt to fetch a feed has failed
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// FetcherConfig holds the retry policy of a Fetcher
type FetcherConfig struct {
	// Retries after the first attempt. The last attempt's outcome is returned.
	Retries int
	// Timeout of a single attempt
	Timeout time.Duration
	// Delay policy between attempts, nil retries immediately
	BackOff   func() backoff.BackOff
	UserAgent string
}

// Fetcher performs HTTP GETs against feed URLs with a bounded number of retries
type Fetcher struct {
	client  *http.Client
	config  FetcherConfig
	backOff func() backoff.BackOff
}

func NewFetcher(config FetcherConfig) *Fetcher {
	if config.Retries < 0 {
		config.Retries = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultFetchTimeout
	}

	backOff := config.BackOff
	if backOff == nil {
		backOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}

	return &Fetcher{
		client:  &http.Client{Timeout: config.Timeout},
		config:  config,
		backOff: backOff,
	}
}

// Fetch returns the body of the first successful attempt
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0

	operation := func() error {
		attempt++
		fetchAttempts.Inc()

		b, err := f.get(ctx, url)
		if err != nil {
			fetchAttemptErrors.Inc()
			log.WithFields(log.Fields{
				"url":     url,
				"attempt": attempt,
				"error":   err,
			}).Debug("Fetch attempt failed")
			return err
		}

		body = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(f.backOff(), uint64(f.config.Retries)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &FetchError{URL: url, Cause: err}
	}

	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
}
