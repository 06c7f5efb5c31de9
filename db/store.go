package db

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// Never is the expiry timestamp stored for records that must never expire.
// It is exactly representable as a float64 so it survives sorted set scores.
const Never int64 = 1 << 62

var (
	dedupReadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbot_dedup_read_errors_total",
		Help: "Dedup lookups that failed and were treated as not new",
	})

	purgedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbot_dedup_purged_records_total",
		Help: "Dedup records removed because their expiry elapsed",
	})
)

// Backend is the key-value capability the dedup store needs: a score lookup
// by title, an upsert with an expiry timestamp and a range delete by expiry.
// Timestamps are unix seconds.
type Backend interface {
	Expiry(ctx context.Context, title string) (expiresAt int64, found bool, err error)
	Put(ctx context.Context, title string, expiresAt int64) error
	DeleteExpired(ctx context.Context, now int64) (int64, error)
	Close() error
}

// Dedup decides item novelty against a Backend
type Dedup struct {
	backend Backend
	now     func() time.Time
}

// NewDedup wraps backend. A nil clock defaults to time.Now.
func NewDedup(backend Backend, now func() time.Time) *Dedup {
	if now == nil {
		now = time.Now
	}
	return &Dedup{backend: backend, now: now}
}

// IsNew reports whether no live record exists for title. Backend errors are
// logged and reported as not new so a flaky store never causes re-delivery.
func (d *Dedup) IsNew(ctx context.Context, title string) bool {
	expiresAt, found, err := d.backend.Expiry(ctx, title)
	if err != nil {
		dedupReadErrors.Inc()
		log.WithFields(log.Fields{
			"title": title,
			"error": err,
		}).Warn("Dedup lookup failed, treating item as seen")
		return false
	}
	if !found {
		return true
	}
	return expiresAt <= d.now().Unix()
}

// Record stores title with an expiry of now+delay seconds, or Never when
// delay is negative
func (d *Dedup) Record(ctx context.Context, title string, delay int) error {
	expiresAt := Never
	if delay >= 0 {
		expiresAt = d.now().Unix() + int64(delay)
	}
	if err := d.backend.Put(ctx, title, expiresAt); err != nil {
		return fmt.Errorf("record %q: %w", title, err)
	}
	return nil
}

func (d *Dedup) Close() error {
	return d.backend.Close()
}
