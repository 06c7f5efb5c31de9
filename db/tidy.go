package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// PurgeExpired removes every record whose expiry is at or before the current
// time. Records that would still be reported as seen are never touched.
func (d *Dedup) PurgeExpired(ctx context.Context) (int64, error) {
	now := d.now().Unix()

	log.WithFields(log.Fields{
		"before": now,
	}).Debug("Tidying dedup store")

	count, err := d.backend.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	purgedRecords.Add(float64(count))

	log.WithFields(log.Fields{
		"removed": count,
	}).Info("Removed expired items")

	return count, nil
}
